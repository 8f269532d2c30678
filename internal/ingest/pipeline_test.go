package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	goparquet "github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"github.com/careops/payledger/internal/config"
	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/store"
)

func f64(v float64) *float64 { return &v }

func exportRow(patient, status, approved string) model.VisitExportRow {
	return model.VisitExportRow{
		ClinicianFirstName: "Amy",
		ClinicianLastName:  "Adams",
		PatientName:        patient,
		VisitType:          "RN",
		VisitScheduledDate: "2025-03-02",
		AgencyName:         "D9 HOMECARE",
		AgreedPrice:        f64(50),
		InitialPrice:       f64(75),
		VisitStatus:        status,
		ApprovedDate:       approved,
	}
}

func writeFixture(t *testing.T, rows []model.VisitExportRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "visits.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	writer := goparquet.NewGenericWriter[model.VisitExportRow](f)
	if _, err := writer.Write(rows); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close fixture: %v", err)
	}
	return path
}

func date(s string) *time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	d = d.UTC()
	return &d
}

func testConfig(path string) *config.Config {
	return &config.Config{
		FilePath: path,
		Admin: config.Admin{
			PayPeriodStart: date("2025-03-01"),
			PayPeriodEnd:   date("2025-03-15"),
			ApprovedFrom:   date("2025-03-01"),
			ApprovedTo:     date("2025-03-16"),
			OutputRoot:     "Out",
			Buckets:        []string{"D9", "D10"},
		},
	}
}

func TestRun_FiltersAndWritesRawTable(t *testing.T) {
	ctx := context.Background()
	path := writeFixture(t, []model.VisitExportRow{
		exportRow("Kept Visit", "approved", "2025-03-05"),
		exportRow("Rejected Visit", "Rejected", "2025-03-05"),
		exportRow("Too Early", "approved", "2025-02-01"),
		exportRow("Too Late", "approved", "2025-03-17"),
		exportRow("No Approval Date", "approved", ""),
		exportRow("Boundary End", "approved", "2025-03-16"),
	})

	tab := store.NewMemory()
	summary, err := Run(ctx, tab, zerolog.Nop(), testConfig(path))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RowsRead != 6 || summary.RowsKept != 2 || summary.RowsRejected != 4 {
		t.Fatalf("summary = %+v", summary)
	}

	raw, err := tab.ReadAll(ctx, store.RawTable)
	if err != nil {
		t.Fatalf("read raw table: %v", err)
	}
	if len(raw.Rows) != 2 {
		t.Fatalf("raw rows = %d, want 2", len(raw.Rows))
	}
	if raw.Header[0] != model.ColFirst {
		t.Errorf("header = %v", raw.Header)
	}

	patients := []string{raw.Rows[0][2], raw.Rows[1][2]}
	if patients[0] != "Kept Visit" || patients[1] != "Boundary End" {
		t.Errorf("kept patients = %v", patients)
	}
	// Money columns normalize to fixed decimals.
	if raw.Rows[0][6] != "50.00" || raw.Rows[0][7] != "75.00" {
		t.Errorf("money cells = %q / %q", raw.Rows[0][6], raw.Rows[0][7])
	}
}

func TestRun_ReplacesPriorImport(t *testing.T) {
	ctx := context.Background()
	tab := store.NewMemory()

	first := writeFixture(t, []model.VisitExportRow{
		exportRow("Old Visit", "approved", "2025-03-05"),
		exportRow("Old Visit 2", "approved", "2025-03-05"),
	})
	if _, err := Run(ctx, tab, zerolog.Nop(), testConfig(first)); err != nil {
		t.Fatalf("first import: %v", err)
	}

	second := writeFixture(t, []model.VisitExportRow{
		exportRow("New Visit", "approved", "2025-03-05"),
	})
	if _, err := Run(ctx, tab, zerolog.Nop(), testConfig(second)); err != nil {
		t.Fatalf("second import: %v", err)
	}

	raw, _ := tab.ReadAll(ctx, store.RawTable)
	if len(raw.Rows) != 1 || raw.Rows[0][2] != "New Visit" {
		t.Errorf("import should replace wholesale: %v", raw.Rows)
	}
}

func TestRun_MissingAdminLabelsIsPreflightError(t *testing.T) {
	ctx := context.Background()
	path := writeFixture(t, []model.VisitExportRow{
		exportRow("Visit", "approved", "2025-03-05"),
	})
	cfg := testConfig(path)
	cfg.Admin.ApprovedFrom = nil
	cfg.Admin.ApprovedTo = nil

	_, err := Run(ctx, store.NewMemory(), zerolog.Nop(), cfg)
	if err == nil {
		t.Fatal("expected preflight error")
	}
	pe, ok := err.(*PipelineError)
	if !ok || pe.Phase != "preflight" {
		t.Fatalf("err = %v, want preflight PipelineError", err)
	}
}

func TestRun_MissingFile(t *testing.T) {
	cfg := testConfig("/nonexistent/visits.parquet")
	_, err := Run(context.Background(), store.NewMemory(), zerolog.Nop(), cfg)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if pe, ok := err.(*PipelineError); !ok || pe.Phase != "open" {
		t.Fatalf("err = %v, want open PipelineError", err)
	}
}

func TestValidateSchema_MissingColumn(t *testing.T) {
	type truncatedRow struct {
		PatientName string `parquet:"patient_name"`
	}
	path := filepath.Join(t.TempDir(), "bad.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	writer := goparquet.NewGenericWriter[truncatedRow](f)
	if _, err := writer.Write([]truncatedRow{{PatientName: "P"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	writer.Close()
	f.Close()

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if err := ValidateSchema(r.Schema()); err == nil {
		t.Fatal("expected schema validation error")
	}
}
