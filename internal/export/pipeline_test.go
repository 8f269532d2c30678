package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/careops/payledger/internal/config"
	"github.com/careops/payledger/internal/ledger"
	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/store"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	t = t.UTC()
	return &t
}

func testAdmin() *config.Admin {
	return &config.Admin{
		PayPeriodStart: date("2025-03-01"),
		PayPeriodEnd:   date("2025-03-15"),
		ApprovedFrom:   date("2025-03-01"),
		ApprovedTo:     date("2025-03-16"),
		OutputRoot:     "Out",
		Buckets:        []string{"D9", "D10"},
	}
}

func visit(first, last, patient string, pay int64) model.Visit {
	return model.Visit{
		First: first, Last: last, Patient: patient, VisitType: "RN",
		Date: date("2025-03-02"), Agency: "D9 HOMECARE",
		Pay:  decimal.NewFromInt(pay),
		Rate: decimal.NewFromInt(pay + 10),
	}
}

// seedPayroll writes a D9 payroll ledger with two clinician entities.
func seedPayroll(t *testing.T, tab store.Tabular) {
	t.Helper()
	l := ledger.Build("D9", model.Payroll, []model.Visit{
		visit("Amy", "Adams", "P1", 50),
		visit("Amy", "Adams", "P2", 30),
		visit("Zoe", "Young", "P3", 40),
	})
	if err := ledger.WriteLedger(context.Background(), tab, l); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
}

func testRunner(tab store.Tabular, docs store.Documents) *Runner {
	r := NewRunner(tab, docs, store.NewRunState(tab), zerolog.Nop(), testAdmin())
	r.Sleep = func(time.Duration) {}
	r.Backoff.Sleep = func(time.Duration) {}
	return r
}

const testFolder = "Out/03-01-2025 to 03-15-2025/D9/Payroll"

func TestRun_CreatesDocuments(t *testing.T) {
	ctx := context.Background()
	tab := store.NewMemory()
	docs := store.NewMemoryDocuments()
	seedPayroll(t, tab)
	r := testRunner(tab, docs)

	res, err := r.Run(ctx, "run-1", "D9", model.Payroll)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Suspension != nil {
		t.Fatal("unexpected suspension")
	}
	if res.Summary.Created != 2 || res.Summary.Skipped != 0 || res.Summary.Failed != 0 {
		t.Fatalf("summary = %+v", res.Summary)
	}

	for _, name := range []string{"Amy Adams.pdf", "Zoe Young.pdf"} {
		if _, ok := docs.Get(testFolder, name); !ok {
			t.Errorf("document %s not written", name)
		}
	}

	payload, _ := docs.Get(testFolder, "Amy Adams.pdf")
	body := string(payload)
	if !strings.Contains(body, "Amy Adams\n") ||
		!strings.Contains(body, "Pay Period: 03/01/2025 - 03/15/2025") ||
		!strings.Contains(body, "Total Visits: 2") ||
		!strings.Contains(body, "Total Pay: $80.00") {
		t.Errorf("document body wrong:\n%s", body)
	}

	if _, found, _ := r.State.Cursor(ctx, "run-1", "D9", "Payroll"); found {
		t.Error("cursor should be cleared after exhaustion")
	}

	audit, err := tab.ReadAll(ctx, store.ExportAuditTable)
	if err != nil || len(audit.Rows) != 2 {
		t.Fatalf("audit rows = %d, want 2 (%v)", len(audit.Rows), err)
	}
}

func TestRun_SkipsExistingDocuments(t *testing.T) {
	ctx := context.Background()
	tab := store.NewMemory()
	docs := store.NewMemoryDocuments()
	seedPayroll(t, tab)
	r := testRunner(tab, docs)

	if _, err := r.Run(ctx, "run-1", "D9", model.Payroll); err != nil {
		t.Fatalf("first run: %v", err)
	}
	writes := docs.Writes

	res, err := r.Run(ctx, "run-2", "D9", model.Payroll)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Summary.Skipped != 2 || res.Summary.Created != 0 {
		t.Fatalf("summary = %+v", res.Summary)
	}
	if docs.Writes != writes {
		t.Errorf("skipped entities must not rewrite documents: %d writes", docs.Writes-writes)
	}

	// Replace-by-key: still one audit row per entity, owned by the new run.
	audit, _ := tab.ReadAll(ctx, store.ExportAuditTable)
	if len(audit.Rows) != 2 {
		t.Fatalf("audit rows = %d, want 2", len(audit.Rows))
	}
	for _, row := range audit.Rows {
		if row[0] != "run-2" || row[5] != string(model.OutcomeSkipped) {
			t.Errorf("audit row not replaced: %v", row)
		}
	}
}

func TestRun_DiscardedDocumentIsRecreated(t *testing.T) {
	ctx := context.Background()
	tab := store.NewMemory()
	docs := store.NewMemoryDocuments()
	seedPayroll(t, tab)
	r := testRunner(tab, docs)

	if _, err := r.Run(ctx, "run-1", "D9", model.Payroll); err != nil {
		t.Fatalf("first run: %v", err)
	}
	docs.Discard(testFolder, "Amy Adams.pdf")

	res, err := r.Run(ctx, "run-2", "D9", model.Payroll)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Summary.Created != 1 || res.Summary.Skipped != 1 {
		t.Fatalf("summary = %+v", res.Summary)
	}
}

func TestRun_QuotaSuspendsAndResumes(t *testing.T) {
	ctx := context.Background()
	tab := store.NewMemory()
	docs := store.NewMemoryDocuments()
	seedPayroll(t, tab)
	r := testRunner(tab, docs)
	r.Quota = 1

	res, err := r.Run(ctx, "run-1", "D9", model.Payroll)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Suspension == nil {
		t.Fatal("expected suspension at quota")
	}
	if res.Suspension.NextIndex != 1 || !res.Summary.Suspended {
		t.Fatalf("suspension = %+v", res.Suspension)
	}

	next, found, err := r.State.Cursor(ctx, "run-1", "D9", "Payroll")
	if err != nil || !found || next != 1 {
		t.Fatalf("persisted cursor = %d found=%v err=%v, want 1", next, found, err)
	}

	res, err = r.Run(ctx, "run-1", "D9", model.Payroll)
	if err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	if res.Suspension != nil {
		t.Fatal("second segment should exhaust the list")
	}
	if res.Summary.Created != 1 {
		t.Fatalf("resumed summary = %+v", res.Summary)
	}
	if _, ok := docs.Get(testFolder, "Zoe Young.pdf"); !ok {
		t.Error("second entity never exported")
	}
}

func TestRun_EntityFailureContinues(t *testing.T) {
	ctx := context.Background()
	tab := store.NewMemory()
	docs := store.NewMemoryDocuments()
	seedPayroll(t, tab)
	boom := errors.New("disk full")
	docs.WriteErr = func(folder, name string) error {
		if name == "Amy Adams.pdf" {
			return boom
		}
		return nil
	}
	r := testRunner(tab, docs)

	res, err := r.Run(ctx, "run-1", "D9", model.Payroll)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Summary.Failed != 1 || res.Summary.Created != 1 {
		t.Fatalf("summary = %+v", res.Summary)
	}

	audit, _ := tab.ReadAll(ctx, store.ExportAuditTable)
	failed := 0
	for _, row := range audit.Rows {
		if row[5] == string(model.OutcomeFailed) && strings.Contains(row[6], "disk full") {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected one FAILED audit row with the error noted, got %v", audit.Rows)
	}
}

func TestRun_RateLimitExhaustionIsFatal(t *testing.T) {
	ctx := context.Background()
	tab := store.NewMemory()
	docs := store.NewMemoryDocuments()
	seedPayroll(t, tab)
	docs.WriteErr = func(folder, name string) error { return store.ErrRateLimited }
	r := testRunner(tab, docs)
	r.Backoff.MaxAttempts = 2

	_, err := r.Run(ctx, "run-1", "D9", model.Payroll)
	if err == nil {
		t.Fatal("expected fatal error after backoff exhaustion")
	}
	if !store.IsRateLimited(err) {
		t.Errorf("error should wrap the rate limit: %v", err)
	}

	// No cursor was advanced, so a retry starts at the failing entity.
	if next, found, _ := r.State.Cursor(ctx, "run-1", "D9", "Payroll"); found && next != 0 {
		t.Errorf("cursor = %d, want 0", next)
	}
}

type stubDocs struct {
	exists func(folder, name string) (bool, error)
	write  func(folder, name string) error
}

func (s *stubDocs) Exists(ctx context.Context, folder, name string) (bool, error) {
	return s.exists(folder, name)
}

func (s *stubDocs) Write(ctx context.Context, folder, name string, payload []byte) error {
	if s.write == nil {
		return nil
	}
	return s.write(folder, name)
}

func TestRun_ThrottledExistencePausesBatch(t *testing.T) {
	ctx := context.Background()
	tab := store.NewMemory()
	seedPayroll(t, tab)
	docs := &stubDocs{
		exists: func(folder, name string) (bool, error) { return false, store.ErrRateLimited },
	}
	r := testRunner(tab, docs)

	var paused time.Duration
	r.Sleep = func(d time.Duration) { paused += d }

	_, err := r.Run(ctx, "run-1", "D9", model.Payroll)
	if err == nil {
		t.Fatal("expected the throttle to propagate")
	}
	if paused < r.BatchPause {
		t.Errorf("slept %v, want at least the batch pause %v", paused, r.BatchPause)
	}
}

func TestScheduler_DriveMergesSegments(t *testing.T) {
	ctx := context.Background()
	tab := store.NewMemory()
	docs := store.NewMemoryDocuments()
	seedPayroll(t, tab)
	r := testRunner(tab, docs)
	r.Quota = 1

	s := NewScheduler(zerolog.Nop())
	s.Sleep = func(time.Duration) {}

	total, err := s.Drive(ctx, r, "run-1", "D9", model.Payroll)
	if err != nil {
		t.Fatalf("Drive: %v", err)
	}
	if total.Created != 2 {
		t.Fatalf("merged summary = %+v", total)
	}
}

func TestBackoff_RetriesThenSucceeds(t *testing.T) {
	var slept []time.Duration
	b := Backoff{Start: time.Second, MaxAttempts: 5, Sleep: func(d time.Duration) { slept = append(slept, d) }}

	calls := 0
	err := b.Do(func() error {
		calls++
		if calls < 3 {
			return store.ErrRateLimited
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("sleeps = %v, want doubling from 1s", slept)
	}
}

func TestBackoff_NonThrottleErrorImmediate(t *testing.T) {
	boom := errors.New("boom")
	b := Backoff{Start: time.Second, MaxAttempts: 5, Sleep: func(time.Duration) {}}
	calls := 0
	err := b.Do(func() error { calls++; return boom })
	if !errors.Is(err, boom) || calls != 1 {
		t.Errorf("err = %v calls = %d", err, calls)
	}
}

func TestBackoff_Exhaustion(t *testing.T) {
	b := Backoff{Start: time.Millisecond, MaxAttempts: 3, Sleep: func(time.Duration) {}}
	err := b.Do(func() error { return store.ErrRateLimited })
	if err == nil || !store.IsRateLimited(err) {
		t.Fatalf("err = %v, want wrapped rate limit", err)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("err = %v", err)
	}
}

func TestBuildDocument_InvoiceResortsByPatient(t *testing.T) {
	g := model.EntityGroup{Name: "D9 HOMECARE", Entries: []model.Entry{
		{Visit: visit("A", "A", "Zeta", 10)},
		{Visit: visit("B", "B", "Alpha", 20)},
	}}
	doc := BuildDocument(model.Invoice, "03/01/2025 - 03/15/2025", g)
	if doc.Rows[0][0] != "Alpha" || doc.Rows[1][0] != "Zeta" {
		t.Errorf("invoice rows not re-sorted by patient: %v", doc.Rows)
	}
	if doc.TotalAmount.String() != "50" {
		t.Errorf("TotalAmount = %s, want 50 (sum of rates)", doc.TotalAmount)
	}
}

func TestDocName(t *testing.T) {
	if got := DocName("Amy/Adams:LLC"); got != "AmyAdamsLLC.pdf" {
		t.Errorf("DocName = %q", got)
	}
}
