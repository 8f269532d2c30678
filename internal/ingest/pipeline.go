// Package ingest loads an agency visit export into the raw table. The
// import is wholesale: the raw table is replaced in full, never
// appended to, so a re-run after a partial failure is always safe.
package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/careops/payledger/internal/config"
	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/normalize"
	"github.com/careops/payledger/internal/store"
)

const readBatchSize = 4096

// PipelineError wraps an import failure with the phase it occurred in.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("import %s: %v", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Run imports the Parquet visit export at cfg.FilePath into the raw
// table, keeping only approved-window visits that were not rejected.
func Run(ctx context.Context, tab store.Tabular, log zerolog.Logger, cfg *config.Config) (*model.ImportSummary, error) {
	start := time.Now()

	if err := cfg.Admin.Validate(); err != nil {
		return nil, &PipelineError{Phase: "preflight", Err: err}
	}
	from, to := cfg.Admin.ApprovalWindow()

	r, err := Open(cfg.FilePath)
	if err != nil {
		return nil, &PipelineError{Phase: "open", Err: err}
	}
	defer r.Close()

	if err := ValidateSchema(r.Schema()); err != nil {
		return nil, &PipelineError{Phase: "schema", Err: err}
	}

	log.Info().
		Str("file", cfg.FilePath).
		Int64("rows", r.NumRows()).
		Time("approved_from", from).
		Time("approved_to", to).
		Msg("starting visit import")

	summary := &model.ImportSummary{FilePath: cfg.FilePath}
	out := store.Table{Header: model.VisitHeader()}

	batch := make([]model.VisitExportRow, readBatchSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, &PipelineError{Phase: "read", Err: err}
		}
		n, err := r.Read(batch)
		for _, row := range batch[:n] {
			summary.RowsRead++
			v := visitFromExport(row)
			if !keep(v, from, to) {
				summary.RowsRejected++
				continue
			}
			summary.RowsKept++
			out.Rows = append(out.Rows, v.Record())
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &PipelineError{Phase: "read", Err: err}
		}
	}

	if err := tab.WriteAll(ctx, store.RawTable, out); err != nil {
		return nil, &PipelineError{Phase: "write", Err: err}
	}

	summary.Duration = time.Since(start)
	log.Info().
		Int64("rows_read", summary.RowsRead).
		Int64("rows_kept", summary.RowsKept).
		Int64("rows_rejected", summary.RowsRejected).
		Dur("duration", summary.Duration).
		Msg("visit import complete")
	return summary, nil
}

// keep applies the import filter: rejected visits are dropped, as is
// anything approved outside the inclusive approval window. A visit with
// no parseable approval date never qualifies.
func keep(v model.Visit, from, to time.Time) bool {
	if strings.EqualFold(strings.TrimSpace(v.Status), "rejected") {
		return false
	}
	if v.ApprovedAt == nil {
		return false
	}
	if v.ApprovedAt.Before(from) || v.ApprovedAt.After(to) {
		return false
	}
	return true
}

func visitFromExport(row model.VisitExportRow) model.Visit {
	return model.Visit{
		First:      strings.TrimSpace(row.ClinicianFirstName),
		Last:       strings.TrimSpace(row.ClinicianLastName),
		Patient:    strings.TrimSpace(row.PatientName),
		VisitType:  strings.TrimSpace(row.VisitType),
		Date:       normalize.ParseDate(row.VisitScheduledDate),
		Agency:     strings.TrimSpace(row.AgencyName),
		Pay:        moneyFromFloat(row.AgreedPrice),
		Rate:       moneyFromFloat(row.InitialPrice),
		Status:     strings.TrimSpace(row.VisitStatus),
		ApprovedAt: normalize.ParseDate(row.ApprovedDate),
	}
}

func moneyFromFloat(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*f)
}
