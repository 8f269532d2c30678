package ledger

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/careops/payledger/internal/classify"
	"github.com/careops/payledger/internal/config"
	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/store"
)

// Rebuild regenerates the derived snapshot and every ledger and summary
// table from the raw table. Order matters: the derived snapshot lands
// first, then all payroll tables, then all invoice tables, so a partial
// failure leaves a prefix of the rebuild rather than a mix.
func Rebuild(ctx context.Context, tab store.Tabular, log zerolog.Logger, admin *config.Admin) (*model.RebuildSummary, error) {
	start := time.Now()

	raw, err := ReadVisits(ctx, tab, store.RawTable)
	if err != nil {
		return nil, err
	}
	derived := classify.DeriveAll(raw, admin)
	if err := WriteVisits(ctx, tab, store.DerivedTable, derived); err != nil {
		return nil, err
	}
	log.Info().Int("rows", len(derived)).Msg("derived snapshot written")

	w2 := classify.W2Set(admin.W2Clinicians)
	summary := &model.RebuildSummary{DerivedRows: len(derived)}

	for _, bucket := range admin.Buckets {
		l := Build(bucket, model.Payroll, derived)
		if err := WriteLedger(ctx, tab, l); err != nil {
			return nil, err
		}
		if err := WriteClinicianSummary(ctx, tab, bucket, ClinicianSummaries(l, w2)); err != nil {
			return nil, err
		}
		summary.Ledgers++
		log.Info().Str("bucket", bucket).Int("rows", l.RowCount()).Msg("payroll ledger written")
	}

	for _, bucket := range admin.Buckets {
		l := Build(bucket, model.Invoice, derived)
		if err := WriteLedger(ctx, tab, l); err != nil {
			return nil, err
		}
		if err := WriteAgencySummary(ctx, tab, bucket, AgencySummaries(l)); err != nil {
			return nil, err
		}
		summary.Ledgers++
		log.Info().Str("bucket", bucket).Int("rows", l.RowCount()).Msg("invoice ledger written")
	}

	summary.Duration = time.Since(start)
	return summary, nil
}
