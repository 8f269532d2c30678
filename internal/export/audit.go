package export

import (
	"context"
	"fmt"
	"time"

	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/store"
)

func exportAuditHeader() []string {
	return []string{"Run ID", "Timestamp", "Entity", "Bucket", "Document Name", "Status", "Notes"}
}

// recordOutcome upserts one outcome row keyed by (entity, bucket,
// document name), replacing any prior row for the same key so the audit
// always reflects only the latest outcome per entity.
func recordOutcome(ctx context.Context, tab store.Tabular, runID string, now time.Time,
	entity, bucket, docName string, outcome model.Outcome, notes string) error {

	t, err := tab.ReadAll(ctx, store.ExportAuditTable)
	if err != nil {
		return fmt.Errorf("read export audit: %w", err)
	}
	out := store.Table{Header: exportAuditHeader()}
	for _, row := range t.Rows {
		if len(row) >= 5 && row[2] == entity && row[3] == bucket && row[4] == docName {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	out.Rows = append(out.Rows, []string{
		runID, now.UTC().Format(time.RFC3339), entity, bucket, docName,
		string(outcome), notes,
	})
	if err := tab.WriteAll(ctx, store.ExportAuditTable, out); err != nil {
		return fmt.Errorf("write export audit: %w", err)
	}
	return nil
}

// ReadAttempts maps a run's audit rows onto completion attempts for the
// reconciliation engine.
func ReadAttempts(ctx context.Context, tab store.Tabular, runID, bucket string) ([]Attempt, error) {
	t, err := tab.ReadAll(ctx, store.ExportAuditTable)
	if err != nil {
		return nil, fmt.Errorf("read export audit: %w", err)
	}
	var attempts []Attempt
	for _, row := range t.Rows {
		if len(row) < 6 || row[0] != runID || row[3] != bucket {
			continue
		}
		attempts = append(attempts, Attempt{
			Entity:    row[2],
			Completed: row[5] == string(model.OutcomeCreated) || row[5] == string(model.OutcomeSkipped),
		})
	}
	return attempts, nil
}

// Attempt is one audited entity outcome, reduced for completion checks.
type Attempt struct {
	Entity    string
	Completed bool
}
