package store

import (
	"context"
	"fmt"
	"strconv"
)

// RunState persists export cursors keyed by (run id, bucket, kind).
// The original system kept a single process-wide counter in ambient
// script properties; this is the explicit, externally-persisted
// replacement that gets passed into the pipeline.
type RunState struct {
	tab Tabular
}

func NewRunState(tab Tabular) *RunState {
	return &RunState{tab: tab}
}

func runStateHeader() []string {
	return []string{"Run ID", "Bucket", "Kind", "Next Index"}
}

// Cursor returns the next unprocessed entity index for the run, and
// whether a cursor row exists at all. Absence means start at 0.
func (r *RunState) Cursor(ctx context.Context, runID, bucket, kind string) (int, bool, error) {
	t, err := r.tab.ReadAll(ctx, RunStateTable)
	if err != nil {
		return 0, false, fmt.Errorf("read run state: %w", err)
	}
	for _, row := range t.Rows {
		if len(row) >= 4 && row[0] == runID && row[1] == bucket && row[2] == kind {
			n, err := strconv.Atoi(row[3])
			if err != nil {
				return 0, false, fmt.Errorf("corrupt cursor for run %s: %w", runID, err)
			}
			return n, true, nil
		}
	}
	return 0, false, nil
}

// SetCursor records the next unprocessed entity index, replacing any
// prior row for the same (run, bucket, kind).
func (r *RunState) SetCursor(ctx context.Context, runID, bucket, kind string, next int) error {
	t, err := r.tab.ReadAll(ctx, RunStateTable)
	if err != nil {
		return fmt.Errorf("read run state: %w", err)
	}
	out := Table{Header: runStateHeader()}
	for _, row := range t.Rows {
		if len(row) >= 4 && row[0] == runID && row[1] == bucket && row[2] == kind {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	out.Rows = append(out.Rows, []string{runID, bucket, kind, strconv.Itoa(next)})
	if err := r.tab.WriteAll(ctx, RunStateTable, out); err != nil {
		return fmt.Errorf("persist cursor: %w", err)
	}
	return nil
}

// ClearCursor removes the cursor row once the entity list is exhausted.
func (r *RunState) ClearCursor(ctx context.Context, runID, bucket, kind string) error {
	t, err := r.tab.ReadAll(ctx, RunStateTable)
	if err != nil {
		return fmt.Errorf("read run state: %w", err)
	}
	out := Table{Header: runStateHeader()}
	for _, row := range t.Rows {
		if len(row) >= 4 && row[0] == runID && row[1] == bucket && row[2] == kind {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	if err := r.tab.WriteAll(ctx, RunStateTable, out); err != nil {
		return fmt.Errorf("clear cursor: %w", err)
	}
	return nil
}
