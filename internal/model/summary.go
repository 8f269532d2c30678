package model

import "time"

// ImportSummary captures metrics from a single raw import run.
type ImportSummary struct {
	FilePath     string
	RowsRead     int64
	RowsKept     int64
	RowsRejected int64
	Duration     time.Duration
}

// RebuildSummary captures metrics from a full ledger rebuild.
type RebuildSummary struct {
	DerivedRows int
	Ledgers     int
	Duration    time.Duration
}

// Outcome is the per-entity result of a document export attempt.
type Outcome string

const (
	OutcomeCreated Outcome = "CREATED"
	OutcomeSkipped Outcome = "SKIPPED"
	OutcomeFailed  Outcome = "FAILED"
)

// ExportSummary captures metrics from one export run (possibly one of
// several resumed segments of the same logical run).
type ExportSummary struct {
	RunID     string
	Bucket    string
	Kind      Kind
	Created   int
	Skipped   int
	Failed    int
	Suspended bool
	NextIndex int
	Duration  time.Duration
}
