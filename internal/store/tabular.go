// Package store provides the external collaborators the pipeline talks
// to: the Tabular Store holding named tables of rows, the Document
// Store holding exported documents, and the run-state store backing
// export cursors.
package store

import (
	"context"
	"errors"
	"strings"
)

// ErrRateLimited is the "too many requests" signal stores surface when
// the backing service throttles a write. It is recoverable via backoff.
var ErrRateLimited = errors.New("too many requests")

// IsRateLimited reports whether err is a throttling signal, either the
// sentinel or an upstream message carrying a 429 status.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRateLimited) || strings.Contains(err.Error(), "429")
}

// Table is an ordered set of rows under a named header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Tabular is the Tabular Store: named tables supporting read-all,
// clear, and wholesale bulk write. Writes always replace the full
// table; nothing patches individual rows, so a table can never hold a
// partial mix of old and new data.
type Tabular interface {
	ReadAll(ctx context.Context, table string) (Table, error)
	WriteAll(ctx context.Context, table string, t Table) error
	Clear(ctx context.Context, table string) error
}

// Well-known table names.
const (
	RawTable         = "Raw_All_Visits"
	DerivedTable     = "Raw_All_Visits_DERIVED"
	AuditChecksTable = "Audit_Checks"
	ExportAuditTable = "Export_Audit"
	MailAuditTable   = "Mail_Audit"
	RunStateTable    = "Export_Runs"
	ClinicianDirTab  = "Clinician_Directory"
	AgencyDirTable   = "Agency_Directory"
)
