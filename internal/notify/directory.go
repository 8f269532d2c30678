package notify

import (
	"context"
	"fmt"

	"github.com/careops/payledger/internal/model"
	"github.com/careops/payledger/internal/normalize"
	"github.com/careops/payledger/internal/store"
)

// Contact is one directory entry: the address a draft goes to and an
// optional carbon copy.
type Contact struct {
	Email string
	CC    string
}

// Directory maps entity names onto mail contacts, keyed loosely so
// spacing and case differences between the ledger and the directory
// never lose a match.
type Directory struct {
	contacts map[string]Contact
}

// LoadDirectory reads a directory table. Payroll reads the clinician
// directory, invoices the agency directory; both carry the same
// Name/Email/CC shape.
func LoadDirectory(ctx context.Context, tab store.Tabular, kind model.Kind) (*Directory, error) {
	table := store.ClinicianDirTab
	if kind == model.Invoice {
		table = store.AgencyDirTable
	}
	t, err := tab.ReadAll(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	if len(t.Header) == 0 {
		return nil, fmt.Errorf("%s missing or empty", table)
	}
	idx, err := model.IndexColumns(t.Header, "Name", "Email")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", table, err)
	}
	ccIdx := -1
	for i, h := range t.Header {
		if normalize.HeaderKey(h) == "cc" {
			ccIdx = i
		}
	}

	d := &Directory{contacts: make(map[string]Contact)}
	for _, row := range t.Rows {
		name := cell(row, idx["Name"])
		email := cell(row, idx["Email"])
		if name == "" || email == "" {
			continue
		}
		c := Contact{Email: email}
		if ccIdx >= 0 {
			c.CC = cell(row, ccIdx)
		}
		d.contacts[normalize.MatchKey(name)] = c
	}
	return d, nil
}

// Lookup resolves an entity name to its contact.
func (d *Directory) Lookup(name string) (Contact, bool) {
	c, ok := d.contacts[normalize.MatchKey(name)]
	return c, ok
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
