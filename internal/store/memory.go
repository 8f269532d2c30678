package store

import (
	"context"
	"sync"
)

// Memory is an in-process Tabular implementation used by tests and the
// dry-run paths. Tables are deep-copied on both read and write so
// callers can't alias store state.
type Memory struct {
	mu     sync.Mutex
	tables map[string]Table

	// WriteErr, when set, is consulted before every WriteAll; it lets
	// tests inject rate-limit and failure signals.
	WriteErr func(table string) error
}

// NewMemory returns an empty in-memory Tabular Store.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string]Table)}
}

func (m *Memory) ReadAll(ctx context.Context, table string) (Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		return Table{}, nil
	}
	return copyTable(t), nil
}

func (m *Memory) WriteAll(ctx context.Context, table string, t Table) error {
	if m.WriteErr != nil {
		if err := m.WriteErr(table); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = copyTable(t)
	return nil
}

func (m *Memory) Clear(ctx context.Context, table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, table)
	return nil
}

func copyTable(t Table) Table {
	out := Table{Header: append([]string(nil), t.Header...)}
	out.Rows = make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}
