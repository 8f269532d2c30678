package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the production Tabular implementation. All tables share
// one backing relation keyed by (table_name, row_idx); row 0 is the
// header. Bulk writes stream through the COPY protocol.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPool creates a pgxpool with session-level params suitable for the
// bulk rewrite pattern every ledger rebuild uses.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	// Disable statement timeout for bulk loading sessions.
	cfg.ConnConfig.RuntimeParams["statement_timeout"] = "0"

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// NewPostgres wraps an existing pool as a Tabular Store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) ReadAll(ctx context.Context, table string) (Table, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT cells FROM payledger.tabular_rows WHERE table_name = $1 ORDER BY row_idx",
		table,
	)
	if err != nil {
		return Table{}, fmt.Errorf("read table %s: %w", table, err)
	}
	defer rows.Close()

	var t Table
	first := true
	for rows.Next() {
		var cells []string
		if err := rows.Scan(&cells); err != nil {
			return Table{}, fmt.Errorf("scan table %s: %w", table, err)
		}
		if first {
			t.Header = cells
			first = false
			continue
		}
		t.Rows = append(t.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return Table{}, fmt.Errorf("read table %s: %w", table, err)
	}
	return t, nil
}

func (p *Postgres) Clear(ctx context.Context, table string) error {
	_, err := p.pool.Exec(ctx,
		"DELETE FROM payledger.tabular_rows WHERE table_name = $1", table)
	if err != nil {
		return fmt.Errorf("clear table %s: %w", table, err)
	}
	return nil
}

// WriteAll replaces the table wholesale inside one transaction: clear,
// then COPY the header and every row from a channel-backed source.
func (p *Postgres) WriteAll(ctx context.Context, table string, t Table) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin write %s: %w", table, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"DELETE FROM payledger.tabular_rows WHERE table_name = $1", table); err != nil {
		return fmt.Errorf("clear before write %s: %w", table, err)
	}

	ch := make(chan tabularRow, 64)
	go func() {
		defer close(ch)
		ch <- tabularRow{table: table, idx: 0, cells: t.Header}
		for i, r := range t.Rows {
			ch <- tabularRow{table: table, idx: int64(i + 1), cells: r}
		}
	}()

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"payledger", "tabular_rows"},
		[]string{"table_name", "row_idx", "cells"},
		newChannelSource(ch),
	)
	if err != nil {
		return fmt.Errorf("copy into %s: %w", table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit write %s: %w", table, err)
	}
	return nil
}

type tabularRow struct {
	table string
	idx   int64
	cells []string
}

// channelSource implements pgx.CopyFromSource by reading rows from a
// channel, giving natural backpressure between the producer and COPY.
type channelSource struct {
	ch      <-chan tabularRow
	current tabularRow
}

func newChannelSource(ch <-chan tabularRow) *channelSource {
	return &channelSource{ch: ch}
}

func (s *channelSource) Next() bool {
	row, ok := <-s.ch
	if !ok {
		return false
	}
	s.current = row
	return true
}

func (s *channelSource) Values() ([]any, error) {
	return []any{s.current.table, s.current.idx, s.current.cells}, nil
}

func (s *channelSource) Err() error { return nil }

// Compile-time check that channelSource satisfies the interface.
var _ pgx.CopyFromSource = (*channelSource)(nil)
