package catalog

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

// ErrUnknownTable is returned when a table has no catalog entry.
var ErrUnknownTable = errors.New("unknown table")

// Source lists tables and columns, usually over the network.
type Source interface {
	ListTables(ctx context.Context) ([]ir.Table, error)
	ListFields(ctx context.Context, table string) ([]string, error)
}

// DefaultFetchConcurrency bounds concurrent ListFields calls in Fetch.
const DefaultFetchConcurrency = 4

// Fetch snapshots a Source: one ListTables call, then ListFields for every
// table with at most concurrency calls in flight. The first error cancels
// the remaining calls.
func Fetch(ctx context.Context, src Source, concurrency int) (*Catalog, error) {
	tables, err := src.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}

	columns := make([][]string, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, t := range tables {
		g.Go(func() error {
			cols, err := src.ListFields(gctx, t.Name)
			if err != nil {
				return fmt.Errorf("list fields of %s: %w", t.Name, err)
			}
			columns[i] = cols
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fields := make(map[string][]string, len(tables))
	for i, t := range tables {
		fields[t.Name] = columns[i]
	}
	return New(tables, fields), nil
}
