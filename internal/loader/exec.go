package loader

import (
	"context"
	"database/sql"
)

// Row is one materialized row, column name → driver value.
type Row map[string]any

// Executor is the external query-execution collaborator. Statements arrive
// fully parameterized: discovered identifiers are already dialect-quoted
// and values are always bound, never spliced into the text.
type Executor interface {
	Query(ctx context.Context, query string, args []any) ([]Row, error)
}

// SQLExecutor adapts a *sql.DB to the Executor contract.
type SQLExecutor struct {
	DB *sql.DB
}

func (e *SQLExecutor) Query(ctx context.Context, query string, args []any) ([]Row, error) {
	rows, err := e.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
