package dialect

import (
	"context"
	"database/sql"
)

// Strategy abstracts database-specific catalog access.
// One implementation per supported dialect. All methods are read-only: they
// query system catalogs and map each dialect's inconsistent metadata
// (identity vs serial vs auto_increment, length vs precision/scale) into the
// shared fact records in facts.go.
type Strategy interface {
	Name() string

	// DefaultSchema resolves an empty schema argument to the dialect's
	// conventional default (public, dbo, current database, ...).
	DefaultSchema(input string) string

	// Tables enumerates base tables and views. A failure here is fatal to
	// the whole discovery pass; per-table fact failures below are not.
	Tables(ctx context.Context, db *sql.DB, schema string) ([]TableFact, error)

	Columns(ctx context.Context, db *sql.DB, schema, table string) ([]ColumnFact, error)
	Indexes(ctx context.Context, db *sql.DB, schema, table string) ([]IndexFact, error)
	ForeignKeys(ctx context.Context, db *sql.DB, schema, table string) ([]ForeignKeyFact, error)
	UniqueConstraints(ctx context.Context, db *sql.DB, schema, table string) ([]UniqueFact, error)
	CheckConstraints(ctx context.Context, db *sql.DB, schema, table string) ([]CheckFact, error)

	// Statement helpers used when building queries against discovered
	// identifiers. Identifiers always go through Quote; values are always
	// bound through Placeholder, never interpolated into statement text.
	Quote(ident string) string
	Placeholder(index int) string
}
