package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"db-lens/internal/dialect"
)

// Discoverer runs one full introspection pass against a live database and
// builds a canonical snapshot from the facts.
type Discoverer struct {
	DB       *sql.DB
	Strategy dialect.Strategy
	Schema   string

	// Include and Exclude filter the table list by name, case-insensitive.
	// An empty Include means all tables.
	Include []string
	Exclude []string

	// TypeOverrides is passed through to the builder.
	TypeOverrides map[string]LogicalType

	// OnTable, when set, is invoked once per table as its facts complete.
	// The CLI hangs a progress bar off it.
	OnTable func(name string)

	Logger *zap.Logger
}

// DiscoveryResult is the partial-success contract of one pass: a snapshot
// covering every table, warnings and per-table errors for the ones that
// degraded, and OK reporting whether the pass was clean.
type DiscoveryResult struct {
	PassID   string
	Snapshot *Snapshot
	Warnings []Warning
	Errors   []error
	OK       bool
}

// Discover enumerates tables and collects per-table facts. A table-list
// failure is fatal and returns a ConnectionError; any per-table fact failure
// degrades only that table.
func (d *Discoverer) Discover(ctx context.Context, version int64) (*DiscoveryResult, error) {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	res := &DiscoveryResult{PassID: uuid.NewString(), OK: true}
	schema := d.Strategy.DefaultSchema(d.Schema)

	tables, err := d.Strategy.Tables(ctx, d.DB, schema)
	if err != nil {
		return nil, &ConnectionError{Err: fmt.Errorf("enumerating tables: %w", err)}
	}
	tables = filterTables(tables, d.Include, d.Exclude)

	log.Info("discovery pass started",
		zap.String("pass_id", res.PassID),
		zap.String("dialect", d.Strategy.Name()),
		zap.String("schema", schema),
		zap.Int("tables", len(tables)))

	raw := make([]RawTable, 0, len(tables))
	for _, tf := range tables {
		// Context death is a pass-level failure, not a table-level one.
		if ctx.Err() != nil {
			return nil, &ConnectionError{Err: ctx.Err()}
		}
		rt := d.collectTable(ctx, schema, tf, res, log)
		raw = append(raw, rt)
		if d.OnTable != nil {
			d.OnTable(tf.Name)
		}
	}

	res.Snapshot = Build(raw, version, BuildOptions{TypeOverrides: d.TypeOverrides})
	log.Info("discovery pass finished",
		zap.String("pass_id", res.PassID),
		zap.Int64("version", version),
		zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

// collectTable gathers all fact sets for one table. Each failing fact set
// degrades the table and records a warning; the rest of the facts are kept.
func (d *Discoverer) collectTable(ctx context.Context, schema string, tf dialect.TableFact, res *DiscoveryResult, log *zap.Logger) RawTable {
	rt := RawTable{Fact: tf}

	degrade := func(facts string, err error) {
		rt.Partial = true
		res.OK = false
		ierr := &IntrospectionError{Table: tf.Name, Facts: facts, Err: err}
		res.Errors = append(res.Errors, ierr)
		res.Warnings = append(res.Warnings, Warning{
			Table:   tf.Name,
			Message: fmt.Sprintf("%s facts unavailable: %v", facts, err),
		})
		log.Warn("table degraded to partial descriptor",
			zap.String("table", tf.Name),
			zap.String("facts", facts),
			zap.Error(err))
	}

	var err error
	if rt.Columns, err = d.Strategy.Columns(ctx, d.DB, schema, tf.Name); err != nil {
		degrade("columns", err)
	}
	if rt.Indexes, err = d.Strategy.Indexes(ctx, d.DB, schema, tf.Name); err != nil {
		degrade("indexes", err)
	}
	if rt.ForeignKeys, err = d.Strategy.ForeignKeys(ctx, d.DB, schema, tf.Name); err != nil {
		degrade("foreign keys", err)
	}
	if rt.Uniques, err = d.Strategy.UniqueConstraints(ctx, d.DB, schema, tf.Name); err != nil {
		degrade("unique constraints", err)
	}
	if rt.Checks, err = d.Strategy.CheckConstraints(ctx, d.DB, schema, tf.Name); err != nil {
		degrade("check constraints", err)
	}
	return rt
}

func filterTables(tables []dialect.TableFact, include, exclude []string) []dialect.TableFact {
	if len(include) == 0 && len(exclude) == 0 {
		return tables
	}
	inc := toSet(include)
	exc := toSet(exclude)

	var out []dialect.TableFact
	for _, t := range tables {
		key := strings.ToLower(t.Name)
		if len(inc) > 0 && !inc[key] {
			continue
		}
		if exc[key] {
			continue
		}
		out = append(out, t)
	}
	return out
}

func toSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set
}
