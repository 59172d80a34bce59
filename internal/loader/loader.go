package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"db-lens/internal/catalog"
	"db-lens/internal/dialect"
	"db-lens/internal/relation"
)

// Loader resolves relationships for sets of already-materialized records
// using one query per hop, independent of how many records are loaded.
type Loader struct {
	exec     Executor
	strategy dialect.Strategy
	graph    *relation.Graph
	snapshot *catalog.Snapshot
	attached *Attachments
	log      *zap.Logger
}

func New(exec Executor, strategy dialect.Strategy, graph *relation.Graph, snapshot *catalog.Snapshot, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		exec:     exec,
		strategy: strategy,
		graph:    graph,
		snapshot: snapshot,
		attached: NewAttachments(),
		log:      logger,
	}
}

// Attachments exposes the side map holding loaded relationship results.
func (l *Loader) Attachments() *Attachments {
	return l.attached
}

// Load walks a dot-separated relationship path, attaching results to every
// record along the way. Each hop issues at most one query (two for a
// junction-backed many-to-many hop); the records loaded by a hop become the
// source set of the next one.
func (l *Loader) Load(ctx context.Context, records []*Record, path string) error {
	if path == "" {
		return fmt.Errorf("empty relationship path")
	}
	current := records
	for _, segment := range strings.Split(path, ".") {
		next, err := l.loadHop(ctx, current, segment)
		if err != nil {
			return fmt.Errorf("loading %q: %w", path, err)
		}
		current = next
	}
	return nil
}

// LoadAll resolves independent relationship paths concurrently. Hops within
// one path stay sequential.
func (l *Loader) LoadAll(ctx context.Context, records []*Record, paths ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			return l.Load(ctx, records, path)
		})
	}
	return g.Wait()
}

func (l *Loader) loadHop(ctx context.Context, records []*Record, name string) ([]*Record, error) {
	// Empty source set short-circuits with zero queries.
	if len(records) == 0 {
		return nil, nil
	}

	table := records[0].Table
	edge, ok := l.graph.Edge(table, name)
	if !ok {
		return nil, fmt.Errorf("table %s has no relationship %q", table, name)
	}
	if edge.Cardinality == relation.ManyToMany {
		return l.loadJunctionHop(ctx, records, edge)
	}

	keys, present, values := collectJoinKeys(records, edge.SourceColumns)
	if len(values) == 0 {
		// Every source row had a null join key: nothing to query, each
		// record still gets an explicit empty attachment.
		for _, rec := range records {
			l.attached.attach(rec, edge.Name, nil)
		}
		return nil, nil
	}

	query, args := l.buildHopQuery(edge.TargetTable, edge.TargetColumns, values)
	rows, err := l.exec.Query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	l.log.Debug("hop loaded",
		zap.String("relationship", edge.Name),
		zap.String("target", edge.TargetTable),
		zap.Int("source_rows", len(records)),
		zap.Int("distinct_keys", len(values)),
		zap.Int("target_rows", len(rows)))

	targets := make([]*Record, 0, len(rows))
	byKey := make(map[string][]*Record, len(rows))
	for _, row := range rows {
		rec := NewRecord(edge.TargetTable, row)
		targets = append(targets, rec)
		key, ok := joinKeyOf(row, edge.TargetColumns)
		if !ok {
			continue
		}
		byKey[key] = append(byKey[key], rec)
	}

	toOne := edge.Cardinality == relation.ManyToOne || edge.Cardinality == relation.OneToOne
	for i, rec := range records {
		if !present[i] {
			// Null join key: empty list or absent relation, never an error.
			l.attached.attach(rec, edge.Name, nil)
			continue
		}
		matched := byKey[keys[i]]
		if toOne && len(matched) > 1 {
			matched = matched[:1]
		}
		l.attached.attach(rec, edge.Name, matched)
	}
	return targets, nil
}

// loadJunctionHop resolves a many-to-many edge: one query for the junction
// rows, one for the far side. Still bounded regardless of record count.
func (l *Loader) loadJunctionHop(ctx context.Context, records []*Record, edge relation.Edge) ([]*Record, error) {
	j := edge.Junction

	keys, present, values := collectJoinKeys(records, edge.SourceColumns)
	if len(values) == 0 {
		for _, rec := range records {
			l.attached.attach(rec, edge.Name, nil)
		}
		return nil, nil
	}

	query, args := l.buildHopQuery(j.Table, j.SourceColumns, values)
	junctionRows, err := l.exec.Query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(junctionRows) == 0 {
		for _, rec := range records {
			l.attached.attach(rec, edge.Name, []*Record{})
		}
		return nil, nil
	}

	var farValues [][]any
	seen := make(map[string]bool)
	for _, row := range junctionRows {
		tuple, ok := tupleOf(row, j.TargetColumns)
		if !ok {
			continue
		}
		key := tupleKey(tuple)
		if !seen[key] {
			seen[key] = true
			farValues = append(farValues, tuple)
		}
	}

	query, args = l.buildHopQuery(edge.TargetTable, edge.TargetColumns, farValues)
	targetRows, err := l.exec.Query(ctx, query, args)
	if err != nil {
		return nil, err
	}

	targetByKey := make(map[string]*Record, len(targetRows))
	targets := make([]*Record, 0, len(targetRows))
	for _, row := range targetRows {
		rec := NewRecord(edge.TargetTable, row)
		targets = append(targets, rec)
		if key, ok := joinKeyOf(row, edge.TargetColumns); ok {
			targetByKey[key] = rec
		}
	}

	// source key → far records, assembled through the junction rows.
	bySource := make(map[string][]*Record)
	for _, row := range junctionRows {
		sourceKey, sourceOK := joinKeyOf(row, j.SourceColumns)
		targetKey, targetOK := joinKeyOf(row, j.TargetColumns)
		if !sourceOK || !targetOK {
			continue
		}
		if far, ok := targetByKey[targetKey]; ok {
			bySource[sourceKey] = append(bySource[sourceKey], far)
		}
	}

	for i, rec := range records {
		if !present[i] {
			l.attached.attach(rec, edge.Name, nil)
			continue
		}
		l.attached.attach(rec, edge.Name, bySource[keys[i]])
	}
	return targets, nil
}

// buildHopQuery selects the target's columns for every join-value tuple in
// one statement. Single-column joins use IN; composite joins OR together
// per-tuple groups, which stays portable across all five dialects.
func (l *Loader) buildHopQuery(table string, joinColumns []string, values [][]any) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(l.selectList(table))
	sb.WriteString(" FROM ")
	sb.WriteString(l.strategy.Quote(table))
	sb.WriteString(" WHERE ")

	args := make([]any, 0, len(values)*len(joinColumns))
	if len(joinColumns) == 1 {
		sb.WriteString(l.strategy.Quote(joinColumns[0]))
		sb.WriteString(" IN (")
		for i, tuple := range values {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(l.strategy.Placeholder(len(args)))
			args = append(args, tuple[0])
		}
		sb.WriteString(")")
		return sb.String(), args
	}

	for i, tuple := range values {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		sb.WriteString("(")
		for c, col := range joinColumns {
			if c > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString(l.strategy.Quote(col))
			sb.WriteString(" = ")
			sb.WriteString(l.strategy.Placeholder(len(args)))
			args = append(args, tuple[c])
		}
		sb.WriteString(")")
	}
	return sb.String(), args
}

// selectList quotes the table's known columns; tables missing from the
// snapshot (or partial) fall back to *.
func (l *Loader) selectList(table string) string {
	if l.snapshot == nil {
		return "*"
	}
	t, ok := l.snapshot.Table(table)
	if !ok || len(t.Columns) == 0 {
		return "*"
	}
	quoted := make([]string, len(t.Columns))
	for i := range t.Columns {
		quoted[i] = l.strategy.Quote(t.Columns[i].Name)
	}
	return strings.Join(quoted, ", ")
}

// collectJoinKeys returns each record's normalized join key alongside a
// presence flag (false when any key component is null) plus the deduplicated
// tuples in first-seen order. Nullness is tracked separately from the key
// text so an empty string stays a legitimate key. Records with a null
// component are excluded from the query's value set.
func collectJoinKeys(records []*Record, columns []string) ([]string, []bool, [][]any) {
	keys := make([]string, len(records))
	present := make([]bool, len(records))
	var values [][]any
	seen := make(map[string]bool)

	for i, rec := range records {
		tuple, ok := tupleOf(rec.Values, columns)
		if !ok {
			continue
		}
		key := tupleKey(tuple)
		keys[i] = key
		present[i] = true
		if !seen[key] {
			seen[key] = true
			values = append(values, tuple)
		}
	}
	return keys, present, values
}

func tupleOf(row Row, columns []string) ([]any, bool) {
	tuple := make([]any, len(columns))
	for i, col := range columns {
		v, ok := row[col]
		if !ok || v == nil {
			return nil, false
		}
		tuple[i] = v
	}
	return tuple, true
}

func joinKeyOf(row Row, columns []string) (string, bool) {
	tuple, ok := tupleOf(row, columns)
	if !ok {
		return "", false
	}
	return tupleKey(tuple), true
}

// tupleKey normalizes driver-dependent value representations (int64 vs
// int32 vs []byte) into one comparable map key.
func tupleKey(tuple []any) string {
	parts := make([]string, len(tuple))
	for i, v := range tuple {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		parts[i] = cast.ToString(v)
	}
	return strings.Join(parts, "\x1f")
}
