package catalog

import (
	"strings"

	"db-lens/internal/dialect"
)

// RawTable bundles one table's dialect-native facts as discovery collected
// them. Partial means one or more fact sets could not be fetched.
type RawTable struct {
	Fact        dialect.TableFact
	Columns     []dialect.ColumnFact
	Indexes     []dialect.IndexFact
	ForeignKeys []dialect.ForeignKeyFact
	Uniques     []dialect.UniqueFact
	Checks      []dialect.CheckFact
	Partial     bool
}

// BuildOptions carries externally owned configuration the builder honors.
type BuildOptions struct {
	// TypeOverrides maps a lowercased native type to a logical type,
	// applied after the built-in mapping.
	TypeOverrides map[string]LogicalType
}

// Build normalizes raw facts into a canonical snapshot. It is pure and
// deterministic: identical facts in identical order always produce a
// structurally identical snapshot (the creation timestamp aside), which the
// change detector and the tests rely on.
func Build(raw []RawTable, version int64, opts BuildOptions) *Snapshot {
	tables := make([]*Table, 0, len(raw))
	for _, rt := range raw {
		tables = append(tables, buildTable(rt, opts))
	}
	snap := NewSnapshot(version, tables)
	resolveForeignKeys(snap)
	return snap
}

func buildTable(rt RawTable, opts BuildOptions) *Table {
	t := &Table{
		Name:    rt.Fact.Name,
		Schema:  rt.Fact.Schema,
		IsView:  rt.Fact.IsView,
		Partial: rt.Partial,
	}

	for _, cf := range rt.Columns {
		col := Column{
			Name:          cf.Name,
			Type:          mapLogicalType(cf, opts.TypeOverrides),
			NativeType:    cf.NativeType,
			Nullable:      cf.Nullable,
			PrimaryKey:    cf.PrimaryKey,
			AutoIncrement: cf.AutoIncrement,
			MaxLength:     cf.MaxLength,
			Precision:     cf.Precision,
			Scale:         cf.Scale,
			EnumValues:    append([]string(nil), cf.EnumValues...),
		}
		if cf.Default != nil {
			v := *cf.Default
			col.Default = &v
		}
		t.Columns = append(t.Columns, col)
		if cf.PrimaryKey {
			t.PrimaryKey = append(t.PrimaryKey, cf.Name)
		}
	}

	for _, idx := range rt.Indexes {
		t.Indexes = append(t.Indexes, Index{
			Name:    idx.Name,
			Columns: append([]string(nil), idx.Columns...),
			Unique:  idx.Unique,
		})
	}
	for _, fk := range rt.ForeignKeys {
		t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
			Name:       fk.Name,
			Columns:    append([]string(nil), fk.Columns...),
			RefTable:   fk.RefTable,
			RefColumns: append([]string(nil), fk.RefColumns...),
			OnDelete:   normalizeAction(fk.OnDelete),
			OnUpdate:   normalizeAction(fk.OnUpdate),
		})
	}
	for _, u := range rt.Uniques {
		t.Uniques = append(t.Uniques, Unique{
			Name:    u.Name,
			Columns: append([]string(nil), u.Columns...),
		})
	}
	for _, c := range rt.Checks {
		t.Checks = append(t.Checks, Check{Name: c.Name, Expression: c.Expression})
	}
	return t
}

// resolveForeignKeys validates every FK target against the snapshot. An
// empty target tuple (SQLite's implicit-PK form) resolves to the target
// table's primary key; anything that does not land on a primary or unique
// key is flagged unresolved and kept.
func resolveForeignKeys(s *Snapshot) {
	for _, t := range s.Tables {
		for i := range t.ForeignKeys {
			fk := &t.ForeignKeys[i]
			target, ok := s.Table(fk.RefTable)
			if !ok {
				fk.Unresolved = true
				continue
			}
			if emptyTuple(fk.RefColumns) && len(target.PrimaryKey) == len(fk.Columns) {
				fk.RefColumns = append([]string(nil), target.PrimaryKey...)
			}
			if !targetIsKey(target, fk.RefColumns) {
				fk.Unresolved = true
			}
		}
	}
}

func emptyTuple(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}

// targetIsKey reports whether cols is exactly the target's primary key, a
// unique constraint, or a unique index (order-insensitive).
func targetIsKey(t *Table, cols []string) bool {
	if sameColumnSet(cols, t.PrimaryKey) {
		return true
	}
	for _, u := range t.Uniques {
		if sameColumnSet(cols, u.Columns) {
			return true
		}
	}
	for _, idx := range t.Indexes {
		if idx.Unique && sameColumnSet(cols, idx.Columns) {
			return true
		}
	}
	return false
}

func sameColumnSet(a, b []string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if !set[c] {
			return false
		}
	}
	return true
}

func normalizeAction(action string) string {
	action = strings.ToUpper(strings.TrimSpace(action))
	switch action {
	case "", "RESTRICT":
		// RESTRICT and NO ACTION differ only in check timing; the model
		// does not care.
		return "NO ACTION"
	default:
		return action
	}
}

// mapLogicalType maps a native type onto the closed vocabulary. Substring
// matching keeps one table working across all five dialects; user overrides
// win over the built-in mapping. Types nothing matches stay unknown, with
// the native string preserved on the column.
func mapLogicalType(cf dialect.ColumnFact, overrides map[string]LogicalType) LogicalType {
	t := strings.ToLower(strings.TrimSpace(cf.NativeType))
	// Strip length arguments: varchar(255) → varchar.
	if i := strings.Index(t, "("); i > 0 {
		t = t[:i]
	}

	if overrides != nil {
		if lt, ok := overrides[t]; ok {
			return lt
		}
	}
	if len(cf.EnumValues) > 0 || t == "enum" || t == "set" {
		return TypeEnum
	}

	switch {
	case t == "uuid" || t == "uniqueidentifier":
		return TypeUUID
	case t == "json" || t == "jsonb":
		return TypeJSON
	case t == "bool" || t == "boolean" || t == "bit":
		return TypeBoolean
	case t == "number":
		// Oracle NUMBER is an integer unless it declares a scale.
		if cf.Scale > 0 {
			return TypeFloat
		}
		return TypeInteger
	case strings.Contains(t, "int") || t == "serial" || t == "bigserial" || t == "smallserial":
		return TypeInteger
	case strings.Contains(t, "float") || strings.Contains(t, "double") ||
		t == "real" || t == "decimal" || t == "numeric" || t == "money" || t == "smallmoney":
		return TypeFloat
	case strings.Contains(t, "char") || strings.Contains(t, "text") || strings.Contains(t, "clob") ||
		t == "string" || t == "xml" || t == "citext" || t == "name":
		return TypeText
	case strings.Contains(t, "date") || strings.Contains(t, "time") || t == "year" || t == "interval":
		return TypeDateTime
	case strings.Contains(t, "binary") || strings.Contains(t, "blob") || t == "bytea" ||
		t == "image" || t == "raw" || t == "long raw":
		return TypeBinary
	default:
		return TypeUnknown
	}
}
