package relation

import (
	"fmt"
	"strings"

	"db-lens/internal/catalog"
)

type Cardinality string

const (
	OneToOne   Cardinality = "one-to-one"
	OneToMany  Cardinality = "one-to-many"
	ManyToOne  Cardinality = "many-to-one"
	ManyToMany Cardinality = "many-to-many"
)

// Relationship is one inferred relationship descriptor. For FK-backed
// relationships there is exactly one descriptor per foreign key, in the
// key's discovery order, grouped by source table. Junction-backed
// many-to-many descriptors additionally carry Junction.
type Relationship struct {
	Name          string
	SourceTable   string
	SourceColumns []string
	TargetTable   string
	TargetColumns []string
	Cardinality   Cardinality
	// ForeignKey is the originating constraint identity; two keys between
	// the same pair of tables stay two distinct relationships.
	ForeignKey string
	// Optional is set when any source column is nullable.
	Optional bool
	Junction *Junction
}

// Junction describes the intermediate table of a many-to-many relationship.
type Junction struct {
	Table         string
	SourceFK      string
	TargetFK      string
	SourceColumns []string // junction columns referencing the source table
	TargetColumns []string // junction columns referencing the target table
}

// RelationshipAmbiguityWarning is non-fatal: a best-effort name or
// cardinality was still assigned.
type RelationshipAmbiguityWarning struct {
	Table        string
	Relationship string
	Detail       string
}

func (w RelationshipAmbiguityWarning) String() string {
	return fmt.Sprintf("%s.%s: %s", w.Table, w.Relationship, w.Detail)
}

// Resolve infers relationship descriptors from a snapshot's foreign keys
// and uniqueness constraints. The target side of a foreign key is always
// cardinality one; the source side is many unless the key's column set is
// itself covered by a uniqueness constraint. Unresolved keys yield nothing.
func Resolve(s *catalog.Snapshot) ([]Relationship, []RelationshipAmbiguityWarning) {
	var rels []Relationship
	var warnings []RelationshipAmbiguityWarning

	for _, t := range s.Tables {
		used := make(map[string]int) // name → index into rels for this table

		for i := range t.ForeignKeys {
			fk := &t.ForeignKeys[i]
			if fk.Unresolved {
				continue
			}

			card := ManyToOne
			if t.CoveredByUnique(fk.Columns) {
				card = OneToOne
			}

			rel := Relationship{
				Name:          forwardName(fk),
				SourceTable:   t.Name,
				SourceColumns: fk.Columns,
				TargetTable:   fk.RefTable,
				TargetColumns: fk.RefColumns,
				Cardinality:   card,
				ForeignKey:    fk.Name,
				Optional:      anyNullable(t, fk.Columns),
			}

			if prev, clash := used[rel.Name]; clash {
				// Two keys landed on the same name; qualify both by their
				// column tuples so callers can address either.
				prevRel := &rels[prev]
				if !strings.Contains(prevRel.Name, "_by_") {
					prevRel.Name = prevRel.Name + "_by_" + strings.Join(prevRel.SourceColumns, "_")
					used[prevRel.Name] = prev
				}
				rel.Name = rel.Name + "_by_" + strings.Join(rel.SourceColumns, "_")
				warnings = append(warnings, RelationshipAmbiguityWarning{
					Table:        t.Name,
					Relationship: rel.Name,
					Detail:       fmt.Sprintf("multiple foreign keys to %s; names qualified by column", fk.RefTable),
				})
			}
			used[rel.Name] = len(rels)
			rels = append(rels, rel)
		}
	}

	m2m, m2mWarnings := resolveJunctions(s)
	rels = append(rels, m2m...)
	warnings = append(warnings, m2mWarnings...)
	return rels, warnings
}

// resolveJunctions detects pure junction tables (exactly two resolved
// foreign keys and no payload columns outside them) and emits a
// many-to-many descriptor for each direction's source table.
func resolveJunctions(s *catalog.Snapshot) ([]Relationship, []RelationshipAmbiguityWarning) {
	var rels []Relationship
	var warnings []RelationshipAmbiguityWarning

	for _, t := range s.Tables {
		if len(t.ForeignKeys) != 2 || t.IsView {
			continue
		}
		left, right := &t.ForeignKeys[0], &t.ForeignKeys[1]
		if left.Unresolved || right.Unresolved {
			continue
		}
		if !pureJunction(t, left, right) {
			continue
		}

		rels = append(rels,
			junctionRel(t, left, right),
			junctionRel(t, right, left),
		)
		if left.RefTable == right.RefTable {
			warnings = append(warnings, RelationshipAmbiguityWarning{
				Table:        t.Name,
				Relationship: left.RefTable,
				Detail:       "junction links a table to itself; both directions share the target",
			})
		}
	}
	return rels, warnings
}

// pureJunction: every column belongs to one of the two foreign keys.
func pureJunction(t *catalog.Table, a, b *catalog.ForeignKey) bool {
	member := make(map[string]bool, len(a.Columns)+len(b.Columns))
	for _, c := range a.Columns {
		member[c] = true
	}
	for _, c := range b.Columns {
		member[c] = true
	}
	for i := range t.Columns {
		if !member[t.Columns[i].Name] {
			return false
		}
	}
	return true
}

func junctionRel(j *catalog.Table, near, far *catalog.ForeignKey) Relationship {
	return Relationship{
		Name:          far.RefTable,
		SourceTable:   near.RefTable,
		SourceColumns: near.RefColumns,
		TargetTable:   far.RefTable,
		TargetColumns: far.RefColumns,
		Cardinality:   ManyToMany,
		ForeignKey:    near.Name + "+" + far.Name,
		Junction: &Junction{
			Table:         j.Name,
			SourceFK:      near.Name,
			TargetFK:      far.Name,
			SourceColumns: near.Columns,
			TargetColumns: far.Columns,
		},
	}
}

// forwardName derives the navigation name of an FK-backed relationship:
// a single column named user_id becomes "user", anything else falls back
// to the target table name.
func forwardName(fk *catalog.ForeignKey) string {
	if len(fk.Columns) == 1 {
		col := fk.Columns[0]
		for _, suffix := range []string{"_id", "_fk", "_uuid"} {
			if trimmed, ok := strings.CutSuffix(col, suffix); ok && trimmed != "" {
				return trimmed
			}
		}
	}
	return fk.RefTable
}

func anyNullable(t *catalog.Table, cols []string) bool {
	for _, name := range cols {
		if c, ok := t.Column(name); ok && c.Nullable {
			return true
		}
	}
	return false
}
