package relation

import (
	"fmt"
	"strings"
)

// Edge is one navigable direction of a relationship, from the perspective
// of the table being loaded from. Forward edges keep the descriptor's
// cardinality; the derived reverse of a many-to-one is one-to-many.
type Edge struct {
	Name          string
	SourceTable   string
	SourceColumns []string
	TargetTable   string
	TargetColumns []string
	Cardinality   Cardinality
	ForeignKey    string
	Optional      bool
	Junction      *Junction
}

// Graph indexes relationship descriptors by source table and navigation
// name, adding the derived reverse edges. Built once per snapshot and read
// concurrently.
type Graph struct {
	edges map[string]map[string]Edge // table → name → edge
}

func NewGraph(rels []Relationship) (*Graph, []RelationshipAmbiguityWarning) {
	g := &Graph{edges: make(map[string]map[string]Edge)}
	var warnings []RelationshipAmbiguityWarning
	for i := range rels {
		rel := &rels[i]
		switch rel.Cardinality {
		case ManyToMany:
			warnings = g.add(Edge{
				Name:          rel.Name,
				SourceTable:   rel.SourceTable,
				SourceColumns: rel.SourceColumns,
				TargetTable:   rel.TargetTable,
				TargetColumns: rel.TargetColumns,
				Cardinality:   ManyToMany,
				ForeignKey:    rel.ForeignKey,
				Junction:      rel.Junction,
			}, warnings)
		default:
			warnings = g.add(Edge{
				Name:          rel.Name,
				SourceTable:   rel.SourceTable,
				SourceColumns: rel.SourceColumns,
				TargetTable:   rel.TargetTable,
				TargetColumns: rel.TargetColumns,
				Cardinality:   rel.Cardinality,
				ForeignKey:    rel.ForeignKey,
				Optional:      rel.Optional,
			}, warnings)
			warnings = g.add(reverseEdge(rel), warnings)
		}
	}
	return g, warnings
}

// reverseEdge derives the other direction of an FK-backed relationship:
// users → posts for posts.user_id → users.id. A unique source keeps the
// reverse at one-to-one; otherwise it is one-to-many.
func reverseEdge(rel *Relationship) Edge {
	card := OneToMany
	if rel.Cardinality == OneToOne {
		card = OneToOne
	}
	name := rel.SourceTable
	if rel.SourceTable == rel.TargetTable {
		// Self reference: the reverse of "parent" reads better as
		// "categories_by_parent_id" than as the table's own name.
		name = rel.SourceTable + "_by_" + strings.Join(rel.SourceColumns, "_")
	}
	return Edge{
		Name:          name,
		SourceTable:   rel.TargetTable,
		SourceColumns: rel.TargetColumns,
		TargetTable:   rel.SourceTable,
		TargetColumns: rel.SourceColumns,
		Cardinality:   card,
		ForeignKey:    rel.ForeignKey,
	}
}

func (g *Graph) add(e Edge, warnings []RelationshipAmbiguityWarning) []RelationshipAmbiguityWarning {
	byName, ok := g.edges[e.SourceTable]
	if !ok {
		byName = make(map[string]Edge)
		g.edges[e.SourceTable] = byName
	}
	if _, clash := byName[e.Name]; clash {
		// Qualified fallback; the unqualified name keeps its first owner.
		taken := e.Name
		e.Name = e.Name + "_via_" + e.ForeignKey
		warnings = append(warnings, RelationshipAmbiguityWarning{
			Table:        e.SourceTable,
			Relationship: e.Name,
			Detail:       fmt.Sprintf("navigation name %q already taken; qualified by foreign key", taken),
		})
	}
	byName[e.Name] = e
	return warnings
}

// Edge returns the named navigation edge out of a table.
func (g *Graph) Edge(table, name string) (Edge, bool) {
	byName, ok := g.edges[table]
	if !ok {
		return Edge{}, false
	}
	e, ok := byName[name]
	return e, ok
}

// Edges lists all navigation names out of a table.
func (g *Graph) Edges(table string) []Edge {
	byName := g.edges[table]
	out := make([]Edge, 0, len(byName))
	for _, e := range byName {
		out = append(out, e)
	}
	return out
}
