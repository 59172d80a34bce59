package catalog

import "fmt"

type ChangeKind string

const (
	TableAdded        ChangeKind = "TableAdded"
	TableRemoved      ChangeKind = "TableRemoved"
	ColumnAdded       ChangeKind = "ColumnAdded"
	ColumnRemoved     ChangeKind = "ColumnRemoved"
	ColumnAltered     ChangeKind = "ColumnAltered"
	IndexAdded        ChangeKind = "IndexAdded"
	IndexRemoved      ChangeKind = "IndexRemoved"
	ForeignKeyAdded   ChangeKind = "ForeignKeyAdded"
	ForeignKeyRemoved ChangeKind = "ForeignKeyRemoved"
)

// Change is one typed schema-difference event. Before/After carry the
// descriptor on the relevant side: *Table, *Column, *Index or *ForeignKey.
type Change struct {
	Kind   ChangeKind
	Table  string
	Name   string // column/index/FK name; empty for table-level events
	Before any
	After  any
}

func (c Change) String() string {
	if c.Name == "" {
		return fmt.Sprintf("%s %s", c.Kind, c.Table)
	}
	return fmt.Sprintf("%s %s.%s", c.Kind, c.Table, c.Name)
}

// Diff computes the ordered change list that turns old into new. Removals
// follow old's table and column order, additions follow new's, and a column
// present in both sides with any descriptor-level mismatch yields exactly
// one ColumnAltered event.
func Diff(old, new *Snapshot) []Change {
	if old == nil {
		old = NewSnapshot(0, nil)
	}
	if new == nil {
		new = NewSnapshot(0, nil)
	}

	var changes []Change

	for _, ot := range old.Tables {
		nt, ok := new.Table(ot.Name)
		if !ok {
			changes = append(changes, Change{Kind: TableRemoved, Table: ot.Name, Before: ot})
			continue
		}
		changes = append(changes, diffTable(ot, nt)...)
	}
	for _, nt := range new.Tables {
		if _, ok := old.Table(nt.Name); !ok {
			changes = append(changes, Change{Kind: TableAdded, Table: nt.Name, After: nt})
		}
	}
	return changes
}

func diffTable(old, new *Table) []Change {
	var changes []Change

	for i := range old.Columns {
		oc := &old.Columns[i]
		nc, ok := new.Column(oc.Name)
		if !ok {
			changes = append(changes, Change{Kind: ColumnRemoved, Table: old.Name, Name: oc.Name, Before: oc})
			continue
		}
		if columnAltered(oc, nc) {
			changes = append(changes, Change{Kind: ColumnAltered, Table: old.Name, Name: oc.Name, Before: oc, After: nc})
		}
	}
	for i := range new.Columns {
		nc := &new.Columns[i]
		if _, ok := old.Column(nc.Name); !ok {
			changes = append(changes, Change{Kind: ColumnAdded, Table: new.Name, Name: nc.Name, After: nc})
		}
	}

	oldIdx := make(map[string]*Index, len(old.Indexes))
	for i := range old.Indexes {
		oldIdx[old.Indexes[i].Name] = &old.Indexes[i]
	}
	newIdx := make(map[string]*Index, len(new.Indexes))
	for i := range new.Indexes {
		newIdx[new.Indexes[i].Name] = &new.Indexes[i]
	}
	for i := range old.Indexes {
		oi := &old.Indexes[i]
		ni, ok := newIdx[oi.Name]
		if ok && indexEqual(oi, ni) {
			continue
		}
		changes = append(changes, Change{Kind: IndexRemoved, Table: old.Name, Name: oi.Name, Before: oi})
	}
	for i := range new.Indexes {
		ni := &new.Indexes[i]
		oi, ok := oldIdx[ni.Name]
		if ok && indexEqual(oi, ni) {
			continue
		}
		changes = append(changes, Change{Kind: IndexAdded, Table: new.Name, Name: ni.Name, After: ni})
	}

	oldFK := make(map[string]*ForeignKey, len(old.ForeignKeys))
	for i := range old.ForeignKeys {
		oldFK[old.ForeignKeys[i].Name] = &old.ForeignKeys[i]
	}
	newFK := make(map[string]*ForeignKey, len(new.ForeignKeys))
	for i := range new.ForeignKeys {
		newFK[new.ForeignKeys[i].Name] = &new.ForeignKeys[i]
	}
	for i := range old.ForeignKeys {
		ofk := &old.ForeignKeys[i]
		nfk, ok := newFK[ofk.Name]
		if ok && foreignKeyEqual(ofk, nfk) {
			continue
		}
		changes = append(changes, Change{Kind: ForeignKeyRemoved, Table: old.Name, Name: ofk.Name, Before: ofk})
	}
	for i := range new.ForeignKeys {
		nfk := &new.ForeignKeys[i]
		ofk, ok := oldFK[nfk.Name]
		if ok && foreignKeyEqual(ofk, nfk) {
			continue
		}
		changes = append(changes, Change{Kind: ForeignKeyAdded, Table: new.Name, Name: nfk.Name, After: nfk})
	}

	return changes
}

// columnAltered compares the descriptor fields that define a column's
// shape. Default changes are deliberately not alterations: defaults are
// opaque and several dialects re-render them between reads.
func columnAltered(a, b *Column) bool {
	return a.Type != b.Type ||
		a.Nullable != b.Nullable ||
		a.PrimaryKey != b.PrimaryKey ||
		a.AutoIncrement != b.AutoIncrement ||
		a.MaxLength != b.MaxLength ||
		a.Precision != b.Precision ||
		a.Scale != b.Scale
}

func indexEqual(a, b *Index) bool {
	return a.Unique == b.Unique && sameColumnTuple(a.Columns, b.Columns)
}

func foreignKeyEqual(a, b *ForeignKey) bool {
	return a.RefTable == b.RefTable &&
		sameColumnTuple(a.Columns, b.Columns) &&
		sameColumnTuple(a.RefColumns, b.RefColumns) &&
		a.OnDelete == b.OnDelete &&
		a.OnUpdate == b.OnUpdate
}

func sameColumnTuple(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
