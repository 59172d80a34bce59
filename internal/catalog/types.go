package catalog

import (
	"encoding/json"
	"time"
)

// LogicalType is the closed, dialect-independent type vocabulary.
type LogicalType string

const (
	TypeInteger  LogicalType = "integer"
	TypeFloat    LogicalType = "float"
	TypeBoolean  LogicalType = "boolean"
	TypeText     LogicalType = "text"
	TypeDateTime LogicalType = "datetime"
	TypeBinary   LogicalType = "binary"
	TypeJSON     LogicalType = "json"
	TypeUUID     LogicalType = "uuid"
	TypeEnum     LogicalType = "enum"
	TypeUnknown  LogicalType = "unknown"
)

type Column struct {
	Name          string      `json:"name"`
	Type          LogicalType `json:"type"`
	NativeType    string      `json:"native_type"`
	Nullable      bool        `json:"nullable"`
	PrimaryKey    bool        `json:"primary_key"`
	AutoIncrement bool        `json:"auto_increment"`
	MaxLength     int64       `json:"max_length,omitempty"`
	Precision     int64       `json:"precision,omitempty"`
	Scale         int64       `json:"scale,omitempty"`
	EnumValues    []string    `json:"enum_values,omitempty"`
	// Default is kept as the catalog reported it, never evaluated.
	Default *string `json:"default,omitempty"`
}

type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

type ForeignKey struct {
	Name       string   `json:"name"`
	Columns    []string `json:"columns"`
	RefTable   string   `json:"ref_table"`
	RefColumns []string `json:"ref_columns"`
	OnDelete   string   `json:"on_delete,omitempty"`
	OnUpdate   string   `json:"on_update,omitempty"`
	// Unresolved marks keys whose target did not match a primary or unique
	// key in the same snapshot. They are kept, not dropped.
	Unresolved bool `json:"unresolved,omitempty"`
}

type Unique struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

type Check struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

type Table struct {
	Name        string       `json:"name"`
	Schema      string       `json:"schema,omitempty"`
	IsView      bool         `json:"is_view,omitempty"`
	Columns     []Column     `json:"columns"`
	Indexes     []Index      `json:"indexes,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
	Uniques     []Unique     `json:"unique_constraints,omitempty"`
	Checks      []Check      `json:"check_constraints,omitempty"`
	PrimaryKey  []string     `json:"primary_key,omitempty"`
	// Partial marks tables whose fact discovery failed halfway; the
	// matching warning lives on the DiscoveryResult.
	Partial bool `json:"partial,omitempty"`
}

// Column returns the named column descriptor.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// CoveredByUnique reports whether the given column set is forced unique by
// the primary key, a unique constraint, or a unique index: any of those
// whose columns are a subset of cols makes every cols-tuple distinct.
func (t *Table) CoveredByUnique(cols []string) bool {
	in := make(map[string]bool, len(cols))
	for _, c := range cols {
		in[c] = true
	}
	subset := func(columns []string) bool {
		if len(columns) == 0 {
			return false
		}
		for _, c := range columns {
			if !in[c] {
				return false
			}
		}
		return true
	}
	if subset(t.PrimaryKey) {
		return true
	}
	for _, u := range t.Uniques {
		if subset(u.Columns) {
			return true
		}
	}
	for _, idx := range t.Indexes {
		if idx.Unique && subset(idx.Columns) {
			return true
		}
	}
	return false
}

// Snapshot is one immutable, versioned view of the discovered schema.
// Treat it as read-only after construction; a change always produces a new
// snapshot object.
type Snapshot struct {
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Tables    []*Table  `json:"tables"` // discovery order

	byName map[string]*Table
}

// NewSnapshot builds a snapshot over the given tables. Table names must be
// unique; a duplicate keeps the first occurrence.
func NewSnapshot(version int64, tables []*Table) *Snapshot {
	s := &Snapshot{
		Version:   version,
		CreatedAt: time.Now().UTC(),
		Tables:    tables,
	}
	s.reindex()
	return s
}

func (s *Snapshot) reindex() {
	s.byName = make(map[string]*Table, len(s.Tables))
	for _, t := range s.Tables {
		if _, dup := s.byName[t.Name]; !dup {
			s.byName[t.Name] = t
		}
	}
}

// Table returns the named table descriptor.
func (s *Snapshot) Table(name string) (*Table, bool) {
	t, ok := s.byName[name]
	return t, ok
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type alias Snapshot
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = Snapshot(a)
	s.reindex()
	return nil
}
