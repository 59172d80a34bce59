package dialect

// Fact records are the raw, dialect-native output of one introspection pass.
// Strategies fill them straight from the system catalogs; normalization into
// the canonical model happens one layer up.

// TableFact identifies one base table or view.
type TableFact struct {
	Name   string
	Schema string
	IsView bool
}

// ColumnFact carries a column's catalog row. NativeType keeps the dialect's
// own spelling (including enum labels and display widths where the catalog
// reports them); zero-valued length/precision/scale mean "not reported".
type ColumnFact struct {
	Name          string
	NativeType    string
	Nullable      bool
	PrimaryKey    bool
	AutoIncrement bool
	MaxLength     int64
	Precision     int64
	Scale         int64
	EnumValues    []string
	// Default is the catalog's textual default expression, nil when absent.
	Default  *string
	Position int
}

type IndexFact struct {
	Name    string
	Columns []string // index column order
	Unique  bool
}

// ForeignKeyFact carries one constraint with its ordered column tuples.
// Columns[i] references RefColumns[i].
type ForeignKeyFact struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   string
	OnUpdate   string
}

type UniqueFact struct {
	Name    string
	Columns []string
}

type CheckFact struct {
	Name       string
	Expression string
}
