package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type Oracle struct{}

func (d *Oracle) Name() string { return "oracle" }

func (d *Oracle) DefaultSchema(input string) string {
	// USER_* views scope everything to the connected user; the schema
	// argument is accepted for interface symmetry and otherwise ignored.
	return DefaultGetSchemaName(input)
}

func (d *Oracle) Tables(ctx context.Context, db *sql.DB, schema string) ([]TableFact, error) {
	// USER_TABLES and USER_VIEWS already scope to the connected user, so the
	// schema argument only labels the facts and never reaches the query.
	query := `SELECT OBJECT_NAME, OBJECT_KIND FROM (
			SELECT TABLE_NAME AS OBJECT_NAME, 'TABLE' AS OBJECT_KIND FROM USER_TABLES
			UNION ALL
			SELECT VIEW_NAME AS OBJECT_NAME, 'VIEW' AS OBJECT_KIND FROM USER_VIEWS
		)
		ORDER BY OBJECT_NAME`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []TableFact
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, TableFact{
			Name:   name,
			Schema: schema,
			IsView: kind == "VIEW",
		})
	}
	return tables, rows.Err()
}

func (d *Oracle) Columns(ctx context.Context, db *sql.DB, schema, table string) ([]ColumnFact, error) {
	query := `SELECT
		t.COLUMN_NAME,
		t.DATA_TYPE,
		t.CHAR_LENGTH,
		t.DATA_PRECISION,
		t.DATA_SCALE,
		t.NULLABLE,
		t.DATA_DEFAULT,
		t.IDENTITY_COLUMN,
		CASE WHEN p.CONSTRAINT_NAME IS NOT NULL THEN 'PRI' ELSE '' END AS COLUMN_KEY
	FROM USER_TAB_COLUMNS t
	LEFT JOIN (
		SELECT cc.TABLE_NAME, cc.COLUMN_NAME, cc.CONSTRAINT_NAME
		FROM USER_CONS_COLUMNS cc
		JOIN USER_CONSTRAINTS uc ON cc.CONSTRAINT_NAME = uc.CONSTRAINT_NAME
		WHERE uc.CONSTRAINT_TYPE = 'P'
	) p ON t.TABLE_NAME = p.TABLE_NAME AND t.COLUMN_NAME = p.COLUMN_NAME
	WHERE t.TABLE_NAME = :1
	ORDER BY t.COLUMN_ID`

	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ColumnFact
	pos := 0
	for rows.Next() {
		var name, dataType, nullable, columnKey string
		var identity, def sql.NullString
		var charLen, precision, scale sql.NullInt64

		if err := rows.Scan(&name, &dataType, &charLen, &precision, &scale,
			&nullable, &def, &identity, &columnKey); err != nil {
			return nil, err
		}

		col := ColumnFact{
			Name:          name,
			NativeType:    dataType,
			Nullable:      nullable == "Y",
			PrimaryKey:    columnKey == "PRI",
			AutoIncrement: identity.String == "YES",
			MaxLength:     charLen.Int64,
			Precision:     precision.Int64,
			Scale:         scale.Int64,
			Position:      pos,
		}
		if def.Valid && strings.TrimSpace(def.String) != "" {
			v := strings.TrimSpace(def.String)
			col.Default = &v
		}
		cols = append(cols, col)
		pos++
	}
	return cols, rows.Err()
}

func (d *Oracle) Indexes(ctx context.Context, db *sql.DB, schema, table string) ([]IndexFact, error) {
	query := `SELECT i.INDEX_NAME, i.UNIQUENESS, ic.COLUMN_NAME
		FROM USER_INDEXES i
		JOIN USER_IND_COLUMNS ic ON i.INDEX_NAME = ic.INDEX_NAME
		WHERE i.TABLE_NAME = :1
			AND NOT EXISTS (
				SELECT 1 FROM USER_CONSTRAINTS uc
				WHERE uc.INDEX_NAME = i.INDEX_NAME AND uc.CONSTRAINT_TYPE = 'P'
			)
		ORDER BY i.INDEX_NAME, ic.COLUMN_POSITION`

	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []IndexFact
	byName := make(map[string]int)
	for rows.Next() {
		var name, uniqueness, column string
		if err := rows.Scan(&name, &uniqueness, &column); err != nil {
			return nil, err
		}
		if i, ok := byName[name]; ok {
			indexes[i].Columns = append(indexes[i].Columns, column)
			continue
		}
		byName[name] = len(indexes)
		indexes = append(indexes, IndexFact{Name: name, Unique: uniqueness == "UNIQUE", Columns: []string{column}})
	}
	return indexes, rows.Err()
}

func (d *Oracle) ForeignKeys(ctx context.Context, db *sql.DB, schema, table string) ([]ForeignKeyFact, error) {
	query := `SELECT
		c.CONSTRAINT_NAME,
		cc.COLUMN_NAME,
		r.TABLE_NAME AS REF_TABLE,
		rcc.COLUMN_NAME AS REF_COLUMN,
		c.DELETE_RULE
	FROM USER_CONSTRAINTS c
	JOIN USER_CONS_COLUMNS cc
		ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME AND c.OWNER = cc.OWNER
	JOIN USER_CONSTRAINTS r
		ON c.R_CONSTRAINT_NAME = r.CONSTRAINT_NAME AND c.R_OWNER = r.OWNER
	JOIN USER_CONS_COLUMNS rcc
		ON r.CONSTRAINT_NAME = rcc.CONSTRAINT_NAME AND r.OWNER = rcc.OWNER
		AND cc.POSITION = rcc.POSITION
	WHERE c.CONSTRAINT_TYPE = 'R' AND c.TABLE_NAME = :1
	ORDER BY c.CONSTRAINT_NAME, cc.POSITION`

	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKeyFact
	byName := make(map[string]int)
	for rows.Next() {
		var name, column, refTable, refColumn, deleteRule string
		if err := rows.Scan(&name, &column, &refTable, &refColumn, &deleteRule); err != nil {
			return nil, err
		}
		if i, ok := byName[name]; ok {
			fks[i].Columns = append(fks[i].Columns, column)
			fks[i].RefColumns = append(fks[i].RefColumns, refColumn)
			continue
		}
		byName[name] = len(fks)
		fks = append(fks, ForeignKeyFact{
			Name:       name,
			Columns:    []string{column},
			RefTable:   refTable,
			RefColumns: []string{refColumn},
			OnDelete:   deleteRule,
			// Oracle has no ON UPDATE action for foreign keys.
			OnUpdate: "NO ACTION",
		})
	}
	return fks, rows.Err()
}

func (d *Oracle) UniqueConstraints(ctx context.Context, db *sql.DB, schema, table string) ([]UniqueFact, error) {
	query := `SELECT uc.CONSTRAINT_NAME, cc.COLUMN_NAME
		FROM USER_CONSTRAINTS uc
		JOIN USER_CONS_COLUMNS cc ON uc.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
		WHERE uc.CONSTRAINT_TYPE = 'U' AND uc.TABLE_NAME = :1
		ORDER BY uc.CONSTRAINT_NAME, cc.POSITION`

	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uniques []UniqueFact
	byName := make(map[string]int)
	for rows.Next() {
		var name, column string
		if err := rows.Scan(&name, &column); err != nil {
			return nil, err
		}
		if i, ok := byName[name]; ok {
			uniques[i].Columns = append(uniques[i].Columns, column)
			continue
		}
		byName[name] = len(uniques)
		uniques = append(uniques, UniqueFact{Name: name, Columns: []string{column}})
	}
	return uniques, rows.Err()
}

func (d *Oracle) CheckConstraints(ctx context.Context, db *sql.DB, schema, table string) ([]CheckFact, error) {
	// GENERATED = 'USER NAME' skips the implicit NOT NULL checks Oracle
	// creates for every non-nullable column.
	query := `SELECT CONSTRAINT_NAME, SEARCH_CONDITION
		FROM USER_CONSTRAINTS
		WHERE CONSTRAINT_TYPE = 'C' AND TABLE_NAME = :1 AND GENERATED = 'USER NAME'
		ORDER BY CONSTRAINT_NAME`

	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []CheckFact
	for rows.Next() {
		var name string
		var condition sql.NullString
		if err := rows.Scan(&name, &condition); err != nil {
			return nil, err
		}
		checks = append(checks, CheckFact{Name: name, Expression: condition.String})
	}
	return checks, rows.Err()
}

func (d *Oracle) Quote(ident string) string {
	return quoteWith(ident, `"`, `"`)
}

func (d *Oracle) Placeholder(index int) string {
	// 1-based positional binds
	return fmt.Sprintf(":%d", index+1)
}
