package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type MySQL struct{}

func (d *MySQL) Name() string { return "mysql" }

func (d *MySQL) DefaultSchema(input string) string {
	// MySQL has no separate schema level; the caller resolves the current
	// database via SELECT DATABASE() and passes it in.
	return DefaultGetSchemaName(input)
}

func (d *MySQL) Tables(ctx context.Context, db *sql.DB, schema string) ([]TableFact, error) {
	query := `SELECT TABLE_NAME, TABLE_TYPE FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE IN ('BASE TABLE', 'VIEW')
		ORDER BY TABLE_NAME`

	rows, err := db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []TableFact
	for rows.Next() {
		var name, tableType string
		if err := rows.Scan(&name, &tableType); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, TableFact{
			Name:   name,
			Schema: schema,
			IsView: tableType == "VIEW",
		})
	}
	return tables, rows.Err()
}

func (d *MySQL) Columns(ctx context.Context, db *sql.DB, schema, table string) ([]ColumnFact, error) {
	query := `SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, IS_NULLABLE, COLUMN_KEY, EXTRA,
		COLUMN_DEFAULT, CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, NUMERIC_SCALE
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`

	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ColumnFact
	pos := 0
	for rows.Next() {
		var name, dataType, columnType, isNullable, columnKey, extra string
		var def sql.NullString
		var maxLen, precision, scale sql.NullInt64

		if err := rows.Scan(&name, &dataType, &columnType, &isNullable, &columnKey, &extra,
			&def, &maxLen, &precision, &scale); err != nil {
			return nil, err
		}

		col := ColumnFact{
			Name: name,
			// COLUMN_TYPE keeps display width and enum labels, which DATA_TYPE drops.
			NativeType:    columnType,
			Nullable:      isNullable == "YES",
			PrimaryKey:    strings.Contains(columnKey, "PRI"),
			AutoIncrement: strings.Contains(strings.ToLower(extra), "auto_increment"),
			MaxLength:     maxLen.Int64,
			Precision:     precision.Int64,
			Scale:         scale.Int64,
			EnumValues:    parseEnumValues(columnType),
			Position:      pos,
		}
		if def.Valid {
			v := def.String
			col.Default = &v
		}
		cols = append(cols, col)
		pos++
	}
	return cols, rows.Err()
}

func (d *MySQL) Indexes(ctx context.Context, db *sql.DB, schema, table string) ([]IndexFact, error) {
	query := `SELECT INDEX_NAME, NON_UNIQUE, COLUMN_NAME FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND INDEX_NAME <> 'PRIMARY'
		ORDER BY INDEX_NAME, SEQ_IN_INDEX`

	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []IndexFact
	byName := make(map[string]int)
	for rows.Next() {
		var name, column string
		var nonUnique int
		if err := rows.Scan(&name, &nonUnique, &column); err != nil {
			return nil, err
		}
		if i, ok := byName[name]; ok {
			indexes[i].Columns = append(indexes[i].Columns, column)
			continue
		}
		byName[name] = len(indexes)
		indexes = append(indexes, IndexFact{Name: name, Unique: nonUnique == 0, Columns: []string{column}})
	}
	return indexes, rows.Err()
}

func (d *MySQL) ForeignKeys(ctx context.Context, db *sql.DB, schema, table string) ([]ForeignKeyFact, error) {
	query := `SELECT kcu.CONSTRAINT_NAME, kcu.COLUMN_NAME, kcu.REFERENCED_TABLE_NAME,
		kcu.REFERENCED_COLUMN_NAME, rc.DELETE_RULE, rc.UPDATE_RULE
		FROM information_schema.KEY_COLUMN_USAGE kcu
		JOIN information_schema.REFERENTIAL_CONSTRAINTS rc
			ON rc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA
			AND rc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
		WHERE kcu.TABLE_SCHEMA = ? AND kcu.TABLE_NAME = ? AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`

	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKeyFact
	byName := make(map[string]int)
	for rows.Next() {
		var name, column, refTable, refColumn, deleteRule, updateRule string
		if err := rows.Scan(&name, &column, &refTable, &refColumn, &deleteRule, &updateRule); err != nil {
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
			OnUpdate:   updateRule,
		})
	}
	return fks, rows.Err()
}

func (d *MySQL) UniqueConstraints(ctx context.Context, db *sql.DB, schema, table string) ([]UniqueFact, error) {
	query := `SELECT tc.CONSTRAINT_NAME, kcu.COLUMN_NAME
		FROM information_schema.TABLE_CONSTRAINTS tc
		JOIN information_schema.KEY_COLUMN_USAGE kcu
			ON kcu.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
			AND kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
			AND kcu.TABLE_NAME = tc.TABLE_NAME
		WHERE tc.TABLE_SCHEMA = ? AND tc.TABLE_NAME = ? AND tc.CONSTRAINT_TYPE = 'UNIQUE'
		ORDER BY tc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`

	rows, err := db.QueryContext(ctx, query, schema, table)
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

func (d *MySQL) CheckConstraints(ctx context.Context, db *sql.DB, schema, table string) ([]CheckFact, error) {
	// CHECK_CONSTRAINTS exists from MySQL 8.0.16. Older servers fail the
	// query; the discoverer degrades that to a per-table warning.
	query := `SELECT cc.CONSTRAINT_NAME, cc.CHECK_CLAUSE
		FROM information_schema.CHECK_CONSTRAINTS cc
		JOIN information_schema.TABLE_CONSTRAINTS tc
			ON tc.CONSTRAINT_SCHEMA = cc.CONSTRAINT_SCHEMA
			AND tc.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
		WHERE tc.TABLE_SCHEMA = ? AND tc.TABLE_NAME = ? AND tc.CONSTRAINT_TYPE = 'CHECK'
		ORDER BY cc.CONSTRAINT_NAME`

	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []CheckFact
	for rows.Next() {
		var name, clause string
		if err := rows.Scan(&name, &clause); err != nil {
			return nil, err
		}
		checks = append(checks, CheckFact{Name: name, Expression: clause})
	}
	return checks, rows.Err()
}

func (d *MySQL) Quote(ident string) string {
	return quoteWith(ident, "`", "`")
}

func (d *MySQL) Placeholder(index int) string {
	return "?"
}
