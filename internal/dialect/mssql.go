package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type MSSQL struct{}

func (d *MSSQL) Name() string { return "mssql" }

func (d *MSSQL) DefaultSchema(input string) string {
	if input == "" {
		return "dbo"
	}
	return input
}

func (d *MSSQL) Tables(ctx context.Context, db *sql.DB, schema string) ([]TableFact, error) {
	query := `SELECT TABLE_NAME, TABLE_TYPE FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE IN ('BASE TABLE', 'VIEW')
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

func (d *MSSQL) Columns(ctx context.Context, db *sql.DB, schema, table string) ([]ColumnFact, error) {
	// COLUMNPROPERTY is the reliable identity signal; sys.identity_columns
	// misses views and COLUMN_DEFAULT never carries it.
	query := `SELECT
		c.COLUMN_NAME,
		c.DATA_TYPE,
		c.IS_NULLABLE,
		c.COLUMN_DEFAULT,
		c.CHARACTER_MAXIMUM_LENGTH,
		c.NUMERIC_PRECISION,
		c.NUMERIC_SCALE,
		COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity') AS IS_IDENTITY,
		CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 'PRI' ELSE '' END AS COLUMN_KEY
	FROM INFORMATION_SCHEMA.COLUMNS c
	LEFT JOIN (
		SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
			ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
		WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY' AND tc.TABLE_SCHEMA = @p1
	) pk ON c.TABLE_NAME = pk.TABLE_NAME AND c.COLUMN_NAME = pk.COLUMN_NAME
	WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
	ORDER BY c.ORDINAL_POSITION`

	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ColumnFact
	pos := 0
	for rows.Next() {
		var name, dataType, isNullable, columnKey string
		var def sql.NullString
		var maxLen, precision, scale, isIdentity sql.NullInt64

		if err := rows.Scan(&name, &dataType, &isNullable, &def,
			&maxLen, &precision, &scale, &isIdentity, &columnKey); err != nil {
			return nil, err
		}

		col := ColumnFact{
			Name:          name,
			NativeType:    dataType,
			Nullable:      isNullable == "YES",
			PrimaryKey:    columnKey == "PRI",
			AutoIncrement: isIdentity.Int64 == 1,
			MaxLength:     maxLen.Int64,
			Precision:     precision.Int64,
			Scale:         scale.Int64,
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

func (d *MSSQL) Indexes(ctx context.Context, db *sql.DB, schema, table string) ([]IndexFact, error) {
	query := `SELECT idx.name, idx.is_unique, col.name
		FROM sys.indexes idx
		JOIN sys.index_columns ic ON idx.object_id = ic.object_id AND idx.index_id = ic.index_id
		JOIN sys.columns col ON ic.object_id = col.object_id AND ic.column_id = col.column_id
		JOIN sys.tables t ON idx.object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE s.name = @p1 AND t.name = @p2
			AND idx.is_primary_key = 0 AND idx.name IS NOT NULL
		ORDER BY idx.name, ic.key_ordinal`

	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []IndexFact
	byName := make(map[string]int)
	for rows.Next() {
		var name, column string
		var unique bool
		if err := rows.Scan(&name, &unique, &column); err != nil {
			return nil, err
		}
		if i, ok := byName[name]; ok {
			indexes[i].Columns = append(indexes[i].Columns, column)
			continue
		}
		byName[name] = len(indexes)
		indexes = append(indexes, IndexFact{Name: name, Unique: unique, Columns: []string{column}})
	}
	return indexes, rows.Err()
}

func (d *MSSQL) ForeignKeys(ctx context.Context, db *sql.DB, schema, table string) ([]ForeignKeyFact, error) {
	query := `SELECT RC.CONSTRAINT_NAME, KCU1.COLUMN_NAME,
		KCU2.TABLE_NAME AS REF_TABLE, KCU2.COLUMN_NAME AS REF_COLUMN,
		RC.DELETE_RULE, RC.UPDATE_RULE
	FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS RC
	JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU1
		ON RC.CONSTRAINT_NAME = KCU1.CONSTRAINT_NAME
	JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU2
		ON RC.UNIQUE_CONSTRAINT_NAME = KCU2.CONSTRAINT_NAME
		AND KCU2.ORDINAL_POSITION = KCU1.ORDINAL_POSITION
	WHERE KCU1.TABLE_SCHEMA = @p1 AND KCU1.TABLE_NAME = @p2
	ORDER BY RC.CONSTRAINT_NAME, KCU1.ORDINAL_POSITION`

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

func (d *MSSQL) UniqueConstraints(ctx context.Context, db *sql.DB, schema, table string) ([]UniqueFact, error) {
	// Unique indexes count too: SQL Server treats constraint-backed and
	// plain unique indexes differently in the catalog, uniqueness is the same.
	query := `SELECT idx.name, col.name
		FROM sys.indexes idx
		JOIN sys.index_columns ic ON idx.object_id = ic.object_id AND idx.index_id = ic.index_id
		JOIN sys.columns col ON ic.object_id = col.object_id AND ic.column_id = col.column_id
		JOIN sys.tables t ON idx.object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE s.name = @p1 AND t.name = @p2
			AND idx.is_unique = 1 AND idx.is_primary_key = 0
		ORDER BY idx.name, ic.key_ordinal`

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

func (d *MSSQL) CheckConstraints(ctx context.Context, db *sql.DB, schema, table string) ([]CheckFact, error) {
	query := `SELECT cc.name, cc.definition
		FROM sys.check_constraints cc
		JOIN sys.tables t ON cc.parent_object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		WHERE s.name = @p1 AND t.name = @p2
		ORDER BY cc.name`

	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []CheckFact
	for rows.Next() {
		var name, definition string
		if err := rows.Scan(&name, &definition); err != nil {
			return nil, err
		}
		checks = append(checks, CheckFact{Name: name, Expression: definition})
	}
	return checks, rows.Err()
}

func (d *MSSQL) Quote(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

func (d *MSSQL) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}
