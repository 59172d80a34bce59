package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

type SQLite struct{}

func (d *SQLite) Name() string { return "sqlite" }

func (d *SQLite) DefaultSchema(input string) string {
	if input == "" {
		return "main"
	}
	return input
}

func (d *SQLite) Tables(ctx context.Context, db *sql.DB, schema string) ([]TableFact, error) {
	query := `SELECT name, type FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

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
			IsView: kind == "view",
		})
	}
	return tables, rows.Err()
}

func (d *SQLite) Columns(ctx context.Context, db *sql.DB, schema, table string) ([]ColumnFact, error) {
	// PRAGMA arguments cannot be bound; the table name came from
	// sqlite_master and still gets quoted.
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", d.Quote(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ColumnFact
	pkCount := 0
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var def sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &def, &pk); err != nil {
			return nil, err
		}

		maxLen, precision, scale := parseTypeArgs(colType)
		col := ColumnFact{
			Name:       name,
			NativeType: colType,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
			MaxLength:  maxLen,
			Precision:  precision,
			Scale:      scale,
			Position:   cid,
		}
		if def.Valid {
			v := def.String
			col.Default = &v
		}
		if pk > 0 {
			pkCount++
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// A lone INTEGER PRIMARY KEY aliases rowid and auto-assigns values,
	// AUTOINCREMENT keyword or not.
	if pkCount == 1 {
		for i := range cols {
			if cols[i].PrimaryKey && strings.EqualFold(strings.TrimSpace(cols[i].NativeType), "integer") {
				cols[i].AutoIncrement = true
			}
		}
	}
	return cols, nil
}

// parseTypeArgs pulls length or precision/scale out of declared types such
// as VARCHAR(255) or DECIMAL(10,2).
func parseTypeArgs(colType string) (maxLen, precision, scale int64) {
	open := strings.Index(colType, "(")
	closeIdx := strings.LastIndex(colType, ")")
	if open < 0 || closeIdx <= open {
		return 0, 0, 0
	}
	parts := strings.Split(colType[open+1:closeIdx], ",")
	first, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, 0
	}
	if len(parts) == 1 {
		return first, 0, 0
	}
	second, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, first, 0
	}
	return 0, first, second
}

func (d *SQLite) Indexes(ctx context.Context, db *sql.DB, schema, table string) ([]IndexFact, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", d.Quote(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type indexRow struct {
		name   string
		unique bool
	}
	var listed []indexRow
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		if strings.HasPrefix(name, "sqlite_autoindex") {
			continue
		}
		listed = append(listed, indexRow{name: name, unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var indexes []IndexFact
	for _, idx := range listed {
		columns, err := d.indexColumns(ctx, db, idx.name)
		if err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			continue // expression indexes carry no column names
		}
		indexes = append(indexes, IndexFact{Name: idx.name, Unique: idx.unique, Columns: columns})
	}
	return indexes, nil
}

func (d *SQLite) indexColumns(ctx context.Context, db *sql.DB, index string) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", d.Quote(index)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		if name.Valid {
			columns = append(columns, name.String)
		}
	}
	return columns, rows.Err()
}

func (d *SQLite) ForeignKeys(ctx context.Context, db *sql.DB, schema, table string) ([]ForeignKeyFact, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", d.Quote(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKeyFact
	byID := make(map[int]int)
	for rows.Next() {
		var id, seq int
		var refTable, from, onUpdate, onDelete, match string
		var to sql.NullString // NULL means the referenced table's primary key
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		if i, ok := byID[id]; ok {
			fks[i].Columns = append(fks[i].Columns, from)
			fks[i].RefColumns = append(fks[i].RefColumns, to.String)
			continue
		}
		byID[id] = len(fks)
		fks = append(fks, ForeignKeyFact{
			// SQLite numbers FKs per table instead of naming them.
			Name:       fmt.Sprintf("%s_fk_%d", table, id),
			Columns:    []string{from},
			RefTable:   refTable,
			RefColumns: []string{to.String},
			OnDelete:   onDelete,
			OnUpdate:   onUpdate,
		})
	}
	return fks, rows.Err()
}

func (d *SQLite) UniqueConstraints(ctx context.Context, db *sql.DB, schema, table string) ([]UniqueFact, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", d.Quote(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type indexRow struct{ name string }
	var listed []indexRow
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		// origin 'pk' is the primary key; 'u' and 'c' uniques both count.
		if unique != 1 || origin == "pk" {
			continue
		}
		listed = append(listed, indexRow{name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var uniques []UniqueFact
	for _, idx := range listed {
		columns, err := d.indexColumns(ctx, db, idx.name)
		if err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			continue
		}
		uniques = append(uniques, UniqueFact{Name: idx.name, Columns: columns})
	}
	return uniques, nil
}

func (d *SQLite) CheckConstraints(ctx context.Context, db *sql.DB, schema, table string) ([]CheckFact, error) {
	// SQLite exposes no catalog for check constraints; they live only in
	// the original CREATE TABLE text.
	return nil, nil
}

func (d *SQLite) Quote(ident string) string {
	return quoteWith(ident, `"`, `"`)
}

func (d *SQLite) Placeholder(index int) string {
	return "?"
}
