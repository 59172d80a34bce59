package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type Postgres struct{}

func (d *Postgres) Name() string { return "postgres" }

func (d *Postgres) DefaultSchema(input string) string {
	if input == "" {
		return "public"
	}
	return input
}

func (d *Postgres) Tables(ctx context.Context, db *sql.DB, schema string) ([]TableFact, error) {
	query := `SELECT table_name, table_type FROM information_schema.tables
		WHERE table_schema = $1 AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name`

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

func (d *Postgres) Columns(ctx context.Context, db *sql.DB, schema, table string) ([]ColumnFact, error) {
	// UDT_NAME is more useful than DATA_TYPE for postgres: it keeps int4/int8
	// distinctions and names user-defined enum types.
	query := `SELECT
		c.column_name,
		c.udt_name,
		c.data_type,
		c.is_nullable,
		c.column_default,
		c.character_maximum_length,
		c.numeric_precision,
		c.numeric_scale,
		c.is_identity,
		(SELECT 'PRI' FROM information_schema.table_constraints tc
		 JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name
		 WHERE tc.constraint_type = 'PRIMARY KEY'
		 AND kcu.table_schema = c.table_schema AND kcu.table_name = c.table_name
		 AND kcu.column_name = c.column_name LIMIT 1) AS column_key
	FROM information_schema.columns c
	WHERE c.table_schema = $1 AND c.table_name = $2
	ORDER BY c.ordinal_position`

	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ColumnFact
	var enumTypes []string
	pos := 0
	for rows.Next() {
		var name, udtName, dataType, isNullable, isIdentity string
		var def, columnKey sql.NullString
		var maxLen, precision, scale sql.NullInt64

		if err := rows.Scan(&name, &udtName, &dataType, &isNullable, &def,
			&maxLen, &precision, &scale, &isIdentity, &columnKey); err != nil {
			return nil, err
		}

		// serial columns show up as a plain int with a nextval() default;
		// identity columns flag themselves. Both mean auto-increment.
		autoInc := isIdentity == "YES" ||
			(def.Valid && strings.HasPrefix(def.String, "nextval("))

		col := ColumnFact{
			Name:          name,
			NativeType:    udtName,
			Nullable:      isNullable == "YES",
			PrimaryKey:    columnKey.String == "PRI",
			AutoIncrement: autoInc,
			MaxLength:     maxLen.Int64,
			Precision:     precision.Int64,
			Scale:         scale.Int64,
			Position:      pos,
		}
		if def.Valid {
			v := def.String
			col.Default = &v
		}
		if dataType == "USER-DEFINED" {
			enumTypes = append(enumTypes, udtName)
		}
		cols = append(cols, col)
		pos++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Second pass: fetch labels for user-defined enum types.
	for i := range cols {
		for _, typ := range enumTypes {
			if cols[i].NativeType == typ {
				values, err := d.enumLabels(ctx, db, typ)
				if err != nil {
					return nil, err
				}
				cols[i].EnumValues = values
			}
		}
	}
	return cols, nil
}

func (d *Postgres) enumLabels(ctx context.Context, db *sql.DB, typeName string) ([]string, error) {
	query := `SELECT e.enumlabel FROM pg_enum e
		JOIN pg_type t ON t.oid = e.enumtypid
		WHERE t.typname = $1
		ORDER BY e.enumsortorder`

	rows, err := db.QueryContext(ctx, query, typeName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

func (d *Postgres) Indexes(ctx context.Context, db *sql.DB, schema, table string) ([]IndexFact, error) {
	// pg_catalog instead of information_schema: index column order is only
	// reliable through indkey.
	query := `SELECT i.relname, ix.indisunique, a.attname
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname = $1 AND t.relname = $2 AND NOT ix.indisprimary
		ORDER BY i.relname, k.ord`

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

func (d *Postgres) ForeignKeys(ctx context.Context, db *sql.DB, schema, table string) ([]ForeignKeyFact, error) {
	// position_in_unique_constraint lines source columns up with the target
	// tuple; constraint_column_usage alone loses composite ordering.
	query := `SELECT rc.constraint_name, kcu.column_name,
		kcu2.table_name AS ref_table, kcu2.column_name AS ref_column,
		rc.delete_rule, rc.update_rule
	FROM information_schema.referential_constraints rc
	JOIN information_schema.key_column_usage kcu
		ON kcu.constraint_schema = rc.constraint_schema
		AND kcu.constraint_name = rc.constraint_name
	JOIN information_schema.key_column_usage kcu2
		ON kcu2.constraint_schema = rc.unique_constraint_schema
		AND kcu2.constraint_name = rc.unique_constraint_name
		AND kcu2.ordinal_position = kcu.position_in_unique_constraint
	WHERE kcu.table_schema = $1 AND kcu.table_name = $2
	ORDER BY rc.constraint_name, kcu.ordinal_position`

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

func (d *Postgres) UniqueConstraints(ctx context.Context, db *sql.DB, schema, table string) ([]UniqueFact, error) {
	query := `SELECT tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_schema = tc.constraint_schema
			AND kcu.constraint_name = tc.constraint_name
		WHERE tc.table_schema = $1 AND tc.table_name = $2 AND tc.constraint_type = 'UNIQUE'
		ORDER BY tc.constraint_name, kcu.ordinal_position`

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

func (d *Postgres) CheckConstraints(ctx context.Context, db *sql.DB, schema, table string) ([]CheckFact, error) {
	// Postgres materializes NOT NULL as synthetic check constraints; those
	// are already covered by the nullable flag, so filter them out.
	query := `SELECT cc.constraint_name, cc.check_clause
		FROM information_schema.check_constraints cc
		JOIN information_schema.table_constraints tc
			ON tc.constraint_schema = cc.constraint_schema
			AND tc.constraint_name = cc.constraint_name
		WHERE tc.table_schema = $1 AND tc.table_name = $2
			AND tc.constraint_type = 'CHECK'
			AND cc.constraint_name NOT LIKE '%_not_null'
		ORDER BY cc.constraint_name`

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

func (d *Postgres) Quote(ident string) string {
	return quoteWith(ident, `"`, `"`)
}

func (d *Postgres) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}
