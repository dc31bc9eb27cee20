package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"hr-backend/internal/store"
)

// Describe reads the column catalog of table. The table name must come from
// the entity registry; it is quoted but never validated here.
func Describe(ctx context.Context, q store.Querier, d store.Dialect, table string) ([]Column, error) {
	var (
		cols []Column
		err  error
	)
	switch d.Name() {
	case "postgres":
		cols, err = describePostgres(ctx, q, table)
	case "sqlite":
		cols, err = describeSQLite(ctx, q, d, table)
	default:
		cols, err = describeMySQL(ctx, q, d, table)
	}
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return cols, nil
}

func describeMySQL(ctx context.Context, q store.Querier, d store.Dialect, table string) ([]Column, error) {
	rows, err := q.QueryContext(ctx, "SHOW COLUMNS FROM "+d.QuoteIdent(table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var field, typ, null, key, extra sql.NullString
		var dflt sql.NullString
		if err := rows.Scan(&field, &typ, &null, &key, &dflt, &extra); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, Column{
			Field:    field.String,
			Type:     typ.String,
			Nullable: strings.EqualFold(null.String, "YES"),
			Key:      key.String,
			Default:  nullable(dflt),
			Extra:    extra.String,
		})
	}
	return cols, rows.Err()
}

const postgresColumnsSQL = `
SELECT c.column_name,
       c.data_type,
       c.is_nullable,
       c.column_default,
       c.is_identity,
       c.udt_name,
       (
           SELECT string_agg(quote_literal(e.enumlabel), ',' ORDER BY e.enumsortorder)
           FROM pg_type t
           JOIN pg_enum e ON e.enumtypid = t.oid
           WHERE t.typname = c.udt_name
       ) AS enum_labels,
       COALESCE((
           SELECT CASE MAX(CASE tc.constraint_type
                               WHEN 'PRIMARY KEY' THEN 3
                               WHEN 'UNIQUE' THEN 2
                               WHEN 'FOREIGN KEY' THEN 1
                           END)
                      WHEN 3 THEN 'PRI'
                      WHEN 2 THEN 'UNI'
                      WHEN 1 THEN 'MUL'
                  END
           FROM information_schema.key_column_usage k
           JOIN information_schema.table_constraints tc
             ON tc.constraint_name = k.constraint_name
            AND tc.table_schema = k.table_schema
            AND tc.table_name = k.table_name
           WHERE k.table_schema = c.table_schema
             AND k.table_name = c.table_name
             AND k.column_name = c.column_name
       ), '') AS column_key
FROM information_schema.columns c
WHERE c.table_schema = current_schema()
  AND c.table_name = $1
ORDER BY c.ordinal_position`

func describePostgres(ctx context.Context, q store.Querier, table string) ([]Column, error) {
	rows, err := q.QueryContext(ctx, postgresColumnsSQL, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var name, typ, null, identity, udt, key string
		var dflt, labels sql.NullString
		if err := rows.Scan(&name, &typ, &null, &dflt, &identity, &udt, &labels, &key); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if typ == "USER-DEFINED" {
			// enum types are spelled the way MySQL reports them
			typ = udt
			if labels.Valid {
				typ = "enum(" + labels.String + ")"
			}
		}
		extra := ""
		if identity == "YES" || strings.HasPrefix(dflt.String, "nextval(") {
			extra = "auto_increment"
		}
		cols = append(cols, Column{
			Field:    name,
			Type:     typ,
			Nullable: null == "YES",
			Key:      key,
			Default:  nullable(dflt),
			Extra:    extra,
		})
	}
	return cols, rows.Err()
}

func describeSQLite(ctx context.Context, q store.Querier, d store.Dialect, table string) ([]Column, error) {
	rows, err := q.QueryContext(ctx, "PRAGMA table_info("+d.QuoteIdent(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	pkCount := 0
	for rows.Next() {
		var cid, notNull, pk int
		var name, typ string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c := Column{
			Field:    name,
			Type:     typ,
			Nullable: notNull == 0 && pk == 0,
			Default:  nullable(dflt),
		}
		if pk > 0 {
			c.Key = "PRI"
			pkCount++
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// A sole INTEGER primary key aliases the rowid and is assigned by SQLite.
	if pkCount == 1 {
		for i := range cols {
			if cols[i].Key == "PRI" && strings.EqualFold(cols[i].Type, "INTEGER") {
				cols[i].Extra = "auto_increment"
			}
		}
	}
	return cols, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
