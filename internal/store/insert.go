package store

import (
	"context"
	"fmt"
	"strings"
)

// InsertSQL builds a parameterized INSERT for the given column/value pairs.
// When returning is non-empty and the dialect supports it, the statement
// yields that column.
func InsertSQL(d Dialect, table string, cols []string, vals []any, returning string) (string, []any) {
	pb := d.NewParamBuilder()
	quoted := make([]string, len(cols))
	phs := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
		phs[i] = pb.Add(vals[i])
	}
	sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table), strings.Join(quoted, ", "), strings.Join(phs, ", "))
	if returning != "" && d.SupportsReturning() {
		sqlStr += " RETURNING " + d.QuoteIdent(returning)
	}
	return sqlStr, pb.Params()
}

// Insert executes an INSERT and returns the generated key. pkCol names the
// generated column; pass "" when the key is supplied by the caller, in which
// case the returned id is nil.
func Insert(ctx context.Context, q Querier, d Dialect, table string, cols []string, vals []any, pkCol string) (any, error) {
	sqlStr, params := InsertSQL(d, table, cols, vals, pkCol)

	if pkCol != "" && d.SupportsReturning() {
		var id any
		if err := q.QueryRowContext(ctx, sqlStr, params...).Scan(&id); err != nil {
			return nil, err
		}
		return id, nil
	}

	res, err := q.ExecContext(ctx, sqlStr, params...)
	if err != nil {
		return nil, err
	}
	if pkCol == "" {
		return nil, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}
