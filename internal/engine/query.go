package engine

import (
	"fmt"
	"sort"
	"strings"

	"hr-backend/internal/metadata"
	"hr-backend/internal/store"
)

// ListLimit caps every list response.
const ListLimit = 500

type QueryResult struct {
	SQL    string
	Params []any
}

// BuildListSQL selects every column, optionally filtered by a substring
// match over searchCols, newest key first.
func BuildListSQL(d store.Dialect, table, pk string, searchCols []string, q string) QueryResult {
	pb := d.NewParamBuilder()
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s", d.QuoteIdent(table))

	quoted := make([]string, len(searchCols))
	for i, col := range searchCols {
		quoted[i] = d.QuoteIdent(col)
	}
	writeSearch(&b, d, pb, quoted, q)

	fmt.Fprintf(&b, " ORDER BY %s DESC LIMIT %d", d.QuoteIdent(pk), ListLimit)
	return QueryResult{SQL: b.String(), Params: pb.Params()}
}

// BuildJoinedListSQL is BuildListSQL for an entity with a list join. Each
// row also carries the link target ranked first by join.Order (as
// link.Field) and the label of the row it points at (as join.As). The label
// is searched along with searchCols.
func BuildJoinedListSQL(d store.Dialect, table, pk string, searchCols []string, link *metadata.SectionLink, join *metadata.ListJoin, q string) QueryResult {
	pb := d.NewParamBuilder()
	col := func(alias, name string) string { return alias + "." + d.QuoteIdent(name) }

	order := make([]string, 0, len(join.Order)+1)
	for _, o := range join.Order {
		dir := "ASC"
		if strings.HasPrefix(o, "-") {
			o, dir = o[1:], "DESC"
		}
		order = append(order, col("x", o)+" "+dir)
	}
	order = append(order, col("x", link.TargetColumn)+" ASC")

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT t.*, %s AS %s FROM (", col("j", join.Label), d.QuoteIdent(join.As))
	fmt.Fprintf(&b, "SELECT o.*, (SELECT %s FROM %s x WHERE %s = %s ORDER BY %s LIMIT 1) AS %s FROM %s o) t",
		col("x", link.TargetColumn), d.QuoteIdent(link.Table),
		col("x", link.OwnerColumn), col("o", pk),
		strings.Join(order, ", "), d.QuoteIdent(link.Field), d.QuoteIdent(table))
	fmt.Fprintf(&b, " LEFT JOIN %s j ON %s = %s",
		d.QuoteIdent(join.Table), col("j", join.Key), col("t", link.Field))

	exprs := make([]string, 0, len(searchCols)+1)
	for _, c := range searchCols {
		exprs = append(exprs, col("t", c))
	}
	exprs = append(exprs, col("j", join.Label))
	writeSearch(&b, d, pb, exprs, q)

	fmt.Fprintf(&b, " ORDER BY %s DESC LIMIT %d", col("t", pk), ListLimit)
	return QueryResult{SQL: b.String(), Params: pb.Params()}
}

// writeSearch appends a substring match of q over the quoted expressions.
func writeSearch(b *strings.Builder, d store.Dialect, pb store.ParamBuilder, exprs []string, q string) {
	if q == "" || len(exprs) == 0 {
		return
	}
	pattern := "%" + q + "%"
	conds := make([]string, len(exprs))
	for i, e := range exprs {
		conds[i] = fmt.Sprintf("%s %s %s", searchExpr(d, e), d.LikeOperator(), pb.Add(pattern))
	}
	fmt.Fprintf(b, " WHERE (%s)", strings.Join(conds, " OR "))
}

// searchExpr casts non-text columns on PostgreSQL, which has no implicit
// text conversion for ILIKE.
func searchExpr(d store.Dialect, expr string) string {
	if d.Name() == "postgres" {
		return fmt.Sprintf("CAST(%s AS TEXT)", expr)
	}
	return expr
}

// BuildUpdateSQL sets data (in key order) plus an optional touched
// timestamp column on the row identified by id.
func BuildUpdateSQL(d store.Dialect, table, pk string, data map[string]any, id any, touch string) QueryResult {
	pb := d.NewParamBuilder()
	var sets []string
	for _, col := range sortedKeys(data) {
		sets = append(sets, fmt.Sprintf("%s = %s", d.QuoteIdent(col), pb.Add(data[col])))
	}
	if touch != "" {
		sets = append(sets, fmt.Sprintf("%s = %s", d.QuoteIdent(touch), d.NowExpr()))
	}
	sqlStr := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		d.QuoteIdent(table), strings.Join(sets, ", "), d.QuoteIdent(pk), pb.Add(id))
	return QueryResult{SQL: sqlStr, Params: pb.Params()}
}

func BuildDeleteSQL(d store.Dialect, table, pk string, id any) QueryResult {
	pb := d.NewParamBuilder()
	sqlStr := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", d.QuoteIdent(table), d.QuoteIdent(pk), pb.Add(id))
	return QueryResult{SQL: sqlStr, Params: pb.Params()}
}

// BuildNullifySQL clears a reference to id ahead of deleting the referenced row.
func BuildNullifySQL(d store.Dialect, ref metadata.Reference, id any) QueryResult {
	pb := d.NewParamBuilder()
	col := d.QuoteIdent(ref.Column)
	sqlStr := fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = %s", d.QuoteIdent(ref.Table), col, col, pb.Add(id))
	return QueryResult{SQL: sqlStr, Params: pb.Params()}
}

// BuildSelectByKeySQL reads the given columns of one row.
func BuildSelectByKeySQL(d store.Dialect, table, pk string, cols []string, id any) QueryResult {
	pb := d.NewParamBuilder()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}
	sqlStr := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(quoted, ", "), d.QuoteIdent(table), d.QuoteIdent(pk), pb.Add(id))
	return QueryResult{SQL: sqlStr, Params: pb.Params()}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
