package store

import (
	"fmt"
	"strings"
)

// Dialect abstracts database-specific SQL generation and behavior.
type Dialect interface {
	// Name returns "mysql", "postgres" or "sqlite".
	Name() string

	// DriverName returns the database/sql driver name.
	DriverName() string

	// QuoteIdent quotes a table or column name, doubling any embedded quote.
	QuoteIdent(name string) string

	// NewParamBuilder creates a dialect-aware parameter builder.
	NewParamBuilder() ParamBuilder

	// NowExpr returns the SQL expression for the current timestamp.
	NowExpr() string

	// LikeOperator returns the case-insensitive substring match operator.
	LikeOperator() string

	// SupportsReturning reports whether INSERT ... RETURNING yields generated keys.
	// Dialects without it rely on sql.Result.LastInsertId.
	SupportsReturning() bool

	// ColumnType maps a portable column kind to the DDL type.
	ColumnType(kind string, size int) string

	// AutoPrimaryKey returns the DDL for an auto-generated integer primary key column.
	AutoPrimaryKey(column string) string

	// Bool converts a Go bool to the value the dialect stores for BOOLEAN columns.
	Bool(v bool) any

	// AuthTablesSQL returns the DDL statements for the user and session tables.
	AuthTablesSQL() []string

	// NeedsBoolFix returns true if boolean columns come back as integers.
	NeedsBoolFix() bool
}

// ParamBuilder accumulates query parameters and generates dialect-specific placeholders.
type ParamBuilder interface {
	// Add appends a value and returns the placeholder string.
	Add(v any) string

	// Params returns all accumulated parameter values.
	Params() []any

	// Count returns the number of parameters added so far.
	Count() int
}

// NewDialect creates a Dialect for the given driver name.
func NewDialect(driver string) Dialect {
	switch driver {
	case "sqlite":
		return &SQLiteDialect{}
	case "postgres":
		return &PostgresDialect{}
	default:
		return &MySQLDialect{}
	}
}

func quoteWith(q, name string) string {
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// --- PostgreSQL ParamBuilder ---

type pgParamBuilder struct {
	params []any
	n      int
}

func (p *pgParamBuilder) Add(v any) string {
	p.n++
	p.params = append(p.params, v)
	return fmt.Sprintf("$%d", p.n)
}

func (p *pgParamBuilder) Params() []any { return p.params }
func (p *pgParamBuilder) Count() int    { return p.n }

// --- SQLite ParamBuilder ---

type sqliteParamBuilder struct {
	params []any
	n      int
}

func (p *sqliteParamBuilder) Add(v any) string {
	p.n++
	p.params = append(p.params, v)
	return fmt.Sprintf("?%d", p.n)
}

func (p *sqliteParamBuilder) Params() []any { return p.params }
func (p *sqliteParamBuilder) Count() int    { return p.n }

// --- MySQL ParamBuilder ---

type mysqlParamBuilder struct {
	params []any
}

func (p *mysqlParamBuilder) Add(v any) string {
	p.params = append(p.params, v)
	return "?"
}

func (p *mysqlParamBuilder) Params() []any { return p.params }
func (p *mysqlParamBuilder) Count() int    { return len(p.params) }
