package store

import (
	"fmt"
)

// PostgresDialect implements Dialect for PostgreSQL via pgx/v5/stdlib.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) QuoteIdent(name string) string { return quoteWith(`"`, name) }

func (d *PostgresDialect) NewParamBuilder() ParamBuilder { return &pgParamBuilder{} }

func (d *PostgresDialect) NowExpr() string         { return "NOW()" }
func (d *PostgresDialect) LikeOperator() string    { return "ILIKE" }
func (d *PostgresDialect) SupportsReturning() bool { return true }
func (d *PostgresDialect) NeedsBoolFix() bool      { return false }
func (d *PostgresDialect) Bool(v bool) any         { return v }

func (d *PostgresDialect) ColumnType(kind string, size int) string {
	switch kind {
	case "string":
		if size <= 0 {
			size = 255
		}
		return fmt.Sprintf("VARCHAR(%d)", size)
	case "text":
		return "TEXT"
	case "int":
		return "INTEGER"
	case "bigint":
		return "BIGINT"
	case "decimal":
		return "NUMERIC(12,2)"
	case "boolean":
		return "BOOLEAN"
	case "date":
		return "DATE"
	case "timestamp":
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

func (d *PostgresDialect) AutoPrimaryKey(column string) string {
	return d.QuoteIdent(column) + " INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
}

func (d *PostgresDialect) AuthTablesSQL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
    user_id       INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    is_active     BOOLEAN NOT NULL DEFAULT true,
    status        TEXT NOT NULL DEFAULT 'active',
    created_at    TIMESTAMPTZ DEFAULT NOW()
)`,
		`CREATE TABLE IF NOT EXISTS roles (
    role_id   INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    role_name TEXT NOT NULL UNIQUE
)`,
		`CREATE TABLE IF NOT EXISTS user_roles (
    user_id INTEGER NOT NULL,
    role_id INTEGER NOT NULL,
    PRIMARY KEY (user_id, role_id)
)`,
		`CREATE TABLE IF NOT EXISTS user_session (
    session_id    INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    user_id       INTEGER NOT NULL,
    session_token TEXT NOT NULL,
    device_id     TEXT,
    ip_address    TEXT,
    user_agent    TEXT,
    login_at      TIMESTAMPTZ NOT NULL,
    last_seen_at  TIMESTAMPTZ NOT NULL,
    expires_at    TIMESTAMPTZ NOT NULL,
    is_active     BOOLEAN NOT NULL DEFAULT true,
    logout_at     TIMESTAMPTZ,
    logout_reason TEXT
)`,
		`CREATE INDEX IF NOT EXISTS idx_user_session_user ON user_session (user_id, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_user_session_token ON user_session (session_token)`,
	}
}

var _ Dialect = (*PostgresDialect)(nil)
