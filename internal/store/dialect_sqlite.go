package store

// SQLiteDialect implements Dialect for SQLite via modernc.org/sqlite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) QuoteIdent(name string) string { return quoteWith(`"`, name) }

func (d *SQLiteDialect) NewParamBuilder() ParamBuilder { return &sqliteParamBuilder{} }

func (d *SQLiteDialect) NowExpr() string { return "datetime('now')" }

// LikeOperator: SQLite LIKE is already case-insensitive for ASCII.
func (d *SQLiteDialect) LikeOperator() string    { return "LIKE" }
func (d *SQLiteDialect) SupportsReturning() bool { return false }
func (d *SQLiteDialect) NeedsBoolFix() bool      { return true }

func (d *SQLiteDialect) Bool(v bool) any {
	if v {
		return 1
	}
	return 0
}

func (d *SQLiteDialect) ColumnType(kind string, _ int) string {
	switch kind {
	case "string", "text":
		return "TEXT"
	// INT rather than INTEGER: only an INTEGER primary key aliases the rowid.
	case "int":
		return "INT"
	case "bigint":
		return "BIGINT"
	case "boolean":
		return "BOOLEAN"
	case "decimal":
		return "NUMERIC"
	case "date":
		return "DATE"
	case "timestamp":
		return "DATETIME"
	default:
		return "TEXT"
	}
}

// AutoPrimaryKey declares a rowid alias, which SQLite assigns automatically.
func (d *SQLiteDialect) AutoPrimaryKey(column string) string {
	return d.QuoteIdent(column) + " INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (d *SQLiteDialect) AuthTablesSQL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
    user_id       INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    is_active     INTEGER NOT NULL DEFAULT 1,
    status        TEXT NOT NULL DEFAULT 'active',
    created_at    TEXT DEFAULT (datetime('now'))
)`,
		`CREATE TABLE IF NOT EXISTS roles (
    role_id   INTEGER PRIMARY KEY AUTOINCREMENT,
    role_name TEXT NOT NULL UNIQUE
)`,
		`CREATE TABLE IF NOT EXISTS user_roles (
    user_id INTEGER NOT NULL,
    role_id INTEGER NOT NULL,
    PRIMARY KEY (user_id, role_id)
)`,
		`CREATE TABLE IF NOT EXISTS user_session (
    session_id    INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id       INTEGER NOT NULL,
    session_token TEXT NOT NULL,
    device_id     TEXT,
    ip_address    TEXT,
    user_agent    TEXT,
    login_at      DATETIME NOT NULL,
    last_seen_at  DATETIME NOT NULL,
    expires_at    DATETIME NOT NULL,
    is_active     INTEGER NOT NULL DEFAULT 1,
    logout_at     DATETIME,
    logout_reason TEXT
)`,
		`CREATE INDEX IF NOT EXISTS idx_user_session_user ON user_session (user_id, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_user_session_token ON user_session (session_token)`,
	}
}

var _ Dialect = (*SQLiteDialect)(nil)
