package store

import (
	"fmt"
)

// MySQLDialect implements Dialect for MySQL/MariaDB via go-sql-driver/mysql.
type MySQLDialect struct{}

func (d *MySQLDialect) Name() string       { return "mysql" }
func (d *MySQLDialect) DriverName() string { return "mysql" }

func (d *MySQLDialect) QuoteIdent(name string) string { return quoteWith("`", name) }

func (d *MySQLDialect) NewParamBuilder() ParamBuilder { return &mysqlParamBuilder{} }

func (d *MySQLDialect) NowExpr() string         { return "NOW()" }
func (d *MySQLDialect) LikeOperator() string    { return "LIKE" }
func (d *MySQLDialect) SupportsReturning() bool { return false }
func (d *MySQLDialect) NeedsBoolFix() bool      { return true }

func (d *MySQLDialect) Bool(v bool) any {
	if v {
		return 1
	}
	return 0
}

func (d *MySQLDialect) ColumnType(kind string, size int) string {
	switch kind {
	case "string":
		if size <= 0 {
			size = 255
		}
		return fmt.Sprintf("VARCHAR(%d)", size)
	case "text":
		return "TEXT"
	case "int":
		return "INT"
	case "bigint":
		return "BIGINT"
	case "decimal":
		return "DECIMAL(12,2)"
	case "boolean":
		return "TINYINT(1)"
	case "date":
		return "DATE"
	case "timestamp":
		return "DATETIME"
	default:
		return "TEXT"
	}
}

func (d *MySQLDialect) AutoPrimaryKey(column string) string {
	return d.QuoteIdent(column) + " INT NOT NULL AUTO_INCREMENT PRIMARY KEY"
}

func (d *MySQLDialect) AuthTablesSQL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
    user_id       INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    username      VARCHAR(100) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    is_active     TINYINT(1) NOT NULL DEFAULT 1,
    status        VARCHAR(50) NOT NULL DEFAULT 'active',
    created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
) DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS roles (
    role_id   INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    role_name VARCHAR(100) NOT NULL UNIQUE
) DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS user_roles (
    user_id INT NOT NULL,
    role_id INT NOT NULL,
    PRIMARY KEY (user_id, role_id)
) DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS user_session (
    session_id    INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    user_id       INT NOT NULL,
    session_token VARCHAR(128) NOT NULL,
    device_id     VARCHAR(255) NULL,
    ip_address    VARCHAR(255) NULL,
    user_agent    VARCHAR(512) NULL,
    login_at      DATETIME NOT NULL,
    last_seen_at  DATETIME NOT NULL,
    expires_at    DATETIME NOT NULL,
    is_active     TINYINT(1) NOT NULL DEFAULT 1,
    logout_at     DATETIME NULL,
    logout_reason VARCHAR(50) NULL,
    INDEX idx_user_session_user (user_id, is_active),
    INDEX idx_user_session_token (session_token)
) DEFAULT CHARSET=utf8mb4`,
	}
}

var _ Dialect = (*MySQLDialect)(nil)
