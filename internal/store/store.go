package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // Register mysql as database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Register sqlite as database/sql driver

	"hr-backend/internal/config"
)

var ErrNotFound = errors.New("not found")

// Querier is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store owns the connection pool and its dialect. It is created once at
// startup and closed at shutdown.
type Store struct {
	Dialect Dialect

	mu     sync.RWMutex
	db     *sql.DB
	open   func(ctx context.Context) (*sql.DB, error)
	logger *zap.Logger
}

// New opens the pool described by cfg and verifies it with a ping.
func New(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialect := NewDialect(cfg.Driver)
	s := &Store{
		Dialect: dialect,
		logger:  logger,
		open: func(ctx context.Context) (*sql.DB, error) {
			return openPool(ctx, dialect, cfg)
		},
	}
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	s.db = db
	return s, nil
}

// NewWithDB wraps an already-open pool. The pool cannot be reopened once closed.
func NewWithDB(db *sql.DB, dialect Dialect) *Store {
	return &Store{Dialect: dialect, db: db, logger: zap.NewNop()}
}

func openPool(ctx context.Context, dialect Dialect, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(dialect.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.IsSQLite() {
		// SQLite: single writer
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	} else if cfg.PoolSize > 0 {
		db.SetMaxOpenConns(cfg.PoolSize)
		db.SetMaxIdleConns(cfg.PoolSize)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// DB returns the current pool.
func (s *Store) DB() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.DB().Close()
}

// Conn borrows one connection from the pool. When the pool has been closed
// underneath the store it is reopened once and the acquisition retried.
func (s *Store) Conn(ctx context.Context) (*sql.Conn, error) {
	db := s.DB()
	conn, err := db.Conn(ctx)
	if err == nil {
		return conn, nil
	}
	if !isPoolClosed(err) || s.open == nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if err := s.reopen(ctx, db); err != nil {
		return nil, err
	}
	conn, err = s.DB().Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

func (s *Store) reopen(ctx context.Context, stale *sql.DB) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != stale {
		// another caller already replaced it
		return nil
	}
	s.logger.Warn("connection pool closed, reopening")
	db, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("reopen pool: %w", err)
	}
	s.db = db
	return nil
}

func isPoolClosed(err error) bool {
	return err != nil && strings.Contains(err.Error(), "database is closed")
}

// WithConn runs fn on a borrowed connection and always returns it to the pool.
func (s *Store) WithConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

// WithTx runs fn inside a transaction on the given connection. The
// transaction is committed when fn returns nil and rolled back otherwise.
func WithTx(ctx context.Context, conn *sql.Conn, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// QueryRows executes a query and returns results as []map[string]any.
func QueryRows(ctx context.Context, q Querier, sqlStr string, args ...any) ([]map[string]any, error) {
	rows, err := q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}
	// resolved on first []byte value
	var types []*sql.ColumnType

	results := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if _, raw := values[i].([]byte); raw && types == nil {
				if types, err = rows.ColumnTypes(); err != nil {
					return nil, fmt.Errorf("get column types: %w", err)
				}
			}
			dbType := ""
			if types != nil {
				dbType = types[i].DatabaseTypeName()
			}
			row[col] = normalizeValue(values[i], dbType)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return results, nil
}

// QueryRow executes a query and returns a single row as map[string]any.
func QueryRow(ctx context.Context, q Querier, sqlStr string, args ...any) (map[string]any, error) {
	rows, err := QueryRows(ctx, q, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// Exec executes a statement and returns the number of rows affected.
func Exec(ctx context.Context, q Querier, sqlStr string, args ...any) (int64, error) {
	result, err := q.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// normalizeValue converts driver values to JSON-serializable Go types.
// MySQL's text protocol returns every column as []byte, so the declared
// type decides how the bytes are read back.
func normalizeValue(v any, dbType string) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	s := string(b)
	switch strings.ToUpper(dbType) {
	case "INT", "INTEGER", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT", "YEAR",
		"UNSIGNED INT", "UNSIGNED TINYINT", "UNSIGNED SMALLINT", "UNSIGNED MEDIUMINT", "UNSIGNED BIGINT":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case "FLOAT", "DOUBLE", "REAL":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case "DATETIME", "TIMESTAMP":
		if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
			return t
		}
	}
	return s
}

// NormalizeBooleans converts integer 0/1 values to bool for specified fields.
// This is needed for MySQL and SQLite where BOOLEAN columns are stored as integers.
func NormalizeBooleans(rows []map[string]any, boolFields []string) {
	if len(boolFields) == 0 || len(rows) == 0 {
		return
	}
	boolSet := make(map[string]bool, len(boolFields))
	for _, f := range boolFields {
		boolSet[f] = true
	}
	for _, row := range rows {
		for k, v := range row {
			if !boolSet[k] {
				continue
			}
			switch val := v.(type) {
			case int64:
				row[k] = val != 0
			case int:
				row[k] = val != 0
			case float64:
				row[k] = val != 0
			case string:
				row[k] = val == "1" || strings.EqualFold(val, "true")
			}
		}
	}
}
