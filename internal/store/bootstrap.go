package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAdminUser     = "admin"
	defaultAdminPassword = "changeme"
)

// Bootstrap creates the user, role and session tables and seeds an admin
// account when the users table is empty.
func (s *Store) Bootstrap(ctx context.Context) error {
	return s.WithConn(ctx, func(conn *sql.Conn) error {
		for _, stmt := range s.Dialect.AuthTablesSQL() {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("bootstrap auth tables: %w", err)
			}
		}
		if err := s.seedAdminUser(ctx, conn); err != nil {
			return fmt.Errorf("seed admin user: %w", err)
		}
		return nil
	})
}

func (s *Store) seedAdminUser(ctx context.Context, conn *sql.Conn) error {
	var count int
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if _, err := s.createUser(ctx, conn, defaultAdminUser, string(hash), "admin"); err != nil {
		return err
	}

	s.logger.Warn("default admin user created, change the password immediately",
		zap.String("username", defaultAdminUser))
	return nil
}

// CreateUser inserts an active user with the given bcrypt hash and roles.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, roles ...string) (any, error) {
	var id any
	err := s.WithConn(ctx, func(conn *sql.Conn) error {
		var err error
		id, err = s.createUser(ctx, conn, username, passwordHash, roles...)
		return err
	})
	return id, err
}

func (s *Store) createUser(ctx context.Context, conn *sql.Conn, username, passwordHash string, roles ...string) (any, error) {
	var userID any
	err := WithTx(ctx, conn, func(tx *sql.Tx) error {
		var err error
		userID, err = Insert(ctx, tx, s.Dialect, "users",
			[]string{"username", "password_hash", "is_active", "status"},
			[]any{username, passwordHash, s.Dialect.Bool(true), "active"},
			"user_id")
		if err != nil {
			return err
		}
		for _, role := range roles {
			roleID, err := s.ensureRole(ctx, tx, role)
			if err != nil {
				return err
			}
			if _, err := Insert(ctx, tx, s.Dialect, "user_roles",
				[]string{"user_id", "role_id"}, []any{userID, roleID}, ""); err != nil {
				return err
			}
		}
		return nil
	})
	return userID, err
}

// ensureRole returns the id of the named role, creating it if needed.
func (s *Store) ensureRole(ctx context.Context, q Querier, name string) (any, error) {
	pb := s.Dialect.NewParamBuilder()
	row, err := QueryRow(ctx, q, "SELECT role_id FROM roles WHERE role_name = "+pb.Add(name), pb.Params()...)
	if err == nil {
		return row["role_id"], nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return Insert(ctx, q, s.Dialect, "roles", []string{"role_name"}, []any{name}, "role_id")
}
