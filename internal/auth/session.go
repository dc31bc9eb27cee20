package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"hr-backend/internal/store"
)

// Logout reasons recorded on deactivated sessions.
const (
	ReasonForceLogout = "force_logout"
	ReasonUserLogout  = "user_logout"
	ReasonAdminRevoke = "admin_revoke"
	ReasonExpired     = "expired"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrSessionInvalid     = errors.New("session expired")
)

type User struct {
	ID           int64
	Username     string
	Role         string
	Active       bool
	PasswordHash string
}

type Session struct {
	ID        any       `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"-"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	LoginAt   time.Time `json:"login_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore reads users and maintains user_session rows. A user holds at
// most one active session: issuing a new one force-logs-out the others.
type SessionStore struct {
	store *store.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewSessionStore(s *store.Store) *SessionStore {
	return &SessionStore{
		store: s,
		ttl:   SessionTTL,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// Authenticate checks a username/password pair. The role is "admin" when
// any assigned role is admin, otherwise "user".
func (s *SessionStore) Authenticate(ctx context.Context, username, password string) (*User, error) {
	pb := s.store.Dialect.NewParamBuilder()
	query := `SELECT u.user_id, u.username, u.password_hash, u.is_active,
       CASE WHEN MAX(CASE WHEN r.role_name = 'admin' THEN 1 ELSE 0 END) = 1 THEN 'admin' ELSE 'user' END AS role
  FROM users u
  LEFT JOIN user_roles ur ON ur.user_id = u.user_id
  LEFT JOIN roles r ON r.role_id = ur.role_id
 WHERE u.username = ` + pb.Add(username) + `
 GROUP BY u.user_id, u.username, u.password_hash, u.is_active`

	var row map[string]any
	err := s.store.WithConn(ctx, func(conn *sql.Conn) error {
		var err error
		row, err = store.QueryRow(ctx, conn, query, pb.Params()...)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	id, err := toInt64(row["user_id"])
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	user := &User{
		ID:           id,
		Username:     fmt.Sprint(row["username"]),
		Role:         fmt.Sprint(row["role"]),
		Active:       truthy(row["is_active"]),
		PasswordHash: fmt.Sprint(row["password_hash"]),
	}
	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

// Issue deactivates the user's active sessions with reason force_logout and
// inserts a new one, in one transaction.
func (s *SessionStore) Issue(ctx context.Context, user *User, ip, userAgent string) (*Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	d := s.store.Dialect
	now := s.now()
	sess := &Session{
		UserID:    user.ID,
		Token:     token,
		IPAddress: ip,
		UserAgent: userAgent,
		LoginAt:   now,
		ExpiresAt: now.Add(s.ttl),
	}

	err = s.store.WithConn(ctx, func(conn *sql.Conn) error {
		return store.WithTx(ctx, conn, func(tx *sql.Tx) error {
			pb := d.NewParamBuilder()
			force := fmt.Sprintf(`UPDATE user_session SET is_active = %s, logout_at = %s, logout_reason = %s
 WHERE user_id = %s AND is_active = %s AND logout_at IS NULL`,
				pb.Add(d.Bool(false)), pb.Add(now), pb.Add(ReasonForceLogout), pb.Add(user.ID), pb.Add(d.Bool(true)))
			if _, err := store.Exec(ctx, tx, force, pb.Params()...); err != nil {
				return fmt.Errorf("force logout: %w", err)
			}

			id, err := store.Insert(ctx, tx, d, "user_session",
				[]string{"user_id", "session_token", "device_id", "ip_address", "user_agent",
					"login_at", "last_seen_at", "expires_at", "is_active"},
				[]any{user.ID, token, nil, nullable(ip), nullable(userAgent),
					now, now, sess.ExpiresAt, d.Bool(true)},
				"session_id")
			if err != nil {
				return fmt.Errorf("insert session: %w", err)
			}
			sess.ID = id
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Validate reports whether the user holds an active, unexpired session with
// the given token, and records the activity on success.
func (s *SessionStore) Validate(ctx context.Context, userID, token string) error {
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil || token == "" {
		return ErrSessionInvalid
	}
	d := s.store.Dialect
	now := s.now()

	return s.store.WithConn(ctx, func(conn *sql.Conn) error {
		pb := d.NewParamBuilder()
		query := fmt.Sprintf(`SELECT session_id FROM user_session
 WHERE user_id = %s AND session_token = %s AND is_active = %s AND logout_at IS NULL AND expires_at > %s
 LIMIT 1`, pb.Add(uid), pb.Add(token), pb.Add(d.Bool(true)), pb.Add(now))
		row, err := store.QueryRow(ctx, conn, query, pb.Params()...)
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionInvalid
		}
		if err != nil {
			return err
		}

		pb = d.NewParamBuilder()
		touch := fmt.Sprintf("UPDATE user_session SET last_seen_at = %s WHERE session_id = %s",
			pb.Add(now), pb.Add(row["session_id"]))
		_, err = store.Exec(ctx, conn, touch, pb.Params()...)
		return err
	})
}

// Logout deactivates the session holding token.
func (s *SessionStore) Logout(ctx context.Context, token, reason string) (int64, error) {
	return s.deactivate(ctx, "session_token", token, reason)
}

// Revoke deactivates a session by id.
func (s *SessionStore) Revoke(ctx context.Context, sessionID int64, reason string) (int64, error) {
	return s.deactivate(ctx, "session_id", sessionID, reason)
}

func (s *SessionStore) deactivate(ctx context.Context, col string, val any, reason string) (int64, error) {
	d := s.store.Dialect
	var n int64
	err := s.store.WithConn(ctx, func(conn *sql.Conn) error {
		pb := d.NewParamBuilder()
		query := fmt.Sprintf(`UPDATE user_session SET is_active = %s, logout_at = %s, logout_reason = %s
 WHERE %s = %s AND is_active = %s AND logout_at IS NULL`,
			pb.Add(d.Bool(false)), pb.Add(s.now()), pb.Add(reason),
			d.QuoteIdent(col), pb.Add(val), pb.Add(d.Bool(true)))
		var err error
		n, err = store.Exec(ctx, conn, query, pb.Params()...)
		return err
	})
	return n, err
}

// ExpireStale closes active sessions whose expiry has passed.
func (s *SessionStore) ExpireStale(ctx context.Context) (int64, error) {
	d := s.store.Dialect
	now := s.now()
	var n int64
	err := s.store.WithConn(ctx, func(conn *sql.Conn) error {
		pb := d.NewParamBuilder()
		query := fmt.Sprintf(`UPDATE user_session SET is_active = %s, logout_at = %s, logout_reason = %s
 WHERE is_active = %s AND logout_at IS NULL AND expires_at <= %s`,
			pb.Add(d.Bool(false)), pb.Add(now), pb.Add(ReasonExpired), pb.Add(d.Bool(true)), pb.Add(now))
		var err error
		n, err = store.Exec(ctx, conn, query, pb.Params()...)
		return err
	})
	return n, err
}

// ListActive returns the active sessions with their usernames, newest first.
func (s *SessionStore) ListActive(ctx context.Context) ([]map[string]any, error) {
	d := s.store.Dialect
	var rows []map[string]any
	err := s.store.WithConn(ctx, func(conn *sql.Conn) error {
		pb := d.NewParamBuilder()
		query := fmt.Sprintf(`SELECT s.session_id, s.user_id, u.username, s.ip_address, s.user_agent,
       s.login_at, s.last_seen_at, s.expires_at
  FROM user_session s
  JOIN users u ON u.user_id = s.user_id
 WHERE s.is_active = %s AND s.logout_at IS NULL
 ORDER BY s.session_id DESC`, pb.Add(d.Bool(true)))
		var err error
		rows, err = store.QueryRows(ctx, conn, query, pb.Params()...)
		return err
	})
	return rows, err
}

// Profile returns id, username and status of a user.
func (s *SessionStore) Profile(ctx context.Context, userID string) (map[string]any, error) {
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return nil, store.ErrNotFound
	}
	d := s.store.Dialect
	var row map[string]any
	err = s.store.WithConn(ctx, func(conn *sql.Conn) error {
		pb := d.NewParamBuilder()
		query := "SELECT user_id AS id, username, status FROM users WHERE user_id = " + pb.Add(uid)
		var err error
		row, err = store.QueryRow(ctx, conn, query, pb.Params()...)
		return err
	})
	return row, err
}

// newSessionToken returns 32 random bytes, hex encoded.
func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case string:
		return x == "1" || x == "true"
	}
	return false
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	}
	return 0, fmt.Errorf("unexpected type %T", v)
}
