package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-backend/internal/store"
)

func TestSweeper_ClosesExpiredSessions(t *testing.T) {
	env := newAuthEnv(t, nil)
	ctx := context.Background()
	env.login(t, "somchai", "secret123")
	live := env.login(t, "admin", "changeme")

	past := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	_, err := store.Exec(ctx, env.store.DB(),
		"UPDATE user_session SET expires_at = ?1 WHERE user_id = (SELECT user_id FROM users WHERE username = 'somchai')", past)
	require.NoError(t, err)

	sweeper := NewSweeper(env.sessions, time.Minute, nil)
	assert.Equal(t, int64(1), sweeper.Sweep(ctx))
	assert.Equal(t, int64(0), sweeper.Sweep(ctx))
	assert.Equal(t, []any{ReasonExpired}, env.logoutReasons(t))

	rows, err := env.sessions.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "admin", rows[0]["username"])

	status, _ := env.request(t, "GET", "/api/private/me", live, nil)
	assert.Equal(t, 200, status)
}

func TestSweeper_StartStop(t *testing.T) {
	env := newAuthEnv(t, nil)

	idle := NewSweeper(env.sessions, 0, nil)
	idle.Start()
	idle.Stop()

	s := NewSweeper(env.sessions, time.Hour, nil)
	s.Start()
	s.Stop()
	s.Stop()
}

func TestRevoke(t *testing.T) {
	env := newAuthEnv(t, nil)
	ctx := context.Background()
	token := env.login(t, "somchai", "secret123")

	claims, err := ParseAccessToken(token, testSecret)
	require.NoError(t, err)
	row, err := store.QueryRow(ctx, env.store.DB(), "SELECT session_id FROM user_session WHERE session_token = ?1", claims.SessionToken)
	require.NoError(t, err)
	id := row["session_id"].(int64)

	n, err := env.sessions.Revoke(ctx, id, ReasonAdminRevoke)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = env.sessions.Revoke(ctx, id, ReasonAdminRevoke)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	assert.ErrorIs(t, env.sessions.Validate(ctx, claims.Subject, claims.SessionToken), ErrSessionInvalid)
}

func TestValidate_RejectsMalformedInput(t *testing.T) {
	env := newAuthEnv(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, env.sessions.Validate(ctx, "abc", "tok"), ErrSessionInvalid)
	assert.ErrorIs(t, env.sessions.Validate(ctx, "1", ""), ErrSessionInvalid)
	assert.ErrorIs(t, env.sessions.Validate(ctx, "1", "unknown"), ErrSessionInvalid)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	sess := &Session{ID: int64(42), Token: "abc123", LoginAt: now, ExpiresAt: now.Add(SessionTTL)}

	token, err := GenerateAccessToken("7", "user", sess, testSecret)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "42", claims.SessionID)
	assert.Equal(t, "abc123", claims.SessionToken)
	assert.True(t, claims.ExpiresAt.Time.Equal(sess.ExpiresAt))

	_, err = ParseAccessToken(token, "wrong")
	assert.Error(t, err)

	noSession, err := GenerateAccessToken("7", "user", &Session{LoginAt: now, ExpiresAt: now.Add(time.Hour)}, testSecret)
	require.NoError(t, err)
	_, err = ParseAccessToken(noSession, testSecret)
	assert.Error(t, err)

	expired, err := GenerateAccessToken("7", "user", &Session{Token: "x", LoginAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}, testSecret)
	require.NoError(t, err)
	_, err = ParseAccessToken(expired, testSecret)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPassword("s3cret", hash))
	assert.False(t, CheckPassword("other", hash))
	assert.False(t, CheckPassword("s3cret", "not-a-hash"))
}

func TestLoginLimiter(t *testing.T) {
	assert.Nil(t, NewLoginLimiter(0, 5))

	var disabled *LoginLimiter
	assert.True(t, disabled.Allow("10.0.0.1"))

	l := NewLoginLimiter(1, 2)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))
	assert.True(t, l.Allow(""))
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	tok, ok = bearerToken("bearer  abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc", "abc"} {
		_, ok := bearerToken(h)
		assert.False(t, ok, h)
	}
}
