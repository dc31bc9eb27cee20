package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"hr-backend/internal/engine"
	"hr-backend/internal/instrument"
	"hr-backend/internal/metadata"
)

// SessionGate returns a Fiber middleware that validates the bearer identity
// token and its session row, and sets the UserContext on the request.
func SessionGate(sessions *SessionStore, secret string, m *instrument.Metrics, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		tokenStr, ok := bearerToken(c.Get("Authorization"))
		if !ok {
			m.SessionEvent("rejected")
			return engine.UnauthorizedError("unauthenticated")
		}

		claims, err := ParseAccessToken(tokenStr, secret)
		if err != nil {
			m.SessionEvent("rejected")
			return engine.UnauthorizedError("unauthenticated")
		}

		if err := sessions.Validate(c.Context(), claims.Subject, claims.SessionToken); err != nil {
			if errors.Is(err, ErrSessionInvalid) {
				m.SessionEvent("expired")
				return engine.UnauthorizedError("Session expired")
			}
			logger.Error("session lookup failed",
				zap.String("request_id", instrument.RequestID(c)),
				zap.Error(err))
			return engine.DatabaseError(err)
		}
		m.SessionEvent("validated")

		c.Locals("user", &metadata.UserContext{
			ID:           claims.Subject,
			Role:         claims.Role,
			SessionID:    claims.SessionID,
			SessionToken: claims.SessionToken,
		})

		return c.Next()
	}
}

// RequireRole checks the role carried by the identity claims. It performs no
// database lookup and must run after SessionGate.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return engine.UnauthorizedError("unauthenticated")
		}
		if !user.HasRole(role) {
			return engine.ForbiddenError("Forbidden")
		}
		return c.Next()
	}
}

// GetUser extracts the UserContext from a Fiber context.
func GetUser(c *fiber.Ctx) *metadata.UserContext {
	user, _ := c.Locals("user").(*metadata.UserContext)
	return user
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
