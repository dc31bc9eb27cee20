package auth

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"hr-backend/internal/engine"
	"hr-backend/internal/instrument"
	"hr-backend/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	sessions  *SessionStore
	jwtSecret string
	limiter   *LoginLimiter
	metrics   *instrument.Metrics
	logger    *zap.Logger
}

func NewAuthHandler(sessions *SessionStore, jwtSecret string, limiter *LoginLimiter, m *instrument.Metrics, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{sessions: sessions, jwtSecret: jwtSecret, limiter: limiter, metrics: m, logger: logger}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=128"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	ip := ClientIP(c)
	if !h.limiter.Allow(ip) {
		h.metrics.SessionEvent("throttled")
		return engine.TooManyRequestsError("Too many login attempts")
	}

	var body loginRequest
	if err := c.BodyParser(&body); err != nil {
		return engine.BadRequestError("Invalid request body")
	}
	body.Username = strings.TrimSpace(body.Username)
	if details := validateStruct(body); len(details) > 0 {
		return engine.ValidationError(details)
	}

	ctx := c.Context()
	user, err := h.sessions.Authenticate(ctx, body.Username, body.Password)
	if err != nil {
		h.metrics.SessionEvent("rejected")
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			return engine.UnauthorizedError("Invalid username or password")
		case errors.Is(err, ErrAccountDisabled):
			return engine.UnauthorizedError("Account is disabled")
		}
		return engine.DatabaseError(err)
	}

	sess, err := h.sessions.Issue(ctx, user, ip, c.Get(fiber.HeaderUserAgent))
	if err != nil {
		h.logger.Error("issue session", zap.Int64("user_id", user.ID), zap.Error(err))
		return engine.DatabaseError(err)
	}
	h.metrics.SessionEvent("issued")

	userID := strconv.FormatInt(user.ID, 10)
	token, err := GenerateAccessToken(userID, user.Role, sess, h.jwtSecret)
	if err != nil {
		return engine.NewAppError("INTERNAL_ERROR", 500, "Failed to generate access token")
	}

	h.logger.Info("user signed in",
		zap.String("username", user.Username),
		zap.Any("session_id", sess.ID),
		zap.String("ip", ip))

	return c.JSON(fiber.Map{
		"ok":         true,
		"token":      token,
		"expires_at": sess.ExpiresAt,
		"user": fiber.Map{
			"id":       userID,
			"username": user.Username,
			"role":     user.Role,
		},
		"session": sess,
	})
}

// Logout handles POST /api/auth/logout. It runs behind SessionGate.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	user := GetUser(c)
	if user == nil {
		return engine.UnauthorizedError("unauthenticated")
	}
	if _, err := h.sessions.Logout(c.Context(), user.SessionToken, ReasonUserLogout); err != nil {
		return engine.DatabaseError(err)
	}
	h.metrics.SessionEvent("logout")
	return c.JSON(fiber.Map{"ok": true})
}

// Me handles GET /api/private/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := GetUser(c)
	if user == nil {
		return engine.UnauthorizedError("unauthenticated")
	}
	profile, err := h.sessions.Profile(c.Context(), user.ID)
	if errors.Is(err, store.ErrNotFound) {
		return engine.NotFoundError("not found")
	}
	if err != nil {
		return engine.DatabaseError(err)
	}
	return c.JSON(profile)
}

// RegisterPublicRoutes mounts the routes reachable without a session.
func RegisterPublicRoutes(api fiber.Router, h *AuthHandler) {
	api.Post("/auth/login", h.Login)
}

// RegisterPrivateRoutes mounts the routes that need a session; api must
// already carry SessionGate.
func RegisterPrivateRoutes(api fiber.Router, h *AuthHandler) {
	api.Post("/auth/logout", h.Logout)
	api.Get("/private/me", h.Me)
}

// ClientIP prefers X-Forwarded-For (first hop), then X-Real-IP, then the
// peer address.
func ClientIP(c *fiber.Ctx) string {
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return c.IP()
}
