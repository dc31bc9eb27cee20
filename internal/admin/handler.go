package admin

import (
	"database/sql"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"hr-backend/internal/auth"
	"hr-backend/internal/engine"
	"hr-backend/internal/metadata"
	"hr-backend/internal/schema"
	"hr-backend/internal/store"
)

type Handler struct {
	store    *store.Store
	registry *metadata.Registry
	sessions *auth.SessionStore
}

func NewHandler(s *store.Store, reg *metadata.Registry, sessions *auth.SessionStore) *Handler {
	return &Handler{store: s, registry: reg, sessions: sessions}
}

// RegisterAdminRoutes mounts the admin tools on api, which must already
// carry the session gate.
func RegisterAdminRoutes(api fiber.Router, h *Handler) {
	admin := api.Group("/admin", auth.RequireRole("admin"))

	admin.Get("/sessions", h.ListSessions)
	admin.Delete("/sessions/:id", h.RevokeSession)

	admin.Get("/entities", h.ListEntities)
	admin.Get("/entities/:name", h.DescribeEntity)
}

// --- Session Endpoints ---

func (h *Handler) ListSessions(c *fiber.Ctx) error {
	rows, err := h.sessions.ListActive(c.Context())
	if err != nil {
		return engine.DatabaseError(err)
	}
	return c.JSON(fiber.Map{"rows": rows})
}

func (h *Handler) RevokeSession(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return engine.BadRequestError("invalid id")
	}
	n, err := h.sessions.Revoke(c.Context(), id, auth.ReasonAdminRevoke)
	if err != nil {
		return engine.DatabaseError(err)
	}
	if n == 0 {
		return engine.NotFoundError("Session not found or already closed")
	}
	return c.JSON(fiber.Map{"ok": true, "affectedRows": n})
}

// --- Entity Endpoints ---

func (h *Handler) ListEntities(c *fiber.Ctx) error {
	entities := h.registry.AllEntities()
	out := make([]fiber.Map, len(entities))
	for i, e := range entities {
		sections := make([]string, 0, len(e.Sections))
		for name := range e.Sections {
			sections = append(sections, name)
		}
		out[i] = fiber.Map{"name": e.Name, "table": e.Table, "sections": sections}
	}
	return c.JSON(fiber.Map{"rows": out})
}

// DescribeEntity introspects the entity's live table.
func (h *Handler) DescribeEntity(c *fiber.Ctx) error {
	name := c.Params("name")
	entity, ok := h.registry.Resolve(name)
	if !ok {
		return engine.UnknownEntityError(name)
	}

	ctx := c.Context()
	var cols []schema.Column
	err := h.store.WithConn(ctx, func(conn *sql.Conn) error {
		var err error
		cols, err = schema.Describe(ctx, conn, h.store.Dialect, entity.Table)
		return err
	})
	if err != nil {
		if errors.Is(err, schema.ErrTableNotFound) {
			return engine.NotFoundError("Table not found: " + entity.Table).WithEntity(name)
		}
		return engine.DatabaseError(err).WithEntity(name)
	}

	pk, pkErr := schema.PrimaryKey(cols)
	result := fiber.Map{
		"entity":     entity.Name,
		"table":      entity.Table,
		"columns":    cols,
		"searchable": schema.StringColumns(cols),
	}
	if pkErr == nil {
		result["pk"] = pk
		result["auto_increment"] = schema.IsAutoIncrement(cols, pk)
	}
	return c.JSON(result)
}
