package engine

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"hr-backend/internal/schema"
	"hr-backend/internal/store"
)

// BuildOptionsSQL selects the key as id plus whichever of code, name_th and
// name_en the table has. A table with only "name" serves it as name_th.
func BuildOptionsSQL(d store.Dialect, table, pk string, cols []schema.Column) QueryResult {
	sel := []string{fmt.Sprintf("%s AS %s", d.QuoteIdent(pk), d.QuoteIdent("id"))}
	order := d.QuoteIdent(pk)

	if schema.Find(cols, "code") != nil {
		sel = append(sel, d.QuoteIdent("code"))
	}
	switch {
	case schema.Find(cols, "name_th") != nil:
		sel = append(sel, d.QuoteIdent("name_th"))
		order = d.QuoteIdent("name_th")
	case schema.Find(cols, "name") != nil:
		sel = append(sel, fmt.Sprintf("%s AS %s", d.QuoteIdent("name"), d.QuoteIdent("name_th")))
		order = d.QuoteIdent("name")
	}
	if schema.Find(cols, "name_en") != nil {
		sel = append(sel, d.QuoteIdent("name_en"))
	}

	sqlStr := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(sel, ", "), d.QuoteIdent(table), order)
	return QueryResult{SQL: sqlStr}
}

// Options serves an option group: one list per source, keyed by the
// source key.
func (h *Handler) Options(group string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sources := h.registry.OptionGroup(group)
		if len(sources) == 0 {
			return respondError(c, NotFoundError("Unknown option group"))
		}

		ctx := c.Context()
		d := h.store.Dialect
		out := make(fiber.Map, len(sources))

		err := h.store.WithConn(ctx, func(conn *sql.Conn) error {
			for _, src := range sources {
				entity, ok := h.registry.Resolve(src.Entity)
				if !ok {
					return UnknownEntityError(src.Entity)
				}
				cols, pk, err := describe(ctx, conn, d, entity.Table)
				if err != nil {
					return fmt.Errorf("%s: %w", src.Key, err)
				}
				qr := BuildOptionsSQL(d, entity.Table, pk, cols)
				rows, err := store.QueryRows(ctx, conn, qr.SQL, qr.Params...)
				if err != nil {
					return err
				}
				out[src.Key] = rows
			}
			return nil
		})
		if err != nil {
			appErr := classify(err)
			if appErr.Status >= 500 {
				h.logger.Error("options failed", zap.String("group", group), zap.Error(err))
			}
			return respondError(c, appErr)
		}
		return c.JSON(out)
	}
}
