package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"hr-backend/internal/metadata"
	"hr-backend/internal/schema"
	"hr-backend/internal/store"
)

// GetSection handles GET /api/:entity/:id/:section and returns the key plus
// the section's columns of one row.
func (h *Handler) GetSection(c *fiber.Ctx) error {
	entity, section, id, appErr := h.resolveSection(c)
	if appErr != nil {
		return respondError(c, appErr)
	}

	ctx := c.Context()
	d := h.store.Dialect

	var row map[string]any
	err := h.store.WithConn(ctx, func(conn *sql.Conn) error {
		cols, pk, err := describe(ctx, conn, d, entity.Table)
		if err != nil {
			return err
		}

		fields := []string{pk}
		for _, f := range section.Fields {
			if f != pk && schema.Find(cols, f) != nil {
				fields = append(fields, f)
			}
		}
		qr := BuildSelectByKeySQL(d, entity.Table, pk, fields, id)
		row, err = store.QueryRow(ctx, conn, qr.SQL, qr.Params...)
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError("not found")
		}
		if err != nil {
			return err
		}
		normalizeBools(d, cols, row)

		if link := section.Link; link != nil {
			v, err := linkedValue(ctx, conn, d, link, id)
			if err != nil {
				return err
			}
			row[link.Field] = v
		}
		return nil
	})
	h.metrics.EntityOp(entity.Name, "section_get", err)
	if err != nil {
		return h.fail(c, entity, err)
	}
	return c.JSON(row)
}

// PutSection handles PUT /api/:entity/:id/:section. Only the section's
// columns are written; the touch column is stamped and the linked row is
// kept in step, all in one transaction.
func (h *Handler) PutSection(c *fiber.Ctx) error {
	entity, section, id, appErr := h.resolveSection(c)
	if appErr != nil {
		return respondError(c, appErr)
	}

	body, err := decodeBody(c.Body())
	if err != nil {
		return respondError(c, BadRequestError("Invalid JSON body").WithEntity(entity.Name))
	}

	ctx := c.Context()
	d := h.store.Dialect

	err = h.store.WithConn(ctx, func(conn *sql.Conn) error {
		cols, pk, err := describe(ctx, conn, d, entity.Table)
		if err != nil {
			return err
		}

		payload := make(map[string]any)
		for _, f := range section.Fields {
			if f == pk || (section.Link != nil && f == section.Link.Field) {
				continue
			}
			if v, ok := body[f]; ok {
				payload[f] = v
			}
		}
		data, fieldErrs := schema.Coerce(cols, payload)

		var (
			link      = section.Link
			linkValue any
			hasLink   bool
		)
		if link != nil {
			if raw, ok := body[link.Field]; ok {
				hasLink = true
				linkValue, err = coerceLinkValue(ctx, conn, d, link, raw)
				if err != nil {
					var fe schema.FieldError
					if errors.As(err, &fe) {
						fieldErrs = append(fieldErrs, fe)
					} else {
						return err
					}
				}
			}
		}
		if len(fieldErrs) > 0 {
			return ValidationError(validationDetails(fieldErrs))
		}
		if len(data) == 0 && !hasLink {
			return BadRequestError("No fields to update")
		}

		exists := BuildSelectByKeySQL(d, entity.Table, pk, []string{pk}, id)
		if _, err := store.QueryRow(ctx, conn, exists.SQL, exists.Params...); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return NotFoundError("not found")
			}
			return err
		}

		touch := ""
		if section.Touch != "" && schema.Find(cols, section.Touch) != nil {
			touch = section.Touch
		}

		return store.WithTx(ctx, conn, func(tx *sql.Tx) error {
			if len(data) > 0 || touch != "" {
				qr := BuildUpdateSQL(d, entity.Table, pk, data, id, touch)
				if _, err := store.Exec(ctx, tx, qr.SQL, qr.Params...); err != nil {
					return err
				}
			}
			if hasLink {
				return syncLink(ctx, tx, d, link, id, linkValue)
			}
			return nil
		})
	})
	h.metrics.EntityOp(entity.Name, "section_put", err)
	if err != nil {
		return h.fail(c, entity, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *Handler) resolveSection(c *fiber.Ctx) (*metadata.Entity, *metadata.Section, int64, *AppError) {
	entity, appErr := h.resolveEntity(c)
	if appErr != nil {
		return nil, nil, 0, appErr
	}
	section := entity.Section(c.Params("section"))
	if section == nil {
		return nil, nil, 0, NotFoundError("Unknown section").WithEntity(entity.Name)
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return nil, nil, 0, BadRequestError("invalid id").WithEntity(entity.Name)
	}
	return entity, section, id, nil
}

// linkedValue reads the target column of the owner's scoped link row, or
// nil when there is none.
func linkedValue(ctx context.Context, q store.Querier, d store.Dialect, link *metadata.SectionLink, ownerID any) (any, error) {
	where, params := linkFilter(d, link, ownerID)
	sqlStr := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1",
		d.QuoteIdent(link.TargetColumn), d.QuoteIdent(link.Table), where)
	row, err := store.QueryRow(ctx, q, sqlStr, params...)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row[link.TargetColumn], nil
}

// syncLink replaces the owner's scoped link row with one pointing at target,
// or removes it when target is nil.
func syncLink(ctx context.Context, tx *sql.Tx, d store.Dialect, link *metadata.SectionLink, ownerID, target any) error {
	where, params := linkFilter(d, link, ownerID)
	del := fmt.Sprintf("DELETE FROM %s WHERE %s", d.QuoteIdent(link.Table), where)
	if _, err := store.Exec(ctx, tx, del, params...); err != nil {
		return err
	}
	if target == nil {
		return nil
	}

	cols := []string{link.OwnerColumn, link.TargetColumn}
	vals := []any{ownerID, target}
	for _, k := range scopeKeys(link) {
		cols = append(cols, k)
		vals = append(vals, scopeValue(d, link.Scope[k]))
	}
	_, err := store.Insert(ctx, tx, d, link.Table, cols, vals, "")
	return err
}

// coerceLinkValue validates the submitted link target against the link
// table. Falsy values (null, "", 0) clear the link.
func coerceLinkValue(ctx context.Context, q store.Querier, d store.Dialect, link *metadata.SectionLink, raw any) (any, error) {
	cols, err := schema.Describe(ctx, q, d, link.Table)
	if err != nil {
		return nil, err
	}
	col := schema.Find(cols, link.TargetColumn)
	if col == nil {
		return nil, fmt.Errorf("%s.%s: %w", link.Table, link.TargetColumn, schema.ErrTableNotFound)
	}
	target := *col
	target.Nullable = true
	v, err := schema.CoerceValue(target, raw)
	if err != nil {
		return nil, schema.FieldError{Field: link.Field, Message: err.Error()}
	}
	switch x := v.(type) {
	case int64:
		if x == 0 {
			return nil, nil
		}
	case string:
		if strings.TrimSpace(x) == "" || x == "0" {
			return nil, nil
		}
	case bool:
		if !x {
			return nil, nil
		}
	}
	return v, nil
}

func linkFilter(d store.Dialect, link *metadata.SectionLink, ownerID any) (string, []any) {
	pb := d.NewParamBuilder()
	conds := []string{fmt.Sprintf("%s = %s", d.QuoteIdent(link.OwnerColumn), pb.Add(ownerID))}
	for _, k := range scopeKeys(link) {
		conds = append(conds, fmt.Sprintf("%s = %s", d.QuoteIdent(k), pb.Add(scopeValue(d, link.Scope[k]))))
	}
	return strings.Join(conds, " AND "), pb.Params()
}

func scopeKeys(link *metadata.SectionLink) []string {
	return sortedKeys(link.Scope)
}

func scopeValue(d store.Dialect, v any) any {
	if b, ok := v.(bool); ok {
		return d.Bool(b)
	}
	return v
}
