package engine

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"hr-backend/internal/instrument"
	"hr-backend/internal/metadata"
	"hr-backend/internal/schema"
	"hr-backend/internal/store"
)

type Handler struct {
	store    *store.Store
	registry *metadata.Registry
	rules    *RuleSet
	metrics  *instrument.Metrics
	logger   *zap.Logger
}

func NewHandler(s *store.Store, reg *metadata.Registry, m *instrument.Metrics, logger *zap.Logger) (*Handler, error) {
	rules, err := CompileRules(reg.AllEntities())
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: s, registry: reg, rules: rules, metrics: m, logger: logger}, nil
}

// List handles GET /api/:entity?q=. Entities with a list join also get the
// joined link target and label on every row.
func (h *Handler) List(c *fiber.Ctx) error {
	entity, appErr := h.resolveEntity(c)
	if appErr != nil {
		return respondError(c, appErr)
	}

	ctx := c.Context()
	d := h.store.Dialect
	q := strings.TrimSpace(c.Query("q"))

	var rows []map[string]any
	err := h.store.WithConn(ctx, func(conn *sql.Conn) error {
		cols, pk, err := describe(ctx, conn, d, entity.Table)
		if err != nil {
			return err
		}
		search := schema.StringColumns(cols)
		qr := BuildListSQL(d, entity.Table, pk, search, q)
		if link := entity.ListLink(); link != nil {
			if schema.Find(cols, link.Field) == nil && schema.Find(cols, entity.ListJoin.As) == nil {
				qr = BuildJoinedListSQL(d, entity.Table, pk, search, link, entity.ListJoin, q)
			} else {
				h.logger.Warn("list join shadows a table column, listing without it",
					zap.String("entity", entity.Name))
			}
		}
		rows, err = store.QueryRows(ctx, conn, qr.SQL, qr.Params...)
		if err != nil {
			return err
		}
		normalizeBools(d, cols, rows...)
		return nil
	})
	h.metrics.EntityOp(entity.Name, "list", err)
	if err != nil {
		return h.fail(c, entity, err)
	}

	if rows == nil {
		rows = []map[string]any{}
	}
	return c.JSON(fiber.Map{"rows": rows})
}

// Create handles POST /api/:entity
func (h *Handler) Create(c *fiber.Ctx) error {
	entity, appErr := h.resolveEntity(c)
	if appErr != nil {
		return respondError(c, appErr)
	}

	body, err := decodeBody(c.Body())
	if err != nil {
		return respondError(c, BadRequestError("Invalid JSON body").WithEntity(entity.Name))
	}

	ctx := c.Context()
	d := h.store.Dialect

	var insertID any
	err = h.store.WithConn(ctx, func(conn *sql.Conn) error {
		cols, pk, err := describe(ctx, conn, d, entity.Table)
		if err != nil {
			return err
		}

		data := schema.FilterPayloadToTable(body, cols, false)
		if len(data) == 0 {
			return BadRequestError("No fields")
		}
		data, fieldErrs := schema.Coerce(cols, data)
		if len(fieldErrs) > 0 {
			return ValidationError(validationDetails(fieldErrs))
		}
		if ruleErrs := h.rules.Evaluate(entity.Name, data, nil, "create"); len(ruleErrs) > 0 {
			return ValidationError(ruleErrs)
		}

		keys := sortedKeys(data)
		vals := make([]any, len(keys))
		for i, k := range keys {
			vals[i] = data[k]
		}

		generated := ""
		if schema.IsAutoIncrement(cols, pk) {
			generated = pk
		}
		id, err := store.Insert(ctx, conn, d, entity.Table, keys, vals, generated)
		if err != nil {
			return err
		}
		if generated == "" {
			id = data[pk]
		}
		insertID = id
		return nil
	})
	h.metrics.EntityOp(entity.Name, "create", err)
	if err != nil {
		return h.fail(c, entity, err)
	}

	return c.JSON(fiber.Map{"ok": true, "insertId": insertID})
}

// Update handles PUT /api/:entity. The target key is taken from the body or
// the query string, see pickID.
func (h *Handler) Update(c *fiber.Ctx) error {
	entity, appErr := h.resolveEntity(c)
	if appErr != nil {
		return respondError(c, appErr)
	}

	body, err := decodeBody(c.Body())
	if err != nil {
		return respondError(c, BadRequestError("Invalid JSON body").WithEntity(entity.Name))
	}

	ctx := c.Context()
	d := h.store.Dialect

	var (
		pk       string
		id       any
		affected int64
	)
	err = h.store.WithConn(ctx, func(conn *sql.Conn) error {
		var cols []schema.Column
		var err error
		cols, pk, err = describe(ctx, conn, d, entity.Table)
		if err != nil {
			return err
		}
		if id, err = keyFromRequest(c, body, cols, pk); err != nil {
			return err
		}

		data := schema.FilterPayloadToTable(body, cols, true)
		delete(data, pk)
		if len(data) == 0 {
			return BadRequestError("No fields to update")
		}
		data, fieldErrs := schema.Coerce(cols, data)
		if len(fieldErrs) > 0 {
			return ValidationError(validationDetails(fieldErrs))
		}
		if ruleErrs := h.rules.Evaluate(entity.Name, data, id, "update"); len(ruleErrs) > 0 {
			return ValidationError(ruleErrs)
		}

		qr := BuildUpdateSQL(d, entity.Table, pk, data, id, "")
		affected, err = store.Exec(ctx, conn, qr.SQL, qr.Params...)
		return err
	})
	h.metrics.EntityOp(entity.Name, "update", err)
	if err != nil {
		return h.fail(c, entity, err)
	}

	return c.JSON(mutationResult(entity, pk, id, affected))
}

// Delete handles DELETE /api/:entity. A body is optional; when it cannot be
// parsed it is ignored and the key must come from the query string.
func (h *Handler) Delete(c *fiber.Ctx) error {
	entity, appErr := h.resolveEntity(c)
	if appErr != nil {
		return respondError(c, appErr)
	}

	body, err := decodeBody(c.Body())
	if err != nil {
		body = map[string]any{}
	}

	ctx := c.Context()
	d := h.store.Dialect

	var (
		pk       string
		id       any
		affected int64
	)
	err = h.store.WithConn(ctx, func(conn *sql.Conn) error {
		var cols []schema.Column
		var err error
		cols, pk, err = describe(ctx, conn, d, entity.Table)
		if err != nil {
			return err
		}
		if id, err = keyFromRequest(c, body, cols, pk); err != nil {
			return err
		}

		qr := BuildDeleteSQL(d, entity.Table, pk, id)
		if len(entity.NullOnDelete) == 0 {
			affected, err = store.Exec(ctx, conn, qr.SQL, qr.Params...)
			return err
		}

		return store.WithTx(ctx, conn, func(tx *sql.Tx) error {
			for _, ref := range entity.NullOnDelete {
				nr := BuildNullifySQL(d, ref, id)
				if _, err := store.Exec(ctx, tx, nr.SQL, nr.Params...); err != nil {
					return err
				}
			}
			var err error
			affected, err = store.Exec(ctx, tx, qr.SQL, qr.Params...)
			return err
		})
	})
	h.metrics.EntityOp(entity.Name, "delete", err)
	if err != nil {
		return h.fail(c, entity, err)
	}

	return c.JSON(mutationResult(entity, pk, id, affected))
}

func mutationResult(entity *metadata.Entity, pk string, id any, affected int64) fiber.Map {
	return fiber.Map{
		"ok":           true,
		"entity":       entity.Name,
		"table":        entity.Table,
		"pk":           pk,
		"id":           id,
		"affectedRows": affected,
	}
}

func (h *Handler) resolveEntity(c *fiber.Ctx) (*metadata.Entity, *AppError) {
	name := metadata.EntityFromPath(c.Path())
	entity, ok := h.registry.Resolve(name)
	if !ok {
		return nil, UnknownEntityError(name)
	}
	return entity, nil
}

// fail renders err for the given entity, logging anything that is not a
// client error.
func (h *Handler) fail(c *fiber.Ctx, entity *metadata.Entity, err error) error {
	appErr := classify(err).WithEntity(entity.Name)
	if appErr.Status >= 500 {
		h.logger.Error("entity operation failed",
			zap.String("request_id", instrument.RequestID(c)),
			zap.String("entity", entity.Name),
			zap.String("method", c.Method()),
			zap.Error(err))
	}
	return respondError(c, appErr)
}

// normalizeBools reports boolean columns as JSON booleans on dialects that
// store them as integers.
func normalizeBools(d store.Dialect, cols []schema.Column, rows ...map[string]any) {
	if d.NeedsBoolFix() {
		store.NormalizeBooleans(rows, schema.BoolColumns(cols))
	}
}

func respondError(c *fiber.Ctx, appErr *AppError) error {
	return c.Status(appErr.Status).JSON(appErr.Response())
}

// describe introspects table and resolves its primary key.
func describe(ctx context.Context, q store.Querier, d store.Dialect, table string) ([]schema.Column, string, error) {
	cols, err := schema.Describe(ctx, q, d, table)
	if err != nil {
		return nil, "", err
	}
	pk, err := schema.PrimaryKey(cols)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", table, err)
	}
	return cols, pk, nil
}

// keyFromRequest picks the target key in order body[pk], body.id, query[pk],
// query.id, skipping empty values, and validates it against the key column.
func keyFromRequest(c *fiber.Ctx, body map[string]any, cols []schema.Column, pk string) (any, error) {
	raw, ok := pickID(body, c.Query, pk)
	if !ok {
		return nil, BadRequestError(fmt.Sprintf("Missing primary key (%s)", pk))
	}
	col := schema.Find(cols, pk)
	if col == nil {
		return raw, nil
	}
	id, err := schema.CoerceValue(*col, raw)
	if err != nil {
		return nil, ValidationError([]ErrorDetail{{Field: pk, Rule: "type", Message: fmt.Sprintf("%s %s", pk, err.Error())}})
	}
	return id, nil
}

func pickID(body map[string]any, query func(key string, defaultValue ...string) string, pk string) (any, bool) {
	for _, key := range []string{pk, "id"} {
		if v, ok := body[key]; ok && v != nil && v != "" {
			return v, true
		}
	}
	for _, key := range []string{pk, "id"} {
		if v := query(key); v != "" {
			return v, true
		}
	}
	return nil, false
}

// decodeBody parses a JSON object body, keeping numbers as json.Number so
// large keys and decimals survive intact. An empty body is an empty object.
func decodeBody(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}
