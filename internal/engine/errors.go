package engine

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"hr-backend/internal/instrument"
	"hr-backend/internal/schema"
)

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Entity  string        `json:"entity,omitempty"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// WithEntity returns a copy of e tagged with the entity name.
func (e *AppError) WithEntity(name string) *AppError {
	cp := *e
	cp.Entity = name
	return &cp
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	OK      bool          `json:"ok"`
	Error   string        `json:"error"`
	Code    string        `json:"code,omitempty"`
	Entity  string        `json:"entity,omitempty"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// Response renders e as an ErrorResponse.
func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{
		OK:      false,
		Error:   e.Message,
		Code:    e.Code,
		Entity:  e.Entity,
		Details: e.Details,
	}
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func NotFoundError(msg string) *AppError {
	return &AppError{Code: "NOT_FOUND", Status: 404, Message: msg}
}

func UnknownEntityError(name string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_ENTITY",
		Status:  404,
		Message: "Unknown entity",
		Entity:  name,
	}
}

func BadRequestError(msg string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Status: 400, Message: msg}
}

func ValidationError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  400,
		Message: "Validation failed",
		Details: details,
	}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: 403, Message: msg}
}

func TooManyRequestsError(msg string) *AppError {
	return &AppError{Code: "RATE_LIMITED", Status: 429, Message: msg}
}

// DatabaseError surfaces a driver error with its message unchanged.
func DatabaseError(err error) *AppError {
	return &AppError{Code: "DATABASE_ERROR", Status: 500, Message: err.Error()}
}

// classify turns any error from an entity operation into an AppError.
func classify(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, schema.ErrNoPrimaryKey) || errors.Is(err, schema.ErrTableNotFound) {
		return &AppError{Code: "SCHEMA_ERROR", Status: 500, Message: err.Error()}
	}
	return DatabaseError(err)
}

func validationDetails(errs []schema.FieldError) []ErrorDetail {
	out := make([]ErrorDetail, len(errs))
	for i, e := range errs {
		out[i] = ErrorDetail{Field: e.Field, Rule: "type", Message: fmt.Sprintf("%s %s", e.Field, e.Message)}
	}
	return out
}

// ErrorHandler renders errors returned from handlers and middleware.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *AppError
		if errors.As(err, &appErr) {
			if appErr.Status >= 500 {
				logger.Error("request failed",
					zap.String("request_id", instrument.RequestID(c)),
					zap.String("path", c.Path()),
					zap.String("entity", appErr.Entity),
					zap.Error(err))
			}
			return c.Status(appErr.Status).JSON(appErr.Response())
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{Error: fiberErr.Message})
		}

		logger.Error("unhandled error",
			zap.String("request_id", instrument.RequestID(c)),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}
}
