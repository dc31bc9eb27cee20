package instrument

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"hr-backend/internal/logging"
)

// RequestObserver assigns a request id, logs the request and records the
// HTTP metrics. Errors from later handlers are rendered here so the logged
// status is the one the client sees.
func RequestObserver(logger *zap.Logger, m *Metrics) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = NewID()
		}
		c.Set(HeaderRequestID, id)
		c.Locals("request_id", id)

		if m != nil {
			m.inFlight.Inc()
			defer m.inFlight.Dec()
		}
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		elapsed := time.Since(start)
		status := c.Response().StatusCode()
		path := c.Route().Path

		if m != nil {
			code := strconv.Itoa(status)
			m.requests.WithLabelValues(c.Method(), path, code).Inc()
			m.duration.WithLabelValues(c.Method(), path, code).Observe(elapsed.Seconds())
		}

		logging.WithRequestID(logger, id).Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
		)
		return nil
	}
}

// RequestID returns the id assigned by RequestObserver, or "".
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals("request_id").(string)
	return id
}
