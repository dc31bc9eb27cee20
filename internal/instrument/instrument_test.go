package instrument

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newObservedApp(m *Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusTeapot).SendString(err.Error())
		},
	})
	app.Use(RequestObserver(nil, m))
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		return c.SendString(RequestID(c))
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})
	return app
}

// sample reads a counter or gauge from reg; labels must match exactly.
func sample(t *testing.T, reg *prometheus.Registry, name string, labels ...string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for i := 0; i+1 < len(labels); i += 2 {
				if got[labels[i]] != labels[i+1] {
					continue next
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestRequestObserver_AssignsRequestID(t *testing.T) {
	app := newObservedApp(nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/items/1", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	id := resp.Header.Get(HeaderRequestID)
	assert.Len(t, id, 26)
	assert.Equal(t, id, string(body))

	req := httptest.NewRequest("GET", "/items/2", nil)
	req.Header.Set(HeaderRequestID, "upstream-id")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "upstream-id", resp.Header.Get(HeaderRequestID))
}

func TestRequestObserver_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	app := newObservedApp(m)

	for _, path := range []string{"/items/1", "/items/2", "/fail"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, 2.0, sample(t, reg, "http_requests_total", "method", "GET", "path", "/items/:id", "status", "200"))
	assert.Equal(t, 1.0, sample(t, reg, "http_requests_total", "method", "GET", "path", "/fail", "status", "418"))
	assert.Equal(t, 0.0, sample(t, reg, "http_in_flight_requests"))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.EntityOp("gender", "list", nil)
	m.SessionEvent("issued")
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.EntityOp("gender", "create", nil)
	m.EntityOp("gender", "create", errors.New("dup"))
	m.SessionEvent("expired")

	assert.Equal(t, 1.0, sample(t, reg, "hr_entity_operations_total", "entity", "gender", "op", "create", "outcome", "ok"))
	assert.Equal(t, 1.0, sample(t, reg, "hr_entity_operations_total", "entity", "gender", "op", "create", "outcome", "error"))
	assert.Equal(t, 1.0, sample(t, reg, "hr_session_events_total", "event", "expired"))
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.SessionEvent("issued")

	app := fiber.New()
	app.Get("/metrics", MetricsHandler(reg))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `hr_session_events_total{event="issued"} 1`))
}

func TestNewID_Sortable(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 26)
	assert.Less(t, a, b)
}
