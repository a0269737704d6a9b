package server

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "github.com/fyrsmithlabs/responsed/internal/server"

// httpMetrics holds request-level instruments. Instruments are no-ops
// until a global meter provider is installed.
type httpMetrics struct {
	requestsTotal metric.Int64Counter
	requestDur    metric.Float64Histogram
}

func newHTTPMetrics(logger *zap.Logger) *httpMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	meter := otel.Meter(meterName)
	m := &httpMetrics{}
	var err error

	m.requestsTotal, err = meter.Int64Counter(
		"responsed.http.requests_total",
		metric.WithDescription("Total HTTP requests labeled by method, route, and status code."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		logger.Warn("failed to create requests counter", zap.Error(err))
	}

	m.requestDur, err = meter.Float64Histogram(
		"responsed.http.request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds, labeled by method, route, and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0),
	)
	if err != nil {
		logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	return m
}

func (m *httpMetrics) record(c echo.Context, duration time.Duration) {
	route := c.Path()
	if route == "" {
		route = c.Request().URL.Path
	}
	attrs := metric.WithAttributes(
		attribute.String("method", c.Request().Method),
		attribute.String("route", route),
		attribute.Int("status", c.Response().Status),
	)

	ctx := c.Request().Context()
	if m.requestsTotal != nil {
		m.requestsTotal.Add(ctx, 1, attrs)
	}
	if m.requestDur != nil {
		m.requestDur.Record(ctx, duration.Seconds(), attrs)
	}
}
