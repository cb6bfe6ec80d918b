package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "mpr_cron"

// Metrics stores Prometheus collectors for the HTTP surface and trigger runs.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	triggerExecutionsTotal *prometheus.CounterVec
	triggerDuration        *prometheus.HistogramVec
	auditWriteFailures     *prometheus.CounterVec
	triggerRejections      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		triggerExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "trigger_executions_total",
				Help:      "Total number of trigger invocations by job and outcome.",
			},
			[]string{"job", "status"},
		),
		triggerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "trigger_duration_seconds",
				Help:      "Trigger invocation duration in seconds grouped by job.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"job"},
		),
		auditWriteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "audit_write_failures_total",
				Help:      "Total number of execution log writes that were attempted and failed.",
			},
			[]string{"job"},
		),
		triggerRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "trigger_rejections_total",
				Help:      "Total number of trigger requests rejected before reaching the backend.",
			},
			[]string{"job", "reason"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.triggerExecutionsTotal,
		m.triggerDuration,
		m.auditWriteFailures,
		m.triggerRejections,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

// RecordRun counts one finished trigger invocation. Auth and configuration
// failures also count as rejections since they never reach the backend.
func (m *Metrics) RecordRun(_ context.Context, record domain.RunRecord) error {
	if m == nil {
		return nil
	}

	job := normalizeLabel(record.Job.String())
	m.triggerExecutionsTotal.WithLabelValues(job, normalizeLabel(record.Outcome.String())).Inc()

	seconds := float64(record.DurationMs) / 1000
	if seconds < 0 {
		seconds = 0
	}
	m.triggerDuration.WithLabelValues(job).Observe(seconds)

	switch record.Outcome {
	case domain.OutcomeUnauthorized, domain.OutcomeConfigurationError:
		m.triggerRejections.WithLabelValues(job, record.Outcome.String()).Inc()
	default:
		if record.AuditAttempted && !record.AuditWritten {
			m.auditWriteFailures.WithLabelValues(job).Inc()
		}
	}

	return nil
}

func (m *Metrics) IncTriggerRejected(job string, reason string) {
	if m == nil {
		return
	}
	m.triggerRejections.WithLabelValues(normalizeLabel(job), normalizeLabel(reason)).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
