package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordRun(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		record         domain.RunRecord
		wantRejections float64
		wantAuditFail  float64
	}{
		{
			name: "success with audit",
			record: domain.RunRecord{
				Job: domain.JobGenerateObligations, Outcome: domain.OutcomeSuccess,
				DurationMs: 120, AuditAttempted: true, AuditWritten: true,
			},
		},
		{
			name: "remote error with failed audit",
			record: domain.RunRecord{
				Job: domain.JobGenerateObligations, Outcome: domain.OutcomeRemoteError,
				DurationMs: 40, AuditAttempted: true,
			},
			wantAuditFail: 1,
		},
		{
			name: "unauthorized is a rejection",
			record: domain.RunRecord{
				Job: domain.JobGenerateObligations, Outcome: domain.OutcomeUnauthorized,
			},
			wantRejections: 1,
		},
		{
			name: "local fault without backend skips audit",
			record: domain.RunRecord{
				Job: domain.JobGenerateObligations, Outcome: domain.OutcomeInternalError,
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			metrics := NewMetrics()
			if err := metrics.RecordRun(context.Background(), tc.record); err != nil {
				t.Fatalf("RecordRun() error = %v", err)
			}

			job := tc.record.Job.String()
			if got := testutil.ToFloat64(metrics.triggerExecutionsTotal.WithLabelValues(job, tc.record.Outcome.String())); got != 1 {
				t.Fatalf("trigger_executions_total = %v, want 1", got)
			}
			if got := testutil.ToFloat64(metrics.triggerRejections.WithLabelValues(job, tc.record.Outcome.String())); got != tc.wantRejections {
				t.Fatalf("trigger_rejections_total = %v, want %v", got, tc.wantRejections)
			}
			if got := testutil.ToFloat64(metrics.auditWriteFailures.WithLabelValues(job)); got != tc.wantAuditFail {
				t.Fatalf("audit_write_failures_total = %v, want %v", got, tc.wantAuditFail)
			}
		})
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	t.Parallel()

	var metrics *Metrics
	if err := metrics.RecordRun(context.Background(), domain.RunRecord{}); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	metrics.IncTriggerRejected("check-notifications", "rate_limited")
}

func TestMetricsIncTriggerRejected(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	metrics.IncTriggerRejected(" Check-Notifications ", "rate_limited")

	if got := testutil.ToFloat64(metrics.triggerRejections.WithLabelValues("check-notifications", "rate_limited")); got != 1 {
		t.Fatalf("trigger_rejections_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	_, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
