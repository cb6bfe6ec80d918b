package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/d4ytona/mpr-soluciones-app/internal/config"
	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
	"github.com/d4ytona/mpr-soluciones-app/internal/service"
	"go.uber.org/zap"
)

func baseConfig() *config.Config {
	return &config.Config{
		CronSecret:         "secret",
		Backend:            config.BackendSupabase,
		SupabaseURL:        "https://project.supabase.co",
		SupabaseServiceKey: "service-key",
		BackendTimeout:     time.Second,
		APIPort:            3000,
		LogLevel:           "info",
		SchedulerTimezone:  "UTC",
	}
}

func TestNewSupabaseWithoutRedis(t *testing.T) {
	t.Parallel()

	deps, err := New(context.Background(), baseConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = deps.Close() })

	if deps.Runner == nil || deps.Metrics == nil {
		t.Fatal("runner and metrics must be built")
	}
	if deps.DB != nil || deps.Redis != nil || deps.StatusCache != nil {
		t.Fatal("optional dependencies should stay nil")
	}
	if deps.RateLimiter() != nil {
		t.Fatal("rate limiter should be disabled")
	}

	settings := deps.Settings()
	if settings.CronSecret != "secret" || settings.Backend.Endpoint != "https://project.supabase.co" || settings.Backend.Credential != "service-key" {
		t.Fatalf("settings = %+v", settings)
	}
}

func TestNewWithRedisEnablesCacheAndLimiter(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	cfg := baseConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.RateLimitPerSec = 3

	deps, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = deps.Close() })

	if deps.StatusCache == nil || deps.RateLimiter() == nil {
		t.Fatal("redis-backed components should be enabled")
	}

	result := deps.Runner.Run(context.Background(), service.CheckNotificationsJob{}, service.Request{Authorization: "Bearer wrong"})
	if result.Outcome != domain.OutcomeUnauthorized {
		t.Fatalf("outcome = %s, want unauthorized", result.Outcome)
	}

	record, err := deps.StatusCache.Last(context.Background(), domain.JobCheckNotifications)
	if err != nil {
		t.Fatalf("Last() error = %v", err)
	}
	if record.Outcome != domain.OutcomeUnauthorized {
		t.Fatalf("cached outcome = %s, want unauthorized", record.Outcome)
	}
}

func TestNewPostgresWithoutDSNReportsConfigurationPerRequest(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Backend = config.BackendPostgres

	deps, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = deps.Close() })

	result := deps.Runner.Run(context.Background(), service.GenerateObligationsJob{}, service.BearerRequest("secret"))
	if result.Outcome != domain.OutcomeConfigurationError || result.StatusCode != 500 {
		t.Fatalf("result = %+v, want configuration error", result)
	}
}

func TestNewRejectsUnreachableRedis(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.RedisURL = "redis://127.0.0.1:1"

	_, err := New(context.Background(), cfg, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for unreachable redis")
	}
	if errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected cancellation: %v", err)
	}
}

func TestNewRequiresConfig(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
