// Package bootstrap builds the dependency graph shared by the API server and
// the operator CLI.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/d4ytona/mpr-soluciones-app/internal/backend"
	"github.com/d4ytona/mpr-soluciones-app/internal/config"
	"github.com/d4ytona/mpr-soluciones-app/internal/infra/postgresql"
	"github.com/d4ytona/mpr-soluciones-app/internal/infra/postgresql/migrations"
	infraredis "github.com/d4ytona/mpr-soluciones-app/internal/infra/redis"
	"github.com/d4ytona/mpr-soluciones-app/internal/observability"
	"github.com/d4ytona/mpr-soluciones-app/internal/queue"
	"github.com/d4ytona/mpr-soluciones-app/internal/ratelimit"
	"github.com/d4ytona/mpr-soluciones-app/internal/repository"
	"github.com/d4ytona/mpr-soluciones-app/internal/service"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lastRunTTL = 7 * 24 * time.Hour

type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Location *time.Location

	// Set only in postgres mode with a DSN.
	DB            *gorm.DB
	SQLDB         *sql.DB
	ExecutionLogs repository.ExecutionLogRepository

	// Set only when REDIS_URL is configured.
	Redis       *goredis.Client
	StatusCache *infraredis.RunStatusCache
	Limiter     *infraredis.RedisRateLimiter

	// Set only when AMQP_URL is configured.
	Events *queue.RabbitMQPublisher

	Runner *service.Runner
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Metrics:  observability.NewMetrics(),
		Location: cfg.Location(),
	}

	if err := deps.openPostgres(ctx); err != nil {
		deps.Close()
		return nil, err
	}
	if err := deps.openRedis(ctx); err != nil {
		deps.Close()
		return nil, err
	}
	if err := deps.openRabbitMQ(ctx); err != nil {
		deps.Close()
		return nil, err
	}

	recorders := []service.RunRecorder{deps.Metrics}
	if deps.StatusCache != nil {
		recorders = append(recorders, deps.StatusCache)
	}
	if deps.Events != nil {
		recorders = append(recorders, deps.Events)
	}

	runner, err := service.NewRunner(deps.Settings, deps.backendFactory(), recorders, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Runner = runner

	return deps, nil
}

// Settings snapshots the trigger settings for one invocation.
func (d *Dependencies) Settings() service.Settings {
	endpoint, credential := d.Config.BackendEndpoint()
	return service.Settings{
		CronSecret: d.Config.CronSecret,
		Backend: backend.Settings{
			Endpoint:   endpoint,
			Credential: credential,
		},
	}
}

func (d *Dependencies) backendFactory() backend.Factory {
	if d.Config.Backend == config.BackendPostgres {
		return backend.NewPostgresFactory(d.DB)
	}
	return backend.NewSupabaseFactory(d.Config.BackendTimeout)
}

func (d *Dependencies) openPostgres(ctx context.Context) error {
	if d.Config.Backend != config.BackendPostgres || d.Config.DatabaseDSN == "" {
		return nil
	}

	db, err := postgresql.NewPostgres(ctx, d.Config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}
	d.DB = db

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	d.SQLDB = sqlDB

	if d.Config.DatabaseMigrate {
		if err := migrations.Migrate(db); err != nil {
			return fmt.Errorf("database migrations failed: %w", err)
		}
		d.Logger.Info("database migrations applied")
	}

	d.ExecutionLogs = repository.NewGormExecutionLogRepo(db)
	return nil
}

func (d *Dependencies) openRedis(ctx context.Context) error {
	if d.Config.RedisURL == "" {
		return nil
	}

	rdb, err := infraredis.NewRedis(ctx, d.Config.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}
	d.Redis = rdb

	cache, err := infraredis.NewRunStatusCache(rdb, lastRunTTL)
	if err != nil {
		return err
	}
	d.StatusCache = cache

	if d.Config.RateLimitPerSec > 0 {
		limiter, err := infraredis.NewRedisRateLimiter(rdb, d.Config.RateLimitPerSec)
		if err != nil {
			return err
		}
		d.Limiter = limiter
	}
	return nil
}

func (d *Dependencies) openRabbitMQ(ctx context.Context) error {
	if d.Config.AMQPURL == "" {
		return nil
	}

	client, err := queue.NewRabbitMQ(ctx, d.Config.AMQPURL)
	if err != nil {
		return fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	d.Events = queue.NewRabbitMQPublisher(client)
	return nil
}

// RateLimiter is nil when rate limiting is disabled.
func (d *Dependencies) RateLimiter() ratelimit.Limiter {
	if d.Limiter == nil {
		return nil
	}
	return d.Limiter
}

func (d *Dependencies) Close() error {
	var errs []error
	if d.Events != nil {
		errs = append(errs, d.Events.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	if d.SQLDB != nil {
		errs = append(errs, d.SQLDB.Close())
	}
	return errors.Join(errs...)
}
