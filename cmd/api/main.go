package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/d4ytona/mpr-soluciones-app/internal/bootstrap"
	"github.com/d4ytona/mpr-soluciones-app/internal/config"
	"github.com/d4ytona/mpr-soluciones-app/internal/handler"
	"github.com/d4ytona/mpr-soluciones-app/internal/observability"
	"github.com/d4ytona/mpr-soluciones-app/internal/service"
	"github.com/d4ytona/mpr-soluciones-app/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

// run returns the process exit code so that deferred cleanup runs before exit.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Print("failed to load config: ", err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Print("failed to initialize logger: ", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("dependency initialization failed", zap.Error(err))
		return 1
	}
	defer deps.Close() //nolint:errcheck

	if cfg.CronSecret == "" {
		logger.Warn("CRON_SECRET is not set; every trigger request will be rejected")
	}

	app, err := newApp(deps)
	if err != nil {
		logger.Error("http app initialization failed", zap.Error(err))
		return 1
	}

	var scheduler *service.CronScheduler
	if cfg.SchedulerEnabled {
		scheduler, err = newScheduler(deps)
		if err != nil {
			logger.Error("scheduler initialization failed", zap.Error(err))
			return 1
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		logger.Info("mpr-cron api started",
			zap.String("addr", addr),
			zap.String("backend", cfg.Backend),
			zap.Bool("scheduler", cfg.SchedulerEnabled),
		)
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if scheduler != nil {
		g.Go(func() error {
			return scheduler.Start(gctx)
		})
	}

	if err := serveError(g.Wait()); err != nil {
		logger.Error("api stopped with error", zap.Error(err))
		return 1
	}
	logger.Info("mpr-cron api stopped")
	return 0
}

// serveError drops the cancellation that a normal shutdown produces.
func serveError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newApp(deps *bootstrap.Dependencies) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		AppName:               observability.ServiceName,
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(deps.Logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(observability.RequestContext())
	app.Use(deps.Metrics.HTTPMiddleware())

	app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	handler.RegisterHealthRoutes(app, deps.SQLDB, deps.Redis)

	routes := handler.TriggerRoutesConfig{
		Runner:     deps.Runner,
		Settings:   deps.Settings,
		Location:   deps.Location,
		Limiter:    deps.RateLimiter(),
		Rejections: deps.Metrics,
		Logger:     deps.Logger,
	}
	if deps.StatusCache != nil {
		routes.Status = deps.StatusCache
	}
	if err := handler.RegisterTriggerRoutes(app, routes); err != nil {
		return nil, err
	}

	return app, nil
}

func newScheduler(deps *bootstrap.Dependencies) (*service.CronScheduler, error) {
	jobs := []service.ScheduledJob{
		{Spec: deps.Config.GenerateObligationsSchedule, Job: service.GenerateObligationsJob{Location: deps.Location}},
		{Spec: deps.Config.CheckNotificationsSchedule, Job: service.CheckNotificationsJob{}},
	}
	return service.NewCronScheduler(deps.Runner, deps.Settings, jobs, deps.Location, deps.Logger)
}
