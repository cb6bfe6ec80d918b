package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
	"github.com/d4ytona/mpr-soluciones-app/internal/ratelimit"
	"github.com/d4ytona/mpr-soluciones-app/internal/service"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const messageTooManyRequests = "Too many requests"

type TriggerRunner interface {
	Run(ctx context.Context, job service.Job, req service.Request) service.Result
}

type RunStatusReader interface {
	Last(ctx context.Context, job domain.JobName) (*domain.RunRecord, error)
}

type RejectionCounter interface {
	IncTriggerRejected(job string, reason string)
}

// TriggerRoutesConfig wires the trigger routes. Status, Limiter and
// Rejections are optional.
type TriggerRoutesConfig struct {
	Runner     TriggerRunner
	Settings   service.SettingsSource
	Location   *time.Location
	Status     RunStatusReader
	Limiter    ratelimit.Limiter
	Rejections RejectionCounter
	Logger     *zap.Logger
}

type TriggerHandler struct {
	runner     TriggerRunner
	settings   service.SettingsSource
	location   *time.Location
	status     RunStatusReader
	limiter    ratelimit.Limiter
	rejections RejectionCounter
	logger     *zap.Logger
}

func NewTriggerHandler(cfg TriggerRoutesConfig) (*TriggerHandler, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("trigger runner is required")
	}
	if cfg.Settings == nil {
		return nil, fmt.Errorf("settings source is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &TriggerHandler{
		runner:     cfg.Runner,
		settings:   cfg.Settings,
		location:   cfg.Location,
		status:     cfg.Status,
		limiter:    cfg.Limiter,
		rejections: cfg.Rejections,
		logger:     cfg.Logger,
	}, nil
}

func RegisterTriggerRoutes(router fiber.Router, cfg TriggerRoutesConfig) error {
	h, err := NewTriggerHandler(cfg)
	if err != nil {
		return err
	}

	cron := router.Group("/api/cron")
	cron.Get("/"+domain.JobGenerateObligations.String(),
		h.rateLimit(domain.JobGenerateObligations),
		h.GenerateObligations,
	)
	cron.Get("/"+domain.JobCheckNotifications.String(),
		h.rateLimit(domain.JobCheckNotifications),
		h.CheckNotifications,
	)
	cron.Get("/status", h.Status)

	return nil
}

func (h *TriggerHandler) GenerateObligations(c *fiber.Ctx) error {
	return h.trigger(c, service.GenerateObligationsJob{Location: h.location})
}

func (h *TriggerHandler) CheckNotifications(c *fiber.Ctx) error {
	return h.trigger(c, service.CheckNotificationsJob{})
}

func (h *TriggerHandler) trigger(c *fiber.Ctx, job service.Job) error {
	result := h.runner.Run(c.UserContext(), job, service.Request{
		Authorization: c.Get(fiber.HeaderAuthorization),
	})
	return c.Status(result.StatusCode).JSON(result.Body)
}

type statusResponse struct {
	Jobs map[domain.JobName]*domain.RunRecord `json:"jobs"`
}

// Status returns the last cached run per job, optionally filtered by ?job=.
func (h *TriggerHandler) Status(c *fiber.Ctx) error {
	if !service.Authorized(h.settings().CronSecret, c.Get(fiber.HeaderAuthorization)) {
		return c.Status(fiber.StatusUnauthorized).JSON(service.ErrorResponse{Error: "Unauthorized"})
	}
	if h.status == nil {
		return toHTTPError(fmt.Errorf("%w: run status cache is not configured", domain.ErrNotFound))
	}

	jobs := []domain.JobName{domain.JobGenerateObligations, domain.JobCheckNotifications}
	if raw := strings.TrimSpace(c.Query("job")); raw != "" {
		job, err := domain.ParseJobNameFromString(raw)
		if err != nil {
			return toHTTPError(err)
		}
		jobs = []domain.JobName{job}
	}

	resp := statusResponse{Jobs: make(map[domain.JobName]*domain.RunRecord, len(jobs))}
	for _, job := range jobs {
		record, err := h.status.Last(c.UserContext(), job)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		resp.Jobs[job] = record
	}

	if len(resp.Jobs) == 0 {
		return toHTTPError(fmt.Errorf("%w: no recorded runs", domain.ErrNotFound))
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// rateLimit only counts authorized requests; the rest go straight to the
// runner, which answers 401. It fails open: a limiter error is logged and the
// trigger proceeds.
func (h *TriggerHandler) rateLimit(job domain.JobName) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if h.limiter == nil {
			return c.Next()
		}
		if !service.Authorized(h.settings().CronSecret, c.Get(fiber.HeaderAuthorization)) {
			return c.Next()
		}

		allowed, err := h.limiter.Allow(c.UserContext(), job.String())
		if err != nil {
			h.logger.Warn("rate limiter unavailable", zap.String("job", job.String()), zap.Error(err))
			return c.Next()
		}
		if !allowed {
			if h.rejections != nil {
				h.rejections.IncTriggerRejected(job.String(), "rate_limited")
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(service.ErrorResponse{Error: messageTooManyRequests})
		}
		return c.Next()
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	default:
		return err
	}
}
