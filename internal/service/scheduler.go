package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TriggerRunner is the part of Runner the host adapters depend on.
type TriggerRunner interface {
	Run(ctx context.Context, job Job, req Request) Result
}

// ScheduledJob binds a job to a standard five-field cron expression.
type ScheduledJob struct {
	Spec string
	Job  Job
}

// CronScheduler fires trigger runs on cron schedules, standing in for an
// external timer. Runs are not serialized: a slow run may overlap the next.
type CronScheduler struct {
	runner   TriggerRunner
	settings SettingsSource
	jobs     []ScheduledJob
	location *time.Location
	parser   cron.Parser
	logger   *zap.Logger
}

func NewCronScheduler(
	runner TriggerRunner,
	settings SettingsSource,
	jobs []ScheduledJob,
	location *time.Location,
	logger *zap.Logger,
) (*CronScheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("trigger runner is required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings source is required")
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("at least one scheduled job is required")
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for _, scheduled := range jobs {
		if scheduled.Job == nil {
			return nil, fmt.Errorf("scheduled job for spec %q is nil", scheduled.Spec)
		}
		if _, err := parser.Parse(strings.TrimSpace(scheduled.Spec)); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for %s: %w", scheduled.Spec, scheduled.Job.Name(), err)
		}
	}

	return &CronScheduler{
		runner:   runner,
		settings: settings,
		jobs:     jobs,
		location: location,
		parser:   parser,
		logger:   logger,
	}, nil
}

// Start registers every job and blocks until ctx is done, then waits for
// in-flight runs to finish.
func (s *CronScheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(s.location))
	for _, scheduled := range s.jobs {
		scheduled := scheduled
		spec := strings.TrimSpace(scheduled.Spec)
		if _, err := c.AddFunc(spec, func() { s.fire(ctx, scheduled.Job) }); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", scheduled.Job.Name(), err)
		}
		s.logger.Info("trigger scheduled",
			zap.String("job", scheduled.Job.Name().String()),
			zap.String("spec", spec),
			zap.String("timezone", s.location.String()),
		)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	s.logger.Info("scheduler stopped")
	return nil
}

func (s *CronScheduler) fire(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}

	result := s.runner.Run(ctx, job, BearerRequest(s.settings().CronSecret))
	if result.Outcome != domain.OutcomeSuccess {
		s.logger.Warn("scheduled trigger did not succeed",
			zap.String("job", job.Name().String()),
			zap.String("runId", result.RunID),
			zap.String("outcome", result.Outcome.String()),
		)
	}
}
