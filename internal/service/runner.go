package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/d4ytona/mpr-soluciones-app/internal/backend"
	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
	"github.com/d4ytona/mpr-soluciones-app/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	bearerPrefix = "Bearer "

	messageUnauthorized  = "Unauthorized"
	messageConfiguration = "Server configuration error"
	messageInternal      = "Internal server error"

	recordTimeout = 5 * time.Second
)

// Settings is the configuration a single invocation runs with.
type Settings struct {
	CronSecret string
	Backend    backend.Settings
}

// SettingsSource is consulted once per invocation.
type SettingsSource func() Settings

// Request carries what a host adapter extracted from its trigger.
type Request struct {
	Authorization string
}

// BearerRequest builds the Request a trusted in-process host presents.
func BearerRequest(secret string) Request {
	return Request{Authorization: bearerPrefix + secret}
}

// AuditResult reports the execution log write separately from the primary
// outcome, so a failed write never changes what the caller sees.
type AuditResult struct {
	Attempted bool
	Err       error
}

func (a AuditResult) Written() bool { return a.Attempted && a.Err == nil }

// Result is the outcome of one invocation.
type Result struct {
	Job        domain.JobName
	RunID      string
	Outcome    domain.RunOutcome
	StatusCode int
	Body       any
	Summary    any
	Audit      AuditResult
	StartedAt  time.Time
	Duration   time.Duration
}

func (r Result) Record() domain.RunRecord {
	return domain.RunRecord{
		Job:            r.Job,
		RunID:          r.RunID,
		Outcome:        r.Outcome,
		StatusCode:     r.StatusCode,
		StartedAt:      r.StartedAt,
		DurationMs:     r.Duration.Milliseconds(),
		AuditAttempted: r.Audit.Attempted,
		AuditWritten:   r.Audit.Written(),
		Summary:        r.Summary,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
	Message string `json:"message,omitempty"`
}

// RunRecorder observes finished invocations (metrics, last-run cache).
type RunRecorder interface {
	RecordRun(ctx context.Context, record domain.RunRecord) error
}

// Runner executes the shared trigger shape: authenticate, call one remote
// procedure, summarize, append one execution log row, respond. It holds no
// state between invocations; every Run builds its own backend.
type Runner struct {
	settings  SettingsSource
	factory   backend.Factory
	recorders []RunRecorder
	logger    *zap.Logger
	now       func() time.Time
	newRunID  func() string
}

func NewRunner(settings SettingsSource, factory backend.Factory, recorders []RunRecorder, logger *zap.Logger) (*Runner, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings source is required")
	}
	if factory == nil {
		return nil, fmt.Errorf("backend factory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		settings:  settings,
		factory:   factory,
		recorders: recorders,
		logger:    logger,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}, nil
}

func (r *Runner) Run(ctx context.Context, job Job, req Request) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	start := r.now()
	runID := r.newRunID()
	logger := r.logger
	if requestID, ok := observability.CorrelationIDFromContext(ctx); ok {
		logger = logger.With(zap.String("requestId", requestID))
	}
	ctx = observability.WithCorrelationID(ctx, runID)
	logger = observability.WithContextLogger(logger, ctx).With(zap.String("job", job.Name().String()))

	result := r.run(ctx, logger, job, req, start)
	result.Job = job.Name()
	result.RunID = runID
	result.StartedAt = start
	result.Duration = r.now().Sub(start)

	logger.Info("trigger finished",
		zap.String("outcome", result.Outcome.String()),
		zap.Int("status", result.StatusCode),
		zap.Bool("auditWritten", result.Audit.Written()),
		zap.Duration("duration", result.Duration),
	)
	r.record(ctx, logger, result)

	return result
}

func (r *Runner) run(ctx context.Context, logger *zap.Logger, job Job, req Request, start time.Time) Result {
	settings := r.settings()

	if !Authorized(settings.CronSecret, req.Authorization) {
		if settings.CronSecret == "" {
			logger.Warn("cron secret is not configured; rejecting trigger")
		} else {
			logger.Warn("unauthorized trigger attempt")
		}
		return Result{
			Outcome:    domain.OutcomeUnauthorized,
			StatusCode: http.StatusUnauthorized,
			Body:       ErrorResponse{Error: messageUnauthorized},
		}
	}

	if !settings.Backend.Configured() {
		logger.Error("backend endpoint or credential is not configured")
		return configurationResult()
	}

	return r.execute(ctx, logger, job, settings.Backend, start)
}

func (r *Runner) execute(ctx context.Context, logger *zap.Logger, job Job, settings backend.Settings, start time.Time) (result Result) {
	var b backend.Backend

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic: %v", p)
			result = r.localFault(ctx, logger, job, b, start, err, map[string]any{"stack": string(debug.Stack())})
		}
	}()

	var err error
	b, err = r.factory.New(ctx, settings)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			logger.Error("backend configuration rejected", zap.Error(err))
			return configurationResult()
		}
		return r.localFault(ctx, logger, job, nil, start, err, map[string]any{"error": err.Error()})
	}

	output, err := job.Execute(ctx, b, start)
	if err != nil {
		if remoteErr, ok := domain.AsRemoteError(err); ok {
			return r.remoteFailure(ctx, logger, job, b, start, remoteErr)
		}
		return r.localFault(ctx, logger, job, b, start, err, map[string]any{"error": err.Error()})
	}

	logger.Info("remote procedure succeeded", zap.Any("summary", output.Summary))

	audit := r.writeAudit(ctx, logger, b, &domain.ExecutionLog{
		CronName:            job.Name(),
		ExecutionTime:       start,
		Status:              domain.ExecutionSuccess,
		Details:             output.Response,
		ExecutionDurationMs: r.elapsedMs(start),
		ExecutionCounts:     output.Counts,
	})

	return Result{
		Outcome:    domain.OutcomeSuccess,
		StatusCode: http.StatusOK,
		Body:       output.Response,
		Summary:    output.Summary,
		Audit:      audit,
	}
}

func (r *Runner) remoteFailure(ctx context.Context, logger *zap.Logger, job Job, b backend.Backend, start time.Time, remoteErr *domain.RemoteError) Result {
	logger.Error("remote procedure failed",
		zap.String("code", remoteErr.Code),
		zap.String("message", remoteErr.Message),
	)

	message := remoteErr.Message
	audit := r.writeAudit(ctx, logger, b, &domain.ExecutionLog{
		CronName:            job.Name(),
		ExecutionTime:       start,
		Status:              domain.ExecutionError,
		ErrorMessage:        &message,
		Details:             remoteErr,
		ExecutionDurationMs: r.elapsedMs(start),
	})

	return Result{
		Outcome:    domain.OutcomeRemoteError,
		StatusCode: http.StatusInternalServerError,
		Body: FailureResponse{
			Success: false,
			Error:   message,
			Details: remoteErr,
		},
		Audit: audit,
	}
}

// localFault handles anything that went wrong on this side of the backend.
// b is nil when no backend could be built; the audit write is then skipped.
func (r *Runner) localFault(ctx context.Context, logger *zap.Logger, job Job, b backend.Backend, start time.Time, err error, details map[string]any) Result {
	logger.Error("unexpected error in trigger", zap.Error(err))

	message := err.Error()
	var audit AuditResult
	if b != nil {
		audit = r.writeAudit(ctx, logger, b, &domain.ExecutionLog{
			CronName:            job.Name(),
			ExecutionTime:       r.now(),
			Status:              domain.ExecutionError,
			ErrorMessage:        &message,
			Details:             details,
			ExecutionDurationMs: r.elapsedMs(start),
		})
	}

	return Result{
		Outcome:    domain.OutcomeInternalError,
		StatusCode: http.StatusInternalServerError,
		Body: FailureResponse{
			Success: false,
			Error:   messageInternal,
			Message: message,
		},
		Audit: audit,
	}
}

// writeAudit appends the execution log row. Failures, including panics, are
// logged and returned in the AuditResult only.
func (r *Runner) writeAudit(ctx context.Context, logger *zap.Logger, b backend.Backend, entry *domain.ExecutionLog) (audit AuditResult) {
	audit.Attempted = true

	defer func() {
		if p := recover(); p != nil {
			audit.Err = fmt.Errorf("panic while writing execution log: %v", p)
			logger.Error("failed to write execution log", zap.Error(audit.Err))
		}
	}()

	// The row is written even if the caller has gone away.
	if err := b.InsertExecutionLog(context.WithoutCancel(ctx), entry); err != nil {
		audit.Err = err
		logger.Error("failed to write execution log", zap.Error(err))
	}
	return audit
}

func (r *Runner) record(ctx context.Context, logger *zap.Logger, result Result) {
	record := result.Record()
	for _, recorder := range r.recorders {
		if recorder == nil {
			continue
		}
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		err := recorder.RecordRun(recordCtx, record)
		cancel()
		if err != nil {
			logger.Warn("failed to record run", zap.Error(err))
		}
	}
}

func (r *Runner) elapsedMs(start time.Time) int64 {
	elapsed := r.now().Sub(start).Milliseconds()
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Authorized reports whether header is exactly "Bearer <secret>". An empty
// secret authorizes nothing.
func Authorized(secret string, header string) bool {
	if secret == "" {
		return false
	}
	expected := bearerPrefix + secret
	return subtle.ConstantTimeCompare([]byte(header), []byte(expected)) == 1
}

func configurationResult() Result {
	return Result{
		Outcome:    domain.OutcomeConfigurationError,
		StatusCode: http.StatusInternalServerError,
		Body:       ErrorResponse{Error: messageConfiguration},
	}
}
