package service

import (
	"context"
	"errors"
	"time"

	"github.com/d4ytona/mpr-soluciones-app/internal/backend"
	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
)

var errEmptyNotificationCheck = errors.New("notification check returned no rows")

// Job is one kind of scheduled unit of work: a single remote procedure call
// plus the summary derived from its result.
type Job interface {
	Name() domain.JobName
	Execute(ctx context.Context, b backend.Backend, now time.Time) (*JobOutput, error)
}

// JobOutput is the success response body and the counts stored with it.
type JobOutput struct {
	Response any
	Summary  any
	Counts   domain.ExecutionCounts
}

type GenerationResponse struct {
	Success   bool                      `json:"success"`
	Timestamp string                    `json:"timestamp"`
	Year      int                       `json:"year"`
	Month     int                       `json:"month"`
	Summary   domain.GenerationSummary  `json:"summary"`
	Details   []domain.ObligationResult `json:"details"`
}

type NotificationCheckResponse struct {
	Success       bool                        `json:"success"`
	Timestamp     string                      `json:"timestamp"`
	ExecutionHour int                         `json:"execution_hour"`
	Summary       domain.NotificationSummary  `json:"summary"`
	Details       []domain.NotificationDetail `json:"details"`
}

// GenerateObligationsJob materializes the obligations of the month containing
// the invocation time, for every active company. Period and CompanyID
// override that for operator backfills.
type GenerateObligationsJob struct {
	Location  *time.Location
	CompanyID *int64
	Period    *Period
}

// Period is a calendar month.
type Period struct {
	Year  int
	Month int
}

func (j GenerateObligationsJob) Name() domain.JobName { return domain.JobGenerateObligations }

func (j GenerateObligationsJob) Params(now time.Time) domain.GenerationParams {
	loc := j.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	params := domain.GenerationParams{
		CompanyID: j.CompanyID,
		Year:      local.Year(),
		Month:     int(local.Month()),
	}
	if j.Period != nil {
		params.Year = j.Period.Year
		params.Month = j.Period.Month
	}
	return params
}

func (j GenerateObligationsJob) Execute(ctx context.Context, b backend.Backend, now time.Time) (*JobOutput, error) {
	params := j.Params(now)
	if err := params.Validate(); err != nil {
		return nil, err
	}

	rows, err := b.GenerateMonthlyObligations(ctx, params)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.ObligationResult{}
	}

	summary := domain.SummarizeGeneration(rows)
	return &JobOutput{
		Response: GenerationResponse{
			Success:   true,
			Timestamp: domain.FormatTimestamp(now),
			Year:      params.Year,
			Month:     params.Month,
			Summary:   summary,
			Details:   rows,
		},
		Summary: summary,
		Counts: domain.ExecutionCounts{
			ObligationsCreated: intPtr(summary.TotalCreated),
			ObligationsSkipped: intPtr(summary.TotalSkipped),
			CompaniesProcessed: intPtr(summary.CompaniesProcessed),
		},
	}, nil
}

// CheckNotificationsJob scans pending obligations and emits deadline
// reminders. The execution hour is reported in UTC.
type CheckNotificationsJob struct{}

func (CheckNotificationsJob) Name() domain.JobName { return domain.JobCheckNotifications }

func (CheckNotificationsJob) Execute(ctx context.Context, b backend.Backend, now time.Time) (*JobOutput, error) {
	rows, err := b.CheckPendingObligations(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errEmptyNotificationCheck
	}

	result := rows[0]
	if result.Details == nil {
		result.Details = []domain.NotificationDetail{}
	}

	summary := domain.SummarizeNotificationCheck(result)
	return &JobOutput{
		Response: NotificationCheckResponse{
			Success:       true,
			Timestamp:     domain.FormatTimestamp(now),
			ExecutionHour: now.UTC().Hour(),
			Summary:       summary,
			Details:       result.Details,
		},
		Summary: summary,
		Counts: domain.ExecutionCounts{
			NotificationsCreated: intPtr(result.NotificationsCreated),
			ObligationsChecked:   intPtr(result.ObligationsChecked),
		},
	}, nil
}

// JobByName returns the default job definition for name.
func JobByName(name domain.JobName, loc *time.Location) (Job, error) {
	switch name {
	case domain.JobGenerateObligations:
		return GenerateObligationsJob{Location: loc}, nil
	case domain.JobCheckNotifications:
		return CheckNotificationsJob{}, nil
	}
	_, err := domain.ParseJobNameFromString(name.String())
	return nil, err
}

func intPtr(v int) *int { return &v }
