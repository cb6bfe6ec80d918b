package domain

import (
	"fmt"
	"strings"
	"time"
)

// JobName identifies a scheduled trigger. It doubles as the cron_name column
// of the execution log.
type JobName string

const (
	JobGenerateObligations JobName = "generate-obligations"
	JobCheckNotifications  JobName = "check-notifications"
)

func (j JobName) String() string { return string(j) }

func (j JobName) IsValid() bool {
	switch j {
	case JobGenerateObligations, JobCheckNotifications:
		return true
	}
	return false
}

func ParseJobNameFromString(s string) (JobName, error) {
	name := JobName(strings.ToLower(strings.TrimSpace(s)))
	if !name.IsValid() {
		return "", fmt.Errorf("%w: unknown job %q", ErrValidation, s)
	}
	return name, nil
}

// ExecutionStatus is the terminal status of a trigger invocation.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionError   ExecutionStatus = "error"
)

func (s ExecutionStatus) String() string { return string(s) }

// ExecutionCounts are the job specific count columns of the execution log.
// Columns that do not apply to a job stay nil.
type ExecutionCounts struct {
	ObligationsCreated   *int `json:"obligations_created,omitempty"`
	ObligationsSkipped   *int `json:"obligations_skipped,omitempty"`
	CompaniesProcessed   *int `json:"companies_processed,omitempty"`
	NotificationsCreated *int `json:"notifications_created,omitempty"`
	ObligationsChecked   *int `json:"obligations_checked,omitempty"`
}

// ExecutionLog is one append-only row of cron_execution_log.
type ExecutionLog struct {
	CronName            JobName         `json:"cron_name"`
	ExecutionTime       time.Time       `json:"execution_time"`
	Status              ExecutionStatus `json:"status"`
	ErrorMessage        *string         `json:"error_message,omitempty"`
	Details             any             `json:"details"`
	ExecutionDurationMs int64           `json:"execution_duration_ms"`
	ExecutionCounts
}

func (l *ExecutionLog) Validate() error {
	if l == nil {
		return fmt.Errorf("%w: execution log is required", ErrValidation)
	}
	if !l.CronName.IsValid() {
		return fmt.Errorf("%w: invalid cron name %q", ErrValidation, l.CronName)
	}
	switch l.Status {
	case ExecutionSuccess:
	case ExecutionError:
		if l.ErrorMessage == nil || strings.TrimSpace(*l.ErrorMessage) == "" {
			return fmt.Errorf("%w: error_message is required for error status", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: invalid status %q", ErrValidation, l.Status)
	}
	if l.ExecutionTime.IsZero() {
		return fmt.Errorf("%w: execution_time is required", ErrValidation)
	}
	if l.ExecutionDurationMs < 0 {
		return fmt.Errorf("%w: execution_duration_ms must be >= 0", ErrValidation)
	}
	return nil
}

// FormatTimestamp renders t the way the audit trail and trigger responses
// expose it: UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
