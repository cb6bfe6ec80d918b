package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
)

// RunEvent is the broker payload announcing a finished trigger invocation.
type RunEvent struct {
	RunID        string            `json:"runId"`
	Job          domain.JobName    `json:"job"`
	Outcome      domain.RunOutcome `json:"outcome"`
	StatusCode   int               `json:"statusCode"`
	StartedAt    time.Time         `json:"startedAt"`
	DurationMs   int64             `json:"durationMs"`
	AuditWritten bool              `json:"auditWritten"`
	Summary      any               `json:"summary,omitempty"`
}

func RunEventFromRecord(record domain.RunRecord) RunEvent {
	return RunEvent{
		RunID:        record.RunID,
		Job:          record.Job,
		Outcome:      record.Outcome,
		StatusCode:   record.StatusCode,
		StartedAt:    record.StartedAt.UTC(),
		DurationMs:   record.DurationMs,
		AuditWritten: record.AuditWritten,
		Summary:      record.Summary,
	}
}

func (e RunEvent) Validate() error {
	if strings.TrimSpace(e.RunID) == "" {
		return fmt.Errorf("runId is required")
	}
	if !e.Job.IsValid() {
		return fmt.Errorf("invalid job %q", e.Job)
	}
	if strings.TrimSpace(e.Outcome.String()) == "" {
		return fmt.Errorf("outcome is required")
	}
	return nil
}
