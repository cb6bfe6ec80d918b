package domain

import "time"

// RunOutcome classifies how a trigger invocation ended.
type RunOutcome string

const (
	OutcomeSuccess            RunOutcome = "success"
	OutcomeUnauthorized       RunOutcome = "unauthorized"
	OutcomeConfigurationError RunOutcome = "configuration_error"
	OutcomeRemoteError        RunOutcome = "remote_error"
	OutcomeInternalError      RunOutcome = "internal_error"
)

func (o RunOutcome) String() string { return string(o) }

// RunRecord is the in-process summary of one invocation, handed to metrics
// and the last-run status cache. It is not the audit row.
type RunRecord struct {
	Job            JobName    `json:"job"`
	RunID          string     `json:"runId"`
	Outcome        RunOutcome `json:"outcome"`
	StatusCode     int        `json:"statusCode"`
	StartedAt      time.Time  `json:"startedAt"`
	DurationMs     int64      `json:"durationMs"`
	AuditAttempted bool       `json:"auditAttempted"`
	AuditWritten   bool       `json:"auditWritten"`
	Summary        any        `json:"summary,omitempty"`
}
