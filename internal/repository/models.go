package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
)

// ExecutionLogModel is the persistence model for cron_execution_log.
type ExecutionLogModel struct {
	ID                   int64                  `gorm:"primaryKey;autoIncrement"`
	CronName             domain.JobName         `gorm:"type:varchar(100);not null"`
	ExecutionTime        time.Time              `gorm:"type:timestamptz;not null"`
	Status               domain.ExecutionStatus `gorm:"type:varchar(20);not null"`
	ErrorMessage         *string                `gorm:"type:text"`
	Details              string                 `gorm:"type:jsonb;not null;default:'{}'"`
	ExecutionDurationMs  int64                  `gorm:"not null;default:0"`
	ObligationsCreated   *int
	ObligationsSkipped   *int
	CompaniesProcessed   *int
	NotificationsCreated *int
	ObligationsChecked   *int
	CreatedAt            time.Time
}

func (ExecutionLogModel) TableName() string {
	return "cron_execution_log"
}

func executionLogModelFromDomain(l *domain.ExecutionLog) (*ExecutionLogModel, error) {
	if l == nil {
		return nil, nil
	}

	details := "{}"
	if l.Details != nil {
		raw, err := json.Marshal(l.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to encode execution log details: %w", err)
		}
		details = string(raw)
	}

	return &ExecutionLogModel{
		CronName:             l.CronName,
		ExecutionTime:        l.ExecutionTime.UTC(),
		Status:               l.Status,
		ErrorMessage:         l.ErrorMessage,
		Details:              details,
		ExecutionDurationMs:  l.ExecutionDurationMs,
		ObligationsCreated:   l.ObligationsCreated,
		ObligationsSkipped:   l.ObligationsSkipped,
		CompaniesProcessed:   l.CompaniesProcessed,
		NotificationsCreated: l.NotificationsCreated,
		ObligationsChecked:   l.ObligationsChecked,
	}, nil
}

func executionLogModelToDomain(m *ExecutionLogModel) *domain.ExecutionLog {
	if m == nil {
		return nil
	}

	return &domain.ExecutionLog{
		CronName:            m.CronName,
		ExecutionTime:       m.ExecutionTime,
		Status:              m.Status,
		ErrorMessage:        m.ErrorMessage,
		Details:             json.RawMessage(m.Details),
		ExecutionDurationMs: m.ExecutionDurationMs,
		ExecutionCounts: domain.ExecutionCounts{
			ObligationsCreated:   m.ObligationsCreated,
			ObligationsSkipped:   m.ObligationsSkipped,
			CompaniesProcessed:   m.CompaniesProcessed,
			NotificationsCreated: m.NotificationsCreated,
			ObligationsChecked:   m.ObligationsChecked,
		},
	}
}
