package repository

import (
	"context"
	"fmt"

	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
	"gorm.io/gorm"
)

// ExecutionLogRepository is append-only: rows are never updated or deleted.
type ExecutionLogRepository interface {
	Create(ctx context.Context, l *domain.ExecutionLog) error
	ListRecent(ctx context.Context, cronName domain.JobName, limit int) ([]domain.ExecutionLog, error)
}

type GormExecutionLogRepo struct {
	db *gorm.DB
}

func NewGormExecutionLogRepo(db *gorm.DB) *GormExecutionLogRepo {
	return &GormExecutionLogRepo{db: db}
}

func (r *GormExecutionLogRepo) Create(ctx context.Context, l *domain.ExecutionLog) error {
	if err := l.Validate(); err != nil {
		return err
	}

	model, err := executionLogModelFromDomain(l)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *GormExecutionLogRepo) ListRecent(ctx context.Context, cronName domain.JobName, limit int) ([]domain.ExecutionLog, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be > 0", domain.ErrValidation)
	}

	query := r.db.WithContext(ctx).Model(&ExecutionLogModel{})
	if cronName != "" {
		query = query.Where("cron_name = ?", cronName)
	}

	var models []ExecutionLogModel
	if err := query.Order("execution_time DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}

	logs := make([]domain.ExecutionLog, 0, len(models))
	for i := range models {
		logs = append(logs, *executionLogModelToDomain(&models[i]))
	}
	return logs, nil
}
