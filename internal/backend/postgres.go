package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
	"github.com/d4ytona/mpr-soluciones-app/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Each function row is read back as its JSON object so that columns the
// procedure adds are echoed untouched, matching the PostgREST adapter.
const (
	generateObligationsQuery     = `SELECT row_to_json(t)::text AS payload FROM fn_generate_monthly_obligations(?, ?, ?) t`
	checkPendingObligationsQuery = `SELECT row_to_json(t)::text AS payload FROM fn_check_and_notify_pending_obligations() t`
)

type jsonRow struct {
	Payload string `gorm:"column:payload"`
}

// PostgresBackend calls the remote procedures directly over a Postgres
// connection. The pool is shared; each PostgresBackend is a session bound to
// one invocation.
type PostgresBackend struct {
	db   *gorm.DB
	logs repository.ExecutionLogRepository
}

func NewPostgresBackend(db *gorm.DB, logs repository.ExecutionLogRepository) (*PostgresBackend, error) {
	if db == nil {
		return nil, configurationError("postgres connection is not configured")
	}
	if logs == nil {
		logs = repository.NewGormExecutionLogRepo(db)
	}
	return &PostgresBackend{db: db, logs: logs}, nil
}

// NewPostgresFactory returns a Factory over an already opened pool. A nil pool
// or an empty DSN in the settings is a configuration failure.
func NewPostgresFactory(db *gorm.DB) Factory {
	return FactoryFunc(func(ctx context.Context, settings Settings) (Backend, error) {
		if !settings.Configured() {
			return nil, configurationError("database dsn is required")
		}
		if db == nil {
			return nil, configurationError("postgres connection is not configured")
		}
		return NewPostgresBackend(db.Session(&gorm.Session{NewDB: true}), nil)
	})
}

func (b *PostgresBackend) GenerateMonthlyObligations(ctx context.Context, params domain.GenerationParams) ([]domain.ObligationResult, error) {
	rows, err := b.queryRows(ctx, ProcGenerateMonthlyObligations, generateObligationsQuery, params.CompanyID, params.Year, params.Month)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ObligationResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, domain.NewObligationResult([]byte(row.Payload)))
	}
	return results, nil
}

func (b *PostgresBackend) CheckPendingObligations(ctx context.Context) ([]domain.NotificationCheckResult, error) {
	rows, err := b.queryRows(ctx, ProcCheckPendingObligations, checkPendingObligationsQuery)
	if err != nil {
		return nil, err
	}

	results := make([]domain.NotificationCheckResult, 0, len(rows))
	for _, row := range rows {
		var result domain.NotificationCheckResult
		if err := decodeRow(row.Payload, &result); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", ProcCheckPendingObligations, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (b *PostgresBackend) queryRows(ctx context.Context, fn string, query string, args ...any) ([]jsonRow, error) {
	var rows []jsonRow
	if err := b.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, translatePostgresError(fn, err)
	}
	return rows, nil
}

func (b *PostgresBackend) InsertExecutionLog(ctx context.Context, log *domain.ExecutionLog) error {
	if err := b.logs.Create(ctx, log); err != nil {
		return translatePostgresError("insert "+ExecutionLogTable, err)
	}
	return nil
}

func decodeRow(raw string, out any) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return json.Unmarshal([]byte(trimmed), out)
}

// translatePostgresError turns errors raised by the server into
// *domain.RemoteError; connection and driver failures are returned wrapped.
func translatePostgresError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &domain.RemoteError{
			Message: pgErr.Message,
			Code:    pgErr.Code,
			Details: pgErr.Detail,
			Hint:    pgErr.Hint,
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
