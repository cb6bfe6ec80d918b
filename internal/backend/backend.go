package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
)

const (
	ProcGenerateMonthlyObligations = "fn_generate_monthly_obligations"
	ProcCheckPendingObligations    = "fn_check_and_notify_pending_obligations"
	ExecutionLogTable              = "cron_execution_log"
)

// Backend is the outbound port to the managed database: the two remote
// procedures and the append-only execution log.
//
// A remote procedure that fails inside the backend reports a
// *domain.RemoteError. Any other error means the call never produced a usable
// answer (transport failure, undecodable body).
type Backend interface {
	GenerateMonthlyObligations(ctx context.Context, params domain.GenerationParams) ([]domain.ObligationResult, error)
	CheckPendingObligations(ctx context.Context) ([]domain.NotificationCheckResult, error)
	InsertExecutionLog(ctx context.Context, log *domain.ExecutionLog) error
}

// Settings is the per-invocation snapshot of backend configuration.
type Settings struct {
	Endpoint   string
	Credential string
}

func (s Settings) Configured() bool {
	return strings.TrimSpace(s.Endpoint) != "" && strings.TrimSpace(s.Credential) != ""
}

// Factory builds a request-scoped Backend. Errors wrapping
// domain.ErrConfiguration are reported as configuration failures.
type Factory interface {
	New(ctx context.Context, settings Settings) (Backend, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, settings Settings) (Backend, error)

func (f FactoryFunc) New(ctx context.Context, settings Settings) (Backend, error) {
	return f(ctx, settings)
}

func configurationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrConfiguration, fmt.Sprintf(format, args...))
}
