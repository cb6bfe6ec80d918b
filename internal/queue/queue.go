package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
)

// RunEventsExchange is the durable topic exchange run events are published to.
const RunEventsExchange = "mpr_cron.runs"

// Publisher publishes run events. It satisfies service.RunRecorder.
type Publisher interface {
	RecordRun(ctx context.Context, record domain.RunRecord) error
	Close() error
}

// RoutingKey returns run.<job>.<outcome>, e.g. run.check-notifications.success,
// so consumers can bind to failures only with run.*.*_error.
func RoutingKey(job domain.JobName, outcome domain.RunOutcome) string {
	return fmt.Sprintf("run.%s.%s", strings.ToLower(job.String()), strings.ToLower(outcome.String()))
}
