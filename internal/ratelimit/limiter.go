package ratelimit

import "context"

// Limiter decides whether one more trigger request for a job fits the
// current window. Rejected requests are answered with 429 and never reach
// the backend.
type Limiter interface {
	Allow(ctx context.Context, job string) (bool, error)
}
