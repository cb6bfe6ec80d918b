package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	lastRunKeyPrefix  = "cron:last_run:"
	defaultLastRunTTL = 7 * 24 * time.Hour
)

// RunStatusCache keeps the most recent run record per job. It is a
// convenience view for operators; the execution log stays the record of truth.
type RunStatusCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRunStatusCache(client *goredis.Client, ttl time.Duration) (*RunStatusCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultLastRunTTL
	}
	return &RunStatusCache{client: client, ttl: ttl}, nil
}

func (c *RunStatusCache) RecordRun(ctx context.Context, record domain.RunRecord) error {
	if !record.Job.IsValid() {
		return fmt.Errorf("%w: unknown job %q", domain.ErrValidation, record.Job)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode run record: %w", err)
	}

	if err := c.client.Set(ctx, lastRunKey(record.Job), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store last run: %w", err)
	}
	return nil
}

// Last returns domain.ErrNotFound when the job has not run within the TTL.
func (c *RunStatusCache) Last(ctx context.Context, job domain.JobName) (*domain.RunRecord, error) {
	payload, err := c.client.Get(ctx, lastRunKey(job)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%w: no recorded run for %s", domain.ErrNotFound, job)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last run: %w", err)
	}

	var record domain.RunRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("failed to decode last run: %w", err)
	}
	return &record, nil
}

func lastRunKey(job domain.JobName) string {
	return lastRunKeyPrefix + job.String()
}
