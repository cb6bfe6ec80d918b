package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestRedisRateLimiterAllow(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedisClient(t)

	now := time.Unix(1_700_000_000, 0)
	limiter, err := newRedisRateLimiter(rdb, 2, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	for i, want := range []bool{true, true, false} {
		allowed, err := limiter.Allow(context.Background(), "generate-obligations")
		if err != nil {
			t.Fatalf("Allow() call %d error = %v", i+1, err)
		}
		if allowed != want {
			t.Fatalf("Allow() call %d = %v, want %v", i+1, allowed, want)
		}
	}

	now = now.Add(time.Second)
	allowed, err := limiter.Allow(context.Background(), "generate-obligations")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("new second window should allow call")
	}
}

func TestRedisRateLimiterAllowPerJob(t *testing.T) {
	t.Parallel()

	rdb, mr := newTestRedisClient(t)

	now := time.Unix(1_700_000_100, 0)
	limiter, err := newRedisRateLimiter(rdb, 1, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	allowed, err := limiter.Allow(context.Background(), "generate-obligations")
	if err != nil || !allowed {
		t.Fatalf("Allow(generate) = %v, %v; want true, nil", allowed, err)
	}

	allowed, err = limiter.Allow(context.Background(), "Check-Notifications")
	if err != nil || !allowed {
		t.Fatalf("Allow(check) = %v, %v; want true, nil", allowed, err)
	}

	allowed, err = limiter.Allow(context.Background(), "generate-obligations")
	if err != nil {
		t.Fatalf("Allow(generate) error = %v", err)
	}
	if allowed {
		t.Fatal("second generate request should be rejected")
	}

	if !mr.Exists("trigger:check-notifications:1700000100") {
		t.Fatal("expected normalized job key to exist")
	}
}

func TestNewRedisRateLimiterValidation(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedisClient(t)

	if _, err := NewRedisRateLimiter(nil, 5); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := NewRedisRateLimiter(rdb, 0); err == nil {
		t.Fatal("expected error for non-positive limit")
	}

	limiter, err := NewRedisRateLimiter(rdb, 5)
	if err != nil {
		t.Fatalf("NewRedisRateLimiter() error = %v", err)
	}
	if _, err := limiter.Allow(context.Background(), " "); err == nil {
		t.Fatal("expected error for blank job")
	}
}

func TestNewRedisPingsServer(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	client, err := NewRedis(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	_ = client.Close()

	if _, err := NewRedis(context.Background(), "not a url"); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func newTestRedisClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return rdb, mr
}
