package service

import (
	"context"
	"sync"

	"github.com/d4ytona/mpr-soluciones-app/internal/backend"
	"github.com/d4ytona/mpr-soluciones-app/internal/domain"
)

type fakeBackend struct {
	mu sync.Mutex

	generateFn func(ctx context.Context, params domain.GenerationParams) ([]domain.ObligationResult, error)
	checkFn    func(ctx context.Context) ([]domain.NotificationCheckResult, error)
	insertFn   func(ctx context.Context, log *domain.ExecutionLog) error

	generateCalls int
	checkCalls    int
	logs          []domain.ExecutionLog
}

func (f *fakeBackend) GenerateMonthlyObligations(ctx context.Context, params domain.GenerationParams) ([]domain.ObligationResult, error) {
	f.mu.Lock()
	f.generateCalls++
	f.mu.Unlock()
	if f.generateFn != nil {
		return f.generateFn(ctx, params)
	}
	return nil, nil
}

func (f *fakeBackend) CheckPendingObligations(ctx context.Context) ([]domain.NotificationCheckResult, error) {
	f.mu.Lock()
	f.checkCalls++
	f.mu.Unlock()
	if f.checkFn != nil {
		return f.checkFn(ctx)
	}
	return []domain.NotificationCheckResult{{}}, nil
}

func (f *fakeBackend) InsertExecutionLog(ctx context.Context, log *domain.ExecutionLog) error {
	f.mu.Lock()
	f.logs = append(f.logs, *log)
	f.mu.Unlock()
	if f.insertFn != nil {
		return f.insertFn(ctx, log)
	}
	return nil
}

func (f *fakeBackend) remoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generateCalls + f.checkCalls
}

func (f *fakeBackend) auditLogs() []domain.ExecutionLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ExecutionLog, len(f.logs))
	copy(out, f.logs)
	return out
}

type fakeFactory struct {
	mu       sync.Mutex
	backend  backend.Backend
	err      error
	calls    int
	settings []backend.Settings
}

func (f *fakeFactory) New(ctx context.Context, settings backend.Settings) (backend.Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.settings = append(f.settings, settings)
	if f.err != nil {
		return nil, f.err
	}
	return f.backend, nil
}

func (f *fakeFactory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []domain.RunRecord
	err     error
}

func (f *fakeRecorder) RecordRun(ctx context.Context, record domain.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return f.err
}

func (f *fakeRecorder) all() []domain.RunRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.RunRecord, len(f.records))
	copy(out, f.records)
	return out
}
