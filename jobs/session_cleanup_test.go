package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/cogivn/iwas/jobs"
)

type stubPruner struct {
	calls  int
	before time.Time
	count  int64
	err    error
}

func (s *stubPruner) PruneSessions(ctx context.Context, now time.Time) (int64, error) {
	s.calls++
	s.before = now
	return s.count, s.err
}

func TestSessionCleanupHandlerUsesPayloadBound(t *testing.T) {
	pruner := &stubPruner{count: 4}
	handler := jobs.NewSessionCleanupHandler(pruner, nil)

	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	task, err := jobs.NewSessionCleanupTask(jobs.SessionCleanupPayload{Before: cutoff})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}

	if err := handler(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if pruner.calls != 1 {
		t.Fatalf("expected one prune call, got %d", pruner.calls)
	}
	if !pruner.before.Equal(cutoff) {
		t.Fatalf("expected cutoff %v, got %v", cutoff, pruner.before)
	}
}

func TestSessionCleanupHandlerDefaultsToNow(t *testing.T) {
	pruner := &stubPruner{}
	handler := jobs.NewSessionCleanupHandler(pruner, nil)

	task, err := jobs.NewSessionCleanupTask(jobs.SessionCleanupPayload{})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}

	start := time.Now()
	if err := handler(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if pruner.before.Before(start) {
		t.Fatalf("expected cutoff at or after %v, got %v", start, pruner.before)
	}
}

func TestSessionCleanupHandlerSkipsBadPayload(t *testing.T) {
	pruner := &stubPruner{}
	handler := jobs.NewSessionCleanupHandler(pruner, nil)

	task := asynq.NewTask(jobs.TaskTypeSessionCleanup, []byte("{not json"))
	if err := handler(context.Background(), task); err != asynq.SkipRetry {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
	if pruner.calls != 0 {
		t.Fatalf("expected no prune calls, got %d", pruner.calls)
	}
}
