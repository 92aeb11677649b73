package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedsync"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedtext"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/tasks"
)

type stubSyncer struct {
	jobs, users []string
	err         error
}

func (s *stubSyncer) EmbedJob(_ context.Context, id string) error {
	s.jobs = append(s.jobs, id)
	return s.err
}

func (s *stubSyncer) EmbedUser(_ context.Context, id string) error {
	s.users = append(s.users, id)
	return s.err
}

func mustTask(t *testing.T, build func() (*asynq.Task, error)) *asynq.Task {
	t.Helper()
	task, err := build()
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	return task
}

func TestEmbedHandlerDispatches(t *testing.T) {
	syncer := &stubSyncer{}
	handler := NewEmbedHandler(syncer, zap.NewNop())

	jobTask := mustTask(t, func() (*asynq.Task, error) { return tasks.NewEmbedJobTask("j1", "") })
	userTask := mustTask(t, func() (*asynq.Task, error) { return tasks.NewEmbedUserTask("u1", "req") })

	if err := handler.ProcessTask(context.Background(), jobTask); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := handler.ProcessTask(context.Background(), userTask); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(syncer.jobs) != 1 || syncer.jobs[0] != "j1" || len(syncer.users) != 1 || syncer.users[0] != "u1" {
		t.Fatalf("unexpected dispatch: jobs=%v users=%v", syncer.jobs, syncer.users)
	}
}

func TestEmbedHandlerErrors(t *testing.T) {
	transient := errors.New("provider timeout")

	tests := []struct {
		name      string
		task      *asynq.Task
		syncErr   error
		wantErr   bool
		skipRetry bool
	}{
		{name: "not found is skipped", task: asynq.NewTask(tasks.TypeEmbedJob, []byte(`{"id":"j1"}`)), syncErr: fmt.Errorf("get posting j1: %w", storage.ErrNotFound)},
		{name: "empty text is skipped", task: asynq.NewTask(tasks.TypeEmbedUser, []byte(`{"id":"u1"}`)), syncErr: embedtext.ErrEmptyText},
		{name: "transient is retried", task: asynq.NewTask(tasks.TypeEmbedJob, []byte(`{"id":"j1"}`)), syncErr: transient, wantErr: true},
		{name: "bad payload", task: asynq.NewTask(tasks.TypeEmbedJob, []byte(`nope`)), wantErr: true, skipRetry: true},
		{name: "unknown type", task: asynq.NewTask("embed:other", []byte(`{"id":"x"}`)), wantErr: true, skipRetry: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewEmbedHandler(&stubSyncer{err: tt.syncErr}, nil)
			err := handler.ProcessTask(context.Background(), tt.task)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if errors.Is(err, asynq.SkipRetry) != tt.skipRetry {
				t.Fatalf("expected skipRetry=%v, got %v", tt.skipRetry, err)
			}
		})
	}
}

func TestEmbedHandlerRegister(t *testing.T) {
	syncer := &stubSyncer{}
	mux := asynq.NewServeMux()
	NewEmbedHandler(syncer, nil).Register(mux)

	task := mustTask(t, func() (*asynq.Task, error) { return tasks.NewEmbedUserTask("u9", "") })
	if err := mux.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(syncer.users) != 1 {
		t.Fatalf("expected the mux to route to the handler")
	}
}

type stubBackfiller struct {
	mu     sync.Mutex
	calls  int
	err    error
	target embedsync.Scheduler
	done   chan struct{}
}

func (s *stubBackfiller) Backfill(_ context.Context, sched embedsync.Scheduler, _ int) (embedsync.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.target = sched
	if s.done != nil && s.calls == 1 {
		close(s.done)
	}
	return embedsync.Report{Jobs: 1}, s.err
}

func TestSchedulerRunOnce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	backfiller := &stubBackfiller{}
	target := &stubSyncer{}
	scheduler := NewScheduler(backfiller, target, "", 10, zap.New(core))

	scheduler.RunOnce(context.Background())
	if backfiller.calls != 1 || backfiller.target != target {
		t.Fatalf("unexpected backfill invocation: calls=%d", backfiller.calls)
	}

	backfiller.err = errors.New("db down")
	scheduler.RunOnce(context.Background())
	if logs.FilterMessage("backfill pass failed").Len() != 1 {
		t.Fatalf("expected failure to be logged")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scheduler.RunOnce(ctx)
	if backfiller.calls != 2 {
		t.Fatalf("cancelled context must skip the pass, got %d calls", backfiller.calls)
	}
}

func TestSchedulerStartRunsImmediately(t *testing.T) {
	backfiller := &stubBackfiller{done: make(chan struct{})}
	scheduler := NewScheduler(backfiller, &stubSyncer{}, "@every 1h", 10, nil)

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer scheduler.Stop()

	select {
	case <-backfiller.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected an immediate backfill pass")
	}
}

func TestSchedulerRejectsInvalidSpec(t *testing.T) {
	scheduler := NewScheduler(&stubBackfiller{}, &stubSyncer{}, "every now and then", 10, nil)
	if err := scheduler.Start(context.Background()); err == nil {
		t.Fatalf("expected invalid spec to fail")
	}
}
