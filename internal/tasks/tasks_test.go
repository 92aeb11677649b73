package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type recordingClient struct {
	tasks []*asynq.Task
	err   error
}

func (r *recordingClient) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{Queue: "default", Type: task.Type()}, nil
}

func TestEmbedTaskRoundTrip(t *testing.T) {
	task, err := NewEmbedUserTask("u1", "req-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type() != TypeEmbedUser {
		t.Fatalf("unexpected type %q", task.Type())
	}

	payload, err := ParseEmbedPayload(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.ID != "u1" || payload.CorrelationID != "req-7" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestEmbedTaskValidation(t *testing.T) {
	if _, err := NewEmbedJobTask("", ""); err == nil {
		t.Fatalf("expected error for empty id")
	}
	if _, err := ParseEmbedPayload(asynq.NewTask(TypeEmbedJob, []byte("{"))); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
	if _, err := ParseEmbedPayload(asynq.NewTask(TypeEmbedJob, []byte(`{"id":""}`))); err == nil {
		t.Fatalf("expected error for payload without id")
	}
}

func TestQueueEnqueues(t *testing.T) {
	client := &recordingClient{}
	queue := NewQueue(client, zap.NewNop())

	if err := queue.EmbedJob(context.Background(), "j1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := queue.EmbedUser(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(client.tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(client.tasks))
	}
	if client.tasks[0].Type() != TypeEmbedJob || client.tasks[1].Type() != TypeEmbedUser {
		t.Fatalf("unexpected task types: %s, %s", client.tasks[0].Type(), client.tasks[1].Type())
	}
}

func TestQueueIgnoresAlreadyQueued(t *testing.T) {
	queue := NewQueue(&recordingClient{err: asynq.ErrTaskIDConflict}, nil)
	if err := queue.EmbedJob(context.Background(), "j1"); err != nil {
		t.Fatalf("conflicting task id must not be an error, got %v", err)
	}

	failing := errors.New("redis down")
	queue = NewQueue(&recordingClient{err: failing}, nil)
	if err := queue.EmbedJob(context.Background(), "j1"); !errors.Is(err, failing) {
		t.Fatalf("expected wrapped enqueue error, got %v", err)
	}
}
