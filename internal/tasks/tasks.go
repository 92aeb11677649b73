// Package tasks defines the background tasks shared by producers and the
// worker.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Task types. Producers and consumers must agree on these.
const (
	TypeEmbedJob  = "embed:job"
	TypeEmbedUser = "embed:user"
)

const (
	maxRetry    = 5
	taskTimeout = 2 * time.Minute
)

// EmbedPayload names the posting or profile whose embedding is regenerated.
type EmbedPayload struct {
	ID            string `json:"id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// NewEmbedJobTask builds a task regenerating a posting embedding.
func NewEmbedJobTask(id, correlationID string) (*asynq.Task, error) {
	return newEmbedTask(TypeEmbedJob, id, correlationID)
}

// NewEmbedUserTask builds a task regenerating a profile embedding.
func NewEmbedUserTask(id, correlationID string) (*asynq.Task, error) {
	return newEmbedTask(TypeEmbedUser, id, correlationID)
}

func newEmbedTask(taskType, id, correlationID string) (*asynq.Task, error) {
	if id == "" {
		return nil, errors.New("task id is empty")
	}
	payload, err := json.Marshal(EmbedPayload{ID: id, CorrelationID: correlationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, payload,
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(taskTimeout),
		asynq.TaskID(taskType+":"+id),
	), nil
}

// ParseEmbedPayload decodes the payload of an embedding task.
func ParseEmbedPayload(t *asynq.Task) (EmbedPayload, error) {
	var payload EmbedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("unmarshal %s payload: %w", t.Type(), err)
	}
	if payload.ID == "" {
		return payload, fmt.Errorf("%s payload has no id", t.Type())
	}
	return payload, nil
}

// Enqueuer is the subset of *asynq.Client used by Queue.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue schedules embedding tasks.
type Queue struct {
	client Enqueuer
	logger *zap.Logger
}

// NewQueue wraps an asynq client.
func NewQueue(client Enqueuer, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger.Named("queue")}
}

// EmbedJob schedules a posting embedding.
func (q *Queue) EmbedJob(ctx context.Context, id string) error {
	task, err := NewEmbedJobTask(id, "")
	if err != nil {
		return err
	}
	return q.enqueue(ctx, task, id)
}

// EmbedUser schedules a profile embedding.
func (q *Queue) EmbedUser(ctx context.Context, id string) error {
	task, err := NewEmbedUserTask(id, "")
	if err != nil {
		return err
	}
	return q.enqueue(ctx, task, id)
}

// enqueue treats an already queued task for the same id as success.
func (q *Queue) enqueue(ctx context.Context, task *asynq.Task, id string) error {
	info, err := q.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		q.logger.Debug("task already queued", zap.String("type", task.Type()), zap.String("id", id))
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s for %s: %w", task.Type(), id, err)
	}

	q.logger.Debug("task enqueued",
		zap.String("type", task.Type()),
		zap.String("id", id),
		zap.String("queue", info.Queue),
	)
	return nil
}
