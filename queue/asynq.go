package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"render-orchestrator/config"
)

// AsynqQueue backs the Queue port with asynq on Redis. Retry count, backoff
// base and retention come from config; the exponential backoff itself is
// applied by the worker server's RetryDelayFunc (see worker.RetryDelay).
type AsynqQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	cfg       config.Queue
}

func NewAsynqQueue(redisCfg config.Redis, queueCfg config.Queue) *AsynqQueue {
	opt := asynq.RedisClientOpt{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	}
	return &AsynqQueue{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		cfg:       queueCfg,
	}
}

func (q *AsynqQueue) Enqueue(ctx context.Context, taskName string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", taskName, err)
	}

	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(taskName, data),
		asynq.Queue(QueueFor(taskName)),
		asynq.MaxRetry(q.cfg.MaxRetry),
		asynq.Retention(time.Duration(q.cfg.RetentionHours)*time.Hour),
	)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", taskName, err)
	}
	return info.ID, nil
}

func (q *AsynqQueue) ListActive(ctx context.Context, queueName string) ([]ActiveTask, error) {
	var out []ActiveTask

	active, err := q.inspector.ListActiveTasks(queueName)
	if err != nil {
		return nil, err
	}
	for _, t := range active {
		out = append(out, ActiveTask{ID: t.ID, Type: t.Type, Payload: t.Payload, Queue: queueName})
	}

	pending, err := q.inspector.ListPendingTasks(queueName)
	if err != nil {
		return nil, err
	}
	for _, t := range pending {
		out = append(out, ActiveTask{ID: t.ID, Type: t.Type, Payload: t.Payload, Queue: queueName})
	}

	retry, err := q.inspector.ListRetryTasks(queueName)
	if err != nil {
		return nil, err
	}
	for _, t := range retry {
		out = append(out, ActiveTask{ID: t.ID, Type: t.Type, Payload: t.Payload, Queue: queueName})
	}

	return out, nil
}

func (q *AsynqQueue) Remove(ctx context.Context, queueName, taskID string) error {
	err := q.inspector.DeleteTask(queueName, taskID)
	if err == nil {
		return nil
	}
	if errors.Is(err, asynq.ErrTaskNotFound) {
		return nil
	}
	// A running task cannot be deleted outright; signal cancellation instead.
	if cancelErr := q.inspector.CancelProcessing(taskID); cancelErr == nil {
		return nil
	}
	return err
}

func (q *AsynqQueue) Close() error {
	return q.client.Close()
}
