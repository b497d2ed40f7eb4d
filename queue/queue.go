// Package queue is the durable task queue port of the render core. Delivery is
// at-least-once: processors must tolerate re-invocation for the same project.
package queue

import (
	"context"
)

// Task names routed through the queue.
const (
	TaskVideoRender  = "render:video"
	TaskPrintExport  = "export:print"
	TaskBatchExport  = "export:batch"
	TaskPublishEvent = "publish:event"
)

// Queue names. Render and export tasks back off from a 2s base, publish tasks
// from a 1s base.
const (
	QueueRender  = "render"
	QueueExport  = "export"
	QueuePublish = "publish"
)

// QueueFor maps a task name to the queue it runs on.
func QueueFor(taskName string) string {
	switch taskName {
	case TaskVideoRender:
		return QueueRender
	case TaskPrintExport, TaskBatchExport:
		return QueueExport
	default:
		return QueuePublish
	}
}

// ActiveTask is the introspection view of a queued or running task.
type ActiveTask struct {
	ID      string
	Type    string
	Payload []byte
	Queue   string
}

type Queue interface {
	// Enqueue submits a named task and returns the queue-assigned task id.
	Enqueue(ctx context.Context, taskName string, payload any) (string, error)
	// ListActive returns tasks that are pending or currently being worked on.
	ListActive(ctx context.Context, queueName string) ([]ActiveTask, error)
	// Remove takes a task out of the queue, stopping it if already running.
	Remove(ctx context.Context, queueName, taskID string) error
}
