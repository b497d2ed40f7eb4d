package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"render-orchestrator/dto"
	"render-orchestrator/provider"
	"render-orchestrator/queue"
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func formatSupported(p provider.Provider, format string) bool {
	for _, f := range p.SupportedFormats() {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// findActiveTask scans the queue's active tasks for the one carrying the given
// project. Returns nil when no in-flight task matches.
func findActiveTask(ctx context.Context, q queue.Queue, queueName string, projectID uuid.UUID) (*queue.ActiveTask, *dto.RenderTaskPayload, error) {
	tasks, err := q.ListActive(ctx, queueName)
	if err != nil {
		return nil, nil, err
	}

	for i := range tasks {
		var payload dto.RenderTaskPayload
		if err := json.Unmarshal(tasks[i].Payload, &payload); err != nil {
			continue
		}
		if payload.ProjectID == projectID {
			return &tasks[i], &payload, nil
		}
	}
	return nil, nil, nil
}

// liveProgress estimates completion percentage and remaining time for an
// in-flight attempt from elapsed wall time against the provider's estimate.
// The 95% cap leaves the final step to the terminal status write.
func liveProgress(startedAt time.Time, estimate time.Duration, now time.Time) (int, time.Duration) {
	if estimate <= 0 {
		return 0, 0
	}
	elapsed := now.Sub(startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	progress := int(elapsed * 100 / estimate)
	if progress > 95 {
		progress = 95
	}
	remaining := estimate - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return progress, remaining
}

func decodeOptions(metadata []byte, fallback dto.RenderOptions) dto.RenderOptions {
	if len(metadata) == 0 {
		return fallback
	}
	var opts dto.RenderOptions
	if err := json.Unmarshal(metadata, &opts); err != nil {
		return fallback
	}
	if opts.Format == "" {
		opts.Format = fallback.Format
	}
	if opts.Quality == "" {
		opts.Quality = fallback.Quality
	}
	return opts
}
