package worker

import (
	"math"
	"time"

	"github.com/hibiken/asynq"

	"render-orchestrator/config"
	"render-orchestrator/queue"
)

// NewMux routes task names to their processors.
func NewMux(p *Processor, e *EventProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskVideoRender, p.HandleVideoRender)
	mux.HandleFunc(queue.TaskPrintExport, p.HandlePrintExport)
	mux.HandleFunc(queue.TaskBatchExport, p.HandleBatchExport)
	mux.HandleFunc(queue.TaskPublishEvent, e.HandlePublishEvent)
	return mux
}

// RetryDelay applies exponential backoff per queue: render/export tasks back
// off from the configured render base, publish tasks from the publish base.
func RetryDelay(cfg config.Queue) asynq.RetryDelayFunc {
	return func(n int, err error, t *asynq.Task) time.Duration {
		base := time.Duration(cfg.RenderBackoffSec) * time.Second
		if queue.QueueFor(t.Type()) == queue.QueuePublish {
			base = time.Duration(cfg.PublishBackoffSec) * time.Second
		}
		return base * time.Duration(math.Pow(2, float64(n)))
	}
}

// NewServer builds the asynq consumer with the queue delivery policy from
// config.
func NewServer(cfg *config.Config) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Server.Workers,
			Queues: map[string]int{
				queue.QueueRender:  3,
				queue.QueueExport:  3,
				queue.QueuePublish: 1,
			},
			RetryDelayFunc: RetryDelay(cfg.Queue),
		},
	)
}
