package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"render-orchestrator/dto"
	"render-orchestrator/pkg/rabbitmq"
)

// EventProcessor drains the publish queue, fanning lifecycle events out to the
// RabbitMQ exchange. Publish tasks retry on a shorter backoff than render
// tasks since a flaky broker connection usually recovers quickly.
type EventProcessor struct {
	publisher rabbitmq.Publisher
}

func NewEventProcessor(publisher rabbitmq.Publisher) *EventProcessor {
	return &EventProcessor{
		publisher: publisher,
	}
}

func (p *EventProcessor) HandlePublishEvent(ctx context.Context, t *asynq.Task) error {
	var event dto.EventPayload
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return fmt.Errorf("unmarshal event payload: %w", asynq.SkipRetry)
	}

	if err := p.publisher.Publish(ctx, event.RoutingKey, event); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Debug().
		Str("routing_key", event.RoutingKey).
		Str("project_id", event.ProjectID.String()).
		Msg("lifecycle event published")
	return nil
}
