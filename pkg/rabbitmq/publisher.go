package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"render-orchestrator/config"
)

// Publisher fans render lifecycle events out to the rest of the platform over
// a topic exchange. Routing keys follow "{kind}.{outcome}", e.g.
// "render.completed", "export.failed".
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

type publisher struct {
	conn *amqp.Connection
	cfg  *config.RabbitMQ
}

func NewPublisher(conn *amqp.Connection, cfg *config.RabbitMQ) Publisher {
	return &publisher{
		conn: conn,
		cfg:  cfg,
	}
}

func (p *publisher) Publish(ctx context.Context, routingKey string, event any) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	exchangeName := p.cfg.ExchangeName
	if exchangeName == "" {
		exchangeName = "render_events_exchange"
	}

	err = ch.ExchangeDeclare(exchangeName, p.cfg.Kind, true, false, false, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Str("exchange", exchangeName).Msg("failed to declare exchange")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("routing_key", routingKey).Msg("failed to publish event")
		return err
	}

	zerolog.Ctx(ctx).Debug().Str("routing_key", routingKey).Msg("event published")
	return nil
}
