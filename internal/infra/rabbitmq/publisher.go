package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher struct {
	channel  *amqp.Channel
	exchange string
}

func NewPublisher(conn *amqp.Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	return &Publisher{channel: ch, exchange: exchange}, nil
}

func (p *Publisher) Close() error {
	return p.channel.Close()
}

type StatusPublisher struct {
	pub        *Publisher
	routingKey string
}

func NewStatusPublisher(pub *Publisher) *StatusPublisher {
	return &StatusPublisher{pub: pub, routingKey: StatusRoutingKey}
}

func (sp *StatusPublisher) PublishStatus(ctx context.Context, msg entity.RunStatusMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	return sp.pub.channel.PublishWithContext(ctx,
		sp.pub.exchange,
		sp.routingKey,
		false, false,
		persistentJSON(body, nil),
	)
}

type DLQPublisher struct {
	pub   *Publisher
	queue string
}

func NewDLQPublisher(pub *Publisher, dlqQueue string) *DLQPublisher {
	return &DLQPublisher{pub: pub, queue: dlqQueue}
}

func (dp *DLQPublisher) PublishToDLQ(ctx context.Context, msg []byte, reason string) error {
	return dp.pub.channel.PublishWithContext(ctx,
		"",
		dp.queue,
		false, false,
		persistentJSON(msg, amqp.Table{"x-dlq-reason": reason}),
	)
}

// RequestPublisher enqueues processing requests. It is what producers of work use.
type RequestPublisher struct {
	pub *Publisher
}

func NewRequestPublisher(pub *Publisher) *RequestPublisher {
	return &RequestPublisher{pub: pub}
}

func (rp *RequestPublisher) PublishRequest(ctx context.Context, msg entity.ProcessingRequestMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return rp.pub.channel.PublishWithContext(ctx,
		rp.pub.exchange,
		ProcessingRoutingKey,
		false, false,
		persistentJSON(body, nil),
	)
}

func persistentJSON(body []byte, headers amqp.Table) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
	}
}
