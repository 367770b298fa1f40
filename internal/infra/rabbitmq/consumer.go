package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type MessageHandler func(ctx context.Context, body []byte) error

type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       string
	exchange    string
	workerCount int
	baseDelay   time.Duration
	handler     MessageHandler
	logger      *zap.Logger
	wg          sync.WaitGroup
}

// Routing keys on the frames exchange.
const (
	ProcessingRoutingKey = "frames.processing"
	StatusRoutingKey     = "frames.status"
)

type ConsumerConfig struct {
	URL         string
	Queue       string
	Exchange    string
	DLQ         string
	StatusQueue string
	Prefetch    int
	WorkerCount int
	BaseDelayMs int
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	// Set prefetch
	err = ch.Qos(cfg.Prefetch, 0, false)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{
		conn:        conn,
		channel:     ch,
		queue:       cfg.Queue,
		exchange:    cfg.Exchange,
		workerCount: cfg.WorkerCount,
		baseDelay:   time.Duration(cfg.BaseDelayMs) * time.Millisecond,
		handler:     handler,
		logger:      logger,
	}, nil
}

func declareTopology(ch *amqp.Channel, cfg ConsumerConfig) error {
	err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{cfg.Queue, cfg.DLQ, cfg.StatusQueue} {
		_, err = ch.QueueDeclare(q, true, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	err = ch.QueueBind(cfg.Queue, ProcessingRoutingKey, cfg.Exchange, false, nil)
	if err != nil {
		return fmt.Errorf("bind processing queue: %w", err)
	}

	err = ch.QueueBind(cfg.StatusQueue, StatusRoutingKey, cfg.Exchange, false, nil)
	if err != nil {
		return fmt.Errorf("bind status queue: %w", err)
	}
	return nil
}

// Conn exposes the consumer connection so publishers can share it.
func (c *Consumer) Conn() *amqp.Connection {
	return c.conn
}

func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(
		ctx,
		c.queue,
		"",
		false, // autoAck=false
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("starting worker pool",
		zap.Int("workers", c.workerCount),
		zap.String("queue", c.queue),
	)

	for i := 0; i < c.workerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, deliveries)
	}

	<-ctx.Done()
	c.logger.Info("context cancelled, waiting for workers to finish")
	c.wg.Wait()
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	log := c.logger.With(zap.Int("worker_id", id))
	log.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Info("delivery channel closed")
				return
			}
			c.processDelivery(ctx, d, log)
		}
	}
}

func (c *Consumer) processDelivery(ctx context.Context, d amqp.Delivery, log *zap.Logger) {
	err := c.handler(ctx, d.Body)
	if err != nil {
		log.Warn("message processing failed, nacking",
			zap.Error(err),
			zap.Uint64("delivery_tag", d.DeliveryTag),
		)

		attempt := c.attemptFor(err, d)
		delay := c.calculateBackoff(attempt)
		log.Info("backoff before requeue", zap.Duration("delay", delay), zap.Int("attempt", attempt))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			// shutting down: hand the message back for another instance
			_ = d.Nack(false, true)
			return
		}

		_ = d.Nack(false, true) // requeue=true
		return
	}

	_ = d.Ack(false)
}

// attemptFor prefers the attempt number reported by the handler's error, then the x-death count.
func (c *Consumer) attemptFor(err error, d amqp.Delivery) int {
	var counted interface{ Attempt() int }
	if errors.As(err, &counted) && counted.Attempt() > 0 {
		return counted.Attempt()
	}
	if xDeath, ok := d.Headers["x-death"]; ok {
		if deaths, ok := xDeath.([]interface{}); ok && len(deaths) > 0 {
			return len(deaths)
		}
	}
	return 1
}

const maxBackoff = 60 * time.Second

func (c *Consumer) calculateBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 32 {
		return maxBackoff
	}
	delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > maxBackoff || delay < 0 {
		delay = maxBackoff
	}
	return delay
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
