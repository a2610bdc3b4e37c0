package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/signup-activation/internal/notifier"
)

const maxBackoff = 30 * time.Second

// Consumer reads ActivationRequestedEvent messages and hands each one to
// Deliver.  A message that cannot be decoded or delivered is rejected without
// requeue so a poison message cannot spin the consumer.
type Consumer struct {
	URL      string
	Queue    string
	Prefetch int
	Deliver  notifier.Notifier
	Log      *log.Logger
}

func NewConsumer(url string, deliver notifier.Notifier, logger *log.Logger) *Consumer {
	if url == "" {
		url = DefaultURL
	}
	return &Consumer{URL: url, Queue: ActivationQueueName, Prefetch: 10, Deliver: deliver, Log: logger}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warnj(log.JSON{"event": "mailer_dial_failed", "error": err.Error(), "retry_in": backoff.String()})
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warnj(log.JSON{"event": "mailer_consume_ended", "error": err.Error()})
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if c.Prefetch > 0 {
		if err := ch.Qos(c.Prefetch, 0, false); err != nil {
			c.Log.Warnj(log.JSON{"event": "mailer_qos_failed", "error": err.Error()})
		}
	}
	queue := c.Queue
	if queue == "" {
		queue = ActivationQueueName
	}
	if err := declare(ch, queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(ctx, d.Body); err != nil {
				c.Log.Errorj(log.JSON{"event": "notifier_failure", "error": err.Error()})
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var ev ActivationRequestedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ToEmail == "" || ev.ActivationLink == "" {
		return errors.New("event missing recipient or link")
	}
	if err := c.Deliver.Send(ctx, ev.Notification()); err != nil {
		return fmt.Errorf("deliver to %s: %w", ev.ToEmail, err)
	}
	c.Log.Infoj(log.JSON{"event": "activation_mail_sent", "email": ev.ToEmail})
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
