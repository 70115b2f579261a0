package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"electroCare/domain"
	"electroCare/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// BroadcastQueue carries admin broadcast jobs through a durable RabbitMQ
// queue so the HTTP request returns before any email is sent.
type BroadcastQueue struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewBroadcastQueue(url, queue string) *BroadcastQueue {
	return &BroadcastQueue{
		url:   url,
		queue: queue,
	}
}

func (q *BroadcastQueue) channel() (*amqp.Channel, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ch != nil && !q.ch.IsClosed() {
		return q.ch, nil
	}

	if q.conn == nil || q.conn.IsClosed() {
		conn, err := amqp.Dial(q.url)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq dial: %w", err)
		}
		q.conn = conn
	}

	ch, err := q.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel open: %w", err)
	}

	if _, err := ch.QueueDeclare(q.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	q.ch = ch
	return ch, nil
}

func (q *BroadcastQueue) Publish(ctx context.Context, job domain.BroadcastJob) error {
	ch, err := q.channel()
	if err != nil {
		return err
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal broadcast job: %w", err)
	}

	err = ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}

	return nil
}

// Consume hands every job to handle until ctx is cancelled, reconnecting
// with exponential backoff when the broker goes away.
func (q *BroadcastQueue) Consume(ctx context.Context, handle func(context.Context, domain.BroadcastJob) error) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := amqp.Dial(q.url)
		if err != nil {
			logger.Warn("Broadcast consumer failed to dial broker", "error", err, "retry_in", backoff.String())
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := q.consumeLoop(ctx, conn, handle); err != nil {
			logger.Warn("Broadcast consume loop ended, reconnecting", "error", err)
		}
		_ = conn.Close()
	}
}

func (q *BroadcastQueue) consumeLoop(ctx context.Context, conn *amqp.Connection, handle func(context.Context, domain.BroadcastJob) error) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		logger.Warn("Broadcast consumer set QoS failed", err)
	}

	if _, err := ch.QueueDeclare(q.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}

			var job domain.BroadcastJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				logger.Error("Dropping malformed broadcast job", err)
				_ = d.Nack(false, false)
				continue
			}

			if err := handle(ctx, job); err != nil {
				logger.Error("Broadcast job failed", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (q *BroadcastQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}

	return nil
}
