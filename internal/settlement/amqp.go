package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// AMQPDispatcher publishes settlement notifications to a durable queue.
// Publishing is at-least-once: on a broken channel the dispatcher reconnects
// and retries once before reporting the error to the caller.
type AMQPDispatcher struct {
	url   string
	queue string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPDispatcher dials the broker and declares the settlement queue.
func NewAMQPDispatcher(url, queue string) (*AMQPDispatcher, error) {
	d := &AMQPDispatcher{url: url, queue: queue}
	if err := d.connect(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *AMQPDispatcher) connect() error {
	conn, err := amqp.DialConfig(d.url, amqp.Config{
		Heartbeat: 20 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open amqp channel: %w", err)
	}
	if _, err := channel.QueueDeclare(d.queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare queue %s: %w", d.queue, err)
	}
	d.conn = conn
	d.channel = channel
	return nil
}

// DispatchEventFinished publishes one event_finished message.
func (d *AMQPDispatcher) DispatchEventFinished(ctx context.Context, eventID string, homeScore, awayScore int) error {
	body, err := json.Marshal(Message{
		Type:    messageTypeEventFinished,
		EventID: eventID,
		Result:  Result{HomeScore: homeScore, AwayScore: awayScore},
	})
	if err != nil {
		return fmt.Errorf("marshal settlement message: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	publish := func() error {
		return d.channel.Publish("", d.queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	}

	if err := publish(); err != nil {
		slog.Warn("settlement publish failed, reconnecting", "event_id", eventID, "error", err)
		d.closeLocked()
		if err := d.connect(); err != nil {
			return fmt.Errorf("reconnect settlement queue: %w", err)
		}
		if err := publish(); err != nil {
			return fmt.Errorf("publish settlement for %s: %w", eventID, err)
		}
	}
	slog.Info("settlement dispatched", "event_id", eventID, "home_score", homeScore, "away_score", awayScore)
	return nil
}

func (d *AMQPDispatcher) closeLocked() {
	if d.channel != nil {
		d.channel.Close()
		d.channel = nil
	}
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

func (d *AMQPDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
	return nil
}
