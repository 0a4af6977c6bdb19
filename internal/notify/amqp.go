package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"climatrack/internal/metrics"
)

const dialTimeout = 5 * time.Second

// AMQPNotifier publishes notifications as persistent JSON messages on a
// durable RabbitMQ queue. The connection is opened lazily and reopened after
// the broker drops it.
type AMQPNotifier struct {
	url   string
	queue string
	log   zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
}

var _ Notifier = (*AMQPNotifier)(nil)

// NewAMQPNotifier creates a notifier publishing to queue.
func NewAMQPNotifier(url, queue string, log zerolog.Logger) *AMQPNotifier {
	return &AMQPNotifier{url: url, queue: queue, log: log}
}

func (n *AMQPNotifier) connection() (*amqp.Connection, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn != nil && !n.conn.IsClosed() {
		return n.conn, nil
	}
	conn, err := amqp.DialConfig(n.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	n.conn = conn
	return conn, nil
}

// NotifyPasswordReset publishes the notification. Errors are logged and returned.
func (n *AMQPNotifier) NotifyPasswordReset(ctx context.Context, msg ResetNotification) error {
	err := n.publish(ctx, msg)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("amqp", "error").Inc()
		n.log.Error().Err(err).Str("queue", n.queue).Msg("publish password reset notification")
		return err
	}
	metrics.NotificationsTotal.WithLabelValues("amqp", "ok").Inc()
	return nil
}

func (n *AMQPNotifier) publish(ctx context.Context, msg ResetNotification) error {
	conn, err := n.connection()
	if err != nil {
		return err
	}

	// channels are not safe for concurrent use, so each publish gets its own
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	return ch.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         "password.reset.requested",
		Body:         body,
	})
}

// Close closes the broker connection if one is open.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil || n.conn.IsClosed() {
		return nil
	}
	return n.conn.Close()
}
