// Package events announces committed purchases on a RabbitMQ topic exchange
// so game servers can deliver the granted items.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/unicore/internal/logging"
	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RoutingKeyPurchaseCompleted is the routing key of purchase announcements.
const RoutingKeyPurchaseCompleted = "store.purchase.completed"

// channel is the subset of *amqp.Channel used by the producer.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Producer publishes purchase events as persistent JSON messages.
type Producer struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  channel
	open     func() (channel, error)
	exchange string
	declared bool
	logger   logging.Logger
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewProducer dials the broker. The dial is bounded so startup does not hang.
func NewProducer(amqpURL, exchange string, l logging.Logger) (*Producer, error) {
	cleanURL, err := sanitizeURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Producer{
		conn:     conn,
		channel:  ch,
		open:     func() (channel, error) { return conn.Channel() },
		exchange: exchange,
		logger:   l.With("module", "events"),
	}, nil
}

func (p *Producer) declare() error {
	if p.declared {
		return nil
	}
	if p.channel == nil {
		return errors.New("channel closed")
	}
	if err := p.channel.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	p.declared = true
	return nil
}

// reopen closes the failed channel and opens a new one on the same
// connection.
func (p *Producer) reopen() error {
	if p.open == nil {
		return errors.New("no connection")
	}
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	p.declared = false
	ch, err := p.open()
	if err != nil {
		return err
	}
	p.channel = ch
	return p.declare()
}

// PublishPurchase publishes ev. A failed publish is retried once on a fresh
// channel.
func (p *Producer) PublishPurchase(ctx context.Context, ev models.PurchaseCompleted) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal purchase event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    ev.At,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.declare()
	if err == nil {
		err = p.channel.PublishWithContext(ctx, p.exchange, RoutingKeyPurchaseCompleted, false, false, msg)
	}
	if err == nil {
		return nil
	}

	p.logger.Warn(ctx, "publish failed; reopening channel", "exchange", p.exchange, "error", err.Error())
	if rerr := p.reopen(); rerr != nil {
		return errors.Join(err, rerr)
	}
	return p.channel.PublishWithContext(ctx, p.exchange, RoutingKeyPurchaseCompleted, false, false, msg)
}

// Close releases the channel and the connection.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Fallback is used when no broker is configured or it was unreachable at
// startup. It only logs.
type Fallback struct {
	Logger logging.Logger
}

func (f Fallback) PublishPurchase(ctx context.Context, ev models.PurchaseCompleted) error {
	if f.Logger != nil {
		f.Logger.Warn(ctx, "purchase event publish skipped", "user_id", ev.UserID.String(), "source", ev.Source)
	}
	return nil
}

func (Fallback) Close() {}
