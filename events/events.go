package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const Exchange = "cms.events"

const (
	ArticleCreated  = "article.created"
	ArticleUpdated  = "article.updated"
	ArticleFeatured = "article.featured"
	ArticleDeleted  = "article.deleted"
)

// Event wird bei jeder Änderung an einem Artikel veröffentlicht, z. B. für Sitemap- oder Cache-Rebuilds.
type Event struct {
	Type      string    `json:"type"`
	ArticleID string    `json:"articleId"`
	Category  string    `json:"category,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher verschickt Artikel-Events. Fehler sind nie fatal für die auslösende Operation.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NoopPublisher verwirft alle Events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                          { return nil }

// AMQPPublisher veröffentlicht Events auf dem Topic-Exchange cms.events, Routing-Key ist der Event-Typ.
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *zap.Logger
	mu   sync.Mutex
}

// DialAMQP verbindet sich mit RabbitMQ und deklariert den Exchange.
func DialAMQP(url string, log *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		Exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}

	return &AMQPPublisher{conn: conn, ch: ch, log: log}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	// amqp.Channel ist nicht für parallele Publishes gedacht
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		Exchange, // exchange
		e.Type,   // routing key
		false,    // mandatory
		false,    // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    e.At,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	p.log.Debug("event published", zap.String("type", e.Type), zap.String("article_id", e.ArticleID))
	return nil
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
