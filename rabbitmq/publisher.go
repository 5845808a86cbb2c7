package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Aditya-GrowAI/civicvoice3/config"
	"github.com/Aditya-GrowAI/civicvoice3/models"

	"github.com/apex/log"
	"github.com/streadway/amqp"
)

// IssueCreatedRoutingKey is the routing key of issue.created events.
const IssueCreatedRoutingKey = "issue.created"

// EventSource identifies this service in published events.
const EventSource = "civicvoice"

// EventPublisher publishes issue events.
type EventPublisher interface {
	PublishIssueCreated(ctx context.Context, issue *models.Issue) error
	Close() error
}

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher represents a RabbitMQ publisher instance
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  channel
	exchange string
}

// NewEventPublisher connects to the configured broker. Without an AMQP host,
// or when the broker cannot be reached, it returns a Noop publisher.
func NewEventPublisher(cfg config.RabbitMQConfig) EventPublisher {
	if !cfg.Enabled() {
		log.Info("AMQP_HOST not set, issue events are disabled")
		return Noop{}
	}
	p, err := NewPublisher(cfg.GetAMQPURL(), cfg.Exchange)
	if err != nil {
		log.Errorf("Failed to create RabbitMQ publisher, issue events are disabled: %v", err)
		return Noop{}
	}
	log.Infof("Publishing issue events to exchange %s", cfg.Exchange)
	return p
}

// NewPublisher creates a new RabbitMQ publisher instance
func NewPublisher(amqpURL, exchangeName string) (*Publisher, error) {
	conn, err := amqp.DialConfig(amqpURL, amqp.Config{
		Dial: amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{conn: conn, channel: ch, exchange: exchangeName}, nil
}

func newPublisherWithChannel(ch channel, exchange string) *Publisher {
	return &Publisher{channel: ch, exchange: exchange}
}

// PublishIssueCreated sends the issue.created event for a stored issue.
func (p *Publisher) PublishIssueCreated(ctx context.Context, issue *models.Issue) error {
	event := models.IssueCreated{
		Issue:     *issue,
		Source:    EventSource,
		Published: time.Now().UTC(),
	}
	return p.publishWithRoutingKey(ctx, IssueCreatedRoutingKey, event)
}

// publishWithRoutingKey sends a JSON message to the exchange with a custom routing key
func (p *Publisher) publishWithRoutingKey(ctx context.Context, routingKey string, message interface{}) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context done before publishing message: %w", err)
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message to JSON: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}

	// amqp.Channel is not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return fmt.Errorf("publisher is closed")
	}
	if err := p.channel.Publish(p.exchange, routingKey, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close closes the publisher connection and channel
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.channel != nil {
		if channelErr := p.channel.Close(); channelErr != nil {
			log.Warnf("Failed to close channel: %v", channelErr)
			err = channelErr
		}
		p.channel = nil
	}

	if p.conn != nil {
		if connErr := p.conn.Close(); connErr != nil {
			log.Warnf("Failed to close connection: %v", connErr)
			if err == nil {
				err = connErr
			}
		}
		p.conn = nil
	}

	return err
}

// Noop discards events.
type Noop struct{}

func (Noop) PublishIssueCreated(ctx context.Context, issue *models.Issue) error { return nil }

func (Noop) Close() error { return nil }
