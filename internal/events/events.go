package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

// OrderEventMessage is published whenever an order changes state.
type OrderEventMessage struct {
	OrderID   uint               `json:"orderId"`
	UserID    uint               `json:"userId"`
	Status    models.OrderStatus `json:"status"`
	NetAmount decimal.Decimal    `json:"netAmount"`
	At        time.Time          `json:"at"`
}

// FromOrder snapshots o as an event message.
func FromOrder(o *models.Order, at time.Time) OrderEventMessage {
	return OrderEventMessage{OrderID: o.ID, UserID: o.UserID, Status: o.Status, NetAmount: o.NetAmount, At: at.UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, msg OrderEventMessage) error
}

// NopPublisher drops everything; used when AMQP_URL is unset.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEventMessage) error { return nil }

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher sends JSON messages to a durable queue on the default exchange.
type AMQPPublisher struct {
	ch    Channel
	queue string
}

func NewAMQPPublisher(ch Channel, queue string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, queue: queue}
}

func (p *AMQPPublisher) Publish(ctx context.Context, msg OrderEventMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.At,
		Body:         body,
	})
}

// Dial connects, opens a channel and declares queue. The returned close func
// releases both.
func Dial(url, queue string) (*AMQPPublisher, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	closeFn := func() error {
		_ = ch.Close()
		return conn.Close()
	}
	return NewAMQPPublisher(ch, queue), closeFn, nil
}
