// Package kafka publishes domain events to Kafka topics.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kailas-cloud/shopassist/internal/domain/cart"
	"github.com/kailas-cloud/shopassist/internal/domain/order"
)

// DefaultOrderTopic is the topic for order.placed events.
const DefaultOrderTopic = "order.placed"

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds the broker settings.
type Config struct {
	Brokers []string
	Topic   string
	Async   bool
}

// OrderPlaced is the payload of an order.placed event.
type OrderPlaced struct {
	OrderID          string      `json:"orderId"`
	UserID           string      `json:"userId"`
	ShopID           string      `json:"shopId"`
	AddressID        string      `json:"addressId"`
	Lines            []cart.Line `json:"lines"`
	SubtotalCents    int64       `json:"subtotalCents"`
	DeliveryFeeCents int64       `json:"deliveryFeeCents"`
	TotalCents       int64       `json:"totalCents"`
	PlacedAt         time.Time   `json:"placedAt"`
}

// Publisher writes order events keyed by shop id, so one shop's orders stay on one partition.
type Publisher struct {
	w messageWriter
}

// NewPublisher creates a publisher backed by a kafka.Writer.
func NewPublisher(cfg Config) *Publisher {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultOrderTopic
	}
	return &Publisher{w: &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        cfg.Async,
	}}
}

// NewPublisherForTest creates a publisher over an arbitrary writer.
func NewPublisherForTest(w messageWriter) *Publisher {
	return &Publisher{w: w}
}

// PublishOrderPlaced sends an order.placed event.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, o *order.Order) error {
	data, err := json.Marshal(OrderPlaced{
		OrderID:          o.ID(),
		UserID:           o.UserID(),
		ShopID:           o.ShopID(),
		AddressID:        o.AddressID(),
		Lines:            o.Lines(),
		SubtotalCents:    o.SubtotalCents(),
		DeliveryFeeCents: o.DeliveryFeeCents(),
		TotalCents:       o.TotalCents(),
		PlacedAt:         o.PlacedAt(),
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(o.ShopID()),
		Value: data,
		Time:  o.PlacedAt(),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order %s: %w", o.ID(), err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	if err := p.w.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}
