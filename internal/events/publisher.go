package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/Darshan-360/service-checkout/internal/platform/kafka"
	"go.uber.org/zap"
)

// Publisher emits checkout events keyed by order id.
type Publisher interface {
	Publish(ctx context.Context, eventType, orderID string, data any) error
}

// KafkaPublisher wraps checkout events in CloudEvents and writes them to one topic.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	logger   *zap.Logger
}

// NewKafkaPublisher creates a publisher writing to topic.
func NewKafkaPublisher(producer *kafka.Producer, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

// Publish sends one event. The order id becomes the CloudEvent subject and message key.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType, orderID string, data any) error {
	ce, err := kafka.NewCloudEvent(Source, eventType, data)
	if err != nil {
		return err
	}
	ce.Subject = orderID
	if err := p.producer.PublishEvent(ctx, p.topic, ce); err != nil {
		return fmt.Errorf("publish %s to %s: %w", eventType, p.topic, err)
	}
	p.logger.Debug("published checkout event",
		zap.String("type", eventType),
		zap.String("order_id", orderID),
	)
	return nil
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, any) error { return nil }

// PublishedEvent is one event captured by RecordingPublisher.
type PublishedEvent struct {
	Type    string
	OrderID string
	Data    any
}

// RecordingPublisher keeps events in memory. Used by tests and the memory store driver.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

func (r *RecordingPublisher) Publish(_ context.Context, eventType, orderID string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, PublishedEvent{Type: eventType, OrderID: orderID, Data: data})
	return nil
}

// Events returns a copy of everything published so far.
func (r *RecordingPublisher) Events() []PublishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PublishedEvent(nil), r.events...)
}

// OfType returns the published events with the given type.
func (r *RecordingPublisher) OfType(eventType string) []PublishedEvent {
	var out []PublishedEvent
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
