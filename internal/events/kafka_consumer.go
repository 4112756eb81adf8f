package events

import (
	"context"
	"strings"

	"github.com/Darshan-360/service-checkout/internal/platform/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// CheckoutEventHandler reacts to checkout events read back from the topic.
type CheckoutEventHandler interface {
	OnOrderCreated(ctx context.Context, event OrderCreatedEvent) error
	OnPaymentPaid(ctx context.Context, event PaymentPaidEvent) error
	OnPaymentFailed(ctx context.Context, event PaymentFailedEvent) error
}

// CheckoutEventConsumer listens to checkout events and routes them to a handler.
type CheckoutEventConsumer struct {
	consumer *kafka.Consumer
	handler  CheckoutEventHandler
	logger   *zap.Logger
}

// NewCheckoutEventConsumer creates a new consumer for checkout events.
func NewCheckoutEventConsumer(
	brokers []string,
	groupID string,
	topic string,
	handler CheckoutEventHandler,
	logger *zap.Logger,
) *CheckoutEventConsumer {
	return &CheckoutEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, topic, logger),
		handler:  handler,
		logger:   logger,
	}
}

// Start begins consuming checkout events. It blocks until the context is cancelled.
func (c *CheckoutEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.HandleMessage)
}

// HandleMessage routes one Kafka message to the matching handler method.
func (c *CheckoutEventConsumer) HandleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from checkout topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return err
	}

	c.logger.Debug("received checkout event",
		zap.String("type", cloudEvent.Type),
		zap.String("id", cloudEvent.ID),
		zap.String("order_id", cloudEvent.Subject),
	)

	switch {
	case strings.EqualFold(cloudEvent.Type, OrderCreated):
		var event OrderCreatedEvent
		if err := cloudEvent.ParseData(&event); err != nil {
			c.logger.Error("failed to parse OrderCreatedEvent data", zap.Error(err))
			return err
		}
		return c.handler.OnOrderCreated(ctx, event)

	case strings.EqualFold(cloudEvent.Type, PaymentPaid):
		var event PaymentPaidEvent
		if err := cloudEvent.ParseData(&event); err != nil {
			c.logger.Error("failed to parse PaymentPaidEvent data", zap.Error(err))
			return err
		}
		return c.handler.OnPaymentPaid(ctx, event)

	case strings.EqualFold(cloudEvent.Type, PaymentFailed):
		var event PaymentFailedEvent
		if err := cloudEvent.ParseData(&event); err != nil {
			c.logger.Error("failed to parse PaymentFailedEvent data", zap.Error(err))
			return err
		}
		return c.handler.OnPaymentFailed(ctx, event)

	default:
		c.logger.Debug("ignoring unhandled checkout event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

// Close closes the underlying Kafka consumer.
func (c *CheckoutEventConsumer) Close() error {
	return c.consumer.Close()
}
