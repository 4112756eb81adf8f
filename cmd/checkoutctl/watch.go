package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/Darshan-360/service-checkout/internal/events"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// eventPrinter writes each checkout event to stdout as JSON.
type eventPrinter struct {
	cmd *cobra.Command
}

func (p eventPrinter) OnOrderCreated(_ context.Context, e events.OrderCreatedEvent) error {
	return printJSON(p.cmd, map[string]any{"type": events.OrderCreated, "data": e})
}

func (p eventPrinter) OnPaymentPaid(_ context.Context, e events.PaymentPaidEvent) error {
	return printJSON(p.cmd, map[string]any{"type": events.PaymentPaid, "data": e})
}

func (p eventPrinter) OnPaymentFailed(_ context.Context, e events.PaymentFailedEvent) error {
	return printJSON(p.cmd, map[string]any{"type": events.PaymentFailed, "data": e})
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print checkout events from Kafka until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			brokers, _ := cmd.Flags().GetStringSlice("brokers")
			topic, _ := cmd.Flags().GetString("topic")
			group, _ := cmd.Flags().GetString("group")
			if len(brokers) == 0 {
				return errors.New("--brokers is required")
			}

			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			consumer := events.NewCheckoutEventConsumer(brokers, group, topic, eventPrinter{cmd: cmd}, logger)
			defer consumer.Close()
			return consumer.Start(ctx)
		},
	}

	cmd.Flags().StringSlice("brokers", []string{"localhost:9092"}, "Kafka brokers")
	cmd.Flags().String("topic", "payment.events", "Checkout events topic")
	cmd.Flags().String("group", "checkoutctl", "Consumer group id")

	return cmd
}
