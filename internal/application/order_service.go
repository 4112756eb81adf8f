package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/Darshan-360/service-checkout/internal/adapter"
	"go.uber.org/zap"
)

// DefaultCurrency is used when a caller does not name one.
const DefaultCurrency = "INR"

// ErrInvalidAmount is returned for amounts that are not a positive number of minor units.
var ErrInvalidAmount = errors.New("amount must be a positive integer in minor units")

// OrderService wraps gateway order creation. It never retries.
type OrderService struct {
	gateway adapter.PaymentGateway
	logger  *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(gateway adapter.PaymentGateway, logger *zap.Logger) *OrderService {
	return &OrderService{gateway: gateway, logger: logger}
}

// CreateOrder asks the gateway for an order of amount minor units.
func (s *OrderService) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*adapter.Order, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	order, err := s.gateway.CreateOrder(ctx, amount, currency, receipt)
	if err != nil {
		s.logger.Error("gateway order creation failed",
			zap.Int64("amount", amount),
			zap.String("currency", currency),
			zap.Error(err),
		)
		return nil, err
	}
	return order, nil
}
