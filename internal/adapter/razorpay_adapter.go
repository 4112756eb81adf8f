package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"
)

// Order is the gateway's handle for an intent to charge. Amount is in the currency's minor unit.
type Order struct {
	ID         string          `json:"id"`
	Entity     string          `json:"entity"`
	Amount     int64           `json:"amount"`
	AmountPaid int64           `json:"amount_paid"`
	AmountDue  int64           `json:"amount_due"`
	Currency   string          `json:"currency"`
	Receipt    string          `json:"receipt,omitempty"`
	Status     string          `json:"status"`
	Attempts   int             `json:"attempts"`
	Notes      json.RawMessage `json:"notes,omitempty"`
	CreatedAt  int64           `json:"created_at"`
}

// PaymentGateway defines the Anti-Corruption Layer interface for gateway order creation.
// This abstraction decouples the checkout core from the Razorpay API.
type PaymentGateway interface {
	// CreateOrder registers an order for amount minor units. Errors carry the gateway's message.
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error)
}

// RazorpayAdapter creates orders through the Razorpay Orders API.
type RazorpayAdapter struct {
	client *razorpay.Client
	logger *zap.Logger
}

// NewRazorpayAdapter creates an adapter authenticated with the key pair.
func NewRazorpayAdapter(keyID, keySecret string, logger *zap.Logger) *RazorpayAdapter {
	return &RazorpayAdapter{
		client: razorpay.NewClient(keyID, keySecret),
		logger: logger,
	}
}

// CreateOrder calls POST /v1/orders. The SDK call is not cancellable; ctx is checked before it.
func (r *RazorpayAdapter) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
	}
	if receipt != "" {
		data["receipt"] = receipt
	}

	body, err := r.client.Order.Create(data, nil)
	if err != nil {
		r.logger.Error("razorpay order create failed",
			zap.Int64("amount", amount),
			zap.String("currency", currency),
			zap.Error(err),
		)
		return nil, fmt.Errorf("razorpay order create: %w", err)
	}

	order, err := decodeOrder(body)
	if err != nil {
		return nil, err
	}

	r.logger.Info("razorpay order created",
		zap.String("order_id", order.ID),
		zap.Int64("amount", order.Amount),
		zap.String("currency", order.Currency),
	)
	return order, nil
}

func decodeOrder(body map[string]interface{}) (*Order, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode order response: %w", err)
	}
	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("razorpay order response has no id")
	}
	return &order, nil
}

// MockRazorpayAdapter is a development/testing implementation of PaymentGateway.
// It simulates Razorpay behavior without requiring a real Razorpay account.
type MockRazorpayAdapter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewMockRazorpayAdapter creates a new mock gateway adapter for development.
func NewMockRazorpayAdapter(logger *zap.Logger) *MockRazorpayAdapter {
	return &MockRazorpayAdapter{logger: logger, now: time.Now}
}

// CreateOrder simulates creating an order and returns a mock id.
func (m *MockRazorpayAdapter) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	order := &Order{
		ID:        fmt.Sprintf("order_mock_%s", uuid.New().String()[:8]),
		Entity:    "order",
		Amount:    amount,
		AmountDue: amount,
		Currency:  currency,
		Receipt:   receipt,
		Status:    "created",
		CreatedAt: m.now().Unix(),
	}

	m.logger.Info("[MOCK RAZORPAY] Order created",
		zap.String("order_id", order.ID),
		zap.Int64("amount", amount),
		zap.String("currency", currency),
		zap.String("receipt", receipt),
	)

	return order, nil
}
