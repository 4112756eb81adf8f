package client

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Darshan-360/service-checkout/internal/application"
	"github.com/Darshan-360/service-checkout/internal/domain/checkout"
	"go.uber.org/zap"
)

// Checkout carries what a caller needs between Begin and Complete or Fail.
type Checkout struct {
	Order  application.OrderRef
	Trip   *checkout.TripRef
	UserID string
}

// Flow runs a checkout against the API and lets the fallback writer fill in what the server
// skipped. fallback may be nil.
type Flow struct {
	api      *APIClient
	fallback *FallbackWriter
	logger   *zap.Logger
}

func NewFlow(api *APIClient, fallback *FallbackWriter, logger *zap.Logger) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{api: api, fallback: fallback, logger: logger}
}

// Begin creates the gateway order.
func (f *Flow) Begin(ctx context.Context, req application.CreateOrderRequest) (*Checkout, *application.CreateOrderResult, FallbackReport, error) {
	res, err := f.api.CreateOrder(ctx, req)
	if err != nil {
		return nil, nil, FallbackReport{}, err
	}

	var report FallbackReport
	if f.fallback != nil {
		report = f.fallback.AfterCreateOrder(ctx, req, res)
	}

	amount := res.Amount
	co := &Checkout{
		Order:  application.OrderRef{ID: res.ID, Amount: &amount, Currency: res.Currency},
		Trip:   req.Trip,
		UserID: req.UserID,
	}
	return co, res, report, nil
}

// Complete verifies the gateway confirmation. Paid records are only written after the server
// accepted the signature.
func (f *Flow) Complete(ctx context.Context, co *Checkout, confirmation application.GatewayConfirmation) (*application.RecordResult, FallbackReport, error) {
	order := co.Order
	req := application.VerifyPaymentRequest{
		Order:    &order,
		Razorpay: &confirmation,
		Trip:     co.Trip,
		UserID:   co.UserID,
	}
	res, err := f.api.VerifyPayment(ctx, req)
	if err != nil {
		return nil, FallbackReport{}, err
	}

	var report FallbackReport
	if f.fallback != nil {
		report = f.fallback.AfterVerify(ctx, req, res)
	}
	return res, report, nil
}

// Fail records a checkout failure. When the server cannot be reached the failed records are
// written by the fallback writer alone; a rejected request is returned as is.
func (f *Flow) Fail(ctx context.Context, co *Checkout, failure json.RawMessage) (*application.RecordResult, FallbackReport, error) {
	order := co.Order
	req := application.RecordFailureRequest{
		Order:   &order,
		Trip:    co.Trip,
		UserID:  co.UserID,
		Failure: failure,
	}
	res, err := f.api.RecordPaymentFailure(ctx, req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Rejected() {
			return nil, FallbackReport{}, err
		}
		f.logger.Warn("record-payment-failure unreachable, writing failure locally",
			zap.String("order_id", order.ID), zap.Error(err))
		res = nil
	}

	var report FallbackReport
	if f.fallback != nil {
		report = f.fallback.AfterFailure(ctx, req, res)
	}
	return res, report, err
}
