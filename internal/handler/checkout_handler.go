package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Darshan-360/service-checkout/internal/application"
	"github.com/Darshan-360/service-checkout/internal/platform/apperror"
	"github.com/Darshan-360/service-checkout/internal/platform/middleware"
	"github.com/Darshan-360/service-checkout/internal/platform/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Operation names one checkout endpoint. The name is also its URL path segment.
type Operation string

const (
	OpCreateOrder          Operation = "create-order"
	OpVerifyPayment        Operation = "verify-payment"
	OpRecordPaymentFailure Operation = "record-payment-failure"
)

// Operations lists every checkout endpoint.
var Operations = []Operation{OpCreateOrder, OpVerifyPayment, OpRecordPaymentFailure}

// NetlifyPrefix mounts the same endpoints where the serverless deployment serves them.
const NetlifyPrefix = "/.netlify/functions"

// CheckoutHandler handles the three checkout operations for both the gin server and the
// serverless functions.
type CheckoutHandler struct {
	service *application.CheckoutService
	logger  *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(service *application.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: service, logger: logger}
}

// RegisterRoutes registers POST and OPTIONS for every operation at the root and under
// NetlifyPrefix. guards run before the POST handlers only.
func (h *CheckoutHandler) RegisterRoutes(r gin.IRouter, guards ...gin.HandlerFunc) {
	for _, prefix := range []string{"", NetlifyPrefix} {
		for _, op := range Operations {
			path := prefix + "/" + string(op)
			r.OPTIONS(path, middleware.Preflight)
			r.POST(path, append(append([]gin.HandlerFunc{}, guards...), h.handle(op))...)
		}
	}
}

func (h *CheckoutHandler) handle(op Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			response.BadRequest(c, application.MsgInvalidPayload)
			return
		}

		result, err := h.Dispatch(c.Request.Context(), op, body)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, result)
	}
}

// Dispatch decodes body for op and runs it. An empty body is treated as {}.
func (h *CheckoutHandler) Dispatch(ctx context.Context, op Operation, body []byte) (any, error) {
	if len(body) == 0 {
		body = []byte("{}")
	}

	var (
		result any
		err    error
	)
	switch op {
	case OpCreateOrder:
		var req application.CreateOrderRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, h.invalidBody(op, err)
		}
		result, err = h.service.CreateOrder(ctx, req)

	case OpVerifyPayment:
		var req application.VerifyPaymentRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, h.invalidBody(op, err)
		}
		result, err = h.service.VerifyPayment(ctx, req)

	case OpRecordPaymentFailure:
		var req application.RecordFailureRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, h.invalidBody(op, err)
		}
		result, err = h.service.RecordPaymentFailure(ctx, req)

	default:
		return nil, apperror.NewNotFoundError("operation", string(op))
	}

	if err != nil {
		if !errors.Is(err, apperror.ErrValidation) {
			h.logger.Error("checkout operation failed", zap.String("operation", string(op)), zap.Error(err))
		}
		return nil, err
	}
	return result, nil
}

func (h *CheckoutHandler) invalidBody(op Operation, err error) error {
	h.logger.Debug("undecodable checkout request", zap.String("operation", string(op)), zap.Error(err))
	return apperror.NewValidationError(application.MsgInvalidPayload)
}
