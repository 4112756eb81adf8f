// Package client is the caller side of checkout: it calls the three operations and writes the
// records the server reports it could not write, using the signed-in user's own session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Darshan-360/service-checkout/internal/application"
)

// APIError is a non-200 answer from a checkout endpoint.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("checkout api %d: %s", e.Status, e.Message)
}

// Rejected reports whether the server refused the request as invalid. Rejections must not be
// compensated locally.
func (e *APIError) Rejected() bool {
	return e.Status >= 400 && e.Status < 500
}

// APIClient calls the checkout endpoints over HTTP. BaseURL may include a path prefix such as
// /.netlify/functions.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a client. A nil httpClient gets a 30s timeout.
func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// CreateOrder calls create-order.
func (c *APIClient) CreateOrder(ctx context.Context, req application.CreateOrderRequest) (*application.CreateOrderResult, error) {
	var out application.CreateOrderResult
	if err := c.post(ctx, "create-order", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyPayment calls verify-payment.
func (c *APIClient) VerifyPayment(ctx context.Context, req application.VerifyPaymentRequest) (*application.RecordResult, error) {
	var out application.RecordResult
	if err := c.post(ctx, "verify-payment", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordPaymentFailure calls record-payment-failure.
func (c *APIClient) RecordPaymentFailure(ctx context.Context, req application.RecordFailureRequest) (*application.RecordResult, error) {
	var out application.RecordResult
	if err := c.post(ctx, "record-payment-failure", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) post(ctx context.Context, op string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
			apiErr.Message = errBody.Error
		}
		return apiErr
	}

	// The serverless create-order historically answered 200 with an error body.
	var errBody struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
		return &APIError{Status: http.StatusBadRequest, Message: errBody.Error}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
