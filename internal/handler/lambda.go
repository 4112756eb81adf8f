package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/Darshan-360/service-checkout/internal/application"
	"github.com/Darshan-360/service-checkout/internal/platform/middleware"
	"github.com/Darshan-360/service-checkout/internal/platform/response"
	awsevents "github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// LambdaHandler serves one checkout operation as an API Gateway proxy function.
type LambdaHandler struct {
	checkout *CheckoutHandler
	op       Operation
	logger   *zap.Logger
}

// NewLambdaHandler creates a function handler for op.
func NewLambdaHandler(checkout *CheckoutHandler, op Operation, logger *zap.Logger) *LambdaHandler {
	return &LambdaHandler{checkout: checkout, op: op, logger: logger}
}

// Handle is passed to lambda.Start.
func (l *LambdaHandler) Handle(ctx context.Context, req awsevents.APIGatewayProxyRequest) (awsevents.APIGatewayProxyResponse, error) {
	switch req.HTTPMethod {
	case http.MethodOptions:
		return awsevents.APIGatewayProxyResponse{
			StatusCode: http.StatusNoContent,
			Headers:    middleware.CORSHeaders(),
		}, nil
	case http.MethodPost:
	default:
		resp := l.jsonResponse(http.StatusMethodNotAllowed, response.ErrorBody("method not allowed"))
		resp.Headers["Allow"] = "POST, OPTIONS"
		return resp, nil
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return l.jsonResponse(http.StatusBadRequest, response.ErrorBody(application.MsgInvalidPayload)), nil
		}
		body = decoded
	}

	result, err := l.checkout.Dispatch(ctx, l.op, body)
	if err != nil {
		return l.jsonResponse(response.StatusFor(err), response.ErrorBody(err.Error())), nil
	}
	return l.jsonResponse(http.StatusOK, result), nil
}

func (l *LambdaHandler) jsonResponse(status int, payload any) awsevents.APIGatewayProxyResponse {
	headers := middleware.CORSHeaders()
	headers["Content-Type"] = "application/json"

	raw, err := json.Marshal(payload)
	if err != nil {
		l.logger.Error("failed to encode function response", zap.Error(err))
		status = http.StatusInternalServerError
		raw, _ = json.Marshal(response.ErrorBody("internal server error"))
	}
	return awsevents.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(raw),
	}
}
