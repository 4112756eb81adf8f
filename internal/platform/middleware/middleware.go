package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/Darshan-360/service-checkout/internal/platform/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Methods and headers allowed on the checkout endpoints.
var (
	AllowedMethods = []string{http.MethodPost, http.MethodOptions}
	AllowedHeaders = []string{"Content-Type"}
)

// RecoveryMiddleware turns a panic into a logged 500 with the usual error body.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.ByteString("stack", debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.ErrorBody("internal server error"))
			}
		}()
		c.Next()
	}
}

// LoggerMiddleware writes one access log entry per request.
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
}

// RequestIDMiddleware propagates X-Request-ID or mints a new one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// SecurityHeadersMiddleware sets conservative response headers for a JSON API.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

// CORSMiddleware answers pre-flight requests with 204 and permissive headers.
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    AllowedMethods,
		AllowHeaders:    AllowedHeaders,
		MaxAge:          12 * time.Hour,
	})
}

// CORSHeaders returns the header set written on every checkout response outside gin.
func CORSHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
	}
}

// Preflight answers OPTIONS on routes reached without an Origin header.
func Preflight(c *gin.Context) {
	for k, v := range CORSHeaders() {
		c.Header(k, v)
	}
	c.AbortWithStatus(http.StatusNoContent)
}
