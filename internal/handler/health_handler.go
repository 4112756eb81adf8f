package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler serves liveness and dependency health.
type HealthHandler struct {
	service string
	checks  map[string]HealthCheck
}

// NewHealthHandler creates a health handler. checks may be empty.
func NewHealthHandler(service string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{service: service, checks: checks}
}

// RegisterRoutes registers GET / and GET /health.
func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
}

// Root handles GET /
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Health handles GET /health. Any failing check turns the response into a 503.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"service": h.service,
		"checks":  results,
	})
}
