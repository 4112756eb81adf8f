package handler

import (
	"github.com/Darshan-360/service-checkout/internal/application"
	"github.com/Darshan-360/service-checkout/internal/platform/response"
	"github.com/gin-gonic/gin"
)

// BookingHandler serves booking history reads through the admin store handle.
type BookingHandler struct {
	service *application.CheckoutService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.CheckoutService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers the read routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/bookings/:id", h.GetBooking)
	r.GET("/payments/:id", h.GetPayment)
	r.GET("/users/:userId/bookings", h.ListUserBookings)
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, booking)
}

// GetPayment handles GET /api/v1/payments/:id
func (h *BookingHandler) GetPayment(c *gin.Context) {
	payment, err := h.service.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, payment)
}

// ListUserBookings handles GET /api/v1/users/:userId/bookings
func (h *BookingHandler) ListUserBookings(c *gin.Context) {
	bookings, err := h.service.ListUserBookings(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"bookings": bookings,
		"total":    len(bookings),
	})
}
