package response

import (
	"errors"
	"net/http"

	"github.com/Darshan-360/service-checkout/internal/platform/apperror"
	"github.com/gin-gonic/gin"
)

// Success writes body with 200. The checkout wire contract is flat, so no envelope is added.
func Success(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorBody(message))
}

// Error maps err to a status code and writes {"error": message}.
func Error(c *gin.Context, err error) {
	c.JSON(StatusFor(err), ErrorBody(err.Error()))
}

// StatusFor returns the HTTP status for an error produced by the application layer.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the JSON body used for every error response.
func ErrorBody(message string) gin.H {
	return gin.H{"error": message}
}
