package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taxirural/internal/repository"
	"taxirural/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidPassengerID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidOrigin),
		errors.Is(err, service.ErrInvalidDestination),
		errors.Is(err, service.ErrMissingDestination),
		errors.Is(err, service.ErrInvalidScheduleTime),
		errors.Is(err, service.ErrInvalidFare),
		errors.Is(err, service.ErrInvalidRadius),
		errors.Is(err, service.ErrInvalidPercent):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrRideTaken),
		errors.Is(err, service.ErrTerminalState),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrBillingRunInProgress):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrNotAssignedDriver),
		errors.Is(err, service.ErrDriverNotVerified),
		errors.Is(err, service.ErrDriverPaymentBlocked),
		errors.Is(err, service.ErrDriverSuspended):
		return http.StatusForbidden

	// Service unavailable
	case errors.Is(err, service.ErrLocationUnavailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
