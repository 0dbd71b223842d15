package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taxirural/internal/domain"
	"taxirural/internal/redis"
	"taxirural/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
	feed        redis.RideFeedInterface
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService, feed redis.RideFeedInterface) *RideHandler {
	return &RideHandler{rideService: rideService, feed: feed}
}

// CreateRideRequest is the HTTP request body for creating a ride.
type CreateRideRequest struct {
	PassengerID     string   `json:"passenger_id"`
	OriginLat       *float64 `json:"origin_lat,omitempty"`
	OriginLng       *float64 `json:"origin_lng,omitempty"`
	DestinationLat  *float64 `json:"destination_lat,omitempty"`
	DestinationLng  *float64 `json:"destination_lng,omitempty"`
	DestinationText string   `json:"destination_text,omitempty"`
	ScheduledAt     string   `json:"scheduled_at,omitempty"` // RFC3339, empty for immediate
}

// FareEstimateResponse is the fare band shown to the passenger.
type FareEstimateResponse struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Exact float64 `json:"exact"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID              string                `json:"id"`
	PassengerID     string                `json:"passenger_id"`
	DriverID        string                `json:"driver_id,omitempty"`
	Status          string                `json:"status"`
	OriginLat       *float64              `json:"origin_lat,omitempty"`
	OriginLng       *float64              `json:"origin_lng,omitempty"`
	DestinationLat  *float64              `json:"destination_lat,omitempty"`
	DestinationLng  *float64              `json:"destination_lng,omitempty"`
	DestinationText string                `json:"destination_text,omitempty"`
	DriverLat       *float64              `json:"driver_lat,omitempty"`
	DriverLng       *float64              `json:"driver_lng,omitempty"`
	Type            string                `json:"type"`
	ScheduledAt     string                `json:"scheduled_at,omitempty"`
	Estimate        *FareEstimateResponse `json:"estimate,omitempty"`
	FinalFare       float64               `json:"final_fare,omitempty"`
	Currency        string                `json:"currency"`
	PaymentDueCode  string                `json:"payment_due_code,omitempty"`
	CreatedAt       string                `json:"created_at"`
	StartedAt       string                `json:"started_at,omitempty"`
	FinalizedAt     string                `json:"finalized_at,omitempty"`
	CancelledAt     string                `json:"cancelled_at,omitempty"`
	CancelFee       float64               `json:"cancel_fee,omitempty"`
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var scheduledAt time.Time
	if req.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid scheduled_at, expected RFC3339"})
			return
		}
		scheduledAt = t
	}

	ride, err := h.rideService.CreateRide(c.Request.Context(), service.CreateRideRequest{
		PassengerID:     req.PassengerID,
		Origin:          pointFromParts(req.OriginLat, req.OriginLng),
		Destination:     pointFromParts(req.DestinationLat, req.DestinationLng),
		DestinationText: req.DestinationText,
		ScheduledAt:     scheduledAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, rideResponse(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// GetAll handles GET /v1/rides
func (h *RideHandler) GetAll(c *gin.Context) {
	rides, err := h.rideService.GetAllRides(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		response = append(response, rideResponse(r))
	}
	respondJSON(c, http.StatusOK, response)
}

// Events handles GET /v1/rides/events
//
// Streams ride lifecycle events as server-sent events. Passenger and
// driver clients hold this open instead of polling; an optional
// ride_id query narrows the stream to one ride. The stream ends when
// the client disconnects or the feed closes.
func (h *RideHandler) Events(c *gin.Context) {
	if h.feed == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "event feed unavailable"})
		return
	}

	events, err := h.feed.Subscribe(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "event feed unavailable"})
		return
	}

	rideID := c.Query("ride_id")
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// The subscription closes the channel when the request context is
	// cancelled, so a client disconnect ends the loop.
	for event := range events {
		if rideID != "" && event.RideID != rideID {
			continue
		}
		c.SSEvent(string(event.Kind), event)
		c.Writer.Flush()
	}
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	result, err := h.rideService.CancelRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := rideResponse(result.Ride)
	response.CancelFee = result.CancelFee
	respondJSON(c, http.StatusOK, response)
}

func rideResponse(r *domain.Ride) RideResponse {
	response := RideResponse{
		ID:              r.ID,
		PassengerID:     r.PassengerID,
		DriverID:        r.DriverID,
		Status:          string(r.Status),
		DestinationText: r.DestinationText,
		Type:            string(r.Type),
		FinalFare:       r.FinalFare,
		Currency:        r.Currency,
		PaymentDueCode:  r.PaymentDueCode,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}

	response.OriginLat, response.OriginLng = pointParts(r.Origin)
	response.DestinationLat, response.DestinationLng = pointParts(r.Destination)
	response.DriverLat, response.DriverLng = pointParts(r.DriverLocation)

	if r.Estimate != nil {
		response.Estimate = &FareEstimateResponse{
			Min:   r.Estimate.Min,
			Max:   r.Estimate.Max,
			Exact: r.Estimate.Exact,
		}
	}
	if !r.ScheduledAt.IsZero() {
		response.ScheduledAt = r.ScheduledAt.Format(time.RFC3339)
	}
	if !r.StartedAt.IsZero() {
		response.StartedAt = r.StartedAt.Format(time.RFC3339)
	}
	if !r.FinalizedAt.IsZero() {
		response.FinalizedAt = r.FinalizedAt.Format(time.RFC3339)
	}
	if !r.CancelledAt.IsZero() {
		response.CancelledAt = r.CancelledAt.Format(time.RFC3339)
	}

	return response
}

func pointFromParts(lat, lng *float64) *domain.GeoPoint {
	if lat == nil || lng == nil {
		return nil
	}
	return &domain.GeoPoint{Lat: *lat, Lng: *lng}
}

func pointParts(p *domain.GeoPoint) (*float64, *float64) {
	if p == nil {
		return nil, nil
	}
	lat, lng := p.Lat, p.Lng
	return &lat, &lng
}
