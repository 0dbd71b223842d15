package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taxirural/internal/domain"
	"taxirural/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService   *service.DriverService
	matchingService *service.MatchingService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService, matchingService *service.MatchingService) *DriverHandler {
	return &DriverHandler{
		driverService:   driverService,
		matchingService: matchingService,
	}
}

// RegisterDriverRequest is the HTTP request body for registering a driver.
type RegisterDriverRequest struct {
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	SearchRadiusKm float64 `json:"search_radius_km,omitempty"`
}

// AvailabilityRequest is the HTTP request body for flipping availability.
type AvailabilityRequest struct {
	Available bool `json:"available"`
}

// LocationRequest is the HTTP request body for a periodic location report.
type LocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FinishRideRequest is the HTTP request body for finishing a ride.
type FinishRideRequest struct {
	FinalFare float64 `json:"final_fare"`
}

// DriverResponse is the HTTP representation of a driver.
type DriverResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Phone          string   `json:"phone,omitempty"`
	Lat            *float64 `json:"lat,omitempty"`
	Lng            *float64 `json:"lng,omitempty"`
	Available      bool     `json:"available"`
	SearchRadiusKm float64  `json:"search_radius_km"`
	Verified       bool     `json:"verified"`
	PaymentBlocked bool     `json:"payment_blocked"`
	Suspended      bool     `json:"suspended"`
	PendingBalance float64  `json:"pending_balance"`
	WeeklyTotal    float64  `json:"weekly_total"`
	WeeklyFee      float64  `json:"weekly_fee"`
	PaymentStatus  string   `json:"payment_status,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

// Register handles POST /v1/drivers
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.driverService.RegisterDriver(c.Request.Context(), service.RegisterDriverRequest{
		Name:           req.Name,
		Phone:          req.Phone,
		SearchRadiusKm: req.SearchRadiusKm,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, driverResponse(driver))
}

// Get handles GET /v1/drivers/:id
func (h *DriverHandler) Get(c *gin.Context) {
	driver, err := h.driverService.GetDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, driverResponse(driver))
}

// SetAvailability handles PUT /v1/drivers/:id/availability
func (h *DriverHandler) SetAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.driverService.SetAvailability(c.Request.Context(), c.Param("id"), req.Available)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, driverResponse(driver))
}

// ReportLocation handles PUT /v1/drivers/:id/location
func (h *DriverHandler) ReportLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.driverService.ReportLocation(c.Request.Context(), c.Param("id"), req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// NearbyDriverResponse is one entry in the nearby-drivers view.
type NearbyDriverResponse struct {
	DriverID string  `json:"driver_id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// Nearby handles GET /v1/drivers/nearby
func (h *DriverHandler) Nearby(c *gin.Context) {
	point, ok := queryPoint(c, "lat", "lng")
	if !ok {
		return
	}

	var radiusKm float64
	if raw := c.Query("radius_km"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid radius_km"})
			return
		}
		radiusKm = parsed
	}

	locations, err := h.driverService.NearbyDrivers(c.Request.Context(), point.Lat, point.Lng, radiusKm)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]NearbyDriverResponse, 0, len(locations))
	for _, loc := range locations {
		response = append(response, NearbyDriverResponse{DriverID: loc.DriverID, Lat: loc.Lat, Lng: loc.Lng})
	}
	respondJSON(c, http.StatusOK, response)
}

// PendingRides handles GET /v1/drivers/:id/rides/pending
func (h *DriverHandler) PendingRides(c *gin.Context) {
	rides, err := h.matchingService.PendingRidesFor(c.Request.Context(), c.Param("id"))
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

// AcceptRide handles POST /v1/drivers/:id/rides/:rideId/accept
func (h *DriverHandler) AcceptRide(c *gin.Context) {
	ride, err := h.driverService.AcceptRide(c.Request.Context(), c.Param("rideId"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// StartRide handles POST /v1/drivers/:id/rides/:rideId/start
func (h *DriverHandler) StartRide(c *gin.Context) {
	ride, err := h.driverService.StartRide(c.Request.Context(), c.Param("rideId"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// FinishRide handles POST /v1/drivers/:id/rides/:rideId/finish
func (h *DriverHandler) FinishRide(c *gin.Context) {
	var req FinishRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.driverService.FinishRide(c.Request.Context(), c.Param("rideId"), c.Param("id"), req.FinalFare)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

func driverResponse(d *domain.Driver) DriverResponse {
	response := DriverResponse{
		ID:             d.ID,
		Name:           d.Name,
		Phone:          d.Phone,
		Available:      d.Available,
		SearchRadiusKm: d.SearchRadiusKm,
		Verified:       d.Verified,
		PaymentBlocked: d.PaymentBlocked,
		Suspended:      d.Suspended,
		PendingBalance: d.PendingBalance,
		WeeklyTotal:    d.WeeklyTotal,
		WeeklyFee:      d.WeeklyFee,
		PaymentStatus:  string(d.PaymentStatus),
		CreatedAt:      d.CreatedAt.Format(time.RFC3339),
	}
	response.Lat, response.Lng = pointParts(d.Location)
	return response
}
