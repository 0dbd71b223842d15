package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taxirural/internal/domain"
	"taxirural/internal/geo"
	"taxirural/internal/service"
)

// FareHandler handles HTTP requests for fare estimates.
type FareHandler struct {
	fareService *service.FareService
}

// NewFareHandler creates a new FareHandler.
func NewFareHandler(fareService *service.FareService) *FareHandler {
	return &FareHandler{fareService: fareService}
}

// EstimateResponse is the HTTP response for a fare estimate.
type EstimateResponse struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Exact      float64 `json:"exact"`
	DistanceKm float64 `json:"distance_km"`
	EtaMin     float64 `json:"eta_min"`
	Zone       string  `json:"zone,omitempty"`
	Currency   string  `json:"currency"`
}

// Estimate handles GET /v1/fares/estimate
func (h *FareHandler) Estimate(c *gin.Context) {
	origin, ok := queryPoint(c, "origin_lat", "origin_lng")
	if !ok {
		return
	}
	destination, ok := queryPoint(c, "destination_lat", "destination_lng")
	if !ok {
		return
	}

	now := time.Now()
	tariff, zoneName, err := h.fareService.ResolveTariff(c.Request.Context(), &origin)
	if err != nil {
		respondError(c, err)
		return
	}

	distanceKm := geo.DistanceKm(origin, destination)
	etaMin := h.fareService.ETAMinutes(distanceKm)
	estimate := service.Estimate(distanceKm, etaMin, now, tariff)

	respondJSON(c, http.StatusOK, EstimateResponse{
		Min:        estimate.Min,
		Max:        estimate.Max,
		Exact:      estimate.Exact,
		DistanceKm: distanceKm,
		EtaMin:     etaMin,
		Zone:       zoneName,
		Currency:   "MXN",
	})
}

// queryPoint parses a coordinate pair from query parameters, writing
// the error response itself when the pair is missing or malformed.
func queryPoint(c *gin.Context, latKey, lngKey string) (domain.GeoPoint, bool) {
	lat, err := strconv.ParseFloat(c.Query(latKey), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid or missing " + latKey})
		return domain.GeoPoint{}, false
	}
	lng, err := strconv.ParseFloat(c.Query(lngKey), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid or missing " + lngKey})
		return domain.GeoPoint{}, false
	}
	if !geo.ValidLatitude(lat) || !geo.ValidLongitude(lng) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "coordinates out of range"})
		return domain.GeoPoint{}, false
	}
	return domain.GeoPoint{Lat: lat, Lng: lng}, true
}
