package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taxirural/internal/domain"
	"taxirural/internal/service"
)

// AdminHandler handles admin HTTP requests: tariff and zone
// configuration, billing settings and runs, and driver moderation.
type AdminHandler struct {
	fareService    *service.FareService
	billingService *service.BillingService
	driverService  *service.DriverService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	fareService *service.FareService,
	billingService *service.BillingService,
	driverService *service.DriverService,
) *AdminHandler {
	return &AdminHandler{
		fareService:    fareService,
		billingService: billingService,
		driverService:  driverService,
	}
}

// TariffRequest is the HTTP body for the global tariff and for zone
// overrides.
type TariffRequest struct {
	BaseFare        float64 `json:"base_fare"`
	PerKm           float64 `json:"per_km"`
	PerMin          float64 `json:"per_min"`
	MinFare         float64 `json:"min_fare,omitempty"`
	NightMultiplier float64 `json:"night_multiplier,omitempty"`
	NightStart      string  `json:"night_start,omitempty"`
	NightEnd        string  `json:"night_end,omitempty"`
	ServiceFee      float64 `json:"service_fee,omitempty"`
	CancelAfterMin  int     `json:"cancel_after_min,omitempty"`
	CancelFee       float64 `json:"cancel_fee,omitempty"`
}

// ZoneRequest is the HTTP body for creating or replacing a zone.
type ZoneRequest struct {
	Name      string        `json:"name"`
	CenterLat float64       `json:"center_lat"`
	CenterLng float64       `json:"center_lng"`
	RadiusKm  float64       `json:"radius_km"`
	Tariff    TariffRequest `json:"tariff"`
}

// BillingSettingsRequest is the HTTP body for the weekly commission.
type BillingSettingsRequest struct {
	WeeklyPercent float64 `json:"weekly_percent"`
}

// ModerationRequest is the HTTP body for verify/suspend actions.
type ModerationRequest struct {
	Value bool `json:"value"`
}

// RunSummaryResponse reports a billing run's outcome.
type RunSummaryResponse struct {
	PeriodStart   string  `json:"period_start"`
	PeriodEnd     string  `json:"period_end"`
	WeeklyPercent float64 `json:"weekly_percent"`
	DriversBilled int     `json:"drivers_billed"`
	DriversFailed int     `json:"drivers_failed"`
	TotalFees     float64 `json:"total_fees"`
}

// GetTariff handles GET /v1/admin/tariff
func (h *AdminHandler) GetTariff(c *gin.Context) {
	tariff, err := h.fareService.GlobalTariff(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, tariffRequest(tariff))
}

// PutTariff handles PUT /v1/admin/tariff
func (h *AdminHandler) PutTariff(c *gin.Context) {
	var req TariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	tariff := tariffConfig(req)
	if err := h.fareService.UpdateGlobalTariff(c.Request.Context(), tariff); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, req)
}

// ListZones handles GET /v1/admin/zones
func (h *AdminHandler) ListZones(c *gin.Context) {
	zones, err := h.fareService.ListZones(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ZoneRequest, 0, len(zones))
	for _, z := range zones {
		response = append(response, ZoneRequest{
			Name:      z.Name,
			CenterLat: z.Center.Lat,
			CenterLng: z.Center.Lng,
			RadiusKm:  z.RadiusKm,
			Tariff:    tariffRequest(z.Tariff),
		})
	}
	respondJSON(c, http.StatusOK, response)
}

// PutZone handles PUT /v1/admin/zones/:name
func (h *AdminHandler) PutZone(c *gin.Context) {
	var req ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	req.Name = c.Param("name")

	zone := &domain.Zone{
		Name:     req.Name,
		Center:   domain.GeoPoint{Lat: req.CenterLat, Lng: req.CenterLng},
		RadiusKm: req.RadiusKm,
		Tariff:   tariffConfig(req.Tariff),
	}
	if err := h.fareService.UpsertZone(c.Request.Context(), zone); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, req)
}

// GetBillingSettings handles GET /v1/admin/billing/settings
func (h *AdminHandler) GetBillingSettings(c *gin.Context) {
	settings, err := h.billingService.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, BillingSettingsRequest{WeeklyPercent: settings.WeeklyPercent})
}

// PutBillingSettings handles PUT /v1/admin/billing/settings
func (h *AdminHandler) PutBillingSettings(c *gin.Context) {
	var req BillingSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	settings, err := h.billingService.UpdateSettings(c.Request.Context(), req.WeeklyPercent)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, BillingSettingsRequest{WeeklyPercent: settings.WeeklyPercent})
}

// RunBilling handles POST /v1/admin/billing/run
func (h *AdminHandler) RunBilling(c *gin.Context) {
	summary, err := h.billingService.Run(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, RunSummaryResponse{
		PeriodStart:   summary.Period.Start.Format(time.RFC3339),
		PeriodEnd:     summary.Period.End.Format(time.RFC3339),
		WeeklyPercent: summary.WeeklyPercent,
		DriversBilled: summary.DriversBilled,
		DriversFailed: summary.DriversFailed,
		TotalFees:     summary.TotalFees,
	})
}

// ConfirmPayment handles POST /v1/admin/drivers/:id/payment/confirm
func (h *AdminHandler) ConfirmPayment(c *gin.Context) {
	driver, err := h.billingService.ConfirmPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, driverResponse(driver))
}

// SetVerified handles PUT /v1/admin/drivers/:id/verified
func (h *AdminHandler) SetVerified(c *gin.Context) {
	h.moderate(c, h.driverService.SetVerified)
}

// SetSuspended handles PUT /v1/admin/drivers/:id/suspended
func (h *AdminHandler) SetSuspended(c *gin.Context) {
	h.moderate(c, h.driverService.SetSuspended)
}

// ListDrivers handles GET /v1/admin/drivers
func (h *AdminHandler) ListDrivers(c *gin.Context) {
	drivers, err := h.driverService.GetAllDrivers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]DriverResponse, 0, len(drivers))
	for _, d := range drivers {
		response = append(response, driverResponse(d))
	}
	respondJSON(c, http.StatusOK, response)
}

func (h *AdminHandler) moderate(c *gin.Context, action func(ctx context.Context, id string, value bool) (*domain.Driver, error)) {
	var req ModerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := action(c.Request.Context(), c.Param("id"), req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, driverResponse(driver))
}

func tariffConfig(req TariffRequest) domain.TariffConfig {
	return domain.TariffConfig{
		BaseFare:        req.BaseFare,
		PerKm:           req.PerKm,
		PerMin:          req.PerMin,
		MinFare:         req.MinFare,
		NightMultiplier: req.NightMultiplier,
		NightStart:      req.NightStart,
		NightEnd:        req.NightEnd,
		ServiceFee:      req.ServiceFee,
		CancelAfterMin:  req.CancelAfterMin,
		CancelFee:       req.CancelFee,
	}
}

func tariffRequest(t domain.TariffConfig) TariffRequest {
	return TariffRequest{
		BaseFare:        t.BaseFare,
		PerKm:           t.PerKm,
		PerMin:          t.PerMin,
		MinFare:         t.MinFare,
		NightMultiplier: t.NightMultiplier,
		NightStart:      t.NightStart,
		NightEnd:        t.NightEnd,
		ServiceFee:      t.ServiceFee,
		CancelAfterMin:  t.CancelAfterMin,
		CancelFee:       t.CancelFee,
	}
}
