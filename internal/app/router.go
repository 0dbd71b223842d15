package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"taxirural/internal/handler"
	"taxirural/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler   *handler.RideHandler
	DriverHandler *handler.DriverHandler
	FareHandler   *handler.FareHandler
	AdminHandler  *handler.AdminHandler
	RedisClient   *redis.Client
	NewRelicApp   *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Ride routes (passenger side).
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.CreateRide)
			rides.GET("", deps.RideHandler.GetAll)
			rides.GET("/events", deps.RideHandler.Events)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("", deps.DriverHandler.Register)
			drivers.GET("/nearby", deps.DriverHandler.Nearby)
			drivers.GET("/:id", deps.DriverHandler.Get)
			drivers.PUT("/:id/availability", deps.DriverHandler.SetAvailability)
			drivers.PUT("/:id/location", deps.DriverHandler.ReportLocation)
			drivers.GET("/:id/rides/pending", deps.DriverHandler.PendingRides)
			drivers.POST("/:id/rides/:rideId/accept", deps.DriverHandler.AcceptRide)
			drivers.POST("/:id/rides/:rideId/start", deps.DriverHandler.StartRide)
			drivers.POST("/:id/rides/:rideId/finish", deps.DriverHandler.FinishRide)
		}

		// Fare routes.
		fares := v1.Group("/fares")
		{
			fares.GET("/estimate", deps.FareHandler.Estimate)
		}

		// Admin routes.
		admin := v1.Group("/admin")
		{
			admin.GET("/tariff", deps.AdminHandler.GetTariff)
			admin.PUT("/tariff", deps.AdminHandler.PutTariff)
			admin.GET("/zones", deps.AdminHandler.ListZones)
			admin.PUT("/zones/:name", deps.AdminHandler.PutZone)
			admin.GET("/billing/settings", deps.AdminHandler.GetBillingSettings)
			admin.PUT("/billing/settings", deps.AdminHandler.PutBillingSettings)
			admin.POST("/billing/run", deps.AdminHandler.RunBilling)
			admin.GET("/drivers", deps.AdminHandler.ListDrivers)
			admin.PUT("/drivers/:id/verified", deps.AdminHandler.SetVerified)
			admin.PUT("/drivers/:id/suspended", deps.AdminHandler.SetSuspended)
			admin.POST("/drivers/:id/payment/confirm", deps.AdminHandler.ConfirmPayment)
		}
	}

	return router
}
