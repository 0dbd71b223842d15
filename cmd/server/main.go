package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"taxirural/internal/app"
	"taxirural/internal/config"
	"taxirural/internal/handler"
	internalRedis "taxirural/internal/redis"
	"taxirural/internal/repository/postgres"
	"taxirural/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server, scheduler := wireServer(db, redisClient, nrApp, cfg)

	// Weekly billing job runs until shutdown.
	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()
	go scheduler.Start(jobCtx)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	jobCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server and
// the weekly billing scheduler.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *service.BillingScheduler) {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)
	rideFeed := internalRedis.NewRideFeed(redisClient)

	// Initialize repositories.
	driverRepo := postgres.NewDriverRepository(db)
	rideRepo := postgres.NewRideRepository(db)
	tariffRepo := postgres.NewTariffRepository(db)

	// Initialize services.
	dispatcher := service.NewFeedDispatcher(rideFeed)
	fareService := service.NewFareService(tariffRepo, cacheStore, cfg.Dispatch.AvgSpeedKmh)
	paymentService := service.NewPaymentService(rideRepo, service.CashProvider{})
	rideService := service.NewRideService(rideRepo, driverRepo, fareService, dispatcher)
	driverService := service.NewDriverService(driverRepo, rideRepo, locationStore, paymentService, dispatcher, cfg.Dispatch)
	matchingService := service.NewMatchingService(rideRepo, driverRepo, cfg.Dispatch.DefaultSearchRadiusKm)
	billingService := service.NewBillingService(driverRepo, rideRepo, tariffRepo, lockStore, cacheStore)
	scheduler := service.NewBillingScheduler(billingService, cfg.Billing)

	// Initialize handlers.
	rideHandler := handler.NewRideHandler(rideService, rideFeed)
	driverHandler := handler.NewDriverHandler(driverService, matchingService)
	fareHandler := handler.NewFareHandler(fareService)
	adminHandler := handler.NewAdminHandler(fareService, billingService, driverService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		RideHandler:   rideHandler,
		DriverHandler: driverHandler,
		FareHandler:   fareHandler,
		AdminHandler:  adminHandler,
		RedisClient:   redisClient,
		NewRelicApp:   nrApp,
	})

	// Create HTTP server.
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return server, scheduler
}
