package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"slotwise/config"
	"slotwise/database"
	accountsRepo "slotwise/database/repository/accounts"
	rulesRepo "slotwise/database/repository/rules"
	"slotwise/handlers"
	"slotwise/middleware"
	"slotwise/models"
	"slotwise/routes"
	"slotwise/services/availability"
	"slotwise/services/calendar"
	"slotwise/utils"
	"slotwise/workers"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitSessionCache()
	utils.InitLimitCache()

	// repositories.
	ruleRepo := rulesRepo.NewMongoRuleRepo()
	accountRepo := accountsRepo.NewMongoAccountRepo()

	// busy-period source; refreshed tokens are persisted as they appear.
	busySource := calendar.NewGoogleBusySource(
		config.AppConfig.GoogleClientID,
		config.AppConfig.GoogleClientSecret,
	)
	busySource.OnTokenRefresh = func(ctx context.Context, accountID string, token *oauth2.Token) {
		refreshed := models.OAuthToken{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			Expiry:       token.Expiry,
		}
		if err := accountRepo.UpdateToken(ctx, accountID, refreshed); err != nil {
			logger.Sugar().Warnf("main: failed to persist refreshed token for account %s: %v", accountID, err)
		}
	}

	// core engine and validator share the system zone database and real clock.
	clock := availability.NewClock(nil)
	engine := availability.NewEngine(busySource, clock)
	validator := availability.NewValidator(busySource, clock)

	// background token refresh worker.
	taskClient := workers.NewTaskClient()
	workers.InitTokenRefreshWorker(accountRepo, busySource.OAuth)

	availabilityHandler := handlers.NewAvailabilityHandler(engine, ruleRepo, accountRepo)
	bookingHandler := handlers.NewBookingHandler(
		engine, validator, ruleRepo, accountRepo,
		utils.GetSessionCacheClient(), taskClient, logger,
	)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	limiterStore := middleware.NewRedisLimiterStore(
		utils.GetLimitCacheClient(),
		config.AppConfig.MaxRequestsPerMin,
	)
	handlerBundle := &routes.HandlerBundle{
		Availability: availabilityHandler,
		Booking:      bookingHandler,
		LimiterStore: limiterStore,
	}
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
