// file: app/app.go
package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"staff-identity-api/config"
	"staff-identity-api/db"
	"staff-identity-api/event"
	"staff-identity-api/handler"
	"staff-identity-api/logger"
	"staff-identity-api/repository"
	"staff-identity-api/router"
	"staff-identity-api/service"
	"staff-identity-api/uow"
)

func Run() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.Info("Logger initialized")
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations("file://db/migrations"); err != nil {
		logger.Log.Fatalf("Error running migrations: %v", err)
	}

	redisClient, err := db.ConnectRedis()
	if err != nil {
		logger.Log.Fatalf("Error connecting to redis: %v", err)
	}
	defer redisClient.Close()

	// --- Wiring All Layers Together ---

	uowManager := uow.NewManager(database)
	bus := event.NewBus()

	staffRepo := repository.NewStaffRepository(database)
	tokenRepo := repository.NewTokenRepository(database)
	auditRepo := repository.NewAuditRepository(database)

	authService := service.NewAuthService(uowManager, staffRepo, tokenRepo, bus)
	revocationService := service.NewRevocationService(uowManager, tokenRepo)
	tokenService := service.NewTokenService(uowManager, tokenRepo, staffRepo, revocationService, bus)
	staffService := service.NewStaffService(uowManager, staffRepo, authService, bus, redisClient)
	auditService := service.NewAuditService(auditRepo)

	// Security events fan out to revocation first so sessions are gone
	// before the audit row is written.
	bus.Subscribe(revocationService)
	bus.Subscribe(auditService)

	authHandler := handler.NewAuthHandler(authService, tokenService)
	staffHandler := handler.NewStaffHandler(staffService)

	r := router.NewRouter(authHandler, staffHandler)

	// --- Start the Server with Graceful Shutdown ---
	port := config.AppConfig.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}
