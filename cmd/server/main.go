package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Darshan-360/service-checkout/internal/bootstrap"
	"github.com/Darshan-360/service-checkout/internal/config"
	"github.com/Darshan-360/service-checkout/internal/handler"
	"github.com/Darshan-360/service-checkout/internal/platform/logger"
	"github.com/Darshan-360/service-checkout/internal/platform/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, "service-checkout")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service-checkout",
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
		zap.String("gateway", cfg.Gateway.Driver),
	)

	// Wire store, gateway, events and services
	app, err := bootstrap.Build(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to build checkout service", zap.Error(err))
	}
	defer app.Close()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := handler.NewHealthHandler("service-checkout", app.HealthChecks)
	healthHandler.RegisterRoutes(router)

	// Register checkout routes, rate limited when redis is available
	var guards []gin.HandlerFunc
	if app.Redis != nil {
		guards = append(guards, middleware.RateLimit(app.Redis, cfg.RedisConfig.RateLimitPerMinute, time.Minute, zapLogger))
	}
	app.CheckoutHandler.RegisterRoutes(router, guards...)

	// Booking history reads use the admin store handle and carry no auth, so they are opt-in
	if cfg.EnableReadAPI {
		zapLogger.Warn("unauthenticated read API enabled")
		app.BookingHandler.RegisterRoutes(router.Group("/api/v1"))
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down service-checkout...")

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("service-checkout stopped")
}
