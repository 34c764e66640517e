package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/audit"
	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/auth"
	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/config"
	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/farm"
	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/ledger"
	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/storage"
	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/sweeper"
	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	log := logrus.StandardLogger()

	// Database connection
	driver, dsn := cfg.DatabaseDSN()
	db, err := storage.Open(driver, dsn)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := storage.Migrate(db); err != nil {
		log.WithError(err).Fatal("Failed to run database migrations")
	}

	// Redis connection, used for the farm leaderboard cache
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	var cache *farm.LeaderboardCache
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).Warn("Failed to connect to Redis, leaderboard cache disabled")
	} else {
		cache = farm.NewLeaderboardCache(rdb, cfg.LeaderboardTTL, log)
	}
	pingCancel()

	// WebSocket hub for farm and position updates
	wsServer := ws.NewServer(log, cfg.AllowedOrigins)
	wsServer.Start()

	// Wire up services
	auditService := audit.NewService(audit.NewAuditRepository(db), log)
	ledgerService := ledger.NewService(ledger.NewTokenRepository(db), ledger.NewBalanceRepository(db), log)
	farmService := farm.NewService(
		farm.NewFarmRepository(db),
		farm.NewPositionRepository(db),
		ledgerService,
		auditService,
		cache,
		ws.NewNotifier(wsServer.Hub),
		log,
	)

	if cfg.SeedDevLedger {
		if err := ledgerService.SeedDev(cfg.DevAccounts); err != nil {
			log.WithError(err).Warn("Failed to seed dev ledger")
		} else {
			log.WithField("accounts", len(cfg.DevAccounts)).Info("Seeded dev ledger")
		}
	}

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Security middleware
	router.Use(auth.SecurityHeaders())
	router.Use(auth.SecureCORS(cfg.AllowedOrigins))

	// Initialize auth middleware
	authMiddleware := auth.NewMiddleware(log)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
			"service":   "dogepump-farm-api",
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		ledgerHandler := ledger.NewHandler(ledgerService, authMiddleware.RequireAuth())
		ledgerHandler.RegisterRoutes(v1)

		farmHandler := farm.NewHandler(farmService, auditService, authMiddleware.RequireAuth())
		farmHandler.RegisterRoutes(v1)
	}

	// WebSocket routes
	wsHandler := ws.NewHandler(wsServer)
	wsHandler.RegisterRoutes(router)

	// Background sweeps: reward accrual and farm statistics
	sweepManager := sweeper.NewManager(farmService, cfg.RewardSweepInterval, cfg.StatsSweepInterval, log)
	sweepManager.Start()

	// Prometheus metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}
	go func() {
		log.WithField("port", cfg.MetricsPort).Info("Starting metrics server")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.WithField("port", cfg.Port).Info("Starting Dogepump farm API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	if err := metricsSrv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Metrics server forced to shutdown")
	}

	// Stop background work before closing connections
	sweepManager.Stop()
	wsServer.Stop()

	// Close database connection
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	// Close Redis connection
	rdb.Close()

	log.Info("Server exited")
}
