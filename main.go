package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/slotwise/dialog-orchestrator/internal/auditlog"
	"github.com/slotwise/dialog-orchestrator/internal/client"
	"github.com/slotwise/dialog-orchestrator/internal/config"
	"github.com/slotwise/dialog-orchestrator/internal/decision"
	"github.com/slotwise/dialog-orchestrator/internal/handlers"
	"github.com/slotwise/dialog-orchestrator/internal/middleware"
	"github.com/slotwise/dialog-orchestrator/internal/orchestrator"
	"github.com/slotwise/dialog-orchestrator/internal/registry"
	"github.com/slotwise/dialog-orchestrator/internal/sessionstore"
	"github.com/slotwise/dialog-orchestrator/pkg/events"
	"github.com/slotwise/dialog-orchestrator/pkg/jwt"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
	"github.com/slotwise/dialog-orchestrator/pkg/scheduler"
	"github.com/slotwise/dialog-orchestrator/pkg/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.LogLevel)

	// Intent registry: loaded once, immutable after warmup
	reg, err := registry.Load(cfg.Registry.Dir)
	if err != nil {
		logger.Fatal("Failed to load intent registry", "dir", cfg.Registry.Dir, "error", err)
	}

	// Audit database (optional for development)
	var db *gorm.DB
	db, err = auditlog.Connect(cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.Name, cfg.Database.SSLMode)
	if err != nil {
		if cfg.Environment == "development" {
			logger.Warn("Failed to connect to audit database, continuing without audit log", "error", err)
			db = nil
		} else {
			logger.Fatal("Failed to connect to audit database", "error", err)
		}
	} else if err := auditlog.Migrate(db); err != nil {
		logger.Fatal("Failed to run audit database migrations", "error", err)
	}

	// Session store
	var redisClient *redis.Client
	redisClient, err = sessionstore.Connect(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", "error", err)
	}
	store := sessionstore.New(redisClient, cfg.Session.KeyPrefix, logger)

	// NATS (optional for development)
	var natsConn *nats.Conn
	var eventPublisher *events.Publisher

	natsConn, err = events.Connect(cfg.NATS.URL)
	if err != nil {
		if cfg.Environment == "development" {
			logger.Warn("Failed to connect to NATS, continuing without NATS", "error", err)
			natsConn = nil
			eventPublisher = events.NewNullPublisher(logger)
		} else {
			logger.Fatal("Failed to connect to NATS", "error", err)
		}
	} else {
		defer natsConn.Close()
		eventPublisher = events.NewPublisher(natsConn, logger)
	}

	// Tenant alias cache, refreshed by alias-update events
	tenantRegistry := tenant.NewRegistry(logger)
	if natsConn != nil {
		subscriber := events.NewSubscriber(natsConn, logger)
		if err := subscriber.Subscribe(events.TenantAliasesUpdatedEvent, tenantRegistry.HandleAliasesUpdated); err != nil {
			logger.Fatal("Failed to subscribe to tenant alias updates", "error", err)
		}
	} else {
		logger.Warn("Skipping tenant alias subscription (no NATS connection)")
	}

	// External collaborators
	nluClient := client.NewNLUClient(cfg.NLU.BaseURL, cfg.NLU.Timeout, logger)
	executionClient := client.NewExecutionClient(cfg.Execution.BaseURL, cfg.Execution.Timeout, logger)

	var auditRepo *auditlog.Repository
	if db != nil {
		auditRepo = auditlog.NewRepository(db, logger)
	}

	opts := orchestrator.Options{
		Publisher: eventPublisher,
		Policy: decision.Policy{
			AllowTimeWindows:        cfg.Policy.AllowTimeWindows,
			AllowConstraintOnlyTime: cfg.Policy.AllowConstraintOnlyTime,
		},
	}
	if auditRepo != nil {
		opts.AuditLog = auditRepo
	}
	orch := orchestrator.New(nluClient, executionClient, store, reg, tenantRegistry,
		cfg.Session.TTL, logger, opts)

	// Background audit retention sweep
	if auditRepo != nil {
		cronScheduler := scheduler.New(auditRepo, cfg.Session.SweepEvery, 30*24*time.Hour, logger)
		cronScheduler.Start()
		defer cronScheduler.Stop()
	}

	// Handlers
	turnHandler := handlers.NewTurnHandler(orch, logger)
	healthHandler := handlers.NewHealthHandler(db, redisClient, natsConn, logger)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging(logger))
	router.Use(middleware.CORS())

	// Health check routes
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/health/live", healthHandler.Live)

	// API routes
	v1 := router.Group("/api/v1")
	if cfg.Auth.Enabled {
		if cfg.Auth.Secret == "" {
			logger.Fatal("auth.enabled requires a JWT secret")
		}
		jwtManager := jwt.NewManager(jwt.Config{Secret: cfg.Auth.Secret, Issuer: cfg.Auth.Issuer})
		authMiddleware := middleware.NewAuthMiddleware(jwtManager, logger)
		v1.Use(authMiddleware.RequireAuth())
	} else {
		logger.Warn("Turn endpoint running without bearer-token verification")
	}
	{
		v1.POST("/turns", turnHandler.HandleTurn)
		if auditRepo != nil {
			auditHandler := handlers.NewAuditHandler(auditRepo, logger)
			v1.GET("/audit/:userId/turns", auditHandler.ListTurns)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting dialog orchestrator", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	logger.Info("Server exited")
}
