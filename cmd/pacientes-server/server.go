package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/pacientes/internal/config"
	"github.com/ehr/pacientes/internal/domain/patient"
	"github.com/ehr/pacientes/internal/platform/auth"
	"github.com/ehr/pacientes/internal/platform/db"
	"github.com/ehr/pacientes/internal/platform/logging"
	"github.com/ehr/pacientes/internal/platform/middleware"
	"github.com/ehr/pacientes/internal/platform/openapi"
	"github.com/ehr/pacientes/internal/platform/telemetry"
)

const (
	serviceName     = "pacientes"
	shutdownTimeout = 10 * time.Second
)

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		bootLogger().Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	logFormat := cfg.LogFormat
	if cfg.IsDev() && os.Getenv("LOG_FORMAT") == "" {
		logFormat = "console"
	}
	logger := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Format:  logFormat,
		File:    cfg.LogFile,
		Service: serviceName,
		Version: version,
	})

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		logger.Warn().Msg("development auth is active: every request is treated as an admin; do not use this configuration in production")
	}

	ctx := context.Background()

	// Telemetry
	metrics := telemetry.NewMetrics(serviceName)
	tp, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		Enabled:        cfg.TracingEnabled,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		SampleRate:     cfg.TracingSampleRate,
		ServiceName:    serviceName,
		ServiceVersion: version,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise tracing")
	}

	// Database
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:            cfg.DatabaseURL,
		MaxConns:       cfg.DBMaxConns,
		MinConns:       cfg.DBMinConns,
		ConnectTimeout: 10 * time.Second,
		Tracer:         db.NewQueryTracer(metrics.ObserveQuery),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.WatchPool(serviceName, pool)
	logger.Info().Int32("max_conns", cfg.DBMaxConns).Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(telemetry.Tracing(tp))
	if cfg.MetricsEnabled {
		e.Use(metrics.Middleware())
	}
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}))

	// Auth middleware
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	// Audit middleware
	e.Use(middleware.Audit(logger, "/pacientes"))

	// Patient domain
	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patient.NewGateway(patientRepo), logger)
	patientSvc.SetRecorder(metrics)
	patient.NewHandler(patientSvc).RegisterRoutes(e.Group(""))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	openapi.NewGenerator(version, fmt.Sprintf("http://localhost:%s", cfg.Port)).RegisterRoutes(e.Group(""))
	if cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("auth_mode", cfg.ResolvedAuthMode()).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("tracer shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// bootLogger is used before the configured logger exists.
func bootLogger() *zerolog.Logger {
	l := zerolog.New(os.Stderr).With().Timestamp().Str("service", serviceName).Logger()
	return &l
}
