package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fedehr/fedehr/internal/config"
	"github.com/fedehr/fedehr/internal/gateway"
	"github.com/fedehr/fedehr/internal/platform/auth"
	"github.com/fedehr/fedehr/internal/platform/db"
	"github.com/fedehr/fedehr/internal/platform/docstore"
	"github.com/fedehr/fedehr/internal/platform/middleware"
	"github.com/fedehr/fedehr/internal/record"
	"github.com/fedehr/fedehr/internal/rpc"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ehr-gateway",
		Short: "Patient records HTTP gateway",
	}

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()

	// Backend: either dial a remote records service, or host the patient
	// service in-process against the local document store.
	var api rpc.PatientAPI
	if cfg.RecordsAddr != "" {
		client, err := rpc.NewClient(cfg.RecordsAddr)
		if err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.RecordsAddr).Msg("failed to connect to records service")
		}
		defer client.Close()
		logger.Info().Str("addr", cfg.RecordsAddr).Msg("using remote records service")
		api = client
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")

		docs := docstore.New(pool)
		if err := docs.Bootstrap(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to bootstrap document store")
		}

		store := record.NewStore(docs, cfg.SourceHospital)
		api = rpc.NewPatientService(store, logger)

		e := newEcho(cfg, logger)
		e.GET("/health/db", db.HealthHandler(pool))
		return serve(e, cfg, logger, api)
	}

	return serve(newEcho(cfg, logger), cfg, logger, api)
}

func newEcho(cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	backend := cfg.RecordsAddr
	if backend == "" {
		backend = "in-process"
	}
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "ehr-gateway",
			"version": "0.1.0",
			"records": backend,
		})
	})

	return e
}

func serve(e *echo.Echo, cfg *config.Config, logger zerolog.Logger, api rpc.PatientAPI) error {
	authed := e.Group("")
	if cfg.IsDev() && cfg.JWTSecret == "" {
		authed.Use(auth.DevAuthMiddleware())
	} else {
		authed.Use(auth.JWTMiddleware(auth.JWTConfig{SigningKey: cfg.EffectiveJWTSecret()}))
	}
	gateway.NewHandler(api).RegisterRoutes(authed)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting gateway")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gateway")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("gateway stopped")
	return nil
}
