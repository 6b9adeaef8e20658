package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fedehr/fedehr/internal/config"
	"github.com/fedehr/fedehr/internal/platform/db"
	"github.com/fedehr/fedehr/internal/platform/docstore"
	"github.com/fedehr/fedehr/internal/record"
	"github.com/fedehr/fedehr/internal/rpc"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ehr-records",
		Short: "Patient records RPC service",
	}

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the records RPC server",
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
	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	ctx := context.Background()
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
	service := rpc.NewPatientService(store, logger)
	server := rpc.NewGRPCServer(service, logger)

	addr := ":" + cfg.RPCPort
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", addr).Msg("failed to listen")
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("starting records server")
		if err := server.Serve(lis); err != nil {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down records server")
	server.GracefulStop()
	logger.Info().Msg("records server stopped")
	return nil
}
