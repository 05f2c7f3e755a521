package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainapsis/oko-sub000/internal/api"
	"github.com/chainapsis/oko-sub000/internal/api/router"
	"github.com/chainapsis/oko-sub000/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Starts the HTTP server",
		Long: `Starts the TSS session HTTP server.
Requires configuration through ENV.`,
		Run: func(_ *cobra.Command, _ []string) {
			runServer()
		},
	}
}

func runServer() {
	cfg := config.DefaultServiceConfigFromEnv()

	configureLogging(cfg.Logger)

	s, err := api.InitNewServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	router.Init(s)

	go func() {
		if err := s.Start(); err != nil {
			log.Error().Err(err).Msg("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if errs := s.Shutdown(ctx); len(errs) > 0 {
		log.Fatal().Errs("errs", errs).Msg("Failed to gracefully shut down server")
	}
}

func configureLogging(cfg config.Logger) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Level).Msg("Unknown log level, falling back to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.PrettyPrintConsole {
		log.Logger = log.Output(zerolog.NewConsoleWriter())
	}
}
