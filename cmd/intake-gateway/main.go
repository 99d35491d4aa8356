package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/jantavoice/intake/internal/command"
	"github.com/jantavoice/intake/internal/config"
	"github.com/jantavoice/intake/internal/gazetteer"
	"github.com/jantavoice/intake/internal/geocode"
	"github.com/jantavoice/intake/internal/server"
	"github.com/jantavoice/intake/internal/storage"
	memstore "github.com/jantavoice/intake/internal/storage/memory"
	sqlitestore "github.com/jantavoice/intake/internal/storage/sqlite"
	"github.com/jantavoice/intake/internal/submit"
	"github.com/jantavoice/intake/internal/telemetry"
)

var logLevelMap = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	configPath := cli.StringP("config", "c", "config.yaml", "Config file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	_ = godotenv.Load(*envFile)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevelMap[*logLevel],
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("intake-gateway", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	gaz := loadGazetteer(cfg, logger)

	submitter := submit.NewClient(cfg.Submit.BaseURL, nil)

	sessions := server.NewSessionHandler(server.SessionDeps{
		Geocoder:       geocode.NewClient(cfg.Geocode.BaseURL, nil),
		Gazetteer:      gaz,
		Submitter:      submitter,
		Store:          store,
		Interpreter:    command.DefaultWithThreshold(cfg.Dialogue.FuzzyThreshold),
		NavigateDelay:  time.Duration(cfg.Dialogue.NavigateDelaySeconds) * time.Second,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})
	intakes := server.NewIntakeHandlers(store, logger)

	srv := server.New(cfg.Server.Port, logger, sessions, intakes)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	case <-sigChan:
	}

	logger.Info("Shutdown signal received, stopping gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Gateway shutdown complete")
}

func openStore(cfg *config.Config) (storage.TranscriptStore, error) {
	if cfg.Storage.Driver == "sqlite" {
		return sqlitestore.New(cfg.Storage.Path)
	}
	return memstore.New(), nil
}

// loadGazetteer fetches the states/cities directory once at startup.
// Location extraction degrades to the empty gazetteer when the API is
// unconfigured or unreachable; everything else keeps working.
func loadGazetteer(cfg *config.Config, logger *slog.Logger) *gazetteer.Gazetteer {
	if cfg.Gazetteer.BaseURL == "" {
		logger.Info("gazetteer disabled, no base URL configured")
		return gazetteer.Empty()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := gazetteer.NewClient(cfg.Gazetteer.BaseURL, &http.Client{Timeout: 10 * time.Second})
	gaz, err := client.Load(ctx)
	if err != nil {
		logger.Warn("gazetteer load failed, location extraction disabled",
			slog.String("error", err.Error()))
		return gazetteer.Empty()
	}
	return gaz
}
