package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/photo-reactions-bot/internal/api"
	"github.com/photo-reactions-bot/internal/bot"
	"github.com/photo-reactions-bot/internal/config"
	"github.com/photo-reactions-bot/internal/reactions"
	"github.com/photo-reactions-bot/internal/scheduler"
	"github.com/photo-reactions-bot/internal/stats"
	"github.com/photo-reactions-bot/internal/storage"
	"github.com/photo-reactions-bot/internal/summary"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.Environment)
	logger.Info().
		Str("environment", cfg.Environment).
		Int("timezone_offset_hours", cfg.TimezoneOffsetHours).
		Int("chat_count", len(cfg.AllowedChatIDs)).
		Msg("Starting photo reactions bot")

	// Create context that listens for termination signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the ledger database
	logger.Info().Str("path", cfg.DatabasePath).Msg("Opening database...")
	storageClient, err := storage.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := storageClient.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database")
		}
	}()

	if err := storageClient.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}
	logger.Info().Msg("Database ready")

	// Initialize reaction reconciler
	reconciler := reactions.NewReconciler(storageClient, logger)

	// Initialize bot
	logger.Info().Msg("Initializing Telegram bot...")
	telegramBot, err := bot.New(cfg, storageClient, reconciler, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create bot")
	}

	logger.Info().
		Str("username", telegramBot.GetUsername()).
		Interface("allowed_chat_ids", cfg.AllowedChatIDs).
		Msg("Bot initialized successfully")

	// Summary rendering and publishing
	generator := summary.NewGenerator(storageClient, cfg, logger)
	publisher := summary.NewPublisher(storageClient, generator, telegramBot, cfg, logger)

	// Monthly close-out service
	statsService := stats.NewService(storageClient, cfg, telegramBot, logger)

	// Start scheduler in background
	sched := scheduler.NewScheduler(statsService, publisher, cfg, logger)
	go func() {
		if err := sched.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Scheduler stopped with error")
		}
	}()

	// Start HTTP server in background
	apiServer := api.NewServer(storageClient, cfg, statsService, generator, publisher, logger)
	apiErrChan := make(chan error, 1)
	go func() {
		if err := apiServer.Start(ctx); err != nil {
			apiErrChan <- err
		}
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start bot in a goroutine
	botErrChan := make(chan error, 1)
	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		if err := telegramBot.Start(ctx); err != nil {
			botErrChan <- err
		}
	}()

	logger.Info().Msg("Bot is running. Press Ctrl+C to stop.")

	// Wait for termination signal or component error
	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Received termination signal")
	case err := <-botErrChan:
		logger.Error().Err(err).Msg("Bot stopped with error")
	case err := <-apiErrChan:
		logger.Error().Err(err).Msg("HTTP server stopped with error")
	}

	// Graceful shutdown
	logger.Info().Msg("Initiating graceful shutdown...")
	cancel()

	// Give the bot some time to finish processing
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn().Msg("Shutdown timeout exceeded, some updates may be lost")
	case <-botDone:
		logger.Info().Msg("Graceful shutdown completed")
	}

	logger.Info().Msg("Bot stopped")
}

// setupLogger configures and returns a zerolog logger
func setupLogger(level, environment string) zerolog.Logger {
	// Parse log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// Configure output format
	var logger zerolog.Logger
	if environment == "development" {
		// Pretty console output for development
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Caller().Logger()
	} else {
		// JSON output for production
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	return logger
}
