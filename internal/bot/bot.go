package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/photo-reactions-bot/internal/models"
	"github.com/photo-reactions-bot/internal/reactions"
	"github.com/photo-reactions-bot/internal/storage"
)

const (
	pollTimeoutSeconds = 60
	pollErrorBackoff   = 3 * time.Second
)

// Bot represents the Telegram bot
type Bot struct {
	api        *tgbotapi.BotAPI
	config     *models.BotConfig
	storage    *storage.Client
	reconciler *reactions.Reconciler
	logger     zerolog.Logger
}

// New creates a new bot instance
func New(
	config *models.BotConfig,
	storage *storage.Client,
	reconciler *reactions.Reconciler,
	logger zerolog.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(config.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	// Set debug mode based on log level
	api.Debug = config.LogLevel == "debug"

	logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Msg("Telegram bot authorized")

	return &Bot{
		api:        api,
		config:     config,
		storage:    storage,
		reconciler: reconciler,
		logger:     logger.With().Str("component", "bot").Logger(),
	}, nil
}

// Start runs the long-poll loop until the context is cancelled.
//
// The poll is issued through MakeRequest instead of GetUpdatesChan because
// reaction updates need allowed_updates to include "message_reaction", and
// the library's Update type has no field for that payload.
//
// Updates are applied one at a time in delivery order. Every reaction
// update carries the user's full old and new kind sets, so reordering an
// add/remove pair would leave the ledger on the wrong final state, and a
// reaction must never overtake the ingestion of its own photo.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info().Msg("Starting bot...")

	offset := 0
	for {
		if ctx.Err() != nil {
			break
		}

		updates, err := b.fetchUpdates(offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			b.logger.Error().Err(err).Msg("Failed to fetch updates")
			select {
			case <-ctx.Done():
			case <-time.After(pollErrorBackoff):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			b.handleUpdate(ctx, update)
		}
	}

	b.logger.Info().Msg("Shutting down bot...")
	return nil
}

// fetchUpdates performs one getUpdates long poll.
func (b *Bot) fetchUpdates(offset int) ([]pollUpdate, error) {
	params := make(tgbotapi.Params)
	params.AddNonZero("offset", offset)
	params.AddNonZero("timeout", pollTimeoutSeconds)
	if err := params.AddInterface("allowed_updates", []string{"message", "message_reaction"}); err != nil {
		return nil, fmt.Errorf("encode allowed_updates: %w", err)
	}

	resp, err := b.api.MakeRequest("getUpdates", params)
	if err != nil {
		return nil, fmt.Errorf("getUpdates: %w", err)
	}

	var updates []pollUpdate
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}

// GetUsername returns bot username
func (b *Bot) GetUsername() string {
	return b.api.Self.UserName
}
