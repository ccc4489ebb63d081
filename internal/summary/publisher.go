package summary

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/photo-reactions-bot/internal/models"
	"github.com/photo-reactions-bot/internal/storage"
)

// Messenger is the outbound chat surface the publisher needs. The bot's
// sender satisfies it; tests substitute a fake.
type Messenger interface {
	SendMessage(chatID int64, text string) (int64, error)
	EditMessage(chatID, messageID int64, text string) error
	PinMessage(chatID, messageID int64) error
	DeleteMessage(chatID, messageID int64) error
}

// Publisher keeps the pinned summary message of each chat in sync with the
// ledger. Edits are skipped when the rendered text is unchanged so the chat
// does not see no-op edit flashes.
type Publisher struct {
	storage   *storage.Client
	generator *Generator
	messenger Messenger
	config    *models.BotConfig
	logger    zerolog.Logger
}

// NewPublisher creates a summary publisher.
func NewPublisher(store *storage.Client, generator *Generator, messenger Messenger, config *models.BotConfig, logger zerolog.Logger) *Publisher {
	return &Publisher{
		storage:   store,
		generator: generator,
		messenger: messenger,
		config:    config,
		logger:    logger.With().Str("component", "publisher").Logger(),
	}
}

// Create posts a fresh summary message to the chat, pins it, and records it
// as the active summary. Any previously active summary is retired first:
// its chat message is deleted best-effort and its record deactivated.
func (p *Publisher) Create(ctx context.Context, chatID int64) (*models.TopMessage, error) {
	existing, err := p.storage.GetActiveTopMessage(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load active summary: %w", err)
	}
	if existing != nil {
		if err := p.messenger.DeleteMessage(chatID, existing.MessageID); err != nil {
			p.logger.Warn().Err(err).
				Int64("chat_id", chatID).
				Int64("message_id", existing.MessageID).
				Msg("Failed to delete previous summary message")
		}
		if err := p.storage.DeactivateTopMessage(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("deactivate summary %d: %w", existing.ID, err)
		}
	}

	content, err := p.generator.RenderMonthToDate(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("render summary: %w", err)
	}

	messageID, err := p.messenger.SendMessage(chatID, content)
	if err != nil {
		return nil, fmt.Errorf("send summary: %w", err)
	}

	if err := p.messenger.PinMessage(chatID, messageID); err != nil {
		p.logger.Warn().Err(err).
			Int64("chat_id", chatID).
			Int64("message_id", messageID).
			Msg("Failed to pin summary message")
	}

	now := time.Now().UTC()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	record := &models.TopMessage{
		ChatID:             chatID,
		MessageID:          messageID,
		IsActive:           true,
		LastMessageContent: content,
		PeriodStart:        periodStart,
		PeriodEnd:          periodStart.AddDate(0, 1, 0),
	}
	if err := p.storage.InsertTopMessage(ctx, record); err != nil {
		return nil, fmt.Errorf("save summary record: %w", err)
	}

	p.logger.Info().
		Int64("chat_id", chatID).
		Int64("message_id", messageID).
		Msg("Summary message created")

	return record, nil
}

// Update re-renders the active summary and edits the chat message when the
// content changed. A chat with no active summary is skipped. Edit failures
// are logged, and the stored content is left untouched so the next cycle
// retries the same edit.
func (p *Publisher) Update(ctx context.Context, chatID int64) error {
	active, err := p.storage.GetActiveTopMessage(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load active summary: %w", err)
	}
	if active == nil {
		p.logger.Warn().Int64("chat_id", chatID).Msg("No active summary message to update")
		return nil
	}

	content, err := p.generator.RenderMonthToDate(ctx, chatID)
	if err != nil {
		return fmt.Errorf("render summary: %w", err)
	}

	if content == active.LastMessageContent {
		p.logger.Debug().Int64("chat_id", chatID).Msg("Summary unchanged, skipping edit")
		return nil
	}

	if err := p.messenger.EditMessage(chatID, active.MessageID, content); err != nil {
		p.logger.Error().Err(err).
			Int64("chat_id", chatID).
			Int64("message_id", active.MessageID).
			Msg("Failed to edit summary message")
		return nil
	}

	if err := p.storage.UpdateTopMessageContent(ctx, active.ID, content); err != nil {
		return fmt.Errorf("save summary content: %w", err)
	}

	p.logger.Debug().
		Int64("chat_id", chatID).
		Int64("message_id", active.MessageID).
		Msg("Summary message updated")

	return nil
}

// UpdateAll refreshes the summary of every allowed chat concurrently. A
// failing chat does not block the others.
func (p *Publisher) UpdateAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, chatID := range p.config.AllowedChatIDs {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			if err := p.Update(ctx, chatID); err != nil {
				p.logger.Error().Err(err).
					Int64("chat_id", chatID).
					Msg("Summary update failed")
			}
		}(chatID)
	}
	wg.Wait()
}
