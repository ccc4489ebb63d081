package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/photo-reactions-bot/internal/models"
)

// handleUpdate processes incoming update
func (b *Bot) handleUpdate(ctx context.Context, update pollUpdate) {
	// Wrap in recover middleware
	b.recoverMiddleware(func() {
		switch {
		case update.Message != nil:
			b.handleMessage(ctx, update.Message)
		case update.MessageReaction != nil:
			b.handleReaction(ctx, update.MessageReaction)
		}
	})
}

// handleMessage ingests photo messages from tracked chats. Everything else
// is ignored.
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}

	if !b.config.IsAllowedChat(message.Chat.ID) {
		b.logger.Warn().
			Int64("chat_id", message.Chat.ID).
			Msg("Ignoring message from unauthorized chat")
		return
	}

	if len(message.Photo) == 0 {
		return
	}

	if err := b.ingestPhoto(ctx, message); err != nil {
		b.logger.Error().
			Err(err).
			Int64("chat_id", message.Chat.ID).
			Int("message_id", message.MessageID).
			Msg("Failed to save photo")
	}
}

// ingestPhoto records the photo message in the ledger: sender upsert, album
// resolution when the message is part of a media group, then the photo row.
func (b *Bot) ingestPhoto(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.storage.UpsertUser(ctx,
		message.From.ID,
		message.Chat.ID,
		message.From.UserName,
		message.From.FirstName,
		message.From.LastName,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	// The API lists every available resolution; the last entry is the
	// largest.
	size := message.Photo[len(message.Photo)-1]

	photo := &models.Photo{
		FileID:       size.FileID,
		FileUniqueID: size.FileUniqueID,
		ChatID:       message.Chat.ID,
		MessageID:    int64(message.MessageID),
		UserID:       user.ID,
		Caption:      message.Caption,
		Width:        size.Width,
		Height:       size.Height,
		FileSize:     int64(size.FileSize),
	}

	if message.MediaGroupID != "" {
		group, err := b.storage.GetOrCreateMediaGroup(ctx, message.MediaGroupID, message.Chat.ID)
		if err != nil {
			return fmt.Errorf("resolve media group: %w", err)
		}
		photo.MediaGroupID = &group.ID
	}

	if err := b.storage.SavePhoto(ctx, photo); err != nil {
		return fmt.Errorf("save photo: %w", err)
	}

	b.logger.Info().
		Int64("chat_id", message.Chat.ID).
		Int("message_id", message.MessageID).
		Str("username", user.Username).
		Bool("album", photo.MediaGroupID != nil).
		Msg("Photo saved")

	return nil
}

// handleReaction forwards a reaction change to the reconciler. Anonymous
// reactions carry no user and are skipped.
func (b *Bot) handleReaction(ctx context.Context, reaction *messageReactionUpdate) {
	if reaction.User == nil {
		b.logger.Debug().
			Int64("chat_id", reaction.Chat.ID).
			Int("message_id", reaction.MessageID).
			Msg("Ignoring anonymous reaction")
		return
	}

	if !b.config.IsAllowedChat(reaction.Chat.ID) {
		b.logger.Warn().
			Int64("chat_id", reaction.Chat.ID).
			Msg("Ignoring reaction from unauthorized chat")
		return
	}

	event := &models.ReactionEvent{
		ChatID:    reaction.Chat.ID,
		MessageID: int64(reaction.MessageID),
		User: models.ReactingUser{
			ID:        reaction.User.ID,
			Username:  reaction.User.UserName,
			FirstName: reaction.User.FirstName,
			LastName:  reaction.User.LastName,
		},
		OldKinds: reactionKinds(reaction.OldReaction),
		NewKinds: reactionKinds(reaction.NewReaction),
	}

	if err := b.reconciler.HandleReactionEvent(ctx, event); err != nil {
		b.logger.Error().
			Err(err).
			Int64("chat_id", reaction.Chat.ID).
			Int("message_id", reaction.MessageID).
			Msg("Failed to handle reaction update")
	}
}
