package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Outbound messaging. These methods satisfy the summary publisher's
// Messenger and the stats announcer's Broadcaster.

// SendMessage sends an HTML message and returns its message ID.
func (b *Bot) SendMessage(chatID int64, text string) (int64, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return int64(sent.MessageID), nil
}

// EditMessage replaces the text of an existing message.
func (b *Bot) EditMessage(chatID, messageID int64, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, int(messageID), text)
	edit.ParseMode = tgbotapi.ModeHTML

	if _, err := b.api.Send(edit); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// PinMessage pins a message without notifying the chat.
func (b *Bot) PinMessage(chatID, messageID int64) error {
	pin := tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           int(messageID),
		DisableNotification: true,
	}

	if _, err := b.api.Request(pin); err != nil {
		return fmt.Errorf("failed to pin message: %w", err)
	}
	return nil
}

// DeleteMessage removes a message from the chat.
func (b *Bot) DeleteMessage(chatID, messageID int64) error {
	del := tgbotapi.NewDeleteMessage(chatID, int(messageID))

	if _, err := b.api.Request(del); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// SendPhoto sends a single photo by file ID with an HTML caption.
func (b *Bot) SendPhoto(chatID int64, fileID, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML

	if _, err := b.api.Send(photo); err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}
	return nil
}

// SendMediaGroup sends an album by file IDs. The caption rides on the first
// photo, which is how Telegram displays an album caption.
func (b *Bot) SendMediaGroup(chatID int64, fileIDs []string, caption string) error {
	media := make([]interface{}, 0, len(fileIDs))
	for i, fileID := range fileIDs {
		item := tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(fileID))
		if i == 0 {
			item.Caption = caption
			item.ParseMode = tgbotapi.ModeHTML
		}
		media = append(media, item)
	}

	group := tgbotapi.NewMediaGroup(chatID, media)
	if _, err := b.api.SendMediaGroup(group); err != nil {
		return fmt.Errorf("failed to send media group: %w", err)
	}
	return nil
}
