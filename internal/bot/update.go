package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// pollUpdate mirrors the getUpdates payload for the update types the bot
// subscribes to. Message reuses the library's type; the reaction payload is
// decoded locally.
type pollUpdate struct {
	UpdateID        int                    `json:"update_id"`
	Message         *tgbotapi.Message      `json:"message"`
	MessageReaction *messageReactionUpdate `json:"message_reaction"`
}

// messageReactionUpdate is the Bot API message_reaction update: one user's
// full old and new reaction sets on one message.
type messageReactionUpdate struct {
	Chat        tgbotapi.Chat  `json:"chat"`
	MessageID   int            `json:"message_id"`
	User        *tgbotapi.User `json:"user"`
	ActorChat   *tgbotapi.Chat `json:"actor_chat"`
	Date        int64          `json:"date"`
	OldReaction []reactionType `json:"old_reaction"`
	NewReaction []reactionType `json:"new_reaction"`
}

type reactionType struct {
	Type          string `json:"type"`
	Emoji         string `json:"emoji,omitempty"`
	CustomEmojiID string `json:"custom_emoji_id,omitempty"`
}

// kind flattens a reaction into the string stored in the ledger.
func (r reactionType) kind() string {
	switch r.Type {
	case "emoji":
		return r.Emoji
	case "custom_emoji":
		return r.CustomEmojiID
	default:
		return "unknown"
	}
}

func reactionKinds(list []reactionType) []string {
	kinds := make([]string, 0, len(list))
	for _, r := range list {
		kinds = append(kinds, r.kind())
	}
	return kinds
}
