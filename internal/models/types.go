package models

import (
	"fmt"
	"time"
)

// User represents a contributor scoped to a single chat: the same Telegram
// account participating in two tracked chats is two separate rows.
type User struct {
	ID             int64     `json:"id"`
	TelegramUserID int64     `json:"telegram_user_id"`
	ChatID         int64     `json:"chat_id"`
	Username       string    `json:"username,omitempty"`
	FirstName      string    `json:"first_name,omitempty"`
	LastName       string    `json:"last_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActiveAt   time.Time `json:"last_active_at"`
}

// DisplayName returns the preferred public name for the user.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "Пользователь"
}

// MediaGroup represents an album: a batch of photos published together.
type MediaGroup struct {
	ID           int64     `json:"id"`
	MediaGroupID string    `json:"media_group_id"`
	ChatID       int64     `json:"chat_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Photo represents a single tracked photo message.
type Photo struct {
	ID           int64     `json:"id"`
	FileID       string    `json:"file_id"`
	FileUniqueID string    `json:"file_unique_id,omitempty"`
	ChatID       int64     `json:"chat_id"`
	MessageID    int64     `json:"message_id"`
	MediaGroupID *int64    `json:"media_group_id,omitempty"`
	UserID       int64     `json:"user_id"`
	Caption      string    `json:"caption,omitempty"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	FileSize     int64     `json:"file_size"`
	CreatedAt    time.Time `json:"created_at"`
}

// TargetKind discriminates what a reaction is attached to.
type TargetKind int

const (
	TargetPhoto TargetKind = iota + 1
	TargetMediaGroup
)

// ReactionTarget is a tagged union: a reaction points at exactly one photo
// or exactly one media group. Code branches on Kind, never on which
// database column happens to be null.
type ReactionTarget struct {
	Kind TargetKind
	ID   int64
}

// PhotoTarget builds a target pointing at a single photo.
func PhotoTarget(photoID int64) ReactionTarget {
	return ReactionTarget{Kind: TargetPhoto, ID: photoID}
}

// MediaGroupTarget builds a target pointing at an album.
func MediaGroupTarget(mediaGroupID int64) ReactionTarget {
	return ReactionTarget{Kind: TargetMediaGroup, ID: mediaGroupID}
}

func (t ReactionTarget) String() string {
	switch t.Kind {
	case TargetPhoto:
		return fmt.Sprintf("photo[%d]", t.ID)
	case TargetMediaGroup:
		return fmt.Sprintf("media_group[%d]", t.ID)
	default:
		return "unset"
	}
}

// Reaction is one (user, target, kind) fact.
type Reaction struct {
	ID        int64          `json:"id"`
	Type      string         `json:"type"`
	UserID    int64          `json:"user_id"`
	ChatID    int64          `json:"chat_id"`
	Target    ReactionTarget `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}

// MonthlyStat is the immutable once-per-month ranking snapshot for a chat.
type MonthlyStat struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	CreatedAt time.Time `json:"created_at"`

	TopPhotoID            *int64 `json:"top_photo_id,omitempty"`
	TopPhotoReactionCount int    `json:"top_photo_reaction_count"`

	TopMediaGroupID            *int64 `json:"top_media_group_id,omitempty"`
	TopMediaGroupReactionCount int    `json:"top_media_group_reaction_count"`

	TopUserID            *int64 `json:"top_user_id,omitempty"`
	TopUserReactionCount int    `json:"top_user_reaction_count"`

	TopReactionType       string `json:"top_reaction_type,omitempty"`
	TopReactionUsageCount int    `json:"top_reaction_usage_count"`

	TotalPhotos      int `json:"total_photos"`
	TotalMediaGroups int `json:"total_media_groups"`
	TotalReactions   int `json:"total_reactions"`
	TotalActiveUsers int `json:"total_active_users"`
}

// TopMessage is the pinned live-summary message for a chat. At most one
// active row exists per chat; superseded rows are soft-deleted.
type TopMessage struct {
	ID                 int64     `json:"id"`
	ChatID             int64     `json:"chat_id"`
	MessageID          int64     `json:"message_id"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	LastUpdatedAt      time.Time `json:"last_updated_at"`
	LastMessageContent string    `json:"-"`
	PeriodStart        time.Time `json:"period_start"`
	PeriodEnd          time.Time `json:"period_end"`
	IsDeleted          bool      `json:"is_deleted"`
}

// BotConfig represents bot configuration
type BotConfig struct {
	// Telegram settings
	TelegramToken  string
	AllowedChatIDs []int64 // List of tracked chat IDs (supports multiple chats)

	// Storage settings
	DatabasePath string

	// Scheduling settings
	TimezoneOffsetHours     int // fixed UTC offset for wall-clock scheduling
	MonthlyAnnounceHour     int // local hour on the 1st for the monthly run
	TopMessageUpdateMinutes int

	// Ranking settings
	ReactionKindMaxLen int // kinds at or above this length are hidden from public listings

	// HTTP settings
	HTTPAddr string

	// App settings
	LogLevel    string
	Environment string
}

// IsAllowedChat checks if the given chat ID is in the allowed list
func (c *BotConfig) IsAllowedChat(chatID int64) bool {
	for _, allowedID := range c.AllowedChatIDs {
		if allowedID == chatID {
			return true
		}
	}
	return false
}

// Location returns the fixed-offset location used for wall-clock math.
func (c *BotConfig) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.TimezoneOffsetHours), c.TimezoneOffsetHours*3600)
}
