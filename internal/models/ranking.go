package models

import "time"

// ReactionEvent is the inbound "reaction state changed" notification for a
// single message, carrying the full previous and new kind sets.
type ReactionEvent struct {
	ChatID    int64
	MessageID int64
	User      ReactingUser
	OldKinds  []string
	NewKinds  []string
}

// ReactingUser identifies the account whose reactions changed.
type ReactingUser struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// PhotoRank pairs a photo with its in-window reaction count.
type PhotoRank struct {
	Photo         Photo
	ReactionCount int
}

// MediaGroupRank pairs an album with its in-window reaction count.
type MediaGroupRank struct {
	MediaGroup    MediaGroup
	ReactionCount int
}

// WinningPhoto is the announcement winner: any photo, grouped or not,
// scored with self-reactions excluded.
type WinningPhoto struct {
	Photo         Photo
	Author        User
	ReactionCount int
	IsAlbum       bool
}

// TopPublisher is the contributor with the most photos in a window.
type TopPublisher struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	PhotoCount int    `json:"photo_count"`
}

// TopReactionReceiver is the contributor whose content collected the most
// reactions in a window, self-reactions excluded.
type TopReactionReceiver struct {
	UserID        int64  `json:"user_id"`
	Username      string `json:"username,omitempty"`
	FirstName     string `json:"first_name,omitempty"`
	ReactionCount int    `json:"reaction_count"`
	PhotoCount    int    `json:"photo_count"`
}

// ReactionKindCount is one row of the "popular reactions" listing.
type ReactionKindCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// PhotoLink points at a rankable message: for albums the message ID is the
// album's first photo.
type PhotoLink struct {
	MessageID     int64 `json:"message_id"`
	ReactionCount int   `json:"reaction_count"`
	IsAlbum       bool  `json:"is_album"`
}

// PeriodTotals are the aggregate counters stored on a monthly snapshot.
type PeriodTotals struct {
	Photos      int `json:"photos"`
	MediaGroups int `json:"media_groups"`
	Reactions   int `json:"reactions"`
	ActiveUsers int `json:"active_users"`
}

// WinnersResult reports what a winners announcement run produced for a chat.
type WinnersResult struct {
	SourceChatID int64     `json:"source_chat_id"`
	TargetChatID int64     `json:"target_chat_id"`
	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`

	WinningPhoto        *WinningPhotoSummary `json:"winning_photo,omitempty"`
	TopPublisher        *TopPublisher        `json:"top_publisher,omitempty"`
	TopReactionReceiver *TopReactionReceiver `json:"top_reaction_receiver,omitempty"`

	Errors []string `json:"errors,omitempty"`
}

// WinningPhotoSummary is the announcement payload for the winning photo.
type WinningPhotoSummary struct {
	PhotoID         int64  `json:"photo_id"`
	MessageID       int64  `json:"message_id"`
	FileID          string `json:"file_id"`
	ReactionCount   int    `json:"reaction_count"`
	IsAlbum         bool   `json:"is_album"`
	AuthorUsername  string `json:"author_username,omitempty"`
	AuthorFirstName string `json:"author_first_name,omitempty"`
}
