package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/photo-reactions-bot/internal/models"
)

// GetActiveTopMessage returns the chat's active pinned summary record, or
// nil when none exists.
func (c *Client) GetActiveTopMessage(ctx context.Context, chatID int64) (*models.TopMessage, error) {
	row := c.db.QueryRowContext(
		ctx,
		`SELECT id, chat_id, message_id, is_active, created_at, last_updated_at, last_message_content, period_start, period_end, is_deleted
         FROM top_messages
         WHERE chat_id = ? AND is_active = 1
         ORDER BY id DESC LIMIT 1`,
		chatID,
	)

	tm, err := scanTopMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active top message: %w", err)
	}
	return tm, nil
}

// InsertTopMessage records a freshly published pinned summary as active.
func (c *Client) InsertTopMessage(ctx context.Context, tm *models.TopMessage) error {
	now := time.Now().UTC()
	if tm.CreatedAt.IsZero() {
		tm.CreatedAt = now
	}
	if tm.LastUpdatedAt.IsZero() {
		tm.LastUpdatedAt = now
	}

	res, err := c.db.ExecContext(
		ctx,
		`INSERT INTO top_messages (chat_id, message_id, is_active, created_at, last_updated_at, last_message_content, period_start, period_end, is_deleted)
         VALUES (?, ?, 1, ?, ?, ?, ?, ?, 0)`,
		tm.ChatID,
		tm.MessageID,
		fmtTime(tm.CreatedAt),
		fmtTime(tm.LastUpdatedAt),
		nullableString(tm.LastMessageContent),
		fmtTime(tm.PeriodStart),
		fmtTime(tm.PeriodEnd),
	)
	if err != nil {
		return fmt.Errorf("insert top message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	tm.ID = id
	tm.IsActive = true
	return nil
}

// UpdateTopMessageContent stores the latest rendered text after a
// successful edit, for future change detection.
func (c *Client) UpdateTopMessageContent(ctx context.Context, id int64, content string) error {
	_, err := c.db.ExecContext(
		ctx,
		`UPDATE top_messages SET last_message_content = ?, last_updated_at = ? WHERE id = ?`,
		content,
		fmtTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update top message content: %w", err)
	}
	return nil
}

// DeactivateTopMessage soft-deletes a superseded pinned summary.
func (c *Client) DeactivateTopMessage(ctx context.Context, id int64) error {
	_, err := c.db.ExecContext(
		ctx,
		`UPDATE top_messages SET is_active = 0, is_deleted = 1, last_updated_at = ? WHERE id = ?`,
		fmtTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("deactivate top message: %w", err)
	}
	return nil
}

func scanTopMessage(row rowScanner) (*models.TopMessage, error) {
	var (
		tm                       models.TopMessage
		isActive, isDeleted      int
		createdAt, lastUpdatedAt string
		content                  sql.NullString
		periodStart, periodEnd   string
	)
	if err := row.Scan(&tm.ID, &tm.ChatID, &tm.MessageID, &isActive, &createdAt, &lastUpdatedAt, &content, &periodStart, &periodEnd, &isDeleted); err != nil {
		return nil, err
	}
	tm.IsActive = isActive != 0
	tm.IsDeleted = isDeleted != 0
	tm.LastMessageContent = content.String

	var err error
	if tm.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if tm.LastUpdatedAt, err = parseTime(lastUpdatedAt); err != nil {
		return nil, err
	}
	if tm.PeriodStart, err = parseTime(periodStart); err != nil {
		return nil, err
	}
	if tm.PeriodEnd, err = parseTime(periodEnd); err != nil {
		return nil, err
	}
	return &tm, nil
}
