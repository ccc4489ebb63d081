package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/photo-reactions-bot/internal/models"
)

// UpsertUser creates the chat-scoped user if absent, otherwise refreshes the
// display-name fields and last-active time. It is a single conditional write
// guarded by the (telegram_user_id, chat_id) uniqueness constraint, so
// concurrent events for a new user cannot race into duplicates.
func (c *Client) UpsertUser(ctx context.Context, telegramUserID, chatID int64, username, firstName, lastName string) (*models.User, error) {
	now := fmtTime(time.Now())

	row := c.db.QueryRowContext(
		ctx,
		`INSERT INTO users (telegram_user_id, chat_id, username, first_name, last_name, created_at, last_active_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (telegram_user_id, chat_id) DO UPDATE SET
             username = excluded.username,
             first_name = excluded.first_name,
             last_name = excluded.last_name,
             last_active_at = excluded.last_active_at
         RETURNING id, telegram_user_id, chat_id, username, first_name, last_name, created_at, last_active_at`,
		telegramUserID,
		chatID,
		nullableString(username),
		nullableString(firstName),
		nullableString(lastName),
		now,
		now,
	)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

// GetUserByID returns the user with the given surrogate id, or nil.
func (c *Client) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := c.db.QueryRowContext(
		ctx,
		`SELECT id, telegram_user_id, chat_id, username, first_name, last_name, created_at, last_active_at
         FROM users WHERE id = ?`,
		id,
	)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                             models.User
		username, firstName, lastName sql.NullString
		createdAt, lastActiveAt       string
	)
	if err := row.Scan(&u.ID, &u.TelegramUserID, &u.ChatID, &username, &firstName, &lastName, &createdAt, &lastActiveAt); err != nil {
		return nil, err
	}
	u.Username = username.String
	u.FirstName = firstName.String
	u.LastName = lastName.String

	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.LastActiveAt, err = parseTime(lastActiveAt); err != nil {
		return nil, err
	}
	return &u, nil
}
