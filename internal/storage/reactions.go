package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/photo-reactions-bot/internal/models"
)

// AddReaction inserts one (user, target, kind) fact. Duplicate delivery is
// absorbed by the matching partial unique index: the method reports whether
// a row was actually inserted. The conflict clause is scoped to that index
// alone, so foreign-key and check violations still surface as errors.
func (c *Client) AddReaction(ctx context.Context, userID, chatID int64, target models.ReactionTarget, kind string) (bool, error) {
	var query string
	switch target.Kind {
	case models.TargetPhoto:
		query = `INSERT INTO reactions (type, user_id, chat_id, photo_id, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (user_id, photo_id, type) WHERE photo_id IS NOT NULL DO NOTHING`
	case models.TargetMediaGroup:
		query = `INSERT INTO reactions (type, user_id, chat_id, media_group_id, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (user_id, media_group_id, type) WHERE media_group_id IS NOT NULL DO NOTHING`
	default:
		return false, fmt.Errorf("add reaction: target is unset")
	}

	res, err := c.db.ExecContext(
		ctx,
		query,
		kind,
		userID,
		chatID,
		target.ID,
		fmtTime(time.Now()),
	)
	if err != nil {
		return false, fmt.Errorf("insert reaction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RemoveReaction deletes the matching unique reaction row if present.
// Absence is not an error.
func (c *Client) RemoveReaction(ctx context.Context, userID int64, target models.ReactionTarget, kind string) (bool, error) {
	var query string
	switch target.Kind {
	case models.TargetPhoto:
		query = `DELETE FROM reactions WHERE user_id = ? AND photo_id = ? AND type = ?`
	case models.TargetMediaGroup:
		query = `DELETE FROM reactions WHERE user_id = ? AND media_group_id = ? AND type = ?`
	default:
		return false, fmt.Errorf("remove reaction: target is unset")
	}

	res, err := c.db.ExecContext(ctx, query, userID, target.ID, kind)
	if err != nil {
		return false, fmt.Errorf("delete reaction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListReactionsByChat returns every reaction recorded for a chat, oldest
// first.
func (c *Client) ListReactionsByChat(ctx context.Context, chatID int64) ([]models.Reaction, error) {
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT id, type, user_id, chat_id, photo_id, media_group_id, created_at, updated_at
         FROM reactions WHERE chat_id = ? ORDER BY id`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	var reactions []models.Reaction
	for rows.Next() {
		var (
			r                     models.Reaction
			photoID, mediaGroupID sql.NullInt64
			createdAt             string
			updatedAt             sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Type, &r.UserID, &r.ChatID, &photoID, &mediaGroupID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		switch {
		case photoID.Valid:
			r.Target = models.PhotoTarget(photoID.Int64)
		case mediaGroupID.Valid:
			r.Target = models.MediaGroupTarget(mediaGroupID.Int64)
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if updatedAt.Valid {
			t, err := parseTime(updatedAt.String)
			if err != nil {
				return nil, err
			}
			r.UpdatedAt = &t
		}
		reactions = append(reactions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reactions: %w", err)
	}
	return reactions, nil
}
