package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/photo-reactions-bot/internal/models"
)

// Ranking queries operate over the closed-open window [start, end). Every
// call computes its counts independently; nothing here mutates the ledger.
//
// Tie-breaking is deterministic everywhere: equal counts are resolved by
// the lowest surrogate id, i.e. the earliest-created candidate wins.

// TopPhoto returns the ungrouped photo created in-window with the most
// in-window reactions, or nil when no photo has any.
func (c *Client) TopPhoto(ctx context.Context, chatID int64, start, end time.Time) (*models.PhotoRank, error) {
	row := c.db.QueryRowContext(
		ctx,
		`SELECT id, file_id, file_unique_id, chat_id, message_id, media_group_id, user_id, caption, width, height, file_size, created_at, reaction_count FROM (
            SELECT p.*, (
                SELECT COUNT(*) FROM reactions r
                WHERE r.photo_id = p.id AND r.created_at >= ? AND r.created_at < ?
            ) AS reaction_count
            FROM photos p
            WHERE p.chat_id = ? AND p.media_group_id IS NULL AND p.created_at >= ? AND p.created_at < ?
        )
        WHERE reaction_count > 0
        ORDER BY reaction_count DESC, id ASC
        LIMIT 1`,
		fmtTime(start), fmtTime(end),
		chatID, fmtTime(start), fmtTime(end),
	)

	var (
		rank                  models.PhotoRank
		fileUniqueID, caption sql.NullString
		mediaGroupID          sql.NullInt64
		createdAt             string
	)
	err := row.Scan(
		&rank.Photo.ID, &rank.Photo.FileID, &fileUniqueID, &rank.Photo.ChatID, &rank.Photo.MessageID,
		&mediaGroupID, &rank.Photo.UserID, &caption, &rank.Photo.Width, &rank.Photo.Height,
		&rank.Photo.FileSize, &createdAt, &rank.ReactionCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("top photo: %w", err)
	}
	rank.Photo.FileUniqueID = fileUniqueID.String
	rank.Photo.Caption = caption.String
	if mediaGroupID.Valid {
		id := mediaGroupID.Int64
		rank.Photo.MediaGroupID = &id
	}
	if rank.Photo.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &rank, nil
}

// TopAlbum returns the album created in-window with the most in-window
// group reactions, or nil.
func (c *Client) TopAlbum(ctx context.Context, chatID int64, start, end time.Time) (*models.MediaGroupRank, error) {
	row := c.db.QueryRowContext(
		ctx,
		`SELECT id, media_group_id, chat_id, created_at, reaction_count FROM (
            SELECT mg.*, (
                SELECT COUNT(*) FROM reactions r
                WHERE r.media_group_id = mg.id AND r.created_at >= ? AND r.created_at < ?
            ) AS reaction_count
            FROM media_groups mg
            WHERE mg.chat_id = ? AND mg.created_at >= ? AND mg.created_at < ?
        )
        WHERE reaction_count > 0
        ORDER BY reaction_count DESC, id ASC
        LIMIT 1`,
		fmtTime(start), fmtTime(end),
		chatID, fmtTime(start), fmtTime(end),
	)

	var (
		rank      models.MediaGroupRank
		createdAt string
	)
	err := row.Scan(&rank.MediaGroup.ID, &rank.MediaGroup.MediaGroupID, &rank.MediaGroup.ChatID, &createdAt, &rank.ReactionCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("top album: %w", err)
	}
	if rank.MediaGroup.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &rank, nil
}

// WinningPhoto is the announcement winner: every photo created in-window is
// a candidate, grouped or not, scored by in-window reactions with
// self-reactions excluded. A grouped photo is scored by its album's count,
// with "self" being the owner of the album's earliest-created photo. Only
// positive scores qualify.
func (c *Client) WinningPhoto(ctx context.Context, chatID int64, start, end time.Time) (*models.WinningPhoto, error) {
	row := c.db.QueryRowContext(
		ctx,
		`SELECT * FROM (
            SELECT
                p.id AS photo_id, p.file_id, p.file_unique_id, p.message_id, p.media_group_id,
                p.caption, p.width, p.height, p.file_size, p.created_at AS photo_created_at,
                u.id AS author_id, u.telegram_user_id, u.chat_id, u.username, u.first_name, u.last_name,
                u.created_at AS author_created_at, u.last_active_at,
                CASE WHEN p.media_group_id IS NULL THEN (
                    SELECT COUNT(*) FROM reactions r
                    JOIN users ru ON ru.id = r.user_id
                    WHERE r.photo_id = p.id AND r.created_at >= ? AND r.created_at < ?
                      AND ru.telegram_user_id <> u.telegram_user_id
                ) ELSE (
                    SELECT COUNT(*) FROM reactions r
                    JOIN users ru ON ru.id = r.user_id
                    WHERE r.media_group_id = p.media_group_id AND r.created_at >= ? AND r.created_at < ?
                      AND ru.telegram_user_id <> (
                          SELECT fu.telegram_user_id FROM photos fp
                          JOIN users fu ON fu.id = fp.user_id
                          WHERE fp.media_group_id = p.media_group_id
                          ORDER BY fp.created_at, fp.id LIMIT 1
                      )
                ) END AS score
            FROM photos p
            JOIN users u ON u.id = p.user_id
            WHERE p.chat_id = ? AND p.created_at >= ? AND p.created_at < ?
        )
        WHERE score > 0
        ORDER BY score DESC, photo_id ASC
        LIMIT 1`,
		fmtTime(start), fmtTime(end),
		fmtTime(start), fmtTime(end),
		chatID, fmtTime(start), fmtTime(end),
	)

	var (
		w                                       models.WinningPhoto
		fileUniqueID, caption                   sql.NullString
		mediaGroupID                            sql.NullInt64
		username, firstName, lastName           sql.NullString
		photoCreatedAt, authorCreatedAt, active string
	)
	err := row.Scan(
		&w.Photo.ID, &w.Photo.FileID, &fileUniqueID, &w.Photo.MessageID, &mediaGroupID,
		&caption, &w.Photo.Width, &w.Photo.Height, &w.Photo.FileSize, &photoCreatedAt,
		&w.Author.ID, &w.Author.TelegramUserID, &w.Author.ChatID, &username, &firstName, &lastName,
		&authorCreatedAt, &active,
		&w.ReactionCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("winning photo: %w", err)
	}
	w.Photo.FileUniqueID = fileUniqueID.String
	w.Photo.Caption = caption.String
	w.Photo.ChatID = w.Author.ChatID
	w.Photo.UserID = w.Author.ID
	if mediaGroupID.Valid {
		id := mediaGroupID.Int64
		w.Photo.MediaGroupID = &id
		w.IsAlbum = true
	}
	w.Author.Username = username.String
	w.Author.FirstName = firstName.String
	w.Author.LastName = lastName.String
	if w.Photo.CreatedAt, err = parseTime(photoCreatedAt); err != nil {
		return nil, err
	}
	if w.Author.CreatedAt, err = parseTime(authorCreatedAt); err != nil {
		return nil, err
	}
	if w.Author.LastActiveAt, err = parseTime(active); err != nil {
		return nil, err
	}
	return &w, nil
}

// TopReactionReceivers ranks contributors by reactions received on their
// content in-window, self-reactions excluded. A contributor collects an
// album's reactions only when they own its earliest-created photo.
func (c *Client) TopReactionReceivers(ctx context.Context, chatID int64, start, end time.Time, limit int) ([]models.TopReactionReceiver, error) {
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT user_id, username, first_name, photo_count, reaction_count FROM (
            SELECT
                u.id AS user_id,
                COALESCE(u.username, '') AS username,
                COALESCE(u.first_name, '') AS first_name,
                (
                    SELECT COUNT(*) FROM photos p
                    WHERE p.user_id = u.id AND p.created_at >= ? AND p.created_at < ?
                ) AS photo_count,
                (
                    SELECT COUNT(*) FROM reactions r
                    JOIN photos p ON p.id = r.photo_id
                    JOIN users ru ON ru.id = r.user_id
                    WHERE p.user_id = u.id AND p.media_group_id IS NULL
                      AND p.created_at >= ? AND p.created_at < ?
                      AND r.created_at >= ? AND r.created_at < ?
                      AND ru.telegram_user_id <> u.telegram_user_id
                ) + (
                    SELECT COUNT(*) FROM reactions r
                    JOIN media_groups mg ON mg.id = r.media_group_id
                    JOIN users ru ON ru.id = r.user_id
                    WHERE mg.chat_id = u.chat_id
                      AND mg.created_at >= ? AND mg.created_at < ?
                      AND r.created_at >= ? AND r.created_at < ?
                      AND ru.telegram_user_id <> u.telegram_user_id
                      AND (
                          SELECT fp.user_id FROM photos fp
                          WHERE fp.media_group_id = mg.id
                          ORDER BY fp.created_at, fp.id LIMIT 1
                      ) = u.id
                ) AS reaction_count
            FROM users u
            WHERE u.chat_id = ?
        )
        WHERE reaction_count > 0
        ORDER BY reaction_count DESC, user_id ASC
        LIMIT ?`,
		fmtTime(start), fmtTime(end),
		fmtTime(start), fmtTime(end),
		fmtTime(start), fmtTime(end),
		fmtTime(start), fmtTime(end),
		fmtTime(start), fmtTime(end),
		chatID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top reaction receivers: %w", err)
	}
	defer rows.Close()

	var receivers []models.TopReactionReceiver
	for rows.Next() {
		var recv models.TopReactionReceiver
		if err := rows.Scan(&recv.UserID, &recv.Username, &recv.FirstName, &recv.PhotoCount, &recv.ReactionCount); err != nil {
			return nil, fmt.Errorf("scan reaction receiver: %w", err)
		}
		receivers = append(receivers, recv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reaction receivers: %w", err)
	}
	return receivers, nil
}

// TopReactionReceiver returns the single best receiver, or nil.
func (c *Client) TopReactionReceiver(ctx context.Context, chatID int64, start, end time.Time) (*models.TopReactionReceiver, error) {
	receivers, err := c.TopReactionReceivers(ctx, chatID, start, end, 1)
	if err != nil || len(receivers) == 0 {
		return nil, err
	}
	return &receivers[0], nil
}

// TopPublisher returns the contributor with the most photos created
// in-window, or nil when nobody published.
func (c *Client) TopPublisher(ctx context.Context, chatID int64, start, end time.Time) (*models.TopPublisher, error) {
	row := c.db.QueryRowContext(
		ctx,
		`SELECT u.id, COALESCE(u.username, ''), COALESCE(u.first_name, ''), COUNT(p.id) AS photo_count
         FROM users u
         JOIN photos p ON p.user_id = u.id
         WHERE u.chat_id = ? AND p.created_at >= ? AND p.created_at < ?
         GROUP BY u.id
         ORDER BY photo_count DESC, u.id ASC
         LIMIT 1`,
		chatID, fmtTime(start), fmtTime(end),
	)

	var pub models.TopPublisher
	err := row.Scan(&pub.UserID, &pub.Username, &pub.FirstName, &pub.PhotoCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("top publisher: %w", err)
	}
	return &pub, nil
}

// TopReactionKinds ranks reaction kinds by in-window usage. When maxKindLen
// is positive, kinds at or above that length are filtered out; the public
// listing uses this to hide long custom-emoji identifiers. Pass 0 for the
// unfiltered ranking.
func (c *Client) TopReactionKinds(ctx context.Context, chatID int64, start, end time.Time, limit, maxKindLen int) ([]models.ReactionKindCount, error) {
	query := `SELECT type, COUNT(*) AS usage_count
        FROM reactions
        WHERE chat_id = ? AND created_at >= ? AND created_at < ?`
	args := []any{chatID, fmtTime(start), fmtTime(end)}
	if maxKindLen > 0 {
		query += ` AND length(type) < ?`
		args = append(args, maxKindLen)
	}
	query += `
        GROUP BY type
        ORDER BY usage_count DESC, type ASC
        LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("top reaction kinds: %w", err)
	}
	defer rows.Close()

	var kinds []models.ReactionKindCount
	for rows.Next() {
		var kind models.ReactionKindCount
		if err := rows.Scan(&kind.Type, &kind.Count); err != nil {
			return nil, fmt.Errorf("scan reaction kind: %w", err)
		}
		kinds = append(kinds, kind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reaction kinds: %w", err)
	}
	return kinds, nil
}

// TopReactionKind returns the most used kind in-window, unfiltered, or nil.
func (c *Client) TopReactionKind(ctx context.Context, chatID int64, start, end time.Time) (*models.ReactionKindCount, error) {
	kinds, err := c.TopReactionKinds(ctx, chatID, start, end, 1, 0)
	if err != nil || len(kinds) == 0 {
		return nil, err
	}
	return &kinds[0], nil
}

// TopPhotoLinks merges albums and ungrouped photos created in-window into
// one self-excluded ranking of linkable messages. An album is represented
// by its earliest photo's message.
func (c *Client) TopPhotoLinks(ctx context.Context, chatID int64, start, end time.Time, limit int) ([]models.PhotoLink, error) {
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT message_id, reaction_count, is_album FROM (
            SELECT
                p.message_id AS message_id,
                (
                    SELECT COUNT(*) FROM reactions r
                    JOIN users ru ON ru.id = r.user_id
                    WHERE r.photo_id = p.id AND r.created_at >= ? AND r.created_at < ?
                      AND ru.telegram_user_id <> (SELECT pu.telegram_user_id FROM users pu WHERE pu.id = p.user_id)
                ) AS reaction_count,
                0 AS is_album
            FROM photos p
            WHERE p.chat_id = ? AND p.media_group_id IS NULL AND p.created_at >= ? AND p.created_at < ?
            UNION ALL
            SELECT
                (
                    SELECT fp.message_id FROM photos fp
                    WHERE fp.media_group_id = mg.id
                    ORDER BY fp.created_at, fp.id LIMIT 1
                ) AS message_id,
                (
                    SELECT COUNT(*) FROM reactions r
                    JOIN users ru ON ru.id = r.user_id
                    WHERE r.media_group_id = mg.id AND r.created_at >= ? AND r.created_at < ?
                      AND ru.telegram_user_id <> (
                          SELECT fu.telegram_user_id FROM photos fp
                          JOIN users fu ON fu.id = fp.user_id
                          WHERE fp.media_group_id = mg.id
                          ORDER BY fp.created_at, fp.id LIMIT 1
                      )
                ) AS reaction_count,
                1 AS is_album
            FROM media_groups mg
            WHERE mg.chat_id = ? AND mg.created_at >= ? AND mg.created_at < ?
        )
        WHERE reaction_count > 0 AND message_id IS NOT NULL
        ORDER BY reaction_count DESC, message_id ASC
        LIMIT ?`,
		fmtTime(start), fmtTime(end),
		chatID, fmtTime(start), fmtTime(end),
		fmtTime(start), fmtTime(end),
		chatID, fmtTime(start), fmtTime(end),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top photo links: %w", err)
	}
	defer rows.Close()

	var links []models.PhotoLink
	for rows.Next() {
		var (
			link    models.PhotoLink
			isAlbum int
		)
		if err := rows.Scan(&link.MessageID, &link.ReactionCount, &isAlbum); err != nil {
			return nil, fmt.Errorf("scan photo link: %w", err)
		}
		link.IsAlbum = isAlbum != 0
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photo links: %w", err)
	}
	return links, nil
}

// PeriodTotals computes the aggregate counters for a window: rows created
// in-window plus users active in-window.
func (c *Client) PeriodTotals(ctx context.Context, chatID int64, start, end time.Time) (*models.PeriodTotals, error) {
	row := c.db.QueryRowContext(
		ctx,
		`SELECT
            (SELECT COUNT(*) FROM photos WHERE chat_id = ? AND created_at >= ? AND created_at < ?),
            (SELECT COUNT(*) FROM media_groups WHERE chat_id = ? AND created_at >= ? AND created_at < ?),
            (SELECT COUNT(*) FROM reactions WHERE chat_id = ? AND created_at >= ? AND created_at < ?),
            (SELECT COUNT(*) FROM users WHERE chat_id = ? AND last_active_at >= ? AND last_active_at < ?)`,
		chatID, fmtTime(start), fmtTime(end),
		chatID, fmtTime(start), fmtTime(end),
		chatID, fmtTime(start), fmtTime(end),
		chatID, fmtTime(start), fmtTime(end),
	)

	var totals models.PeriodTotals
	if err := row.Scan(&totals.Photos, &totals.MediaGroups, &totals.Reactions, &totals.ActiveUsers); err != nil {
		return nil, fmt.Errorf("period totals: %w", err)
	}
	return &totals, nil
}
