package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/photo-reactions-bot/internal/models"
)

// MonthlyStatExists reports whether a snapshot is already persisted for
// (chat, year, month).
func (c *Client) MonthlyStatExists(ctx context.Context, chatID int64, year, month int) (bool, error) {
	var count int
	row := c.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM monthly_stats WHERE chat_id = ? AND year = ? AND month = ?`,
		chatID, year, month,
	)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("check monthly stat: %w", err)
	}
	return count > 0, nil
}

// InsertMonthlyStat persists one immutable snapshot row. The caller treats
// a uniqueness violation as "already applied".
func (c *Client) InsertMonthlyStat(ctx context.Context, stat *models.MonthlyStat) error {
	if stat.CreatedAt.IsZero() {
		stat.CreatedAt = time.Now().UTC()
	}

	res, err := c.db.ExecContext(
		ctx,
		`INSERT INTO monthly_stats (
            chat_id, year, month, created_at,
            top_photo_id, top_photo_reaction_count,
            top_media_group_id, top_media_group_reaction_count,
            top_user_id, top_user_reaction_count,
            top_reaction_type, top_reaction_usage_count,
            total_photos, total_media_groups, total_reactions, total_active_users
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stat.ChatID, stat.Year, stat.Month, fmtTime(stat.CreatedAt),
		nullableID(stat.TopPhotoID), stat.TopPhotoReactionCount,
		nullableID(stat.TopMediaGroupID), stat.TopMediaGroupReactionCount,
		nullableID(stat.TopUserID), stat.TopUserReactionCount,
		nullableString(stat.TopReactionType), stat.TopReactionUsageCount,
		stat.TotalPhotos, stat.TotalMediaGroups, stat.TotalReactions, stat.TotalActiveUsers,
	)
	if err != nil {
		return fmt.Errorf("insert monthly stat: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	stat.ID = id
	return nil
}

// GetMonthlyStats fetches stored snapshots for a chat, optionally narrowed
// to a year and month (zero means unfiltered), newest first.
func (c *Client) GetMonthlyStats(ctx context.Context, chatID int64, year, month int) ([]models.MonthlyStat, error) {
	query := `SELECT id, chat_id, year, month, created_at,
            top_photo_id, top_photo_reaction_count,
            top_media_group_id, top_media_group_reaction_count,
            top_user_id, top_user_reaction_count,
            top_reaction_type, top_reaction_usage_count,
            total_photos, total_media_groups, total_reactions, total_active_users
        FROM monthly_stats WHERE chat_id = ?`
	args := []any{chatID}
	if year != 0 {
		query += ` AND year = ?`
		args = append(args, year)
	}
	if month != 0 {
		query += ` AND month = ?`
		args = append(args, month)
	}
	query += ` ORDER BY year DESC, month DESC`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list monthly stats: %w", err)
	}
	defer rows.Close()

	var stats []models.MonthlyStat
	for rows.Next() {
		var (
			s                                      models.MonthlyStat
			createdAt                              string
			topPhotoID, topMediaGroupID, topUserID sql.NullInt64
			topReactionType                        sql.NullString
		)
		if err := rows.Scan(
			&s.ID, &s.ChatID, &s.Year, &s.Month, &createdAt,
			&topPhotoID, &s.TopPhotoReactionCount,
			&topMediaGroupID, &s.TopMediaGroupReactionCount,
			&topUserID, &s.TopUserReactionCount,
			&topReactionType, &s.TopReactionUsageCount,
			&s.TotalPhotos, &s.TotalMediaGroups, &s.TotalReactions, &s.TotalActiveUsers,
		); err != nil {
			return nil, fmt.Errorf("scan monthly stat: %w", err)
		}
		if s.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if topPhotoID.Valid {
			id := topPhotoID.Int64
			s.TopPhotoID = &id
		}
		if topMediaGroupID.Valid {
			id := topMediaGroupID.Int64
			s.TopMediaGroupID = &id
		}
		if topUserID.Valid {
			id := topUserID.Int64
			s.TopUserID = &id
		}
		s.TopReactionType = topReactionType.String
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly stats: %w", err)
	}
	return stats, nil
}
