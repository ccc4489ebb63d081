package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/photo-reactions-bot/internal/models"
)

// SavePhoto inserts a photo row and assigns its id. A zero CreatedAt is
// filled with the current time.
func (c *Client) SavePhoto(ctx context.Context, photo *models.Photo) error {
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now().UTC()
	}

	res, err := c.db.ExecContext(
		ctx,
		`INSERT INTO photos (file_id, file_unique_id, chat_id, message_id, media_group_id, user_id, caption, width, height, file_size, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		photo.FileID,
		nullableString(photo.FileUniqueID),
		photo.ChatID,
		photo.MessageID,
		nullableID(photo.MediaGroupID),
		photo.UserID,
		nullableString(photo.Caption),
		photo.Width,
		photo.Height,
		photo.FileSize,
		fmtTime(photo.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	photo.ID = id
	return nil
}

// FindPhotoByMessage resolves the photo tracked for (chat, message), or nil
// when the message is unknown to the ledger.
func (c *Client) FindPhotoByMessage(ctx context.Context, chatID, messageID int64) (*models.Photo, error) {
	row := c.db.QueryRowContext(
		ctx,
		photoSelect+` WHERE chat_id = ? AND message_id = ? ORDER BY id LIMIT 1`,
		chatID,
		messageID,
	)

	photo, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find photo by message: %w", err)
	}
	return photo, nil
}

// GetPhotoByID returns the photo with the given id, or nil.
func (c *Client) GetPhotoByID(ctx context.Context, id int64) (*models.Photo, error) {
	row := c.db.QueryRowContext(ctx, photoSelect+` WHERE id = ?`, id)

	photo, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get photo %d: %w", id, err)
	}
	return photo, nil
}

// GetOrCreateMediaGroup resolves the album row for a Telegram media-group
// identifier, creating it on first sight. A concurrent insert losing the
// uniqueness race falls back to the existing row.
func (c *Client) GetOrCreateMediaGroup(ctx context.Context, mediaGroupID string, chatID int64) (*models.MediaGroup, error) {
	existing, err := c.findMediaGroup(ctx, mediaGroupID, chatID)
	if err != nil || existing != nil {
		return existing, err
	}

	res, err := c.db.ExecContext(
		ctx,
		`INSERT INTO media_groups (media_group_id, chat_id, created_at) VALUES (?, ?, ?)`,
		mediaGroupID,
		chatID,
		fmtTime(time.Now()),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return c.findMediaGroup(ctx, mediaGroupID, chatID)
		}
		return nil, fmt.Errorf("insert media group: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return c.GetMediaGroupByID(ctx, id)
}

// GetMediaGroupByID returns the album with the given id, or nil.
func (c *Client) GetMediaGroupByID(ctx context.Context, id int64) (*models.MediaGroup, error) {
	row := c.db.QueryRowContext(
		ctx,
		`SELECT id, media_group_id, chat_id, created_at FROM media_groups WHERE id = ?`,
		id,
	)

	group, err := scanMediaGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media group %d: %w", id, err)
	}
	return group, nil
}

// GetMediaGroupPhotos lists an album's photos in creation order. The first
// photo is the album's canonical representative.
func (c *Client) GetMediaGroupPhotos(ctx context.Context, mediaGroupID int64) ([]models.Photo, error) {
	rows, err := c.db.QueryContext(
		ctx,
		photoSelect+` WHERE media_group_id = ? ORDER BY created_at, id`,
		mediaGroupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list media group photos: %w", err)
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media group photo: %w", err)
		}
		photos = append(photos, *photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media group photos: %w", err)
	}
	return photos, nil
}

func (c *Client) findMediaGroup(ctx context.Context, mediaGroupID string, chatID int64) (*models.MediaGroup, error) {
	row := c.db.QueryRowContext(
		ctx,
		`SELECT id, media_group_id, chat_id, created_at FROM media_groups WHERE media_group_id = ? AND chat_id = ?`,
		mediaGroupID,
		chatID,
	)

	group, err := scanMediaGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find media group: %w", err)
	}
	return group, nil
}

const photoSelect = `SELECT id, file_id, file_unique_id, chat_id, message_id, media_group_id, user_id, caption, width, height, file_size, created_at FROM photos`

func scanPhoto(row rowScanner) (*models.Photo, error) {
	var (
		p                     models.Photo
		fileUniqueID, caption sql.NullString
		mediaGroupID          sql.NullInt64
		createdAt             string
	)
	if err := row.Scan(&p.ID, &p.FileID, &fileUniqueID, &p.ChatID, &p.MessageID, &mediaGroupID, &p.UserID, &caption, &p.Width, &p.Height, &p.FileSize, &createdAt); err != nil {
		return nil, err
	}
	p.FileUniqueID = fileUniqueID.String
	p.Caption = caption.String
	if mediaGroupID.Valid {
		id := mediaGroupID.Int64
		p.MediaGroupID = &id
	}

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanMediaGroup(row rowScanner) (*models.MediaGroup, error) {
	var (
		g         models.MediaGroup
		createdAt string
	)
	if err := row.Scan(&g.ID, &g.MediaGroupID, &g.ChatID, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &g, nil
}
