package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/photo-reactions-bot/internal/models"
	"github.com/photo-reactions-bot/internal/storage"
)

const testChatID = int64(-1001234567890)

func openTestClient(t *testing.T) *storage.Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.db")
	client, err := storage.Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func seedUser(t *testing.T, c *storage.Client, telegramUserID int64, username string) *models.User {
	t.Helper()
	user, err := c.UpsertUser(context.Background(), telegramUserID, testChatID, username, "", "")
	if err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	return user
}

func seedPhoto(t *testing.T, c *storage.Client, user *models.User, messageID int64, group *models.MediaGroup) *models.Photo {
	t.Helper()
	photo := &models.Photo{
		FileID:    "file-" + time.Now().Format("150405.000000000"),
		ChatID:    testChatID,
		MessageID: messageID,
		UserID:    user.ID,
		Width:     1280,
		Height:    720,
	}
	if group != nil {
		photo.MediaGroupID = &group.ID
	}
	if err := c.SavePhoto(context.Background(), photo); err != nil {
		t.Fatalf("SavePhoto failed: %v", err)
	}
	return photo
}

func addReaction(t *testing.T, c *storage.Client, user *models.User, target models.ReactionTarget, kind string) {
	t.Helper()
	if _, err := c.AddReaction(context.Background(), user.ID, testChatID, target, kind); err != nil {
		t.Fatalf("AddReaction failed: %v", err)
	}
}

// testWindow is a window comfortably containing everything seeded by the
// running test.
func testWindow() (time.Time, time.Time) {
	now := time.Now().UTC()
	return now.Add(-time.Hour), now.Add(time.Hour)
}
