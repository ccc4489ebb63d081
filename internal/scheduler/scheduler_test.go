package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/photo-reactions-bot/internal/models"
	"github.com/photo-reactions-bot/internal/stats"
	"github.com/photo-reactions-bot/internal/storage"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	cfg := &models.BotConfig{
		AllowedChatIDs:          []int64{-1001234567890},
		TimezoneOffsetHours:     4,
		MonthlyAnnounceHour:     9,
		TopMessageUpdateMinutes: 5,
	}
	return NewScheduler(nil, nil, cfg, zerolog.Nop())
}

func TestNextMonthlyRun(t *testing.T) {
	s := newTestScheduler(t)
	loc := s.location

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "mid-month waits for the next 1st",
			now:  time.Date(2026, 3, 15, 12, 0, 0, 0, loc),
			want: time.Date(2026, 4, 1, 9, 0, 0, 0, loc),
		},
		{
			name: "1st before the announce hour runs today",
			now:  time.Date(2026, 3, 1, 8, 59, 59, 0, loc),
			want: time.Date(2026, 3, 1, 9, 0, 0, 0, loc),
		},
		{
			name: "exactly at the announce instant rolls over",
			now:  time.Date(2026, 3, 1, 9, 0, 0, 0, loc),
			want: time.Date(2026, 4, 1, 9, 0, 0, 0, loc),
		},
		{
			name: "december rolls into january",
			now:  time.Date(2026, 12, 20, 0, 0, 0, 0, loc),
			want: time.Date(2027, 1, 1, 9, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.nextMonthlyRun(tt.now)
			if !got.Equal(tt.want) {
				t.Fatalf("nextMonthlyRun(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestSchedulerUsesConfiguredZone(t *testing.T) {
	s := newTestScheduler(t)

	next := s.nextMonthlyRun(time.Date(2026, 5, 10, 0, 0, 0, 0, s.location))
	_, offset := next.Zone()
	if offset != 4*3600 {
		t.Fatalf("expected UTC+4 run instant, got offset %d", offset)
	}
	if next.Hour() != 9 {
		t.Fatalf("expected run at hour 9 local, got %d", next.Hour())
	}
}

// flakyBroadcaster fails every send to one chat and records the rest.
type flakyBroadcaster struct {
	failChat int64
	attempts map[int64]int
	sent     map[int64]int
}

func (f *flakyBroadcaster) SendMessage(chatID int64, text string) (int64, error) {
	f.attempts[chatID]++
	if chatID == f.failChat {
		return 0, errors.New("telegram unavailable")
	}
	f.sent[chatID]++
	return int64(f.sent[chatID]), nil
}

func (f *flakyBroadcaster) SendPhoto(chatID int64, fileID, caption string) error {
	f.attempts[chatID]++
	if chatID == f.failChat {
		return errors.New("telegram unavailable")
	}
	f.sent[chatID]++
	return nil
}

func (f *flakyBroadcaster) SendMediaGroup(chatID int64, fileIDs []string, caption string) error {
	f.attempts[chatID]++
	if chatID == f.failChat {
		return errors.New("telegram unavailable")
	}
	f.sent[chatID]++
	return nil
}

// One chat's send failure must not stop the monthly cycle: the other chat
// still gets its snapshot and announcements, and the failing chat keeps its
// snapshot from the attempt.
func TestRunMonthlyAllIsolatesChatFailure(t *testing.T) {
	chatA := int64(-1001111111111)
	chatB := int64(-1002222222222)

	client, err := storage.Open(filepath.Join(t.TempDir(), "bot.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	cfg := &models.BotConfig{
		AllowedChatIDs:      []int64{chatA, chatB},
		TimezoneOffsetHours: 4,
		MonthlyAnnounceHour: 9,
		ReactionKindMaxLen:  4,
	}
	broadcaster := &flakyBroadcaster{
		failChat: chatA,
		attempts: make(map[int64]int),
		sent:     make(map[int64]int),
	}
	statsService := stats.NewService(client, cfg, broadcaster, zerolog.Nop())
	s := NewScheduler(statsService, nil, cfg, zerolog.Nop())
	s.retryDelay = time.Millisecond

	ctx := context.Background()
	prev := time.Now().In(cfg.Location()).AddDate(0, -1, 0)
	for i, chatID := range []int64{chatA, chatB} {
		user, err := client.UpsertUser(ctx, int64(100+i), chatID, "alice", "Alice", "")
		if err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
		photo := &models.Photo{
			FileID:    "file-1",
			ChatID:    chatID,
			MessageID: 1,
			UserID:    user.ID,
			CreatedAt: time.Date(prev.Year(), prev.Month(), 15, 12, 0, 0, 0, time.UTC),
		}
		if err := client.SavePhoto(ctx, photo); err != nil {
			t.Fatalf("SavePhoto failed: %v", err)
		}
	}

	s.runMonthlyAll(ctx)

	for _, chatID := range []int64{chatA, chatB} {
		exists, err := client.MonthlyStatExists(ctx, chatID, prev.Year(), int(prev.Month()))
		if err != nil {
			t.Fatalf("MonthlyStatExists failed: %v", err)
		}
		if !exists {
			t.Fatalf("expected chat %d snapshot written", chatID)
		}
	}
	if broadcaster.attempts[chatA] == 0 {
		t.Fatal("expected announcement attempts for the failing chat")
	}
	if broadcaster.sent[chatB] == 0 {
		t.Fatal("expected the healthy chat's announcement despite the other chat failing")
	}
}
