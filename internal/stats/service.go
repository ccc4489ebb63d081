package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/photo-reactions-bot/internal/models"
	"github.com/photo-reactions-bot/internal/storage"
)

// Broadcaster is the outbound surface the winners announcement needs. The
// bot's sender satisfies it; tests substitute a fake.
type Broadcaster interface {
	SendMessage(chatID int64, text string) (int64, error)
	SendPhoto(chatID int64, fileID, caption string) error
	SendMediaGroup(chatID int64, fileIDs []string, caption string) error
}

// Service closes out ranking periods: it freezes the monthly snapshot and
// posts the winners announcement.
type Service struct {
	storage     *storage.Client
	config      *models.BotConfig
	broadcaster Broadcaster
	logger      zerolog.Logger
}

// NewService creates a period close-out service.
func NewService(store *storage.Client, config *models.BotConfig, broadcaster Broadcaster, logger zerolog.Logger) *Service {
	return &Service{
		storage:     store,
		config:      config,
		broadcaster: broadcaster,
		logger:      logger.With().Str("component", "stats").Logger(),
	}
}

// RunMonthly closes out the previous calendar month for one chat: snapshot
// first, announcement second. The announcement still runs when the snapshot
// was already written by an earlier attempt.
func (s *Service) RunMonthly(ctx context.Context, chatID int64) error {
	year, month := previousMonth(time.Now().In(s.config.Location()))

	written, err := s.WriteSnapshot(ctx, chatID, year, month)
	if err != nil {
		return fmt.Errorf("snapshot %d-%02d for chat %d: %w", year, month, chatID, err)
	}
	if !written {
		s.logger.Info().
			Int64("chat_id", chatID).
			Int("year", year).
			Int("month", month).
			Msg("Monthly snapshot already exists")
	}

	start, end := monthWindow(year, month)
	result := s.AnnounceWinners(ctx, chatID, chatID, start, end)
	if len(result.Errors) > 0 {
		return fmt.Errorf("announce winners for chat %d: %s", chatID, result.Errors[0])
	}
	return nil
}

// monthWindow returns the UTC half-open window [start, end) covering one
// calendar month.
func monthWindow(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// previousMonth returns the year and month preceding the given local time.
func previousMonth(now time.Time) (int, int) {
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
	return prev.Year(), int(prev.Month())
}
