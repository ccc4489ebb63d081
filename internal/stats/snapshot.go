package stats

import (
	"context"
	"fmt"

	"github.com/photo-reactions-bot/internal/models"
	"github.com/photo-reactions-bot/internal/storage"
)

// WriteSnapshot computes and stores the ranking snapshot for one calendar
// month. It is idempotent: a month that already has a snapshot is left
// untouched and the call reports written=false. A period with no activity
// still produces a row with null winners and zero totals, which marks the
// month as closed.
func (s *Service) WriteSnapshot(ctx context.Context, chatID int64, year, month int) (bool, error) {
	if month < 1 || month > 12 {
		return false, fmt.Errorf("invalid month %d", month)
	}

	exists, err := s.storage.MonthlyStatExists(ctx, chatID, year, month)
	if err != nil {
		return false, fmt.Errorf("check snapshot: %w", err)
	}
	if exists {
		return false, nil
	}

	start, end := monthWindow(year, month)

	stat := &models.MonthlyStat{
		ChatID: chatID,
		Year:   year,
		Month:  month,
	}

	topPhoto, err := s.storage.TopPhoto(ctx, chatID, start, end)
	if err != nil {
		return false, fmt.Errorf("top photo: %w", err)
	}
	if topPhoto != nil {
		stat.TopPhotoID = &topPhoto.Photo.ID
		stat.TopPhotoReactionCount = topPhoto.ReactionCount
	}

	topAlbum, err := s.storage.TopAlbum(ctx, chatID, start, end)
	if err != nil {
		return false, fmt.Errorf("top album: %w", err)
	}
	if topAlbum != nil {
		stat.TopMediaGroupID = &topAlbum.MediaGroup.ID
		stat.TopMediaGroupReactionCount = topAlbum.ReactionCount
	}

	topReceiver, err := s.storage.TopReactionReceiver(ctx, chatID, start, end)
	if err != nil {
		return false, fmt.Errorf("top receiver: %w", err)
	}
	if topReceiver != nil {
		stat.TopUserID = &topReceiver.UserID
		stat.TopUserReactionCount = topReceiver.ReactionCount
	}

	topKind, err := s.storage.TopReactionKind(ctx, chatID, start, end)
	if err != nil {
		return false, fmt.Errorf("top reaction kind: %w", err)
	}
	if topKind != nil {
		stat.TopReactionType = topKind.Type
		stat.TopReactionUsageCount = topKind.Count
	}

	totals, err := s.storage.PeriodTotals(ctx, chatID, start, end)
	if err != nil {
		return false, fmt.Errorf("period totals: %w", err)
	}
	stat.TotalPhotos = totals.Photos
	stat.TotalMediaGroups = totals.MediaGroups
	stat.TotalReactions = totals.Reactions
	stat.TotalActiveUsers = totals.ActiveUsers

	if err := s.storage.InsertMonthlyStat(ctx, stat); err != nil {
		if storage.IsUniqueViolation(err) {
			// A concurrent run won the insert race.
			return false, nil
		}
		return false, fmt.Errorf("insert snapshot: %w", err)
	}

	s.logger.Info().
		Int64("chat_id", chatID).
		Int("year", year).
		Int("month", month).
		Int("total_photos", stat.TotalPhotos).
		Int("total_reactions", stat.TotalReactions).
		Msg("Monthly snapshot written")

	return true, nil
}
