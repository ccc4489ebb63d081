package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/photo-reactions-bot/internal/models"
	"github.com/photo-reactions-bot/internal/summary"
)

var monthNames = []string{
	"январь", "февраль", "март", "апрель", "май", "июнь",
	"июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь",
}

func monthTitle(start time.Time) string {
	return fmt.Sprintf("%s %d", monthNames[start.Month()-1], start.Year())
}

// AnnounceWinners posts the three winner congratulations for the window to
// targetChatID, ranking the content of sourceChatID. The two differ only
// for test runs. Each section fails independently: a broken photo send
// still lets the publisher and receiver announcements go out, with the
// failure recorded on the result.
func (s *Service) AnnounceWinners(ctx context.Context, sourceChatID, targetChatID int64, start, end time.Time) *models.WinnersResult {
	result := &models.WinnersResult{
		SourceChatID: sourceChatID,
		TargetChatID: targetChatID,
		PeriodStart:  start,
		PeriodEnd:    end,
	}
	title := monthTitle(start)

	winner, err := s.storage.WinningPhoto(ctx, sourceChatID, start, end)
	if err != nil {
		s.recordFailure(result, "winning photo", err)
	} else if winner != nil {
		result.WinningPhoto = &models.WinningPhotoSummary{
			PhotoID:         winner.Photo.ID,
			MessageID:       winner.Photo.MessageID,
			FileID:          winner.Photo.FileID,
			ReactionCount:   winner.ReactionCount,
			IsAlbum:         winner.IsAlbum,
			AuthorUsername:  winner.Author.Username,
			AuthorFirstName: winner.Author.FirstName,
		}
		if err := s.sendWinningPhoto(ctx, sourceChatID, targetChatID, winner, title); err != nil {
			s.recordFailure(result, "winning photo", err)
		}
	}

	publisher, err := s.storage.TopPublisher(ctx, sourceChatID, start, end)
	if err != nil {
		s.recordFailure(result, "top publisher", err)
	} else if publisher != nil {
		result.TopPublisher = publisher
		text := fmt.Sprintf("📷 <b>ФОТОПУЛЕМЁТ - %s!</b>\n<i>%s</i>\n\n"+
			"Опубликовал <b>%d фотографий</b>\n<i>Спасибо за активность!</i>",
			displayName(publisher.Username, publisher.FirstName), title, publisher.PhotoCount)
		if _, err := s.broadcaster.SendMessage(targetChatID, text); err != nil {
			s.recordFailure(result, "top publisher", err)
		}
	}

	receiver, err := s.storage.TopReactionReceiver(ctx, sourceChatID, start, end)
	if err != nil {
		s.recordFailure(result, "top receiver", err)
	} else if receiver != nil {
		result.TopReactionReceiver = receiver
		text := fmt.Sprintf("❤️ <b>КОЛЛЕКЦИОНЕР РЕАКЦИЙ - %s!</b>\n<i>%s</i>\n\n"+
			"Получил больше всего реакций : <b>%d шт.</b>\nОпубликовав <b>%d</b> фотографий!",
			displayName(receiver.Username, receiver.FirstName), title, receiver.ReactionCount, receiver.PhotoCount)
		if _, err := s.broadcaster.SendMessage(targetChatID, text); err != nil {
			s.recordFailure(result, "top receiver", err)
		}
	}

	return result
}

func (s *Service) sendWinningPhoto(ctx context.Context, sourceChatID, targetChatID int64, winner *models.WinningPhoto, title string) error {
	caption := fmt.Sprintf("🏆 <b><a href=\"https://t.me/c/%s/%d\">ФОТО МЕСЯЦА</a></b> <i>%s</i>\n\n"+
		"Автор: %s\nЭто фото получило больше всего реакций! А именно - <b>%d!</b>",
		summary.ChatIDForLink(sourceChatID), winner.Photo.MessageID, title,
		displayName(winner.Author.Username, winner.Author.FirstName), winner.ReactionCount)

	if winner.Photo.MediaGroupID == nil {
		return s.broadcaster.SendPhoto(targetChatID, winner.Photo.FileID, caption)
	}

	photos, err := s.storage.GetMediaGroupPhotos(ctx, *winner.Photo.MediaGroupID)
	if err != nil {
		return fmt.Errorf("load album photos: %w", err)
	}
	if len(photos) > 1 {
		caption = fmt.Sprintf("🏆 <b><a href=\"https://t.me/c/%s/%d\">ФОТО МЕСЯЦА</a></b> <i>%s</i>\n\n"+
			"Автор: %s\nЭти фото получили больше всего реакций! А именно - <b>%d!</b>",
			summary.ChatIDForLink(sourceChatID), winner.Photo.MessageID, title,
			displayName(winner.Author.Username, winner.Author.FirstName), winner.ReactionCount)
	}

	fileIDs := make([]string, 0, len(photos))
	for _, photo := range photos {
		fileIDs = append(fileIDs, photo.FileID)
	}
	if len(fileIDs) == 0 {
		fileIDs = append(fileIDs, winner.Photo.FileID)
	}
	return s.broadcaster.SendMediaGroup(targetChatID, fileIDs, caption)
}

func (s *Service) recordFailure(result *models.WinnersResult, section string, err error) {
	s.logger.Error().Err(err).
		Int64("chat_id", result.SourceChatID).
		Int64("target_chat_id", result.TargetChatID).
		Str("section", section).
		Msg("Winners announcement section failed")
	result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", section, err))
}

func displayName(username, firstName string) string {
	if username != "" {
		return "@" + username
	}
	if firstName != "" {
		return firstName
	}
	return "Пользователь"
}
