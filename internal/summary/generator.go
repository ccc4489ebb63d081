package summary

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/photo-reactions-bot/internal/models"
	"github.com/photo-reactions-bot/internal/storage"
)

const (
	topPhotosLimit    = 10
	topReceiversLimit = 15
	topReactionsLimit = 25
)

var monthNames = []string{
	"январь", "февраль", "март", "апрель", "май", "июнь",
	"июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь",
}

// Generator renders the month-to-date ranking into the pinned summary text.
// Rendering is deterministic for a fixed ledger state, which is what makes
// the publisher's change detection work.
type Generator struct {
	storage *storage.Client
	config  *models.BotConfig
	logger  zerolog.Logger
}

// NewGenerator creates a summary generator.
func NewGenerator(store *storage.Client, config *models.BotConfig, logger zerolog.Logger) *Generator {
	return &Generator{
		storage: store,
		config:  config,
		logger:  logger.With().Str("component", "summary").Logger(),
	}
}

// RenderMonthToDate builds the full summary document for the current
// calendar month. The window covers the whole month; rows from the future
// cannot exist, so this is month-to-date.
func (g *Generator) RenderMonthToDate(ctx context.Context, chatID int64) (string, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return g.Render(ctx, chatID, start, start.AddDate(0, 1, 0))
}

// Render builds the summary document for an arbitrary window.
func (g *Generator) Render(ctx context.Context, chatID int64, start, end time.Time) (string, error) {
	photos, err := g.storage.TopPhotoLinks(ctx, chatID, start, end, topPhotosLimit)
	if err != nil {
		return "", fmt.Errorf("rank photos: %w", err)
	}

	receivers, err := g.storage.TopReactionReceivers(ctx, chatID, start, end, topReceiversLimit)
	if err != nil {
		return "", fmt.Errorf("rank receivers: %w", err)
	}

	kinds, err := g.storage.TopReactionKinds(ctx, chatID, start, end, topReactionsLimit, g.config.ReactionKindMaxLen)
	if err != nil {
		return "", fmt.Errorf("rank reaction kinds: %w", err)
	}

	localNow := time.Now().In(g.config.Location())

	var b strings.Builder
	fmt.Fprintf(&b, "<b>СТАТИСТИКА ЧАТА</b> ❗️\n<i>за %s %d</i>\n", monthNames[localNow.Month()-1], localNow.Year())

	b.WriteString("<blockquote expandable><b>Эти фото</b> <s>почти</s> <b>никого не оставили равнодушным:</b>\n")
	if len(photos) > 0 {
		for i, photo := range photos {
			fmt.Fprintf(&b, "%d. <a href=\"https://t.me/c/%s/%d\">Фото</a> - %d шт.\n",
				i+1, ChatIDForLink(chatID), photo.MessageID, photo.ReactionCount)
		}
	} else {
		b.WriteString("Нет данных о фотографиях\n")
	}
	b.WriteString("</blockquote>\n")

	b.WriteString("<blockquote expandable><b>На их фото реагировали больше всего:</b>\n")
	listed := 0
	for _, recv := range receivers {
		if recv.PhotoCount == 0 {
			continue
		}
		listed++
		fmt.Fprintf(&b, "%d. %s - %d шт. (%d фото)\n",
			listed, displayName(recv.Username, recv.FirstName), recv.ReactionCount, recv.PhotoCount)
	}
	if listed == 0 {
		b.WriteString("Нет данных о пользователях\n")
	}
	b.WriteString("</blockquote>\n")

	b.WriteString("<blockquote expandable><b>Самые популярные реакции:</b>\n")
	if len(kinds) > 0 {
		for i, kind := range kinds {
			fmt.Fprintf(&b, "%d. %s - %d шт.\n", i+1, kind.Type, kind.Count)
		}
	} else {
		b.WriteString("Нет данных о реакциях\n")
	}
	b.WriteString("</blockquote>\n")

	fmt.Fprintf(&b, "<i>Последнее обновление: %s</i>", localNow.Format("15:04 02/01/2006"))

	return b.String(), nil
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

// ChatIDForLink converts a supergroup chat id into the short form used in
// t.me/c/ links: absolute value with the -100 prefix stripped.
func ChatIDForLink(chatID int64) string {
	link := strconv.FormatInt(chatID, 10)
	link = strings.TrimPrefix(link, "-")
	link = strings.TrimPrefix(link, "100")
	return link
}
