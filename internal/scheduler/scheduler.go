package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/photo-reactions-bot/internal/models"
	"github.com/photo-reactions-bot/internal/stats"
	"github.com/photo-reactions-bot/internal/summary"
)

// monthlyRetryDelay is the backoff before retrying a failed monthly run.
const monthlyRetryDelay = time.Minute

// Scheduler drives the two periodic tasks: the monthly close-out on the
// 1st of each month and the short-interval summary refresh.
type Scheduler struct {
	stats      *stats.Service
	publisher  *summary.Publisher
	config     *models.BotConfig
	logger     zerolog.Logger
	location   *time.Location
	cron       *cron.Cron
	retryDelay time.Duration
}

// NewScheduler creates a scheduler. Wall-clock times are interpreted in
// the configured fixed-offset zone.
func NewScheduler(
	statsService *stats.Service,
	publisher *summary.Publisher,
	config *models.BotConfig,
	logger zerolog.Logger,
) *Scheduler {
	loc := config.Location()
	return &Scheduler{
		stats:      statsService,
		publisher:  publisher,
		config:     config,
		logger:     logger.With().Str("component", "scheduler").Logger(),
		location:   loc,
		cron:       cron.New(cron.WithLocation(loc)),
		retryDelay: monthlyRetryDelay,
	}
}

// Start runs the scheduler until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info().Msg("Starting scheduler...")

	spec := fmt.Sprintf("@every %dm", s.config.TopMessageUpdateMinutes)
	if _, err := s.cron.AddFunc(spec, func() {
		jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		s.publisher.UpdateAll(jobCtx)
	}); err != nil {
		return fmt.Errorf("schedule summary refresh: %w", err)
	}
	s.cron.Start()

	nextRun := s.nextMonthlyRun(time.Now().In(s.location))
	s.logger.Info().
		Time("next_monthly_run", nextRun).
		Dur("wait_duration", time.Until(nextRun)).
		Str("summary_refresh", spec).
		Msg("Scheduled next monthly close-out")

	go s.runMonthlyScheduler(ctx)

	s.logger.Info().Msg("Scheduler started and running")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
	return ctx.Err()
}

// runMonthlyScheduler sleeps until each monthly run instant and closes out
// the previous month for every tracked chat.
func (s *Scheduler) runMonthlyScheduler(ctx context.Context) {
	for {
		nextRun := s.nextMonthlyRun(time.Now().In(s.location))
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(nextRun)):
			s.runMonthlyAll(ctx)
		}
	}
}

// runMonthlyAll processes chats sequentially so announcements do not
// interleave. A failed chat gets one retry after a short backoff; the
// snapshot's idempotence makes the retry safe.
func (s *Scheduler) runMonthlyAll(ctx context.Context) {
	s.logger.Info().
		Int("chat_count", len(s.config.AllowedChatIDs)).
		Msg("Running monthly close-out for all chats")

	for _, chatID := range s.config.AllowedChatIDs {
		err := s.stats.RunMonthly(ctx, chatID)
		if err == nil {
			continue
		}
		s.logger.Error().Err(err).
			Int64("chat_id", chatID).
			Dur("retry_in", s.retryDelay).
			Msg("Monthly close-out failed, will retry")

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryDelay):
		}

		if err := s.stats.RunMonthly(ctx, chatID); err != nil {
			s.logger.Error().Err(err).
				Int64("chat_id", chatID).
				Msg("Monthly close-out retry failed")
		}
	}
}

// nextMonthlyRun returns the next 1st-of-month announce instant at or after
// now.
func (s *Scheduler) nextMonthlyRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), 1, s.config.MonthlyAnnounceHour, 0, 0, 0, s.location)
	if !now.Before(next) {
		next = next.AddDate(0, 1, 0)
	}
	return next
}
