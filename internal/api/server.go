package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/photo-reactions-bot/internal/models"
	"github.com/photo-reactions-bot/internal/stats"
	"github.com/photo-reactions-bot/internal/storage"
	"github.com/photo-reactions-bot/internal/summary"
)

// Server exposes the operational HTTP surface: stored snapshots, on-demand
// summaries, and manual triggers for the pinned summary and the winners
// announcement.
type Server struct {
	storage   *storage.Client
	config    *models.BotConfig
	stats     *stats.Service
	generator *summary.Generator
	publisher *summary.Publisher
	logger    zerolog.Logger
	server    *http.Server
}

// NewServer creates the HTTP server bound to the configured address.
func NewServer(
	store *storage.Client,
	config *models.BotConfig,
	statsService *stats.Service,
	generator *summary.Generator,
	publisher *summary.Publisher,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		storage:   store,
		config:    config,
		stats:     statsService,
		generator: generator,
		publisher: publisher,
		logger:    logger.With().Str("component", "api").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/statistics/monthly/test", s.handleWinnersTest)
	mux.HandleFunc("/statistics/monthly/", s.handleMonthlyStats)
	mux.HandleFunc("/statistics/current/", s.handleCurrentStats)
	mux.HandleFunc("/topmessages/create/", s.handleTopMessageCreate)
	mux.HandleFunc("/topmessages/update/", s.handleTopMessageUpdate)
	mux.HandleFunc("/topmessages/active/", s.handleTopMessageActive)

	s.server = &http.Server{
		Addr:              config.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info().Str("addr", s.config.HTTPAddr).Msg("HTTP server listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

// response is the envelope every endpoint returns.
type response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func (s *Server) writeData(w http.ResponseWriter, status int, data interface{}) {
	s.writeJSON(w, status, response{OK: true, Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, response{OK: false, Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// chatIDFromPath extracts the trailing chat ID path segment.
func chatIDFromPath(path, prefix string) (int64, error) {
	raw := strings.TrimPrefix(path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		return 0, fmt.Errorf("missing chat ID")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat ID %q", raw)
	}
	return id, nil
}

// allowedChatFromPath resolves and authorizes the chat named in the path.
// A zero return means the request was already answered.
func (s *Server) allowedChatFromPath(w http.ResponseWriter, r *http.Request, prefix string) int64 {
	chatID, err := chatIDFromPath(r.URL.Path, prefix)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return 0
	}
	if !s.config.IsAllowedChat(chatID) {
		s.writeError(w, http.StatusBadRequest, "chat not allowed")
		return 0
	}
	return chatID
}
