package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.storage.Ping(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	s.writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMonthlyStats returns stored snapshots. Without query parameters the
// current UTC year and month are assumed.
func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	chatID := s.allowedChatFromPath(w, r, "/statistics/monthly/")
	if chatID == 0 {
		return
	}

	now := time.Now().UTC()
	year, ok := s.queryInt(w, r, "year", now.Year())
	if !ok {
		return
	}
	month, ok := s.queryInt(w, r, "month", int(now.Month()))
	if !ok {
		return
	}
	if month < 1 || month > 12 {
		s.writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	stats, err := s.storage.GetMonthlyStats(r.Context(), chatID, year, month)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeData(w, http.StatusOK, stats)
}

// handleCurrentStats renders the month-to-date summary without touching the
// pinned message.
func (s *Server) handleCurrentStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	chatID := s.allowedChatFromPath(w, r, "/statistics/current/")
	if chatID == 0 {
		return
	}

	text, err := s.generator.RenderMonthToDate(r.Context(), chatID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeData(w, http.StatusOK, map[string]interface{}{
		"chat_id":         chatID,
		"statistics_text": text,
		"generated_at":    time.Now().UTC(),
	})
}

type winnersTestRequest struct {
	SourceChatID int64      `json:"source_chat_id"`
	TargetChatID int64      `json:"target_chat_id"`
	Year         *int       `json:"year,omitempty"`
	Month        *int       `json:"month,omitempty"`
	StartDateUTC *time.Time `json:"start_date_utc,omitempty"`
	EndDateUTC   *time.Time `json:"end_date_utc,omitempty"`
}

// handleWinnersTest runs the winners announcement for an arbitrary window,
// posting to a chat of the caller's choice. The window is either year/month,
// explicit start/end dates, or the previous local month when neither is
// given.
func (s *Server) handleWinnersTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req winnersTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !s.config.IsAllowedChat(req.SourceChatID) {
		s.writeError(w, http.StatusBadRequest, "source chat not allowed")
		return
	}
	if !s.config.IsAllowedChat(req.TargetChatID) {
		s.writeError(w, http.StatusBadRequest, "target chat not allowed")
		return
	}

	if (req.Year == nil) != (req.Month == nil) {
		s.writeError(w, http.StatusBadRequest, "both year and month must be provided together for a custom period")
		return
	}
	if (req.StartDateUTC == nil) != (req.EndDateUTC == nil) {
		s.writeError(w, http.StatusBadRequest, "both start and end dates must be provided together for a custom period")
		return
	}
	if req.Year != nil && req.StartDateUTC != nil {
		s.writeError(w, http.StatusBadRequest, "specify either year/month or start/end dates, not both")
		return
	}
	if req.Month != nil && (*req.Month < 1 || *req.Month > 12) {
		s.writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	var start, end time.Time
	switch {
	case req.StartDateUTC != nil:
		start = req.StartDateUTC.UTC()
		end = req.EndDateUTC.UTC()
		if !end.After(start) {
			s.writeError(w, http.StatusBadRequest, "end date must be greater than start date")
			return
		}
	case req.Year != nil:
		start = time.Date(*req.Year, time.Month(*req.Month), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	default:
		local := time.Now().In(s.config.Location())
		prev := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		start = prev
		end = prev.AddDate(0, 1, 0)
	}

	result := s.stats.AnnounceWinners(r.Context(), req.SourceChatID, req.TargetChatID, start, end)
	s.writeData(w, http.StatusOK, result)
}

func (s *Server) handleTopMessageCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	chatID := s.allowedChatFromPath(w, r, "/topmessages/create/")
	if chatID == 0 {
		return
	}

	record, err := s.publisher.Create(r.Context(), chatID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeData(w, http.StatusOK, record)
}

func (s *Server) handleTopMessageUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	chatID := s.allowedChatFromPath(w, r, "/topmessages/update/")
	if chatID == 0 {
		return
	}

	if err := s.publisher.Update(r.Context(), chatID); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeData(w, http.StatusOK, map[string]interface{}{
		"chat_id":    chatID,
		"updated":    true,
		"updated_at": time.Now().UTC(),
	})
}

func (s *Server) handleTopMessageActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	chatID := s.allowedChatFromPath(w, r, "/topmessages/active/")
	if chatID == 0 {
		return
	}

	record, err := s.storage.GetActiveTopMessage(r.Context(), chatID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if record == nil {
		s.writeError(w, http.StatusNotFound, "no active top message found")
		return
	}
	s.writeData(w, http.StatusOK, record)
}

// queryInt reads an optional integer query parameter. A malformed value is
// answered with 400 and ok=false.
func (s *Server) queryInt(w http.ResponseWriter, r *http.Request, key string, defaultValue int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid "+key+" parameter")
		return 0, false
	}
	return value, true
}
