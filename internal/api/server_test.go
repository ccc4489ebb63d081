package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/photo-reactions-bot/internal/models"
	"github.com/photo-reactions-bot/internal/stats"
	"github.com/photo-reactions-bot/internal/storage"
	"github.com/photo-reactions-bot/internal/summary"
)

const testChatID = int64(-1001234567890)

// fakeTelegram satisfies both the summary messenger and the stats
// broadcaster so the server can be wired without a bot token.
type fakeTelegram struct {
	nextMessageID int64
}

func (f *fakeTelegram) SendMessage(chatID int64, text string) (int64, error) {
	f.nextMessageID++
	return f.nextMessageID, nil
}

func (f *fakeTelegram) EditMessage(chatID, messageID int64, text string) error { return nil }
func (f *fakeTelegram) PinMessage(chatID, messageID int64) error               { return nil }
func (f *fakeTelegram) DeleteMessage(chatID, messageID int64) error            { return nil }
func (f *fakeTelegram) SendPhoto(chatID int64, fileID, caption string) error   { return nil }
func (f *fakeTelegram) SendMediaGroup(chatID int64, fileIDs []string, caption string) error {
	return nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	client, err := storage.Open(filepath.Join(t.TempDir(), "bot.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	cfg := &models.BotConfig{
		AllowedChatIDs:      []int64{testChatID},
		TimezoneOffsetHours: 4,
		MonthlyAnnounceHour: 9,
		ReactionKindMaxLen:  4,
		HTTPAddr:            ":0",
	}
	telegram := &fakeTelegram{}
	generator := summary.NewGenerator(client, cfg, zerolog.Nop())
	publisher := summary.NewPublisher(client, generator, telegram, cfg, zerolog.Nop())
	statsService := stats.NewService(client, cfg, telegram, zerolog.Nop())
	return NewServer(client, cfg, statsService, generator, publisher, zerolog.Nop())
}

func doRequest(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	var envelope response
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding %s %s response: %v", method, path, err)
	}
	return rec, envelope
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec, envelope := doRequest(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !envelope.OK {
		t.Fatalf("unexpected health response: %d %+v", rec.Code, envelope)
	}
}

func TestMonthlyStatsRejectsUnknownChat(t *testing.T) {
	s := newTestServer(t)

	rec, envelope := doRequest(t, s, http.MethodGet, "/statistics/monthly/-100999", "")
	if rec.Code != http.StatusBadRequest || envelope.Error != "chat not allowed" {
		t.Fatalf("unexpected response: %d %+v", rec.Code, envelope)
	}
}

func TestMonthlyStatsRejectsMissingChatID(t *testing.T) {
	s := newTestServer(t)

	rec, envelope := doRequest(t, s, http.MethodGet, "/statistics/monthly/", "")
	if rec.Code != http.StatusBadRequest || envelope.Error != "missing chat ID" {
		t.Fatalf("unexpected response: %d %+v", rec.Code, envelope)
	}
}

func TestMonthlyStatsValidatesMonth(t *testing.T) {
	s := newTestServer(t)
	path := fmt.Sprintf("/statistics/monthly/%d?year=2026&month=13", testChatID)

	rec, envelope := doRequest(t, s, http.MethodGet, path, "")
	if rec.Code != http.StatusBadRequest || !strings.Contains(envelope.Error, "month") {
		t.Fatalf("unexpected response: %d %+v", rec.Code, envelope)
	}
}

func TestMonthlyStatsEmptyPeriod(t *testing.T) {
	s := newTestServer(t)
	path := fmt.Sprintf("/statistics/monthly/%d?year=2025&month=1", testChatID)

	rec, envelope := doRequest(t, s, http.MethodGet, path, "")
	if rec.Code != http.StatusOK || !envelope.OK {
		t.Fatalf("unexpected response: %d %+v", rec.Code, envelope)
	}
}

func TestCurrentStatsRendersSummary(t *testing.T) {
	s := newTestServer(t)
	path := fmt.Sprintf("/statistics/current/%d", testChatID)

	rec, envelope := doRequest(t, s, http.MethodGet, path, "")
	if rec.Code != http.StatusOK || !envelope.OK {
		t.Fatalf("unexpected response: %d %+v", rec.Code, envelope)
	}
	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %#v", envelope.Data)
	}
	text, _ := data["statistics_text"].(string)
	if !strings.Contains(text, "СТАТИСТИКА ЧАТА") {
		t.Fatalf("expected rendered summary, got %q", text)
	}
}

func TestWinnersTestValidation(t *testing.T) {
	s := newTestServer(t)
	chat := fmt.Sprintf("%d", testChatID)

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "malformed body",
			body: "{",
			want: "invalid request body",
		},
		{
			name: "unknown source chat",
			body: `{"source_chat_id": -100999, "target_chat_id": ` + chat + `}`,
			want: "source chat not allowed",
		},
		{
			name: "unknown target chat",
			body: `{"source_chat_id": ` + chat + `, "target_chat_id": -100999}`,
			want: "target chat not allowed",
		},
		{
			name: "year without month",
			body: `{"source_chat_id": ` + chat + `, "target_chat_id": ` + chat + `, "year": 2026}`,
			want: "both year and month",
		},
		{
			name: "start without end",
			body: `{"source_chat_id": ` + chat + `, "target_chat_id": ` + chat + `, "start_date_utc": "2026-01-01T00:00:00Z"}`,
			want: "both start and end dates",
		},
		{
			name: "both period forms",
			body: `{"source_chat_id": ` + chat + `, "target_chat_id": ` + chat + `, "year": 2026, "month": 1, "start_date_utc": "2026-01-01T00:00:00Z", "end_date_utc": "2026-02-01T00:00:00Z"}`,
			want: "not both",
		},
		{
			name: "month out of range",
			body: `{"source_chat_id": ` + chat + `, "target_chat_id": ` + chat + `, "year": 2026, "month": 13}`,
			want: "month must be between 1 and 12",
		},
		{
			name: "end before start",
			body: `{"source_chat_id": ` + chat + `, "target_chat_id": ` + chat + `, "start_date_utc": "2026-02-01T00:00:00Z", "end_date_utc": "2026-01-01T00:00:00Z"}`,
			want: "end date must be greater than start date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, envelope := doRequest(t, s, http.MethodPost, "/statistics/monthly/test", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %+v", rec.Code, envelope)
			}
			if !strings.Contains(envelope.Error, tt.want) {
				t.Fatalf("expected error containing %q, got %q", tt.want, envelope.Error)
			}
		})
	}
}

func TestWinnersTestDefaultPeriod(t *testing.T) {
	s := newTestServer(t)
	body := fmt.Sprintf(`{"source_chat_id": %d, "target_chat_id": %d}`, testChatID, testChatID)

	rec, envelope := doRequest(t, s, http.MethodPost, "/statistics/monthly/test", body)
	if rec.Code != http.StatusOK || !envelope.OK {
		t.Fatalf("unexpected response: %d %+v", rec.Code, envelope)
	}
}

func TestWinnersTestCustomMonth(t *testing.T) {
	s := newTestServer(t)
	body := fmt.Sprintf(`{"source_chat_id": %d, "target_chat_id": %d, "year": 2025, "month": 6}`, testChatID, testChatID)

	rec, envelope := doRequest(t, s, http.MethodPost, "/statistics/monthly/test", body)
	if rec.Code != http.StatusOK || !envelope.OK {
		t.Fatalf("unexpected response: %d %+v", rec.Code, envelope)
	}
	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %#v", envelope.Data)
	}
	start, _ := data["period_start"].(string)
	if !strings.HasPrefix(start, "2025-06-01T00:00:00") {
		t.Fatalf("unexpected period start: %q", start)
	}
}

func TestTopMessageActiveNotFound(t *testing.T) {
	s := newTestServer(t)
	path := fmt.Sprintf("/topmessages/active/%d", testChatID)

	rec, envelope := doRequest(t, s, http.MethodGet, path, "")
	if rec.Code != http.StatusNotFound || envelope.Error != "no active top message found" {
		t.Fatalf("unexpected response: %d %+v", rec.Code, envelope)
	}
}

func TestTopMessageCreateThenActive(t *testing.T) {
	s := newTestServer(t)

	rec, envelope := doRequest(t, s, http.MethodPost, fmt.Sprintf("/topmessages/create/%d", testChatID), "")
	if rec.Code != http.StatusOK || !envelope.OK {
		t.Fatalf("unexpected create response: %d %+v", rec.Code, envelope)
	}

	rec, envelope = doRequest(t, s, http.MethodGet, fmt.Sprintf("/topmessages/active/%d", testChatID), "")
	if rec.Code != http.StatusOK || !envelope.OK {
		t.Fatalf("unexpected active response: %d %+v", rec.Code, envelope)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/healthz"},
		{http.MethodGet, "/statistics/monthly/test"},
		{http.MethodGet, fmt.Sprintf("/topmessages/create/%d", testChatID)},
		{http.MethodPost, fmt.Sprintf("/topmessages/update/%d", testChatID)},
	}

	for _, tt := range tests {
		rec, envelope := doRequest(t, s, tt.method, tt.path, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: expected 405, got %d (%+v)", tt.method, tt.path, rec.Code, envelope)
		}
	}
}
