package summary_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/photo-reactions-bot/internal/models"
	"github.com/photo-reactions-bot/internal/summary"
)

type fakeMessenger struct {
	nextMessageID int64
	sendErr       error
	editErr       error
	pinErr        error
	deleteErr     error

	sent    []string
	edited  []string
	pinned  []int64
	deleted []int64
}

func (f *fakeMessenger) SendMessage(chatID int64, text string) (int64, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.nextMessageID++
	f.sent = append(f.sent, text)
	return f.nextMessageID, nil
}

func (f *fakeMessenger) EditMessage(chatID, messageID int64, text string) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.edited = append(f.edited, text)
	return nil
}

func (f *fakeMessenger) PinMessage(chatID, messageID int64) error {
	if f.pinErr != nil {
		return f.pinErr
	}
	f.pinned = append(f.pinned, messageID)
	return nil
}

func (f *fakeMessenger) DeleteMessage(chatID, messageID int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func TestPublisherCreatePinsAndRecords(t *testing.T) {
	client := openTestClient(t)
	cfg := testConfig()
	messenger := &fakeMessenger{}
	generator := summary.NewGenerator(client, cfg, zerolog.Nop())
	publisher := summary.NewPublisher(client, generator, messenger, cfg, zerolog.Nop())
	ctx := context.Background()

	record, err := publisher.Create(ctx, testChatID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(messenger.sent) != 1 || len(messenger.pinned) != 1 {
		t.Fatalf("expected one send and one pin, got %d and %d", len(messenger.sent), len(messenger.pinned))
	}
	if record.MessageID != messenger.pinned[0] {
		t.Fatal("expected the sent message to be pinned")
	}

	active, err := client.GetActiveTopMessage(ctx, testChatID)
	if err != nil {
		t.Fatalf("GetActiveTopMessage failed: %v", err)
	}
	if active == nil || active.ID != record.ID {
		t.Fatalf("expected created summary to be active, got %#v", active)
	}
	if active.LastMessageContent != messenger.sent[0] {
		t.Fatal("expected stored content to match the sent text")
	}

	now := time.Now().UTC()
	wantStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if !active.PeriodStart.Equal(wantStart) || !active.PeriodEnd.Equal(wantStart.AddDate(0, 1, 0)) {
		t.Fatalf("expected the current month window, got %v..%v", active.PeriodStart, active.PeriodEnd)
	}
}

func TestPublisherCreateRetiresPreviousSummary(t *testing.T) {
	client := openTestClient(t)
	cfg := testConfig()
	messenger := &fakeMessenger{}
	generator := summary.NewGenerator(client, cfg, zerolog.Nop())
	publisher := summary.NewPublisher(client, generator, messenger, cfg, zerolog.Nop())
	ctx := context.Background()

	first, err := publisher.Create(ctx, testChatID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := publisher.Create(ctx, testChatID)
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}

	if len(messenger.deleted) != 1 || messenger.deleted[0] != first.MessageID {
		t.Fatalf("expected previous chat message deleted, got %v", messenger.deleted)
	}
	active, err := client.GetActiveTopMessage(ctx, testChatID)
	if err != nil {
		t.Fatalf("GetActiveTopMessage failed: %v", err)
	}
	if active == nil || active.ID != second.ID {
		t.Fatalf("expected only the new summary active, got %#v", active)
	}
}

func TestPublisherCreateSurvivesDeleteAndPinFailures(t *testing.T) {
	client := openTestClient(t)
	cfg := testConfig()
	messenger := &fakeMessenger{deleteErr: errors.New("gone"), pinErr: errors.New("no rights")}
	generator := summary.NewGenerator(client, cfg, zerolog.Nop())
	publisher := summary.NewPublisher(client, generator, messenger, cfg, zerolog.Nop())
	ctx := context.Background()

	if _, err := publisher.Create(ctx, testChatID); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	// Second create: the delete of the previous message fails but the new
	// summary still goes out.
	record, err := publisher.Create(ctx, testChatID)
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if record == nil || !record.IsActive {
		t.Fatalf("expected active record despite delete/pin failures, got %#v", record)
	}
}

func TestPublisherUpdateSkipsUnchangedContent(t *testing.T) {
	client := openTestClient(t)
	cfg := testConfig()
	messenger := &fakeMessenger{}
	generator := summary.NewGenerator(client, cfg, zerolog.Nop())
	publisher := summary.NewPublisher(client, generator, messenger, cfg, zerolog.Nop())
	ctx := context.Background()

	if _, err := publisher.Create(ctx, testChatID); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := publisher.Update(ctx, testChatID); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(messenger.edited) != 0 {
		t.Fatalf("expected no edit for unchanged content, got %d", len(messenger.edited))
	}
}

func TestPublisherUpdateEditsChangedContent(t *testing.T) {
	client := openTestClient(t)
	cfg := testConfig()
	messenger := &fakeMessenger{}
	generator := summary.NewGenerator(client, cfg, zerolog.Nop())
	publisher := summary.NewPublisher(client, generator, messenger, cfg, zerolog.Nop())
	ctx := context.Background()

	record := &models.TopMessage{
		ChatID:             testChatID,
		MessageID:          42,
		LastMessageContent: "stale",
		PeriodStart:        time.Now().UTC(),
		PeriodEnd:          time.Now().UTC().AddDate(0, 1, 0),
	}
	if err := client.InsertTopMessage(ctx, record); err != nil {
		t.Fatalf("InsertTopMessage failed: %v", err)
	}

	if err := publisher.Update(ctx, testChatID); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(messenger.edited) != 1 {
		t.Fatalf("expected one edit, got %d", len(messenger.edited))
	}

	active, err := client.GetActiveTopMessage(ctx, testChatID)
	if err != nil {
		t.Fatalf("GetActiveTopMessage failed: %v", err)
	}
	if active.LastMessageContent != messenger.edited[0] {
		t.Fatal("expected stored content to match the edited text")
	}
}

func TestPublisherUpdateKeepsStaleContentOnEditFailure(t *testing.T) {
	client := openTestClient(t)
	cfg := testConfig()
	messenger := &fakeMessenger{editErr: errors.New("message not found")}
	generator := summary.NewGenerator(client, cfg, zerolog.Nop())
	publisher := summary.NewPublisher(client, generator, messenger, cfg, zerolog.Nop())
	ctx := context.Background()

	record := &models.TopMessage{
		ChatID:             testChatID,
		MessageID:          42,
		LastMessageContent: "stale",
		PeriodStart:        time.Now().UTC(),
		PeriodEnd:          time.Now().UTC().AddDate(0, 1, 0),
	}
	if err := client.InsertTopMessage(ctx, record); err != nil {
		t.Fatalf("InsertTopMessage failed: %v", err)
	}

	// The failed edit is logged, not returned, and the stored content is
	// left stale so the next cycle retries.
	if err := publisher.Update(ctx, testChatID); err != nil {
		t.Fatalf("Update returned error on edit failure: %v", err)
	}
	active, err := client.GetActiveTopMessage(ctx, testChatID)
	if err != nil {
		t.Fatalf("GetActiveTopMessage failed: %v", err)
	}
	if active.LastMessageContent != "stale" {
		t.Fatalf("expected content untouched, got %q", active.LastMessageContent)
	}
}

func TestPublisherUpdateWithoutActiveSummary(t *testing.T) {
	client := openTestClient(t)
	cfg := testConfig()
	messenger := &fakeMessenger{}
	generator := summary.NewGenerator(client, cfg, zerolog.Nop())
	publisher := summary.NewPublisher(client, generator, messenger, cfg, zerolog.Nop())

	if err := publisher.Update(context.Background(), testChatID); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(messenger.sent)+len(messenger.edited) != 0 {
		t.Fatal("expected no messaging without an active summary")
	}
}
