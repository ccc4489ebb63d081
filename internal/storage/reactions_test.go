package storage_test

import (
	"context"
	"testing"

	"github.com/photo-reactions-bot/internal/models"
)

func TestAddReactionAbsorbsDuplicates(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()
	author := seedUser(t, client, 100, "alice")
	reactor := seedUser(t, client, 200, "bob")
	photo := seedPhoto(t, client, author, 1, nil)
	target := models.PhotoTarget(photo.ID)

	inserted, err := client.AddReaction(ctx, reactor.ID, testChatID, target, "👍")
	if err != nil {
		t.Fatalf("AddReaction failed: %v", err)
	}
	if !inserted {
		t.Fatal("expected first insert to report a new row")
	}

	inserted, err = client.AddReaction(ctx, reactor.ID, testChatID, target, "👍")
	if err != nil {
		t.Fatalf("AddReaction replay failed: %v", err)
	}
	if inserted {
		t.Fatal("expected duplicate insert to be absorbed")
	}

	// Same user, different kind on the same photo is a distinct fact.
	inserted, err = client.AddReaction(ctx, reactor.ID, testChatID, target, "❤️")
	if err != nil {
		t.Fatalf("AddReaction second kind failed: %v", err)
	}
	if !inserted {
		t.Fatal("expected a second kind to insert")
	}

	reactions, err := client.ListReactionsByChat(ctx, testChatID)
	if err != nil {
		t.Fatalf("ListReactionsByChat failed: %v", err)
	}
	if len(reactions) != 2 {
		t.Fatalf("expected 2 reactions, got %d", len(reactions))
	}
}

func TestRemoveReaction(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()
	author := seedUser(t, client, 100, "alice")
	reactor := seedUser(t, client, 200, "bob")
	photo := seedPhoto(t, client, author, 1, nil)
	target := models.PhotoTarget(photo.ID)

	addReaction(t, client, reactor, target, "👍")

	removed, err := client.RemoveReaction(ctx, reactor.ID, target, "👍")
	if err != nil {
		t.Fatalf("RemoveReaction failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal of existing reaction")
	}

	removed, err = client.RemoveReaction(ctx, reactor.ID, target, "👍")
	if err != nil {
		t.Fatalf("RemoveReaction replay failed: %v", err)
	}
	if removed {
		t.Fatal("expected second removal to be a no-op")
	}
}

func TestAddReactionToMediaGroup(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()
	author := seedUser(t, client, 100, "alice")
	reactor := seedUser(t, client, 200, "bob")

	group, err := client.GetOrCreateMediaGroup(ctx, "album-1", testChatID)
	if err != nil {
		t.Fatalf("GetOrCreateMediaGroup failed: %v", err)
	}
	seedPhoto(t, client, author, 1, group)

	target := models.MediaGroupTarget(group.ID)
	inserted, err := client.AddReaction(ctx, reactor.ID, testChatID, target, "🔥")
	if err != nil {
		t.Fatalf("AddReaction failed: %v", err)
	}
	if !inserted {
		t.Fatal("expected album reaction to insert")
	}

	inserted, err = client.AddReaction(ctx, reactor.ID, testChatID, target, "🔥")
	if err != nil {
		t.Fatalf("AddReaction replay failed: %v", err)
	}
	if inserted {
		t.Fatal("expected duplicate album reaction to be absorbed")
	}
}

// Only the duplicate-reaction conflict is absorbed; a broken reference must
// come back as an error instead of a silent non-insert.
func TestAddReactionSurfacesIntegrityErrors(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()
	reactor := seedUser(t, client, 200, "bob")

	if _, err := client.AddReaction(ctx, reactor.ID, testChatID, models.PhotoTarget(9999), "👍"); err == nil {
		t.Fatal("expected foreign key violation for unknown photo")
	}
	if _, err := client.AddReaction(ctx, reactor.ID, testChatID, models.MediaGroupTarget(9999), "👍"); err == nil {
		t.Fatal("expected foreign key violation for unknown media group")
	}
}
