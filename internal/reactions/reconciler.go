package reactions

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/photo-reactions-bot/internal/models"
	"github.com/photo-reactions-bot/internal/storage"
)

// Reconciler converts "reaction state changed" events into the minimal set
// of ledger insertions and deletions. Replaying the same event stream is a
// no-op: additions are absorbed by uniqueness constraints and removals
// tolerate absent rows.
type Reconciler struct {
	storage *storage.Client
	logger  zerolog.Logger
}

// NewReconciler creates a reconciler on top of the ledger store.
func NewReconciler(store *storage.Client, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		storage: store,
		logger:  logger.With().Str("component", "reconciler").Logger(),
	}
}

// HandleReactionEvent applies one inbound reaction update. Events for
// messages the ledger does not track are discarded: the message may predate
// tracking or not be a photo at all.
func (r *Reconciler) HandleReactionEvent(ctx context.Context, ev *models.ReactionEvent) error {
	photo, err := r.storage.FindPhotoByMessage(ctx, ev.ChatID, ev.MessageID)
	if err != nil {
		return fmt.Errorf("resolve photo: %w", err)
	}
	if photo == nil {
		r.logger.Debug().
			Int64("chat_id", ev.ChatID).
			Int64("message_id", ev.MessageID).
			Msg("Reaction on untracked message, ignoring")
		return nil
	}

	user, err := r.storage.UpsertUser(ctx, ev.User.ID, ev.ChatID, ev.User.Username, ev.User.FirstName, ev.User.LastName)
	if err != nil {
		return fmt.Errorf("upsert reacting user: %w", err)
	}

	target := ResolveTarget(photo)
	removals, additions := diffKinds(ev.OldKinds, ev.NewKinds)

	for _, kind := range removals {
		removed, err := r.storage.RemoveReaction(ctx, user.ID, target, kind)
		if err != nil {
			return fmt.Errorf("remove reaction %q: %w", kind, err)
		}
		if removed {
			r.logger.Info().
				Int64("chat_id", ev.ChatID).
				Int64("message_id", ev.MessageID).
				Str("kind", kind).
				Str("target", target.String()).
				Str("user", user.DisplayName()).
				Msg("Reaction removed")
		}
	}

	for _, kind := range additions {
		inserted, err := r.storage.AddReaction(ctx, user.ID, ev.ChatID, target, kind)
		if err != nil {
			return fmt.Errorf("add reaction %q: %w", kind, err)
		}
		if inserted {
			r.logger.Info().
				Int64("chat_id", ev.ChatID).
				Int64("message_id", ev.MessageID).
				Str("kind", kind).
				Str("target", target.String()).
				Str("user", user.DisplayName()).
				Msg("Reaction saved")
		}
	}

	return nil
}

// ResolveTarget attributes a reaction: photos that belong to an album get
// the album as target, standalone photos get themselves.
func ResolveTarget(photo *models.Photo) models.ReactionTarget {
	if photo.MediaGroupID != nil {
		return models.MediaGroupTarget(*photo.MediaGroupID)
	}
	return models.PhotoTarget(photo.ID)
}

// diffKinds computes the symmetric difference of the previous and new kind
// sets: kinds only in old are removals, kinds only in new are additions.
// Both results are sorted so event application is deterministic.
func diffKinds(oldKinds, newKinds []string) (removals, additions []string) {
	oldSet := toSet(oldKinds)
	newSet := toSet(newKinds)

	for kind := range oldSet {
		if !newSet[kind] {
			removals = append(removals, kind)
		}
	}
	for kind := range newSet {
		if !oldSet[kind] {
			additions = append(additions, kind)
		}
	}
	sort.Strings(removals)
	sort.Strings(additions)
	return removals, additions
}

func toSet(kinds []string) map[string]bool {
	set := make(map[string]bool, len(kinds))
	for _, kind := range kinds {
		if kind == "" {
			continue
		}
		set[kind] = true
	}
	return set
}
