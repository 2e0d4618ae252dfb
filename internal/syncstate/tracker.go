// Package syncstate tracks per-cardset sync checkpoints. Synced only ever
// follows a fetch that produced records and no parse errors.
package syncstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/tcg-scraper/internal/models"
)

var ErrIncompleteBatch = errors.New("batch is incomplete")

// Store is the keyed durable state the tracker reads and writes. Unknown
// cardsets must read back as Unsynced.
type Store interface {
	GetSyncState(ctx context.Context, cardsetID string) (models.SyncState, error)
	SetSyncState(ctx context.Context, cardsetID string, state models.SyncState) error
}

// Attempt summarizes one fetch of one cardset.
type Attempt struct {
	CardsetID string
	Successes int
	Errors    int
}

func (a Attempt) Complete() bool {
	return a.Errors == 0 && a.Successes > 0
}

type Tracker struct {
	store  Store
	logger *slog.Logger
}

func NewTracker(store Store, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:  store,
		logger: logger.With("component", "sync_tracker"),
	}
}

func (t *Tracker) State(ctx context.Context, cardsetID string) (models.SyncState, error) {
	state, err := t.store.GetSyncState(ctx, cardsetID)
	if err != nil {
		return models.Unsynced, fmt.Errorf("failed to get sync state of %s: %w", cardsetID, err)
	}
	return state, nil
}

// Record applies the outcome of a fetch attempt and returns the new state.
// Any parse error forces Unsynced, a complete batch marks Synced and an
// attempt with neither leaves the state alone.
func (t *Tracker) Record(ctx context.Context, a Attempt) (models.SyncState, error) {
	switch {
	case a.Errors > 0:
		current, err := t.State(ctx, a.CardsetID)
		if err != nil {
			return models.Unsynced, err
		}
		if current == models.Synced {
			t.logger.Warn("demoting synced cardset after failed records", "cardset_id", a.CardsetID, "errors", a.Errors)
		}
		return models.Unsynced, t.set(ctx, a.CardsetID, models.Unsynced)
	case a.Successes > 0:
		return models.Synced, t.MarkSynced(ctx, a)
	default:
		t.logger.Info("empty batch, sync state unchanged", "cardset_id", a.CardsetID)
		return t.State(ctx, a.CardsetID)
	}
}

func (t *Tracker) MarkSynced(ctx context.Context, a Attempt) error {
	if !a.Complete() {
		return fmt.Errorf("%w: cardset %s had %d records and %d errors", ErrIncompleteBatch, a.CardsetID, a.Successes, a.Errors)
	}
	return t.set(ctx, a.CardsetID, models.Synced)
}

// RecordFailure handles a fetch that never produced a batch, such as a
// convergence or session failure. The cardset is left Unsynced.
func (t *Tracker) RecordFailure(ctx context.Context, cardsetID string, cause error) error {
	t.logger.Error("cardset fetch failed", "cardset_id", cardsetID, "error", cause)
	return t.set(ctx, cardsetID, models.Unsynced)
}

// Reset forces a full re-fetch on the next run.
func (t *Tracker) Reset(ctx context.Context, cardsetID string) error {
	return t.set(ctx, cardsetID, models.Unsynced)
}

func (t *Tracker) set(ctx context.Context, cardsetID string, state models.SyncState) error {
	if err := t.store.SetSyncState(ctx, cardsetID, state); err != nil {
		return fmt.Errorf("failed to set sync state of %s to %s: %w", cardsetID, state, err)
	}
	t.logger.Debug("sync state updated", "cardset_id", cardsetID, "state", state.String())
	return nil
}
