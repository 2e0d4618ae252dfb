package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/maltedev/tcg-scraper/internal/models"
	"github.com/maltedev/tcg-scraper/internal/scraper"
	"github.com/maltedev/tcg-scraper/internal/syncstate"
	"golang.org/x/sync/errgroup"
)

func (s *Service) ListCardsets(ctx context.Context) ([]models.Cardset, error) {
	return s.repo.ListCardsets(ctx)
}

// UpdateCardsets walks the cardset index and upserts every cardset it can
// read. A control that fails is logged and skipped.
func (s *Service) UpdateCardsets(ctx context.Context) (int, error) {
	var results []scraper.NavResult[models.Cardset]
	err := s.withSession(ctx, func(session scraper.Session) error {
		var err error
		results, err = s.fetcher.FetchCardsets(ctx, session)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch cardsets: %w", err)
	}

	upserted := 0
	for _, r := range results {
		if !r.OK() {
			s.logger.Error("failed to read cardset", "index", r.Index, "label", r.Label, "error", r.Err)
			continue
		}
		if err := s.repo.UpsertCardset(ctx, r.Value); err != nil {
			s.logger.Error("failed to upsert cardset", "cardset_id", r.Value.ID, "error", err)
			continue
		}
		upserted++
	}

	s.logger.Info("cardsets updated", "found", len(results), "upserted", upserted)
	return upserted, nil
}

// UpdateCardset fetches the cardset with the given ref code, like "SV4a".
// Ref codes match regardless of case.
func (s *Service) UpdateCardset(ctx context.Context, ref string) (Result, error) {
	ref = strings.TrimSpace(ref)
	cs, err := s.repo.FindCardsetByRef(ctx, ref)
	if errors.Is(err, models.ErrNotFound) {
		return Result{}, fmt.Errorf("%w: %s", ErrCardsetNotFound, ref)
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to find cardset %s: %w", ref, err)
	}
	return s.SyncCardset(ctx, cs)
}

func (s *Service) UpdateCardsetByID(ctx context.Context, id string) (Result, error) {
	cs, err := s.getCardset(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return s.SyncCardset(ctx, cs)
}

// SyncCardset fetches one cardset in its own session, upserts every card
// that parsed and records the attempt with the sync tracker.
func (s *Service) SyncCardset(ctx context.Context, cs models.Cardset) (Result, error) {
	logger := s.logger.With("cardset_id", cs.ID)
	result := Result{CardsetID: cs.ID, State: models.Unsynced}

	target, err := s.cardsetURL(cs)
	if err != nil {
		return result, err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return result, err
	}

	fetchCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.opts.FetchTimeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
	}
	defer cancel()

	var batch scraper.Batch
	err = s.withSession(fetchCtx, func(session scraper.Session) error {
		var err error
		batch, err = s.fetcher.FetchCards(fetchCtx, session, target)
		return err
	})
	if err != nil {
		s.limiter.RecordError()
		if rerr := s.tracker.RecordFailure(ctx, cs.ID, err); rerr != nil {
			logger.Error("failed to record fetch failure", "error", rerr)
		}
		return result, fmt.Errorf("failed to fetch cardset %s: %w", cs.ID, err)
	}
	s.limiter.RecordSuccess()

	cards, parseErrs := scraper.Partition(batch.Outcomes)
	for _, perr := range parseErrs {
		logger.Warn("skipping record", "error", perr)
	}
	result.Errors = len(parseErrs)

	for _, card := range cards {
		if err := s.repo.UpsertCard(ctx, card); err != nil {
			logger.Error("failed to upsert card", "card_id", card.ID, "error", err)
			result.Errors++
			continue
		}
		result.Upserted++
	}

	state, err := s.tracker.Record(ctx, syncstate.Attempt{
		CardsetID: cs.ID,
		Successes: result.Upserted,
		Errors:    result.Errors,
	})
	if err != nil {
		return result, err
	}
	result.State = state

	logger.Info("cardset fetched",
		"expected", batch.Expected,
		"upserted", result.Upserted,
		"errors", result.Errors,
		"state", state.String())
	return result, nil
}

// UpdateAll fetches every unsynced cardset, a few at a time. One failing
// cardset never stops the others.
func (s *Service) UpdateAll(ctx context.Context) (Summary, error) {
	cardsets, err := s.repo.ListCardsets(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list cardsets: %w", err)
	}

	var pending []models.Cardset
	for _, cs := range cardsets {
		if cs.SyncState == models.Unsynced {
			pending = append(pending, cs)
		}
	}
	s.logger.Info("updating cardsets", "pending", len(pending), "total", len(cardsets))

	var (
		mu      sync.Mutex
		summary = Summary{Attempted: len(pending)}
		g       errgroup.Group
	)
	g.SetLimit(s.opts.ConcurrentLimit)

	for _, cs := range pending {
		cs := cs
		g.Go(func() error {
			res, err := s.SyncCardset(ctx, cs)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
			case res.State == models.Synced:
				summary.Synced++
			default:
				summary.Unsynced++
			}
			return nil
		})
	}
	g.Wait()

	s.logger.Info("update finished",
		"attempted", summary.Attempted,
		"synced", summary.Synced,
		"unsynced", summary.Unsynced,
		"failed", summary.Failed)
	return summary, ctx.Err()
}

// ResyncAll resets every synced cardset and fetches everything again.
func (s *Service) ResyncAll(ctx context.Context) (Summary, error) {
	cardsets, err := s.repo.ListCardsets(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list cardsets: %w", err)
	}
	for _, cs := range cardsets {
		if cs.SyncState != models.Synced {
			continue
		}
		if err := s.tracker.Reset(ctx, cs.ID); err != nil {
			return Summary{}, err
		}
	}
	return s.UpdateAll(ctx)
}

func (s *Service) Reset(ctx context.Context, id string) error {
	if _, err := s.getCardset(ctx, id); err != nil {
		return err
	}
	return s.tracker.Reset(ctx, id)
}

func (s *Service) getCardset(ctx context.Context, id string) (models.Cardset, error) {
	cs, err := s.repo.GetCardset(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return models.Cardset{}, fmt.Errorf("%w: %s", ErrCardsetNotFound, id)
	}
	if err != nil {
		return models.Cardset{}, fmt.Errorf("failed to get cardset %s: %w", id, err)
	}
	return cs, nil
}

func (s *Service) cardsetURL(cs models.Cardset) (models.CardsetURL, error) {
	if cs.URL != "" {
		return models.ParseCardsetURL(cs.URL)
	}
	return models.CardsetURLFromID(s.opts.BaseURL, cs.ID)
}
