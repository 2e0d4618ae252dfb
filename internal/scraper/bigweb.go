package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maltedev/tcg-scraper/internal/models"
	"github.com/maltedev/tcg-scraper/internal/parser"
)

const (
	cardsetListSelector   = "app-cardset-list"
	cardsetButtonSelector = "button.cardset-list-name"
	productListSelector   = ".product-list"
	cardImageSelector     = "div.card_view_one-image-item-box img"
	cardViewerPath        = "/ja/products/pokemon/cardViewer/"
)

// Batch is every parse outcome of one cardset fetch.
type Batch struct {
	Cardset  models.CardsetURL
	Expected int
	Outcomes []parser.Outcome
}

// Fetcher knows the bigweb page layout. It never opens sessions itself;
// callers pass one session per concurrent fetch.
type Fetcher struct {
	baseURL string
	poller  *Poller
	parser  *parser.CardParser
	logger  *slog.Logger
}

func NewFetcher(baseURL string, poller *Poller, logger *slog.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = models.DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		poller:  poller,
		parser:  parser.NewCardParser(parser.DefaultSelectors()),
		logger:  logger.With("component", "bigweb"),
	}
}

// FetchCardsets walks every cardset button on the index page.
func (f *Fetcher) FetchCardsets(ctx context.Context, s Session) ([]NavResult[models.Cardset], error) {
	indexURL := models.CardsetIndexURL(f.baseURL)
	f.logger.Info("fetching cardsets", "url", indexURL)

	if err := s.Navigate(ctx, indexURL); err != nil {
		return nil, fmt.Errorf("failed to navigate to cardset index: %w", err)
	}
	if err := s.WaitUntilNavigated(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for cardset index: %w", err)
	}
	if _, err := s.WaitForElement(ctx, cardsetListSelector); err != nil {
		return nil, fmt.Errorf("failed to wait for cardset list: %w", err)
	}

	nav := NewNavigator(cardsetButtonSelector, f.poller.Policy().CounterSelector, f.logger)
	nav.Sleep = f.poller.sleep
	nav.Filter = func(c Control) bool {
		_, err := parser.ParseButtonTitle(c.Label)
		return err == nil
	}

	return ForEachSelectable(ctx, nav, s, func(_ context.Context, view SubView) (models.Cardset, error) {
		title, err := parser.ParseButtonTitle(view.Control.Label)
		if err != nil {
			return models.Cardset{}, ErrNotSelectable
		}
		count, err := parser.CountDigits(view.Indicator)
		if err != nil {
			return models.Cardset{}, fmt.Errorf("failed to read result count: %w", err)
		}
		u, err := models.ParseCardsetURL(view.URL)
		if err != nil {
			return models.Cardset{}, err
		}
		return models.Cardset{
			ID:          u.CardsetID(),
			Ref:         title.Ref(),
			Name:        title.SetName(),
			URL:         u.Origin(),
			ResultCount: count,
		}, nil
	})
}

// FetchCards converges the cardset listing and parses every item on it.
func (f *Fetcher) FetchCards(ctx context.Context, s Session, cardset models.CardsetURL) (Batch, error) {
	logger := f.logger.With("cardset_id", cardset.CardsetID())
	logger.Info("fetching cards", "url", cardset.String())

	if err := s.Navigate(ctx, cardset.String()); err != nil {
		return Batch{}, &ConvergenceError{Op: "navigate", Err: err}
	}
	if err := s.WaitUntilNavigated(ctx); err != nil {
		return Batch{}, &ConvergenceError{Op: "wait_navigation", Err: err}
	}
	if _, err := s.WaitForElement(ctx, productListSelector); err != nil {
		return Batch{}, &ConvergenceError{Op: "wait_list", Err: err}
	}

	set, err := f.poller.Converge(ctx, s)
	if err != nil {
		return Batch{}, err
	}

	batch := Batch{Cardset: cardset, Expected: set.Expected}
	if set.Len() > 0 {
		batch.Outcomes = f.parser.ParseAll(set.Items, cardset)
	}
	logger.Info("parsed cards", "items", set.Len(), "outcomes", len(batch.Outcomes))
	return batch, nil
}

// FetchCardImageURL opens the card viewer and returns the absolute image URL.
func (f *Fetcher) FetchCardImageURL(ctx context.Context, s Session, cardID string) (string, error) {
	if err := s.Navigate(ctx, f.baseURL+cardViewerPath+cardID); err != nil {
		return "", fmt.Errorf("failed to navigate to card viewer: %w", err)
	}
	if err := s.WaitUntilNavigated(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for card viewer: %w", err)
	}
	img, err := s.WaitForElement(ctx, cardImageSelector)
	if err != nil {
		return "", fmt.Errorf("failed to wait for card image: %w", err)
	}
	src, err := img.GetAttribute("src")
	if err != nil {
		return "", fmt.Errorf("failed to read card image src: %w", err)
	}
	if strings.TrimSpace(src) == "" {
		return "", fmt.Errorf("card %s has no image", cardID)
	}
	return resolve(s.URL(), strings.TrimSpace(src))
}
