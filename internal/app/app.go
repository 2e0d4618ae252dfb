// Package app drives the scraper against stored cardsets: it decides what to
// fetch, fans out per-cardset fetches and commits their outcomes.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/maltedev/tcg-scraper/internal/models"
	"github.com/maltedev/tcg-scraper/internal/ratelimit"
	"github.com/maltedev/tcg-scraper/internal/scraper"
	"github.com/maltedev/tcg-scraper/internal/syncstate"
)

var ErrCardsetNotFound = errors.New("cardset not found")

// Repository is the persistence collaborator. Both the postgres and the
// bolt store implement it.
type Repository interface {
	syncstate.Store
	UpsertCardset(ctx context.Context, cs models.Cardset) error
	UpsertCard(ctx context.Context, card models.Card) error
	GetCardset(ctx context.Context, id string) (models.Cardset, error)
	FindCardsetByRef(ctx context.Context, ref string) (models.Cardset, error)
	ListCardsets(ctx context.Context) ([]models.Cardset, error)
	ListCards(ctx context.Context) ([]models.StoredCard, error)
	ListCardsWithoutImage(ctx context.Context) ([]models.StoredCard, error)
	MarkImageDownloaded(ctx context.Context, cardID string) error
	Close() error
}

type SessionFactory interface {
	NewSession(ctx context.Context) (scraper.Session, error)
}

// Fetcher reads one site. *scraper.Fetcher is the bigweb implementation.
type Fetcher interface {
	FetchCardsets(ctx context.Context, s scraper.Session) ([]scraper.NavResult[models.Cardset], error)
	FetchCards(ctx context.Context, s scraper.Session, cardset models.CardsetURL) (scraper.Batch, error)
	FetchCardImageURL(ctx context.Context, s scraper.Session, cardID string) (string, error)
}

type Options struct {
	BaseURL         string
	ConcurrentLimit int
	FetchTimeout    time.Duration
	ImageDir        string
	ImageTimeout    time.Duration
}

type Service struct {
	repo     Repository
	sessions SessionFactory
	fetcher  Fetcher
	tracker  *syncstate.Tracker
	limiter  *ratelimit.AdaptiveRateLimiter
	http     *resty.Client
	opts     Options
	logger   *slog.Logger
}

func NewService(repo Repository, sessions SessionFactory, fetcher Fetcher, limiter *ratelimit.AdaptiveRateLimiter, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = ratelimit.NewAdaptiveRateLimiter(0, 0)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = models.DefaultBaseURL
	}
	if opts.ConcurrentLimit < 1 {
		opts.ConcurrentLimit = 1
	}
	if opts.ImageDir == "" {
		opts.ImageDir = "images"
	}
	if opts.ImageTimeout <= 0 {
		opts.ImageTimeout = 30 * time.Second
	}

	client := resty.New()
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	client.SetTimeout(opts.ImageTimeout)

	return &Service{
		repo:     repo,
		sessions: sessions,
		fetcher:  fetcher,
		tracker:  syncstate.NewTracker(repo, logger),
		limiter:  limiter,
		http:     client,
		opts:     opts,
		logger:   logger.With("component", "app"),
	}
}

// Summary counts the cardsets touched by a multi-cardset run.
type Summary struct {
	Attempted int `json:"attempted"`
	Synced    int `json:"synced"`
	Unsynced  int `json:"unsynced"`
	Failed    int `json:"failed"`
}

// Result is the outcome of one cardset fetch.
type Result struct {
	CardsetID string           `json:"cardset_id"`
	Upserted  int              `json:"upserted"`
	Errors    int              `json:"errors"`
	State     models.SyncState `json:"state"`
}

func (s *Service) withSession(ctx context.Context, fn func(scraper.Session) error) error {
	session, err := s.sessions.NewSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Warn("failed to close session", "error", err)
		}
	}()
	return fn(session)
}
