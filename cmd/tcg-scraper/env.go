package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/maltedev/tcg-scraper/internal/app"
	"github.com/maltedev/tcg-scraper/internal/browser"
	"github.com/maltedev/tcg-scraper/internal/config"
	"github.com/maltedev/tcg-scraper/internal/database"
	"github.com/maltedev/tcg-scraper/internal/logger"
	"github.com/maltedev/tcg-scraper/internal/ratelimit"
	"github.com/maltedev/tcg-scraper/internal/scraper"
	"github.com/maltedev/tcg-scraper/internal/storage"
)

// env is everything a command needs. The browser is launched on the first
// session request so commands that never scrape do not start playwright.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	repo     app.Repository
	db       *database.DB
	sessions *lazySessions
	svc      *app.Service
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	e := &env{cfg: cfg, logger: log}

	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		db, err := database.New(ctx, database.Config{DSN: cfg.Database.DSN()})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		e.db = db
		e.repo = database.NewCardRepository(db, cfg.Relay.Stream, log)
	default:
		store, err := storage.Open(cfg.Store.BoltPath)
		if err != nil {
			return nil, err
		}
		e.repo = store
	}

	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Timeout = cfg.Browser.Timeout
	opts.ViewportWidth = cfg.Browser.ViewportWidth
	opts.ViewportHeight = cfg.Browser.ViewportHeight
	opts.AcceptLanguage = cfg.Browser.AcceptLanguage
	opts.TimezoneID = cfg.Browser.TimezoneID
	opts.Locale = cfg.Browser.Locale
	opts.ProxyServer = cfg.Browser.ProxyServer
	e.sessions = &lazySessions{opts: opts, logger: log}

	policy := scraper.DefaultPolicy()
	policy.MaxAttempts = cfg.Scraper.MaxAttempts
	policy.SettleInterval = cfg.Scraper.SettleInterval
	poller := scraper.NewPoller(policy, scraper.SleepContext, log)
	fetcher := scraper.NewFetcher(cfg.Scraper.BaseURL, poller, log)

	limiter := ratelimit.NewAdaptiveRateLimiter(cfg.Scraper.RateLimitMin, cfg.Scraper.RateLimitMax)

	e.svc = app.NewService(e.repo, e.sessions, fetcher, limiter, app.Options{
		BaseURL:         cfg.Scraper.BaseURL,
		ConcurrentLimit: cfg.Scraper.ConcurrentLimit,
		FetchTimeout:    cfg.Scraper.FetchTimeout,
		ImageDir:        cfg.Images.Dir,
		ImageTimeout:    cfg.Images.Timeout,
	}, log)

	return e, nil
}

func (e *env) Close() {
	if err := e.sessions.Close(); err != nil {
		e.logger.Error("failed to close browser", "error", err)
	}
	if err := e.repo.Close(); err != nil {
		e.logger.Error("failed to close store", "error", err)
	}
}

type lazySessions struct {
	opts   *browser.Options
	logger *slog.Logger

	once    sync.Once
	browser *browser.Browser
	err     error
}

func (l *lazySessions) NewSession(ctx context.Context) (scraper.Session, error) {
	l.once.Do(func() {
		l.logger.Info("launching browser", "headless", l.opts.Headless)
		l.browser, l.err = browser.New(l.opts, l.logger)
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.browser.NewSession(ctx)
}

func (l *lazySessions) Close() error {
	if l.browser == nil {
		return nil
	}
	return l.browser.Close()
}
