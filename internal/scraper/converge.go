package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/tcg-scraper/internal/parser"
)

const scrollToBottomScript = `() => { window.scrollTo(0, document.body.scrollHeight) }`

// Policy bounds one convergence loop.
type Policy struct {
	MaxAttempts     int
	SettleInterval  time.Duration
	CounterSelector string
	ItemSelector    string
	LoadMoreScript  string
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     10,
		SettleInterval:  10 * time.Second,
		CounterSelector: ".result_count",
		ItemSelector:    ".item-box",
		LoadMoreScript:  scrollToBottomScript,
	}
}

// MaterializedSet is the converged list of item nodes. Items belong to Doc
// and must not outlive the fetch that produced them.
type MaterializedSet struct {
	Expected int
	Items    *goquery.Selection
	Doc      *goquery.Document
}

func (m MaterializedSet) Len() int {
	if m.Items == nil {
		return 0
	}
	return m.Items.Length()
}

type Poller struct {
	policy Policy
	sleep  Sleeper
	logger *slog.Logger
}

func NewPoller(policy Policy, sleep Sleeper, logger *slog.Logger) *Poller {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if sleep == nil {
		sleep = SleepContext
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		policy: policy,
		sleep:  sleep,
		logger: logger.With("component", "poller"),
	}
}

func (p *Poller) Policy() Policy {
	return p.policy
}

// Converge reads the advertised total from the counter element and loads
// items until the view holds exactly that many. A view without a counter
// is empty.
func (p *Poller) Converge(ctx context.Context, s Session) (MaterializedSet, error) {
	doc, err := p.snapshot(ctx, s)
	if err != nil {
		return MaterializedSet{}, err
	}

	counter := doc.Find(p.policy.CounterSelector).Last()
	if counter.Length() == 0 {
		p.logger.Debug("no result counter, treating view as empty", "url", s.URL())
		return MaterializedSet{Doc: doc, Items: doc.Selection.Slice(0, 0)}, nil
	}

	expected, err := parser.CountDigits(counter.Text())
	if err != nil {
		return MaterializedSet{}, &ConvergenceError{Op: "read_counter", Err: err}
	}

	return p.converge(ctx, s, doc, expected)
}

// ConvergeTo loads items until the view holds expected items.
func (p *Poller) ConvergeTo(ctx context.Context, s Session, expected int) (MaterializedSet, error) {
	doc, err := p.snapshot(ctx, s)
	if err != nil {
		return MaterializedSet{}, err
	}
	return p.converge(ctx, s, doc, expected)
}

func (p *Poller) converge(ctx context.Context, s Session, doc *goquery.Document, expected int) (MaterializedSet, error) {
	previous := -1
	actual := 0

	for attempt := 1; ; attempt++ {
		items := doc.Find(p.policy.ItemSelector)
		actual = items.Length()

		if actual < previous {
			p.logger.Warn("materialized count decreased", "previous", previous, "current", actual, "url", s.URL())
		}
		previous = actual

		if actual == expected {
			p.logger.Debug("view converged", "items", actual, "attempts", attempt)
			return MaterializedSet{Expected: expected, Items: items, Doc: doc}, nil
		}

		if attempt >= p.policy.MaxAttempts {
			break
		}

		p.logger.Debug("view not converged, loading more", "expected", expected, "actual", actual, "attempt", attempt)

		if _, err := s.CallJS(ctx, p.policy.LoadMoreScript, nil); err != nil {
			return MaterializedSet{}, &ConvergenceError{Op: "load_more", Expected: expected, Actual: actual, Err: err}
		}
		if err := p.sleep(ctx, p.policy.SettleInterval); err != nil {
			return MaterializedSet{}, &ConvergenceError{Op: "settle", Expected: expected, Actual: actual, Err: err}
		}

		next, err := p.snapshot(ctx, s)
		if err != nil {
			return MaterializedSet{}, err
		}
		doc = next
	}

	return MaterializedSet{}, &ConvergenceError{
		Op:       "converge",
		Expected: expected,
		Actual:   actual,
		Err:      ErrCountMismatch,
	}
}

func (p *Poller) snapshot(ctx context.Context, s Session) (*goquery.Document, error) {
	html, err := s.Content(ctx)
	if err != nil {
		return nil, &ConvergenceError{Op: "content", Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ConvergenceError{Op: "content", Err: fmt.Errorf("failed to parse html: %w", err)}
	}
	return doc, nil
}
