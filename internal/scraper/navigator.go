package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Control is a selectable element as captured before any navigation.
type Control struct {
	Index int
	Label string
	Href  string

	el Element
}

// SubView is the stabilized state reached by selecting one control.
type SubView struct {
	Control   Control
	URL       string
	Indicator string
}

type NavResult[T any] struct {
	Index int
	Label string
	Value T
	Err   error
}

func (r NavResult[T]) OK() bool {
	return r.Err == nil
}

type Navigator struct {
	ControlSelector   string
	IndicatorSelector string

	// Filter rejects controls that do not lead to a sub-view worth visiting.
	// Rejected controls are skipped without navigating and without an error.
	Filter func(Control) bool

	// A clicked control is polled up to UpdateAttempts times, UpdateInterval
	// apart, until the view reflects it.
	UpdateInterval time.Duration
	UpdateAttempts int
	Sleep          Sleeper

	logger *slog.Logger
}

func NewNavigator(controlSelector, indicatorSelector string, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{
		ControlSelector:   controlSelector,
		IndicatorSelector: indicatorSelector,
		UpdateInterval:    500 * time.Millisecond,
		UpdateAttempts:    20,
		Sleep:             SleepContext,
		logger:            logger.With("component", "navigator"),
	}
}

// Snapshot fixes the order and count of controls in the current rendering.
func (n *Navigator) Snapshot(ctx context.Context, s Session) ([]Control, error) {
	elements, err := s.QueryAll(ctx, n.ControlSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to query controls %q: %w", n.ControlSelector, err)
	}

	controls := make([]Control, 0, len(elements))
	for i, el := range elements {
		c := Control{Index: i, el: el}
		if text, err := el.InnerText(); err == nil {
			c.Label = strings.TrimSpace(text)
		} else {
			n.logger.Debug("failed to read control label", "index", i, "error", err)
		}
		if href, err := el.GetAttribute("href"); err == nil {
			c.Href = strings.TrimSpace(href)
		}
		controls = append(controls, c)
	}
	return controls, nil
}

// Select drives the session to the control's sub-view and waits for the
// result indicator. Controls with a captured href are opened by URL,
// others are clicked through the handle taken at snapshot time.
func (n *Navigator) Select(ctx context.Context, s Session, c Control) (SubView, error) {
	if c.Href != "" {
		target, err := resolve(s.URL(), c.Href)
		if err != nil {
			return SubView{}, &NavError{Index: c.Index, Label: c.Label, Op: "resolve", Err: err}
		}
		if err := s.Navigate(ctx, target); err != nil {
			return SubView{}, &NavError{Index: c.Index, Label: c.Label, Op: "navigate", Err: err}
		}
		if err := s.WaitUntilNavigated(ctx); err != nil {
			return SubView{}, &NavError{Index: c.Index, Label: c.Label, Op: "wait_navigation", Err: err}
		}
		return n.readView(ctx, s, c)
	}

	if c.el == nil {
		return SubView{}, &NavError{Index: c.Index, Label: c.Label, Op: "click", Err: errors.New("control has no handle")}
	}

	before := SubView{URL: s.URL(), Indicator: n.currentIndicator(ctx, s)}
	if err := c.el.Click(); err != nil {
		return SubView{}, &NavError{Index: c.Index, Label: c.Label, Op: "click", Err: err}
	}
	if err := s.WaitUntilNavigated(ctx); err != nil {
		return SubView{}, &NavError{Index: c.Index, Label: c.Label, Op: "wait_navigation", Err: err}
	}
	return n.waitForUpdate(ctx, s, c, before)
}

// waitForUpdate polls until the indicator text differs from before. A
// changed URL alone is accepted once it has held for one poll, so a route
// that lands ahead of the re-render does not pair with the old indicator.
func (n *Navigator) waitForUpdate(ctx context.Context, s Session, c Control, before SubView) (SubView, error) {
	attempts := max(n.UpdateAttempts, 1)
	sleep := n.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	routed := false
	for attempt := 1; ; attempt++ {
		view, err := n.readView(ctx, s, c)
		if err != nil {
			return SubView{}, err
		}
		if view.Indicator != before.Indicator {
			return view, nil
		}
		if view.URL != before.URL {
			if routed {
				return view, nil
			}
			routed = true
		}

		if attempt >= attempts {
			n.logger.Warn("view did not update", "index", c.Index, "label", c.Label, "url", view.URL, "indicator", view.Indicator)
			return SubView{}, &NavError{Index: c.Index, Label: c.Label, Op: "wait_update", Err: ErrStaleView}
		}
		if err := sleep(ctx, n.UpdateInterval); err != nil {
			return SubView{}, &NavError{Index: c.Index, Label: c.Label, Op: "wait_update", Err: err}
		}
	}
}

func (n *Navigator) readView(ctx context.Context, s Session, c Control) (SubView, error) {
	indicator, err := s.WaitForElement(ctx, n.IndicatorSelector)
	if err != nil {
		return SubView{}, &NavError{Index: c.Index, Label: c.Label, Op: "wait_indicator", Err: err}
	}
	text, err := indicator.InnerText()
	if err != nil {
		return SubView{}, &NavError{Index: c.Index, Label: c.Label, Op: "read_indicator", Err: err}
	}
	return SubView{Control: c, URL: s.URL(), Indicator: strings.TrimSpace(text)}, nil
}

// currentIndicator reads the indicator already on the page without waiting
// for one to appear. Missing or unreadable indicators read as empty.
func (n *Navigator) currentIndicator(ctx context.Context, s Session) string {
	elements, err := s.QueryAll(ctx, n.IndicatorSelector)
	if err != nil || len(elements) == 0 {
		return ""
	}
	text, err := elements[0].InnerText()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// ForEachSelectable selects every control of the initial rendering in order
// and hands each stabilized sub-view to onSelect. A failing control is
// recorded at its index and enumeration continues. onSelect may return
// ErrNotSelectable to drop a control from the results.
func ForEachSelectable[T any](
	ctx context.Context,
	n *Navigator,
	s Session,
	onSelect func(ctx context.Context, view SubView) (T, error),
) ([]NavResult[T], error) {
	controls, err := n.Snapshot(ctx, s)
	if err != nil {
		return nil, err
	}
	n.logger.Info("enumerating controls", "count", len(controls), "selector", n.ControlSelector)

	results := make([]NavResult[T], 0, len(controls))
	for _, c := range controls {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if n.Filter != nil && !n.Filter(c) {
			n.logger.Debug("skipping control", "index", c.Index, "label", c.Label)
			continue
		}

		result := NavResult[T]{Index: c.Index, Label: c.Label}

		view, err := n.Select(ctx, s, c)
		if err != nil {
			n.logger.Error("control selection failed", "index", c.Index, "label", c.Label, "error", err)
			result.Err = err
			results = append(results, result)
			continue
		}

		value, err := onSelect(ctx, view)
		switch {
		case errors.Is(err, ErrNotSelectable):
			n.logger.Debug("control not selectable", "index", c.Index, "label", c.Label)
			continue
		case err != nil:
			var navErr *NavError
			if !errors.As(err, &navErr) {
				err = &NavError{Index: c.Index, Label: c.Label, Op: "select", Err: err}
			}
			n.logger.Error("control handler failed", "index", c.Index, "label", c.Label, "error", err)
			result.Err = err
		default:
			result.Value = value
		}
		results = append(results, result)
	}

	return results, nil
}

func resolve(base, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("failed to parse href %q: %w", href, err)
	}
	if ref.IsAbs() || base == "" {
		return ref.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse base url %q: %w", base, err)
	}
	return b.ResolveReference(ref).String(), nil
}
