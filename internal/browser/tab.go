package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/tcg-scraper/internal/scraper"
	"github.com/playwright-community/playwright-go"
)

// Tab is one playwright page. Playwright calls are blocking and not
// cancellable, so the context is checked before each call and its
// deadline caps the call timeout.
type Tab struct {
	page    playwright.Page
	timeout time.Duration
	retries int
	logger  *slog.Logger
}

var _ scraper.Session = (*Tab)(nil)

func (t *Tab) Navigate(ctx context.Context, url string) error {
	var lastErr error

	for i := 0; i < max(t.retries, 1); i++ {
		if i > 0 {
			t.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			if err := scraper.SleepContext(ctx, time.Duration(i)*time.Second); err != nil {
				return err
			}
		}

		timeout, err := t.timeoutFor(ctx)
		if err != nil {
			return err
		}

		_, err = t.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(timeout),
		})
		if err == nil {
			return nil
		}

		lastErr = err
		t.logger.Error("navigation failed", "error", err, "attempt", i+1, "url", url)
	}

	return fmt.Errorf("failed after %d retries: %w", max(t.retries, 1), lastErr)
}

func (t *Tab) WaitUntilNavigated(ctx context.Context) error {
	timeout, err := t.timeoutFor(ctx)
	if err != nil {
		return err
	}
	return t.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateLoad,
		Timeout: playwright.Float(timeout),
	})
}

func (t *Tab) WaitForElement(ctx context.Context, selector string) (scraper.Element, error) {
	timeout, err := t.timeoutFor(ctx)
	if err != nil {
		return nil, err
	}
	handle, err := t.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to wait for %q: %w", selector, err)
	}
	if handle == nil {
		return nil, fmt.Errorf("element %q not found", selector)
	}
	return element{handle: handle}, nil
}

func (t *Tab) QueryAll(ctx context.Context, selector string) ([]scraper.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := t.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}
	elements := make([]scraper.Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, element{handle: h})
	}
	return elements, nil
}

func (t *Tab) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return t.page.Content()
}

func (t *Tab) CallJS(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if arg == nil {
		return t.page.Evaluate(script)
	}
	return t.page.Evaluate(script, arg)
}

func (t *Tab) URL() string {
	return t.page.URL()
}

func (t *Tab) Close() error {
	return t.page.Close()
}

func (t *Tab) timeoutFor(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return float64(callTimeout(ctx, t.timeout).Milliseconds()), nil
}

// callTimeout is the default timeout, shortened to the context deadline.
func callTimeout(ctx context.Context, def time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return def
	}
	remaining := time.Until(deadline)
	if remaining < time.Millisecond {
		return time.Millisecond
	}
	if def > 0 && def < remaining {
		return def
	}
	return remaining
}

type element struct {
	handle playwright.ElementHandle
}

func (e element) InnerText() (string, error) {
	return e.handle.InnerText()
}

func (e element) GetAttribute(name string) (string, error) {
	return e.handle.GetAttribute(name)
}

func (e element) Click() error {
	return e.handle.Click()
}
