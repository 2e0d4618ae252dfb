package scraper

import (
	"context"
	"time"
)

// Element is a handle to one rendered DOM element.
type Element interface {
	InnerText() (string, error)
	GetAttribute(name string) (string, error)
	Click() error
}

// Session is a single browser tab. It is a mutable remote resource, so
// calls against one Session must never overlap.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitUntilNavigated(ctx context.Context) error
	WaitForElement(ctx context.Context, selector string) (Element, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	Content(ctx context.Context) (string, error)
	CallJS(ctx context.Context, script string, arg any) (any, error)
	URL() string
	Close() error
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
