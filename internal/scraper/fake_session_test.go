package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type fakeElement struct {
	text    string
	attrs   map[string]string
	textErr error
	onClick func() error
}

func (e *fakeElement) InnerText() (string, error) {
	return e.text, e.textErr
}

func (e *fakeElement) GetAttribute(name string) (string, error) {
	return e.attrs[name], nil
}

func (e *fakeElement) Click() error {
	if e.onClick != nil {
		return e.onClick()
	}
	return nil
}

// fakeSession is a scripted single tab. Hooks left nil succeed.
type fakeSession struct {
	url        string
	content    func() string
	contentErr error
	elements   map[string][]Element
	waitFor    func(selector string) (Element, error)
	callJS     func(script string, arg any) (any, error)
	onNavigate func(url string) error

	navigations []string
	jsCalls     int
	closed      bool
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.navigations = append(s.navigations, url)
	s.url = url
	if s.onNavigate != nil {
		return s.onNavigate(url)
	}
	return nil
}

func (s *fakeSession) WaitUntilNavigated(_ context.Context) error {
	return nil
}

func (s *fakeSession) WaitForElement(_ context.Context, selector string) (Element, error) {
	if s.waitFor != nil {
		return s.waitFor(selector)
	}
	return &fakeElement{}, nil
}

func (s *fakeSession) QueryAll(_ context.Context, selector string) ([]Element, error) {
	return append([]Element(nil), s.elements[selector]...), nil
}

func (s *fakeSession) Content(_ context.Context) (string, error) {
	if s.contentErr != nil {
		return "", s.contentErr
	}
	if s.content == nil {
		return "<html><body></body></html>", nil
	}
	return s.content(), nil
}

func (s *fakeSession) CallJS(_ context.Context, script string, arg any) (any, error) {
	s.jsCalls++
	if s.callJS != nil {
		return s.callJS(script, arg)
	}
	return nil, nil
}

func (s *fakeSession) URL() string {
	return s.url
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// recordingSleeper never blocks and remembers every requested wait.
type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

var errTimeout = errors.New("timeout waiting for selector")

// listPage renders a cardset listing with the given counter text and
// item boxes produced by item(i).
func listPage(counter string, n int, item func(i int) string) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	if counter != "" {
		fmt.Fprintf(&b, `<div class="result_count">%s</div>`, counter)
	}
	b.WriteString(`<div class="product-list">`)
	for i := 0; i < n; i++ {
		b.WriteString(item(i))
	}
	b.WriteString(`</div>`)
	if counter != "" {
		fmt.Fprintf(&b, `<div class="result_count">%s</div>`, counter)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func cardItem(i int) string {
	return fmt.Sprintf(`<div class="item-box"><div class="images-item-title"><a href="/ja/products/pokemon/item/%d">カード%d</a><span>ポケモン</span><span>C</span></div><div class="grid-item-comment">%03d/100</div><div class="sales-price">%d円</div></div>`, 1000+i, i, i, 10*(i+1))
}

func brokenItem(i int) string {
	return fmt.Sprintf(`<div class="item-box"><div class="images-item-title"><a href="/ja/products/pokemon/item/%d">カード%d(</a></div></div>`, 1000+i, i)
}
