package scraper

import (
	"context"
	"fmt"
	"testing"

	"github.com/maltedev/tcg-scraper/internal/models"
	"github.com/maltedev/tcg-scraper/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher() *Fetcher {
	return NewFetcher("https://example.test", NewPoller(testPolicy(), (&recordingSleeper{}).Sleep, nil), nil)
}

func TestFetcher_FetchCards(t *testing.T) {
	rendered := 20
	s := &fakeSession{
		content: func() string {
			return listPage("40件", rendered, func(i int) string {
				if i == 7 || i == 31 {
					return brokenItem(i)
				}
				return cardItem(i)
			})
		},
		callJS: func(string, any) (any, error) {
			rendered += 10
			return nil, nil
		},
	}

	cardset, err := models.CardsetURLFromID("https://example.test", "8123")
	require.NoError(t, err)

	batch, err := newTestFetcher().FetchCards(context.Background(), s, cardset)
	require.NoError(t, err)
	assert.Equal(t, []string{cardset.String()}, s.navigations)
	assert.Equal(t, 2, s.jsCalls)
	assert.Equal(t, 40, batch.Expected)
	require.Len(t, batch.Outcomes, 40)

	cards, errs := Partition(batch.Outcomes)
	assert.Len(t, cards, 38)
	assert.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, parser.ErrMalformed)
	}
	for _, c := range cards {
		assert.Equal(t, "8123", c.CardsetID)
	}
	assert.Equal(t, "1000", cards[0].ID)
	assert.Equal(t, "カード0", cards[0].Name)
}

func TestFetcher_FetchCardsEmptyListing(t *testing.T) {
	s := &fakeSession{content: func() string { return listPage("", 0, cardItem) }}
	cardset, err := models.CardsetURLFromID("https://example.test", "1")
	require.NoError(t, err)

	batch, err := newTestFetcher().FetchCards(context.Background(), s, cardset)
	require.NoError(t, err)
	assert.Empty(t, batch.Outcomes)
}

func TestFetcher_FetchCardsListMissing(t *testing.T) {
	s := &fakeSession{waitFor: func(string) (Element, error) { return nil, errTimeout }}
	cardset, err := models.CardsetURLFromID("https://example.test", "1")
	require.NoError(t, err)

	_, err = newTestFetcher().FetchCards(context.Background(), s, cardset)
	var cerr *ConvergenceError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "wait_list", cerr.Op)
}

func TestFetcher_FetchCardsets(t *testing.T) {
	labels := []string{"スカーレットex [SV1S]", "すべて", "ポケモンカード151（ＳＶ２ａ）", "バイオレットex [SV1V]"}
	current := -1
	s := &fakeSession{elements: map[string][]Element{}}
	for i, label := range labels {
		i := i
		s.elements[cardsetButtonSelector] = append(s.elements[cardsetButtonSelector], &fakeElement{
			text: label,
			onClick: func() error {
				current = i
				s.url = fmt.Sprintf("https://example.test/ja/products/list?cardsets=%d&page=1", 100+i)
				return nil
			},
		})
	}
	s.waitFor = func(selector string) (Element, error) {
		if selector == ".result_count" && current == 3 {
			return nil, errTimeout
		}
		return &fakeElement{text: fmt.Sprintf("検索結果 %d件", 10+current)}, nil
	}

	results, err := newTestFetcher().FetchCardsets(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, models.CardsetIndexURL("https://example.test"), s.navigations[0])

	require.NoError(t, results[0].Err)
	assert.Equal(t, models.Cardset{
		ID:          "100",
		Ref:         "sv1s",
		Name:        "スカーレットex",
		URL:         "https://example.test/ja/products/list?cardsets=100",
		ResultCount: 10,
	}, results[0].Value)

	require.NoError(t, results[1].Err)
	assert.Equal(t, 2, results[1].Index)
	assert.Equal(t, "102", results[1].Value.ID)
	assert.Equal(t, "sv2a", results[1].Value.Ref)
	assert.Equal(t, 12, results[1].Value.ResultCount)

	assert.Equal(t, 3, results[2].Index)
	assert.ErrorIs(t, results[2].Err, errTimeout)
}

func TestFetcher_FetchCardImageURL(t *testing.T) {
	s := &fakeSession{
		waitFor: func(selector string) (Element, error) {
			require.Equal(t, cardImageSelector, selector)
			return &fakeElement{attrs: map[string]string{"src": "/images/cards/1001.jpg"}}, nil
		},
	}

	src, err := newTestFetcher().FetchCardImageURL(context.Background(), s, "1001")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/ja/products/pokemon/cardViewer/1001", s.navigations[0])
	assert.Equal(t, "https://example.test/images/cards/1001.jpg", src)

	s.waitFor = func(string) (Element, error) { return &fakeElement{}, nil }
	_, err = newTestFetcher().FetchCardImageURL(context.Background(), s, "1002")
	assert.Error(t, err)
}
