package scraper

import (
	"errors"
	"testing"

	"github.com/maltedev/tcg-scraper/internal/models"
	"github.com/maltedev/tcg-scraper/internal/parser"
	"github.com/stretchr/testify/assert"
)

func TestPartition(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	outcomes := []parser.Outcome{
		{Card: models.Card{ID: "1"}},
		{Err: errA},
		{Card: models.Card{ID: "2"}},
		{Card: models.Card{ID: "3"}},
		{Err: errB},
	}

	cards, errs := Partition(outcomes)
	assert.Equal(t, []string{"1", "2", "3"}, cardIDs(cards))
	assert.Equal(t, []error{errA, errB}, errs)
}

func TestPartition_Completeness(t *testing.T) {
	for n := 0; n < 12; n++ {
		outcomes := make([]parser.Outcome, n)
		for i := range outcomes {
			if i%3 == 1 {
				outcomes[i].Err = parser.ErrMalformed
			}
		}
		cards, errs := Partition(outcomes)
		assert.Equal(t, n, len(cards)+len(errs), "n=%d", n)
	}
}

func TestPartition_Empty(t *testing.T) {
	cards, errs := Partition(nil)
	assert.Empty(t, cards)
	assert.Empty(t, errs)
}

func cardIDs(cards []models.Card) []string {
	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	return ids
}
