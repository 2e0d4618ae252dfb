package scraper

import (
	"github.com/maltedev/tcg-scraper/internal/models"
	"github.com/maltedev/tcg-scraper/internal/parser"
)

// Partition splits outcomes into cards and errors, keeping input order.
// Every outcome lands in exactly one of the two slices.
func Partition(outcomes []parser.Outcome) ([]models.Card, []error) {
	cards := make([]models.Card, 0, len(outcomes))
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
			continue
		}
		cards = append(cards, o.Card)
	}
	return cards, errs
}
