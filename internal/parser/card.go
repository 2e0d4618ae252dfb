package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/tcg-scraper/internal/models"
)

// Selectors locate the card fields inside one listing item.
type Selectors struct {
	Title  string
	Number string
	Rarity string
	Price  string
}

func DefaultSelectors() Selectors {
	return Selectors{
		Title:  ".images-item-title a",
		Number: ".grid-item-comment",
		Rarity: ".images-item-title span:nth-of-type(2)",
		Price:  ".sales-price",
	}
}

// Outcome is the result of parsing one listing item.
type Outcome struct {
	Card models.Card
	Err  error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

type CardParser struct {
	selectors      Selectors
	nonCardMarkers []string
}

func NewCardParser(selectors Selectors) *CardParser {
	return &CardParser{
		selectors:      selectors,
		nonCardMarkers: DefaultNonCardMarkers,
	}
}

// Parse turns one listing item into an outcome. The second return value
// is false when the item is not a card at all and must be skipped.
func (p *CardParser) Parse(node *goquery.Selection, cardset models.CardsetURL) (Outcome, bool) {
	cardsetID := cardset.CardsetID()
	b := NewCardBuilder().CardsetID(cardsetID)

	if link := node.Find(p.selectors.Title).First(); link.Length() > 0 {
		text := link.Text()
		title, err := ParseLinkTitle(text, p.nonCardMarkers)
		if err != nil {
			return Outcome{Err: malformed(cardsetID, "title", strings.TrimSpace(text))}, true
		}
		if !title.IsCard() {
			return Outcome{}, false
		}
		if href, ok := link.Attr("href"); ok {
			id, err := ParseCardID(href)
			if err != nil {
				return Outcome{Err: malformed(cardsetID, "href", href)}, true
			}
			b.ID(id)
		}
		b.Name(title.CardName()).Remark(title.Remark())
	}

	if number := strings.TrimSpace(node.Find(p.selectors.Number).First().Text()); number != "" {
		b.Number(&number)
	}

	if label := strings.TrimSpace(node.Find(p.selectors.Rarity).First().Text()); label != "" {
		rarity := ParseRarity(label)
		b.Rarity(&rarity)
	}

	if sel := node.Find(p.selectors.Price).First(); sel.Length() > 0 {
		if price, err := ParsePrice(sel.Text()); err == nil {
			b.SalePrice(&price)
		}
	}

	card, err := b.Build()
	if err != nil {
		return Outcome{Err: err}, true
	}
	return Outcome{Card: card}, true
}

// ParseAll parses every item in document order.
func (p *CardParser) ParseAll(items *goquery.Selection, cardset models.CardsetURL) []Outcome {
	outcomes := make([]Outcome, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		if outcome, ok := p.Parse(item, cardset); ok {
			outcomes = append(outcomes, outcome)
		}
	})
	return outcomes
}
