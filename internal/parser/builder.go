package parser

import "github.com/maltedev/tcg-scraper/internal/models"

// CardBuilder collects fields as they are found; Build checks the
// required ones.
type CardBuilder struct {
	card models.Card
}

func NewCardBuilder() *CardBuilder {
	return &CardBuilder{}
}

func (b *CardBuilder) ID(id string) *CardBuilder {
	b.card.ID = id
	return b
}

func (b *CardBuilder) CardsetID(id string) *CardBuilder {
	b.card.CardsetID = id
	return b
}

func (b *CardBuilder) Name(name string) *CardBuilder {
	b.card.Name = name
	return b
}

func (b *CardBuilder) Remark(remark *string) *CardBuilder {
	b.card.Remark = remark
	return b
}

func (b *CardBuilder) Number(number *string) *CardBuilder {
	b.card.Number = number
	return b
}

func (b *CardBuilder) Rarity(rarity *models.Rarity) *CardBuilder {
	b.card.Rarity = rarity
	return b
}

func (b *CardBuilder) SalePrice(price *models.Price) *CardBuilder {
	b.card.SalePrice = price
	return b
}

func (b *CardBuilder) Build() (models.Card, error) {
	switch {
	case b.card.CardsetID == "":
		return models.Card{}, missing(b.card.CardsetID, "cardset_id")
	case b.card.ID == "":
		return models.Card{}, missing(b.card.CardsetID, "id")
	case b.card.Name == "":
		return models.Card{}, missing(b.card.CardsetID, "name")
	}
	return b.card, nil
}
