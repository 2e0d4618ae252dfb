package models

import (
	"fmt"
	"time"
)

type RarityCode string

const (
	RarityUnknown RarityCode = ""

	RarityC   RarityCode = "C"
	RarityU   RarityCode = "U"
	RarityR   RarityCode = "R"
	RarityRR  RarityCode = "RR"
	RarityRRR RarityCode = "RRR"
	RarityH   RarityCode = "H"
	RarityK   RarityCode = "K"
	RarityA   RarityCode = "A"
	RarityS   RarityCode = "S"
	RaritySR  RarityCode = "SR"
	RaritySSR RarityCode = "SSR"
	RarityHR  RarityCode = "HR"
	RarityUR  RarityCode = "UR"
	RarityAR  RarityCode = "AR"
	RaritySAR RarityCode = "SAR"
	RarityCSR RarityCode = "CSR"
	RarityCHR RarityCode = "CHR"
	RarityTR  RarityCode = "TR"
	RarityACE RarityCode = "ACE"
	RarityPR  RarityCode = "PR"
)

// KnownRarities is the closed rarity vocabulary.
var KnownRarities = []RarityCode{
	RarityC, RarityU, RarityR, RarityRR, RarityRRR, RarityH, RarityK, RarityA, RarityS,
	RaritySR, RaritySSR, RarityHR, RarityUR, RarityAR, RaritySAR, RarityCSR, RarityCHR,
	RarityTR, RarityACE, RarityPR,
}

// Rarity is either a known code or an unrecognized label kept verbatim.
type Rarity struct {
	Code  RarityCode `json:"code,omitempty"`
	Label string     `json:"label,omitempty"`
}

func KnownRarity(code RarityCode) Rarity {
	return Rarity{Code: code}
}

func UnknownRarity(label string) Rarity {
	return Rarity{Code: RarityUnknown, Label: label}
}

func (r Rarity) IsKnown() bool {
	return r.Code != RarityUnknown
}

func (r Rarity) String() string {
	if r.IsKnown() {
		return string(r.Code)
	}
	return fmt.Sprintf("Unknown(%s)", r.Label)
}

type Price struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Card is one parsed listing entry. Optional fields are nil when the
// listing did not carry them.
type Card struct {
	ID        string  `json:"id"`
	CardsetID string  `json:"cardset_id"`
	Name      string  `json:"name"`
	Remark    *string `json:"remark,omitempty"`
	Number    *string `json:"number,omitempty"`
	Rarity    *Rarity `json:"rarity,omitempty"`
	SalePrice *Price  `json:"sale_price,omitempty"`
}

// StoredCard is a card as read back from a repository.
type StoredCard struct {
	Card
	ImageDownloaded bool      `json:"image_downloaded"`
	UpdatedAt       time.Time `json:"updated_at"`
}
