package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/maltedev/tcg-scraper/internal/models"
	"golang.org/x/text/width"
)

var pricePattern = regexp.MustCompile(`\d[\d,]*`)

var rarityTokens = func() map[string]models.RarityCode {
	m := make(map[string]models.RarityCode, len(models.KnownRarities))
	for _, code := range models.KnownRarities {
		m[string(code)] = code
	}
	return m
}()

// rarityAliases maps descriptive labels to codes.
var rarityAliases = map[string]models.RarityCode{
	"ULTRA RARE (UR)":            models.RarityUR,
	"SHINY SUPER RARE (SSR)":     models.RaritySSR,
	"ACE SPEC RARE (ACE)":        models.RarityACE,
	"HYPER RARE (HR)":            models.RarityHR,
	"SUPER RARE (SR)":            models.RaritySR,
	"SPECIAL ART RARE (SAR)":     models.RaritySAR,
	"CHARACTER SUPER RARE (CSR)": models.RarityCSR,
	"ART RARE (AR)":              models.RarityAR,
	"CHARACTER RARE (CHR)":       models.RarityCHR,
	"SHINY (S)":                  models.RarityS,
	"AMAZING RARE":               models.RarityA,
	"RARE HOLO":                  models.RarityH,
	"RADIANT RARE (K)":           models.RarityK,
	"PROMO":                      models.RarityPR,
	"TRIPLE RARE (RRR)":          models.RarityRRR,
	"DOUBLE RARE (RR)":           models.RarityRR,
	"RARE (R)":                   models.RarityR,
	"UNCOMMON (U)":               models.RarityU,
	"COMMON (C)":                 models.RarityC,
	"TRAINER RARE (TR)":          models.RarityTR,
}

// ParseRarity looks label up in the rarity vocabulary. A label that is not
// recognized comes back as UnknownRarity(label), unchanged.
func ParseRarity(label string) models.Rarity {
	token := strings.ToUpper(normalize(label))
	if code, ok := rarityAliases[token]; ok {
		return models.KnownRarity(code)
	}

	token = strings.TrimSpace(strings.Trim(token, "()[]【】〔〕"))
	if code, ok := rarityTokens[token]; ok {
		return models.KnownRarity(code)
	}
	return models.UnknownRarity(label)
}

// ParsePrice reads the first number out of a price label such as "1,280円"
// or "￥１，２８０".
func ParsePrice(text string) (models.Price, error) {
	folded := width.Fold.String(text)
	match := pricePattern.FindString(folded)
	if match == "" {
		return models.Price{}, fmt.Errorf("no amount in price %q", text)
	}
	amount, err := strconv.ParseInt(strings.ReplaceAll(match, ",", ""), 10, 64)
	if err != nil {
		return models.Price{}, fmt.Errorf("failed to parse price %q: %w", text, err)
	}
	return models.Price{Amount: amount, Currency: "JPY"}, nil
}

// CountDigits keeps only the digits of a counter label ("Results: 1,234
// items" is 1234). A label without digits counts as zero.
func CountDigits(text string) (int, error) {
	var digits strings.Builder
	for _, r := range width.Fold.String(text) {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, fmt.Errorf("failed to parse count %q: %w", text, err)
	}
	return n, nil
}

// ParseCardID returns the last path segment of a card link.
func ParseCardID(href string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("failed to parse card url %q: %w", href, err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	id := segments[len(segments)-1]
	if id == "" {
		return "", fmt.Errorf("card url %q has no id segment", href)
	}
	return id, nil
}
