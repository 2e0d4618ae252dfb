package parser

import (
	"testing"

	"github.com/maltedev/tcg-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountDigits(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"Locale formatted", "Results: 1,234 items", 1234},
		{"Japanese counter", "検索結果 40件", 40},
		{"Full-width digits", "４０件", 40},
		{"No digits", "該当なし", 0},
		{"Empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := CountDigits(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, n)
		})
	}
}

func TestCountDigitsOverflow(t *testing.T) {
	_, err := CountDigits("99999999999999999999999999")
	assert.Error(t, err)
}

func TestParseRarity(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected models.Rarity
	}{
		{"Plain token", "SR", models.KnownRarity(models.RaritySR)},
		{"Bracketed token", "[SAR]", models.KnownRarity(models.RaritySAR)},
		{"Full-width token", "ＲＲＲ", models.KnownRarity(models.RarityRRR)},
		{"Lowercase token", "ur", models.KnownRarity(models.RarityUR)},
		{"Descriptive label", "Special Art Rare (SAR)", models.KnownRarity(models.RaritySAR)},
		{"Promo", "Promo", models.KnownRarity(models.RarityPR)},
		{"Unknown kept verbatim", "ミラー仕様", models.UnknownRarity("ミラー仕様")},
		{"Unknown keeps spacing", " Secret-X ", models.UnknownRarity(" Secret-X ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseRarity(tt.input))
		})
	}
}

func TestParseRarityUnknownIsInspectable(t *testing.T) {
	r := ParseRarity("BWR")
	assert.False(t, r.IsKnown())
	assert.Equal(t, "BWR", r.Label)
	assert.Equal(t, "Unknown(BWR)", r.String())
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
		hasError bool
	}{
		{"Yen suffix", "1,280円", 1280, false},
		{"Yen prefix", "¥12,800", 12800, false},
		{"Full-width", "￥１，２８０", 1280, false},
		{"Tax note", "480円(税込)", 480, false},
		{"Sold out", "売り切れ", 0, true},
		{"Empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, err := ParsePrice(tt.input)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, price.Amount)
			assert.Equal(t, "JPY", price.Currency)
		})
	}
}

func TestParseCardID(t *testing.T) {
	id, err := ParseCardID("/ja/products/pokemon/item/3345678")
	require.NoError(t, err)
	assert.Equal(t, "3345678", id)

	id, err = ParseCardID("https://www.bigweb.co.jp/ja/products/pokemon/item/99/?ref=list")
	require.NoError(t, err)
	assert.Equal(t, "99", id)

	_, err = ParseCardID("/")
	assert.Error(t, err)
}
