package parser

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var (
	linkTitlePattern   = regexp.MustCompile(`^([^()\[\]【】〔〕《》]+?)\s*(?:[(\[【〔]([^()\[\]【】〔〕]*)[)\]】〕])?$`)
	decorativePattern  = regexp.MustCompile(`^[(\[【〔《][^)\]】〕》]*[)\]】〕》]$`)
	trailingCodeButton = regexp.MustCompile(`^(.+?)\s*[(\[【]\s*([A-Za-z0-9][A-Za-z0-9+\-]*)\s*[)\]】]$`)
	leadingCodeButton  = regexp.MustCompile(`^([A-Za-z0-9+\-]*[0-9][A-Za-z0-9+\-]*)\s+(.+)$`)
)

// DefaultNonCardMarkers flags listing entries that are supplies rather than cards.
var DefaultNonCardMarkers = []string{
	"BOX", "パック", "スリーブ", "デッキシールド", "プレイマット", "サプライ", "ローダー", "ストレージ",
}

// normalize folds full-width ASCII to half-width and trims.
func normalize(s string) string {
	return strings.TrimSpace(width.Fold.String(s))
}

// LinkTitle is the card title grammar: "<name> <optional bracket-remark>".
type LinkTitle struct {
	name   string
	remark *string
	isCard bool
}

// ParseLinkTitle parses a card link title. Decorative titles and supply
// listings parse successfully with IsCard false; text that looks like a
// card title but breaks the grammar is ErrMalformed.
func ParseLinkTitle(text string, nonCardMarkers []string) (LinkTitle, error) {
	t := normalize(text)
	if t == "" {
		return LinkTitle{}, fmt.Errorf("%w: empty title", ErrMalformed)
	}
	if decorativePattern.MatchString(t) {
		return LinkTitle{isCard: false}, nil
	}

	m := linkTitlePattern.FindStringSubmatch(t)
	if m == nil {
		return LinkTitle{}, fmt.Errorf("%w: title %q", ErrMalformed, t)
	}

	lt := LinkTitle{name: strings.TrimSpace(m[1]), isCard: true}
	if remark := strings.TrimSpace(m[2]); remark != "" {
		lt.remark = &remark
	}

	upper := strings.ToUpper(lt.name)
	for _, marker := range nonCardMarkers {
		if strings.Contains(upper, strings.ToUpper(marker)) {
			lt.isCard = false
			break
		}
	}
	return lt, nil
}

func (t LinkTitle) IsCard() bool    { return t.isCard }
func (t LinkTitle) CardName() string { return t.name }
func (t LinkTitle) Remark() *string  { return t.remark }

// ButtonTitle is a cardset control label: a set name plus its code.
type ButtonTitle struct {
	name string
	code string
}

func ParseButtonTitle(text string) (ButtonTitle, error) {
	t := normalize(text)
	if m := trailingCodeButton.FindStringSubmatch(t); m != nil {
		return ButtonTitle{name: strings.TrimSpace(m[1]), code: m[2]}, nil
	}
	if m := leadingCodeButton.FindStringSubmatch(t); m != nil {
		return ButtonTitle{name: strings.TrimSpace(m[2]), code: m[1]}, nil
	}
	return ButtonTitle{}, fmt.Errorf("%w: button title %q", ErrMalformed, t)
}

func (b ButtonTitle) SetName() string { return b.name }

// Ref is the set code used to look a cardset up from the CLI.
func (b ButtonTitle) Ref() string { return strings.ToLower(b.code) }
