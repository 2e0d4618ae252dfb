package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/maltedev/tcg-scraper/internal/models"
)

var exportHeader = []string{
	"id", "cardset_id", "name", "remark", "number",
	"rarity", "price", "currency", "image_downloaded",
}

// ExportCSV writes every stored card, ordered by cardset and id.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	cards, err := s.repo.ListCards(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list cards: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}
	for _, c := range cards {
		if err := cw.Write(exportRow(c)); err != nil {
			return 0, fmt.Errorf("failed to write card %s: %w", c.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush csv: %w", err)
	}
	return len(cards), nil
}

func exportRow(c models.StoredCard) []string {
	row := []string{c.ID, c.CardsetID, c.Name, deref(c.Remark), deref(c.Number), "", "", "", strconv.FormatBool(c.ImageDownloaded)}
	if c.Rarity != nil {
		row[5] = string(c.Rarity.Code)
		if !c.Rarity.IsKnown() {
			row[5] = c.Rarity.Label
		}
	}
	if c.SalePrice != nil {
		row[6] = strconv.FormatInt(c.SalePrice.Amount, 10)
		row[7] = c.SalePrice.Currency
	}
	return row
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
