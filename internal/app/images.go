package app

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/maltedev/tcg-scraper/internal/models"
	"github.com/maltedev/tcg-scraper/internal/scraper"
)

type ImageSummary struct {
	Downloaded int `json:"downloaded"`
	Failed     int `json:"failed"`
}

// DownloadImages fetches the image of every stored card that has none yet.
// Cards are visited in one session; a failed card is logged and skipped.
func (s *Service) DownloadImages(ctx context.Context) (ImageSummary, error) {
	var summary ImageSummary

	cards, err := s.repo.ListCardsWithoutImage(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list cards without image: %w", err)
	}
	if len(cards) == 0 {
		s.logger.Info("no card images to download")
		return summary, nil
	}
	if err := os.MkdirAll(s.opts.ImageDir, 0o755); err != nil {
		return summary, fmt.Errorf("failed to create image dir: %w", err)
	}

	err = s.withSession(ctx, func(session scraper.Session) error {
		for _, card := range cards {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.downloadImage(ctx, session, card.Card); err != nil {
				s.logger.Error("failed to download card image", "card_id", card.ID, "error", err)
				s.limiter.RecordError()
				summary.Failed++
				continue
			}
			s.limiter.RecordSuccess()
			summary.Downloaded++
		}
		return nil
	})

	s.logger.Info("card images downloaded", "downloaded", summary.Downloaded, "failed", summary.Failed)
	return summary, err
}

func (s *Service) downloadImage(ctx context.Context, session scraper.Session, card models.Card) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	src, err := s.fetcher.FetchCardImageURL(ctx, session, card.ID)
	if err != nil {
		return err
	}

	resp, err := s.http.R().SetContext(ctx).Get(src)
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", src, err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to get %s: status %d", src, resp.StatusCode())
	}

	dest := filepath.Join(s.opts.ImageDir, card.ID+imageExt(src))
	if err := os.WriteFile(dest, resp.Body(), 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}

	return s.repo.MarkImageDownloaded(ctx, card.ID)
}

func imageExt(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return ".jpg"
	}
	if ext := path.Ext(u.Path); ext != "" {
		return ext
	}
	return ".jpg"
}
