// Package storage is a single-file local repository backed by bbolt.
package storage

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/maltedev/tcg-scraper/internal/models"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketCardsets    = []byte("cardsets")
	bucketCardsetRefs = []byte("cardset_refs")
	bucketCards       = []byte("cards")
)

// BoltStore keeps cardsets and cards as JSON values keyed by id. bbolt
// serializes writers, so concurrent upserts are safe.
type BoltStore struct {
	db *bolt.DB
}

func Open(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketCardsets, bucketCardsetRefs, bucketCards} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// UpsertCardset replaces the listing metadata and keeps the sync state of
// a cardset that is already known.
func (s *BoltStore) UpsertCardset(_ context.Context, cs models.Cardset) error {
	if cs.ID == "" {
		return fmt.Errorf("cardset id is required")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCardsets)
		refs := tx.Bucket(bucketCardsetRefs)

		var existing models.Cardset
		found, err := get(b, cs.ID, &existing)
		if err != nil {
			return err
		}
		if found {
			cs.SyncState = existing.SyncState
			if existing.Ref != "" && !bytes.Equal(refKey(existing.Ref), refKey(cs.Ref)) {
				if err := refs.Delete(refKey(existing.Ref)); err != nil {
					return err
				}
			}
		} else {
			cs.SyncState = models.Unsynced
		}
		cs.UpdatedAt = time.Now().UTC()

		if cs.Ref != "" {
			if err := refs.Put(refKey(cs.Ref), []byte(cs.ID)); err != nil {
				return err
			}
		}
		return put(b, cs.ID, cs)
	})
}

func (s *BoltStore) UpsertCard(_ context.Context, card models.Card) error {
	if card.ID == "" {
		return fmt.Errorf("card id is required")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCards)

		var stored models.StoredCard
		if _, err := get(b, card.ID, &stored); err != nil {
			return err
		}
		stored.Card = card
		stored.UpdatedAt = time.Now().UTC()
		return put(b, card.ID, stored)
	})
}

func (s *BoltStore) GetSyncState(_ context.Context, cardsetID string) (models.SyncState, error) {
	var cs models.Cardset
	err := s.db.View(func(tx *bolt.Tx) error {
		_, err := get(tx.Bucket(bucketCardsets), cardsetID, &cs)
		return err
	})
	if err != nil {
		return models.Unsynced, err
	}
	return cs.SyncState, nil
}

func (s *BoltStore) SetSyncState(_ context.Context, cardsetID string, state models.SyncState) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCardsets)

		cs := models.Cardset{ID: cardsetID}
		if _, err := get(b, cardsetID, &cs); err != nil {
			return err
		}
		cs.SyncState = state
		cs.UpdatedAt = time.Now().UTC()
		return put(b, cardsetID, cs)
	})
}

func (s *BoltStore) GetCardset(_ context.Context, id string) (models.Cardset, error) {
	var cs models.Cardset
	err := s.db.View(func(tx *bolt.Tx) error {
		found, err := get(tx.Bucket(bucketCardsets), id, &cs)
		if err != nil {
			return err
		}
		if !found {
			return models.ErrNotFound
		}
		return nil
	})
	return cs, err
}

// FindCardsetByRef matches ref codes case-insensitively.
func (s *BoltStore) FindCardsetByRef(ctx context.Context, ref string) (models.Cardset, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketCardsetRefs).Get(refKey(ref)); v != nil {
			id = string(v)
		}
		return nil
	})
	if err != nil {
		return models.Cardset{}, err
	}
	if id == "" {
		return models.Cardset{}, models.ErrNotFound
	}
	return s.GetCardset(ctx, id)
}

func (s *BoltStore) ListCardsets(_ context.Context) ([]models.Cardset, error) {
	var cardsets []models.Cardset
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCardsets).ForEach(func(_, v []byte) error {
			var cs models.Cardset
			if err := json.Unmarshal(v, &cs); err != nil {
				return fmt.Errorf("failed to decode cardset: %w", err)
			}
			cardsets = append(cardsets, cs)
			return nil
		})
	})
	return cardsets, err
}

func (s *BoltStore) ListCards(_ context.Context) ([]models.StoredCard, error) {
	return s.cards(func(models.StoredCard) bool { return true })
}

func (s *BoltStore) ListCardsWithoutImage(_ context.Context) ([]models.StoredCard, error) {
	return s.cards(func(c models.StoredCard) bool { return !c.ImageDownloaded })
}

func (s *BoltStore) MarkImageDownloaded(_ context.Context, cardID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCards)

		var stored models.StoredCard
		found, err := get(b, cardID, &stored)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("card %s: %w", cardID, models.ErrNotFound)
		}
		stored.ImageDownloaded = true
		stored.UpdatedAt = time.Now().UTC()
		return put(b, cardID, stored)
	})
}

func (s *BoltStore) cards(keep func(models.StoredCard) bool) ([]models.StoredCard, error) {
	var cards []models.StoredCard
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCards).ForEach(func(_, v []byte) error {
			var c models.StoredCard
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("failed to decode card: %w", err)
			}
			if keep(c) {
				cards = append(cards, c)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(cards, func(a, b models.StoredCard) int {
		if c := cmp.Compare(a.CardsetID, b.CardsetID); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return cards, nil
}

func refKey(ref string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(ref)))
}

func get(b *bolt.Bucket, key string, dest any) (bool, error) {
	v := b.Get([]byte(key))
	if v == nil {
		return false, nil
	}
	if err := json.Unmarshal(v, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func put(b *bolt.Bucket, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return b.Put([]byte(key), data)
}
