package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/maltedev/tcg-scraper/internal/models"
)

// CardRepository persists cardsets and cards. State changes are written
// together with their outbox event in one transaction.
type CardRepository struct {
	db     *DB
	outbox *OutboxRepository
	logger *slog.Logger
}

func NewCardRepository(db *DB, stream string, logger *slog.Logger) *CardRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CardRepository{
		db:     db,
		outbox: NewOutboxRepository(db, stream),
		logger: logger.With("component", "card_repository"),
	}
}

func (r *CardRepository) Close() error {
	r.db.Close()
	return nil
}

// UpsertCardset updates the listing metadata. The sync state of an
// existing cardset is left untouched.
func (r *CardRepository) UpsertCardset(ctx context.Context, cs models.Cardset) error {
	query := `
		INSERT INTO cardsets (id, ref, name, url, result_count, sync_state, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			ref = EXCLUDED.ref,
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			result_count = EXCLUDED.result_count,
			updated_at = NOW()`

	_, err := r.db.pool.Exec(ctx, query, cs.ID, cs.Ref, cs.Name, cs.URL, cs.ResultCount, models.Unsynced.String())
	if err != nil {
		return fmt.Errorf("failed to upsert cardset %s: %w", cs.ID, err)
	}
	return nil
}

func (r *CardRepository) UpsertCard(ctx context.Context, card models.Card) error {
	var rarityCode, rarityLabel *string
	if card.Rarity != nil {
		code, label := string(card.Rarity.Code), card.Rarity.Label
		rarityCode, rarityLabel = &code, &label
	}
	var priceAmount *int64
	var priceCurrency *string
	if card.SalePrice != nil {
		priceAmount, priceCurrency = &card.SalePrice.Amount, &card.SalePrice.Currency
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO cards (
				id, cardset_id, name, remark, number,
				rarity_code, rarity_label, price_amount, price_currency, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
			ON CONFLICT (id) DO UPDATE SET
				cardset_id = EXCLUDED.cardset_id,
				name = EXCLUDED.name,
				remark = EXCLUDED.remark,
				number = EXCLUDED.number,
				rarity_code = EXCLUDED.rarity_code,
				rarity_label = EXCLUDED.rarity_label,
				price_amount = EXCLUDED.price_amount,
				price_currency = EXCLUDED.price_currency,
				updated_at = NOW()`

		_, err := tx.Exec(ctx, query,
			card.ID, card.CardsetID, card.Name, card.Remark, card.Number,
			rarityCode, rarityLabel, priceAmount, priceCurrency,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert card %s: %w", card.ID, err)
		}

		event, err := NewEvent(AggregateCard, card.ID, EventCardUpserted, card)
		if err != nil {
			return err
		}
		return r.outbox.InsertWithTx(ctx, tx, event)
	})
}

func (r *CardRepository) GetSyncState(ctx context.Context, cardsetID string) (models.SyncState, error) {
	var raw string
	err := r.db.pool.QueryRow(ctx, "SELECT sync_state FROM cardsets WHERE id = $1", cardsetID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Unsynced, nil
	}
	if err != nil {
		return models.Unsynced, fmt.Errorf("failed to get sync state: %w", err)
	}

	var state models.SyncState
	if err := state.UnmarshalText([]byte(raw)); err != nil {
		return models.Unsynced, err
	}
	return state, nil
}

// SetSyncState stores the state and emits an event when it changed.
func (r *CardRepository) SetSyncState(ctx context.Context, cardsetID string, state models.SyncState) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var previous string
		err := tx.QueryRow(ctx, "SELECT sync_state FROM cardsets WHERE id = $1 FOR UPDATE", cardsetID).Scan(&previous)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			previous = models.Unsynced.String()
			_, err = tx.Exec(ctx, "INSERT INTO cardsets (id, sync_state) VALUES ($1, $2)", cardsetID, state.String())
		case err == nil:
			_, err = tx.Exec(ctx, "UPDATE cardsets SET sync_state = $1, updated_at = NOW() WHERE id = $2", state.String(), cardsetID)
		}
		if err != nil {
			return fmt.Errorf("failed to set sync state: %w", err)
		}

		if previous == state.String() {
			return nil
		}

		eventType := EventCardsetUnsynced
		if state == models.Synced {
			eventType = EventCardsetSynced
		}
		r.logger.Info("cardset sync state changed", "cardset_id", cardsetID, "from", previous, "to", state.String())
		event, err := NewEvent(AggregateCardset, cardsetID, eventType, map[string]any{
			"cardset_id": cardsetID,
			"previous":   previous,
			"state":      state.String(),
			"changed_at": time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		return r.outbox.InsertWithTx(ctx, tx, event)
	})
}

const cardsetColumns = `id, ref, name, url, result_count, sync_state, updated_at`

func (r *CardRepository) GetCardset(ctx context.Context, id string) (models.Cardset, error) {
	row := r.db.pool.QueryRow(ctx, "SELECT "+cardsetColumns+" FROM cardsets WHERE id = $1", id)
	return scanCardset(row)
}

func (r *CardRepository) FindCardsetByRef(ctx context.Context, ref string) (models.Cardset, error) {
	row := r.db.pool.QueryRow(ctx, "SELECT "+cardsetColumns+" FROM cardsets WHERE lower(ref) = lower($1) ORDER BY id LIMIT 1", ref)
	return scanCardset(row)
}

func (r *CardRepository) ListCardsets(ctx context.Context) ([]models.Cardset, error) {
	rows, err := r.db.pool.Query(ctx, "SELECT "+cardsetColumns+" FROM cardsets ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list cardsets: %w", err)
	}
	defer rows.Close()

	var cardsets []models.Cardset
	for rows.Next() {
		cs, err := scanCardset(rows)
		if err != nil {
			return nil, err
		}
		cardsets = append(cardsets, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return cardsets, nil
}

const cardColumns = `id, cardset_id, name, remark, number, rarity_code, rarity_label,
	price_amount, price_currency, image_downloaded, updated_at`

func (r *CardRepository) ListCards(ctx context.Context) ([]models.StoredCard, error) {
	return r.queryCards(ctx, "SELECT "+cardColumns+" FROM cards ORDER BY cardset_id, id")
}

func (r *CardRepository) ListCardsWithoutImage(ctx context.Context) ([]models.StoredCard, error) {
	return r.queryCards(ctx, "SELECT "+cardColumns+" FROM cards WHERE NOT image_downloaded ORDER BY cardset_id, id")
}

func (r *CardRepository) MarkImageDownloaded(ctx context.Context, cardID string) error {
	result, err := r.db.pool.Exec(ctx, "UPDATE cards SET image_downloaded = TRUE, updated_at = NOW() WHERE id = $1", cardID)
	if err != nil {
		return fmt.Errorf("failed to mark image downloaded: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("card %s: %w", cardID, models.ErrNotFound)
	}
	return nil
}

func (r *CardRepository) queryCards(ctx context.Context, query string, args ...any) ([]models.StoredCard, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []models.StoredCard
	for rows.Next() {
		var (
			c                       models.StoredCard
			rarityCode, rarityLabel *string
			priceAmount             *int64
			priceCurrency           *string
		)
		err := rows.Scan(
			&c.ID, &c.CardsetID, &c.Name, &c.Remark, &c.Number,
			&rarityCode, &rarityLabel, &priceAmount, &priceCurrency,
			&c.ImageDownloaded, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		if rarityCode != nil {
			c.Rarity = &models.Rarity{Code: models.RarityCode(*rarityCode)}
			if rarityLabel != nil {
				c.Rarity.Label = *rarityLabel
			}
		}
		if priceAmount != nil {
			c.SalePrice = &models.Price{Amount: *priceAmount}
			if priceCurrency != nil {
				c.SalePrice.Currency = *priceCurrency
			}
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return cards, nil
}

func scanCardset(row pgx.Row) (models.Cardset, error) {
	var (
		cs    models.Cardset
		state string
	)
	err := row.Scan(&cs.ID, &cs.Ref, &cs.Name, &cs.URL, &cs.ResultCount, &state, &cs.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Cardset{}, models.ErrNotFound
	}
	if err != nil {
		return models.Cardset{}, fmt.Errorf("failed to scan cardset: %w", err)
	}
	if err := cs.SyncState.UnmarshalText([]byte(state)); err != nil {
		return models.Cardset{}, err
	}
	return cs, nil
}
