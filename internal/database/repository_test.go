package database

import (
	"context"
	"testing"

	"github.com/maltedev/tcg-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCardRepository_Cardsets(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewCardRepository(db, "", nil)

	cs := models.Cardset{ID: "7615", Ref: "sv1s", Name: "スカーレットex", URL: "https://example.test/list?cardsets=7615", ResultCount: 108}
	require.NoError(t, repo.UpsertCardset(ctx, cs))
	require.NoError(t, repo.SetSyncState(ctx, "7615", models.Synced))

	// metadata refresh keeps the sync state
	cs.ResultCount = 110
	require.NoError(t, repo.UpsertCardset(ctx, cs))

	got, err := repo.FindCardsetByRef(ctx, "sv1s")
	require.NoError(t, err)
	assert.Equal(t, 110, got.ResultCount)
	assert.Equal(t, models.Synced, got.SyncState)

	upper, err := repo.FindCardsetByRef(ctx, "SV1S")
	require.NoError(t, err)
	assert.Equal(t, got.ID, upper.ID)

	_, err = repo.GetCardset(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	list, err := repo.ListCardsets(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCardRepository_SyncStateEvents(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewCardRepository(db, "", nil)

	state, err := repo.GetSyncState(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, models.Unsynced, state)

	require.NoError(t, repo.SetSyncState(ctx, "1", models.Unsynced))
	require.NoError(t, repo.SetSyncState(ctx, "1", models.Synced))
	require.NoError(t, repo.SetSyncState(ctx, "1", models.Synced))
	require.NoError(t, repo.SetSyncState(ctx, "1", models.Unsynced))

	events, err := repo.outbox.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventCardsetSynced, events[0].EventType)
	assert.Equal(t, EventCardsetUnsynced, events[1].EventType)
}

func TestCardRepository_Cards(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewCardRepository(db, "", nil)

	unknown := models.UnknownRarity("ミラー仕様")
	sar := models.KnownRarity(models.RaritySAR)
	cards := []models.Card{
		{ID: "1", CardsetID: "7615", Name: "ピカチュウ", Rarity: &unknown},
		{ID: "2", CardsetID: "7615", Name: "リザードンex", Remark: strPtr("SAR仕様"), Number: strPtr("201/165"),
			Rarity: &sar, SalePrice: &models.Price{Amount: 12800, Currency: "JPY"}},
	}
	for _, c := range cards {
		require.NoError(t, repo.UpsertCard(ctx, c))
	}
	require.NoError(t, repo.UpsertCard(ctx, cards[0]))

	stored, err := repo.ListCards(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, cards[0], stored[0].Card)
	assert.Equal(t, cards[1], stored[1].Card)

	require.NoError(t, repo.MarkImageDownloaded(ctx, "2"))
	assert.ErrorIs(t, repo.MarkImageDownloaded(ctx, "404"), models.ErrNotFound)

	missing, err := repo.ListCardsWithoutImage(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "1", missing[0].ID)
}
