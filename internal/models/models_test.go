package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCardsetURL(t *testing.T) {
	u, err := ParseCardsetURL("https://www.bigweb.co.jp/ja/products/pokemon/list?cardsets=8123&sort=price&page=2#top")
	require.NoError(t, err)
	assert.Equal(t, "8123", u.CardsetID())
	assert.Equal(t, "https://www.bigweb.co.jp/ja/products/pokemon/list?cardsets=8123", u.Origin())

	_, err = ParseCardsetURL("https://www.bigweb.co.jp/ja/products/pokemon/list?page=2")
	assert.Error(t, err)
}

func TestCardsetURLFromID(t *testing.T) {
	u, err := CardsetURLFromID("https://example.test/", "42")
	require.NoError(t, err)
	assert.Equal(t, "42", u.CardsetID())
	assert.Contains(t, u.String(), "https://example.test/ja/products/")

	_, err = CardsetURLFromID("https://example.test", "")
	assert.Error(t, err)
}

func TestZeroCardsetURL(t *testing.T) {
	var u CardsetURL
	assert.Empty(t, u.CardsetID())
	assert.Empty(t, u.Origin())
	assert.Empty(t, u.String())
}

func TestSyncStateText(t *testing.T) {
	b, err := json.Marshal(map[string]SyncState{"a": Synced, "b": Unsynced})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"synced","b":"unsynced"}`, string(b))

	var s SyncState
	require.NoError(t, s.UnmarshalText([]byte("synced")))
	assert.Equal(t, Synced, s)
	require.NoError(t, s.UnmarshalText(nil))
	assert.Equal(t, Unsynced, s)
	assert.Error(t, s.UnmarshalText([]byte("partial")))
}

func TestRarityString(t *testing.T) {
	assert.Equal(t, "SAR", KnownRarity(RaritySAR).String())
	assert.Equal(t, "Unknown(ミラー)", UnknownRarity("ミラー").String())
	assert.True(t, KnownRarity(RarityC).IsKnown())
	assert.False(t, UnknownRarity("C?").IsKnown())
}
