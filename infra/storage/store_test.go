package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mako/domain/dex"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.GetSnapshot("A/B")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutSnapshot("A/B", []byte("one")))
	require.NoError(t, s.PutSnapshot("A/B", []byte("two")))

	data, ok, err := s.GetSnapshot("A/B")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("two"), data, "a new snapshot replaces the old one")
}

func TestEachSnapshot(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutSnapshot("A/B", []byte("ab")))
	require.NoError(t, s.PutSnapshot("C/D", []byte("cd")))
	// A key from a different prefix must not appear in the scan.
	require.NoError(t, s.PutRate(dex.NativeAsset(), "1"))

	seen := make(map[string]string)
	err := s.EachSnapshot(func(pairKey string, data []byte) error {
		seen[pairKey] = string(data)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A/B": "ab", "C/D": "cd"}, seen)
}

func TestOrderRoundTrip(t *testing.T) {
	s := openTestStore(t)
	var id dex.OrderID
	id[0] = 0x01

	_, ok, err := s.GetOrder(id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutOrder(id, []byte(`{"status":"Filled"}`)))
	data, ok, err := s.GetOrder(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"status":"Filled"}`, string(data))
}

func TestRates(t *testing.T) {
	s := openTestStore(t)
	var id dex.AssetID
	id[0] = 0xaa
	asset := dex.IssuedAsset(id)

	require.NoError(t, s.PutRate(asset, "1.5"))
	require.NoError(t, s.PutRate(dex.NativeAsset(), "1"))

	seen := make(map[string]string)
	require.NoError(t, s.EachRate(func(name, rate string) error {
		seen[name] = rate
		return nil
	}))
	assert.Equal(t, map[string]string{
		asset.String():             "1.5",
		dex.NativeAsset().String(): "1",
	}, seen)

	require.NoError(t, s.DeleteRate(asset))
	seen = make(map[string]string)
	require.NoError(t, s.EachRate(func(name, rate string) error {
		seen[name] = rate
		return nil
	}))
	assert.NotContains(t, seen, asset.String())
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.PutSnapshot("A/B", []byte("persisted")))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	data, ok, err := s.GetSnapshot("A/B")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("persisted"), data)
}
