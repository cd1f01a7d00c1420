package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/salewatch/internal/listing"
)

func TestMemoryCacheSetGetDelete(t *testing.T) {
	c := NewMemoryCache()

	_, err := c.Get("missing")
	assert.ErrorIs(t, err, ErrMiss)

	value := []byte("v1")
	require.NoError(t, c.Set("k", value, time.Minute))
	value[0] = 'x'

	got, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))

	require.NoError(t, c.Delete("k"))
	_, err = c.Get("k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set("short", []byte("1"), time.Second))
	require.NoError(t, c.Set("forever", []byte("2"), 0))

	now = now.Add(2 * time.Second)

	_, err := c.Get("short")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = c.Get("forever")
	assert.NoError(t, err)
	assert.Equal(t, 1, c.Size())
}

func TestMemoryCacheEvictKeepsFreshValue(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set("k", []byte("old"), time.Second))
	now = now.Add(2 * time.Second)

	// A Set lands between the expired read and the eviction
	require.NoError(t, c.Set("k", []byte("new"), time.Minute))
	c.evict("k")

	got, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	now = now.Add(2 * time.Minute)
	c.evict("k")
	assert.Equal(t, 0, c.Size())
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := NewMemoryCache()

	_, ok, err := LoadSnapshot(c)
	require.NoError(t, err)
	assert.False(t, ok)

	snap := Snapshot{
		Pages:     []string{"https://www.acon3d.com/en/event/sale"},
		Stubs:     []listing.SaleStub{{Title: "Modern Kitchen", URL: "https://www.acon3d.com/en/product/1"}},
		CreatedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, SaveSnapshot(c, snap, time.Hour))

	got, ok, err := LoadSnapshot(c)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap, got)
}

func TestLoadSnapshotCorrupt(t *testing.T) {
	c := NewMemoryCache()
	require.NoError(t, c.Set(SnapshotKey, []byte("{"), time.Hour))

	_, ok, err := LoadSnapshot(c)
	assert.Error(t, err)
	assert.False(t, ok)
}
