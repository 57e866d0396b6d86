package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Put(ctx, "key", []byte("value"), 0))
	val, found, err := s.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("value"), val)
}

func TestMemoryStoreTTL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	at := time.Date(2024, 6, 25, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return at })

	require.NoError(t, s.Put(ctx, "key", []byte("value"), time.Hour))

	_, found, _ := s.Get(ctx, "key")
	assert.True(t, found)

	// Advance past expiry.
	at = at.Add(2 * time.Hour)
	_, found, _ = s.Get(ctx, "key")
	assert.False(t, found)

	// Zero TTL never expires.
	require.NoError(t, s.Put(ctx, "forever", []byte("x"), 0))
	at = at.Add(1000 * time.Hour)
	_, found, _ = s.Get(ctx, "forever")
	assert.True(t, found)
}

func TestMemoryStoreClose(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "key", []byte("value"), 0))
	require.NoError(t, s.Close())

	_, found, _ := s.Get(ctx, "key")
	assert.False(t, found)
}
