package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10, time.Minute)
	defer s.Close()

	_, err := s.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "sess-1", "tok-1"))
	got, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got)

	require.NoError(t, s.Put(ctx, "sess-1", "tok-2"))
	got, err = s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", got)

	require.NoError(t, s.Delete(ctx, "sess-1"))
	_, err = s.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx, "never-existed"))
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10, 50*time.Millisecond)

	require.NoError(t, s.Put(ctx, "sess", "tok"))
	assert.Eventually(t, func() bool {
		_, err := s.Get(ctx, "sess")
		return err == ErrNotFound
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2, time.Hour)

	require.NoError(t, s.Put(ctx, "a", "1"))
	require.NoError(t, s.Put(ctx, "b", "2"))
	_, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "c", "3"))

	assert.Equal(t, 2, s.Len())
	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "a")
	assert.NoError(t, err)
}
