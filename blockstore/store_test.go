package blockstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turbinevalidator/ingestwindow/shred"
)

func TestMemStore_InsertAndGet(t *testing.T) {
	store := NewMemStore()
	defer store.Close()

	sh := &shred.Shred{Slot: 5, Index: 2, Seed: 99, RawBytes: []byte("raw")}
	require.NoError(t, store.Insert(context.Background(), []*shred.Shred{sh}, nil))

	got, ok, err := store.Get(5, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sh.Slot, got.Slot)
	require.Equal(t, sh.Seed, got.Seed)
	require.Equal(t, sh.RawBytes, got.RawBytes)

	_, ok, err = store.Get(5, 3)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemStore_InsertEmptyIsNoop(t *testing.T) {
	store := NewMemStore()
	defer store.Close()
	require.NoError(t, store.Insert(context.Background(), nil, nil))
}

func TestMemStore_DuplicateInsertIdempotent(t *testing.T) {
	store := NewMemStore()
	defer store.Close()

	sh := &shred.Shred{Slot: 1, Index: 0, RawBytes: []byte("a")}
	require.NoError(t, store.Insert(context.Background(), []*shred.Shred{sh}, nil))
	require.NoError(t, store.Insert(context.Background(), []*shred.Shred{sh}, nil))

	got, ok, err := store.Get(1, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sh.RawBytes, got.RawBytes)
}
