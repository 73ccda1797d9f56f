package blockstore

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/turbinevalidator/ingestwindow/leaderschedule"
	"github.com/turbinevalidator/ingestwindow/shred"
)

// MemStore is an in-memory Store backed by go-ethereum's ethdb/memorydb, the
// same key-value interface the PebbleStore's durable counterpart is
// conceptually built against. It is intended for tests and for light-client
// deployments that deliberately don't persist shreds durably.
type MemStore struct {
	db ethdb.KeyValueStore
}

// NewMemStore creates an empty, in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{db: memorydb.New()}
}

// Insert implements Store.
func (m *MemStore) Insert(ctx context.Context, shreds []*shred.Shred, _ leaderschedule.Oracle) error {
	if len(shreds) == 0 {
		return nil
	}
	start := time.Now()
	for _, sh := range shreds {
		val, err := rlp.EncodeToBytes(toWire(sh))
		if err != nil {
			insertErrors.Inc(1)
			return fmt.Errorf("blockstore: encode shred slot=%d index=%d: %w", sh.Slot, sh.Index, err)
		}
		if err := m.db.Put(encodeKey(sh.Slot, sh.Index), val); err != nil {
			insertErrors.Inc(1)
			return fmt.Errorf("blockstore: put shred slot=%d index=%d: %w", sh.Slot, sh.Index, err)
		}
	}
	insertedTotal.Inc(int64(len(shreds)))
	insertLatency.UpdateSince(start)
	return nil
}

// Get implements Store.
func (m *MemStore) Get(slot uint64, index uint32) (*shred.Shred, bool, error) {
	val, err := m.db.Get(encodeKey(slot, index))
	if err != nil {
		return nil, false, nil
	}
	var w wireShred
	if err := rlp.DecodeBytes(val, &w); err != nil {
		return nil, false, fmt.Errorf("blockstore: decode slot=%d index=%d: %w", slot, index, err)
	}
	return fromWire(&w), true, nil
}

// Close implements Store.
func (m *MemStore) Close() error {
	return m.db.Close()
}
