// Package blockstore is the node's durable, indexed storage of shreds,
// keyed by slot and index. It exposes a small insert/get contract backed
// by at least one real, runnable implementation.
package blockstore

import (
	"context"
	"encoding/binary"

	"github.com/turbinevalidator/ingestwindow/leaderschedule"
	"github.com/turbinevalidator/ingestwindow/shred"
)

// Store accepts decoded shreds for durable insertion. Insert must accept an
// empty slice as a no-op and must be safe to call concurrently with reads
// performed by a repair service.
type Store interface {
	// Insert durably persists shreds, consulting oracle for any
	// deduplication or slot-meta bookkeeping the backend needs. Inserting
	// the same (slot, index) twice must be idempotent.
	Insert(ctx context.Context, shreds []*shred.Shred, oracle leaderschedule.Oracle) error

	// Get returns a previously inserted shred, if present.
	Get(slot uint64, index uint32) (*shred.Shred, bool, error)

	Close() error
}

// wireShred is the on-disk encoding of a Shred: RLP over fixed-size fields
// plus the raw wire payload.
type wireShred struct {
	Slot      uint64
	Index     uint32
	Seed      uint64
	Signature [shred.SignatureSize]byte
	Raw       []byte
}

func toWire(sh *shred.Shred) *wireShred {
	return &wireShred{
		Slot:      sh.Slot,
		Index:     sh.Index,
		Seed:      sh.Seed,
		Signature: sh.Signature,
		Raw:       sh.RawBytes,
	}
}

func fromWire(w *wireShred) *shred.Shred {
	return &shred.Shred{
		Slot:      w.Slot,
		Index:     w.Index,
		Seed:      w.Seed,
		Signature: w.Signature,
		RawBytes:  w.Raw,
	}
}

// keyPrefix namespaces shred keys within a shared key space, following the
// teacher's accessors_ubt_*.go convention of a short ASCII prefix ahead of
// binary fields.
var keyPrefix = []byte("shred")

// encodeKey builds the slot||index key: prefix + slot (8 bytes BE) + index
// (4 bytes BE). Fixed-width, big-endian encoding keeps shreds of the same
// slot adjacent and sorted by index under byte-lexicographic iteration.
func encodeKey(slot uint64, index uint32) []byte {
	key := make([]byte, len(keyPrefix)+8+4)
	n := copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[n:], slot)
	binary.BigEndian.PutUint32(key[n+8:], index)
	return key
}
