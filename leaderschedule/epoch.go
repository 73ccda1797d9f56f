package leaderschedule

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/turbinevalidator/ingestwindow/bankctx"
	"github.com/turbinevalidator/ingestwindow/shred"
)

// StakeEntry is one validator's stake weight, used to derive a deterministic
// per-slot leader within an epoch.
type StakeEntry struct {
	Identity shred.Identity
	Stake    *uint256.Int
}

// Epoch derives a slot's leader deterministically from an epoch seed and a
// stake-weighted validator set, the way a real leader schedule is derived
// from stake recorded at a prior epoch boundary. The bank argument is
// accepted to satisfy Oracle but is otherwise unused: stake weights here are
// fixed per Epoch instance rather than read live off a bank snapshot.
type Epoch struct {
	slotsPerEpoch uint64
	seed          [32]byte
	stakes        []StakeEntry
	total         *uint256.Int
}

// NewEpoch builds an Epoch oracle. stakes with a nil or zero Stake are
// dropped; the remainder are retained in the given order, which determines
// how ties in the deterministic draw are broken.
func NewEpoch(slotsPerEpoch uint64, seed [32]byte, stakes []StakeEntry) *Epoch {
	total := new(uint256.Int)
	kept := make([]StakeEntry, 0, len(stakes))
	for _, s := range stakes {
		if s.Stake == nil || s.Stake.IsZero() {
			continue
		}
		kept = append(kept, s)
		total.Add(total, s.Stake)
	}
	return &Epoch{
		slotsPerEpoch: slotsPerEpoch,
		seed:          seed,
		stakes:        kept,
		total:         total,
	}
}

// LeaderAt implements Oracle.
func (e *Epoch) LeaderAt(slot uint64, _ bankctx.Bank) (shred.Identity, bool) {
	if len(e.stakes) == 0 || e.total.IsZero() {
		return shred.Identity{}, false
	}

	epoch := uint64(0)
	if e.slotsPerEpoch > 0 {
		epoch = slot / e.slotsPerEpoch
	}

	h := sha256.New()
	h.Write(e.seed[:])
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], epoch)
	binary.BigEndian.PutUint64(buf[8:16], slot)
	h.Write(buf[:])
	digest := h.Sum(nil)

	target := new(uint256.Int).SetBytes(digest)
	target.Mod(target, e.total)

	cum := new(uint256.Int)
	for _, s := range e.stakes {
		cum.Add(cum, s.Stake)
		if target.Lt(cum) {
			return s.Identity, true
		}
	}
	// Unreachable unless total was computed inconsistently with stakes.
	return shred.Identity{}, false
}
