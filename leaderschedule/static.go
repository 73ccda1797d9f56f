package leaderschedule

import (
	"sync"

	"github.com/turbinevalidator/ingestwindow/bankctx"
	"github.com/turbinevalidator/ingestwindow/shred"
)

// Static is a precomputed slot -> leader map, as a real schedule cache would
// expose once it has finished computing a schedule for an epoch range. It
// ignores the bank argument, as Epoch does too: neither implementation
// performs fork-aware lookups.
type Static struct {
	mu      sync.RWMutex
	leaders map[uint64]shred.Identity
}

// NewStatic builds a Static oracle from an explicit slot -> leader map. The
// map is copied; callers may mutate their own copy afterward.
func NewStatic(leaders map[uint64]shred.Identity) *Static {
	cp := make(map[uint64]shred.Identity, len(leaders))
	for slot, id := range leaders {
		cp[slot] = id
	}
	return &Static{leaders: cp}
}

// LeaderAt implements Oracle.
func (s *Static) LeaderAt(slot uint64, _ bankctx.Bank) (shred.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.leaders[slot]
	return id, ok
}

// Set assigns the leader for a slot. Any Identity, the zero value included,
// becomes a known leader; use Unset to remove an assignment. Intended for
// test fixtures that need to mutate a schedule mid-test.
func (s *Static) Set(slot uint64, id shred.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaders[slot] = id
}

// Unset removes any leader assignment for slot, making LeaderAt report
// "unknown leader".
func (s *Static) Unset(slot uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leaders, slot)
}
