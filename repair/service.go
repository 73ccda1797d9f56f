package repair

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/turbinevalidator/ingestwindow/bankctx"
	"github.com/turbinevalidator/ingestwindow/shred"
)

// DefaultPollInterval is how often the repair loop re-scans for gaps when
// no more specific signal (a completed-slot notification) is available.
const DefaultPollInterval = 500 * time.Millisecond

// DefaultIndicesPerSlot bounds how many shred indices within a slot the gap
// scan considers, since neither strategy carries an authoritative "shreds
// expected this slot" count (that belongs to the block producer, not this
// repair loop).
const DefaultIndicesPerSlot = 64

// DefaultLookahead bounds how many slots past the bank-forks high-water mark
// CatchUp will probe the epoch schedule for, when deciding how far to extend
// the scan window to anticipate upcoming leader rotations.
const DefaultLookahead = 32

// GapSource is the subset of the block store the repair loop needs: a
// point lookup to tell a present shred from a missing one. blockstore.Store
// satisfies this directly.
type GapSource interface {
	Get(slot uint64, index uint32) (*shred.Shred, bool, error)
}

// Service runs the repair loop: consulting the block store for gaps and
// emitting batched requests to known peers over its own UDP socket. It
// shares only the block store, cluster info, and exit flag with the window
// service; there is no other coordination between them.
type Service struct {
	Store     GapSource
	Peers     PeerSource
	Requester *Requester
	Strategy  Strategy
	ExitFlag  *atomic.Bool

	// PollInterval overrides DefaultPollInterval when non-zero.
	PollInterval time.Duration
	// IndicesPerSlot overrides DefaultIndicesPerSlot when non-zero.
	IndicesPerSlot uint32
	// Lookahead overrides DefaultLookahead when non-zero.
	Lookahead uint64

	wg  sync.WaitGroup
	err error
}

// NewService constructs a repair Service. exitFlag must be shared with the
// companion window.Service so a single shutdown signal stops both.
func NewService(store GapSource, peers PeerSource, requester *Requester, strategy Strategy, exitFlag *atomic.Bool) *Service {
	return &Service{Store: store, Peers: peers, Requester: requester, Strategy: strategy, ExitFlag: exitFlag}
}

func (s *Service) pollInterval() time.Duration {
	if s.PollInterval > 0 {
		return s.PollInterval
	}
	return DefaultPollInterval
}

func (s *Service) indicesPerSlot() uint32 {
	if s.IndicesPerSlot > 0 {
		return s.IndicesPerSlot
	}
	return DefaultIndicesPerSlot
}

func (s *Service) lookahead() uint64 {
	if s.Lookahead > 0 {
		return s.Lookahead
	}
	return DefaultLookahead
}

// completedSlots returns the CatchUp strategy's notification channel, or nil
// if the configured Strategy isn't CatchUp or carries no channel. A nil
// channel is a valid receive target: it simply never fires, leaving the
// ticker as the loop's only wakeup source.
func (s *Service) completedSlots() <-chan uint64 {
	if cu, ok := s.Strategy.(CatchUp); ok {
		return cu.CompletedSlots
	}
	return nil
}

// Start spawns the repair loop goroutine. It implements window.RepairService.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.run()
}

// Join implements window.RepairService.
func (s *Service) Join() error {
	s.wg.Wait()
	return s.err
}

func (s *Service) run() {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.err = fmt.Errorf("repair: worker panic: %v", r)
		}
	}()

	ticker := time.NewTicker(s.pollInterval())
	defer ticker.Stop()

	wake := s.completedSlots()

	for {
		if s.ExitFlag.Load() {
			return
		}
		select {
		case <-ticker.C:
		case slot, ok := <-wake:
			if !ok {
				// Channel closed: fall back to ticker-only polling by
				// never selecting it again.
				wake = nil
				continue
			}
			log.Debug("repair woken by completed-slot notification", "slot", slot)
		}
		if s.ExitFlag.Load() {
			return
		}
		if err := s.tick(); err != nil {
			log.Error("repair tick failed", "err", err)
		}
	}
}

// tick runs a single gap-scan-and-request pass.
func (s *Service) tick() error {
	start, end, ok := s.slotRange()
	if !ok {
		return nil
	}

	var missing []Request
	for slot := start; slot <= end; slot++ {
		for idx := uint32(0); idx < s.indicesPerSlot(); idx++ {
			_, present, err := s.Store.Get(slot, idx)
			if err != nil {
				return fmt.Errorf("repair: gap scan slot=%d index=%d: %w", slot, idx, err)
			}
			if !present {
				missing = append(missing, Request{Slot: slot, Index: idx})
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	gapsFoundTotal.Inc(int64(len(missing)))

	for _, peer := range s.Peers.Peers() {
		if err := s.Requester.SendRepairRequests(missing, peer); err != nil {
			log.Warn("repair request send failed", "peer", peer, "err", err)
		}
	}
	return nil
}

// slotRange derives the [start, end] slot window to scan for gaps from the
// configured Strategy.
func (s *Service) slotRange() (start, end uint64, ok bool) {
	switch st := s.Strategy.(type) {
	case Range:
		return st.Start, st.End, true
	case CatchUp:
		highest := st.BankForks.HighestSlot()
		if highest == 0 {
			return 0, 0, false
		}
		lo := uint64(0)
		if highest > 10 {
			lo = highest - 10
		}
		return lo, s.extendForRotations(st, highest), true
	default:
		return 0, 0, false
	}
}

// extendForRotations walks slots past highest while the epoch schedule
// still names a leader for them, up to Lookahead slots, so repair starts
// fetching a newly-rotated-in leader's shreds before any gap has actually
// been observed there. Stops at the first slot the schedule doesn't know
// about, since scanning further blind wastes a full round of point lookups
// against slots nothing has produced into yet.
func (s *Service) extendForRotations(st CatchUp, highest uint64) uint64 {
	if st.EpochSchedule == nil {
		return highest
	}
	bank := bankctx.New(highest)
	end := highest
	for i := uint64(1); i <= s.lookahead(); i++ {
		if _, ok := st.EpochSchedule.LeaderAt(highest+i, bank); !ok {
			break
		}
		end = highest + i
	}
	return end
}
