// Package repair drives recovery of missing shreds by issuing targeted
// requests to peers over its own UDP socket. Its internal design is a
// companion to the ingest window, sharing only the block store, cluster
// membership info, and the exit flag.
package repair

import (
	"github.com/turbinevalidator/ingestwindow/leaderschedule"
)

// Strategy enumerates how the repair service chooses which slots to pursue.
type Strategy interface {
	isStrategy()
}

// Range repairs shreds only within a fixed, closed slot window
// [Start, End].
type Range struct {
	Start uint64
	End   uint64
}

func (Range) isStrategy() {}

// CatchUp is open-ended repair, driven by a stream of completed-slot
// notifications and an epoch schedule used to anticipate upcoming leader
// rotations (and therefore which future slots to pre-fetch gaps for).
type CatchUp struct {
	BankForks      BankForksReader
	CompletedSlots <-chan uint64
	EpochSchedule  leaderschedule.Oracle
}

func (CatchUp) isStrategy() {}

// BankForksReader is the minimal view CatchUp needs of the active bank
// forks: the highest slot any live fork has reached.
type BankForksReader interface {
	HighestSlot() uint64
}
