// Package leaderschedule answers "who leads this slot" queries, optionally
// scoped to a bank snapshot. Implementations are read-only and safe for
// concurrent use.
package leaderschedule

import (
	"github.com/turbinevalidator/ingestwindow/bankctx"
	"github.com/turbinevalidator/ingestwindow/shred"
)

// Oracle answers leader-at-slot queries. Implementations must be safe for
// concurrent reads: the ingest stage's parallel workers all query the same
// Oracle for the duration of a batch.
type Oracle interface {
	// LeaderAt returns the identity of the leader for slot. An
	// implementation may consult bank for historical/alternate-fork context
	// when bank.Present() is true; Static and Epoch ignore it. The second
	// return value is false if no leader is known for slot.
	LeaderAt(slot uint64, bank bankctx.Bank) (shred.Identity, bool)
}
