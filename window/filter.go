package window

import (
	"github.com/turbinevalidator/ingestwindow/bankctx"
	"github.com/turbinevalidator/ingestwindow/leaderschedule"
	"github.com/turbinevalidator/ingestwindow/shred"
)

// Filter decides whether a decoded shred should be retained: retransmitted
// and handed to the block store. It is pure aside from counter emission, so
// it is safe to call concurrently from every worker in the decode/filter
// pool without synchronization.
type Filter func(sh *shred.Shred, raw []byte, bank bankctx.Bank) bool

// NewFilter binds a Filter closure to a fixed node identity and leader
// schedule oracle, the two pieces of context that stay constant for the
// lifetime of a window service but vary per deployment.
func NewFilter(identity shred.Identity, oracle leaderschedule.Oracle) Filter {
	return func(sh *shred.Shred, raw []byte, bank bankctx.Bank) bool {
		return shouldRetransmitAndPersist(identity, sh, raw, bank, oracle)
	}
}

// shouldRetransmitAndPersist implements the decision rule in order:
// unknown leader, self-origin, invalid signature, otherwise retain.
func shouldRetransmitAndPersist(identity shred.Identity, sh *shred.Shred, raw []byte, bank bankctx.Bank, oracle leaderschedule.Oracle) bool {
	leader, ok := oracle.LeaderAt(sh.Slot, bank)
	if !ok {
		unknownLeaderTotal.Inc(1)
		return false
	}
	if leader == identity {
		circularTransmissionTotal.Inc(1)
		return false
	}
	if !shred.FastVerify(raw, leader) {
		invalidSignatureTotal.Inc(1)
		return false
	}
	return true
}
