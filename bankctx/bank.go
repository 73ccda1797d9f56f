// Package bankctx carries the optional bank snapshot handle threaded through
// leader-schedule lookups. It exists as its own package so that window and
// leaderschedule can both depend on the handle type without depending on
// each other.
package bankctx

// Bank is a snapshot view used for historical or alternate-fork leader
// lookups. The zero value is the "no bank" case: callers fall back to the
// oracle's default context.
type Bank struct {
	slot    uint64
	present bool
}

// New wraps a working-bank slot as a present Bank handle.
func New(slot uint64) Bank {
	return Bank{slot: slot, present: true}
}

// Slot returns the bank's slot and whether a bank is actually present.
func (b Bank) Slot() (uint64, bool) {
	return b.slot, b.present
}

// Present reports whether this handle carries an actual bank snapshot.
func (b Bank) Present() bool {
	return b.present
}
