package window

import (
	"errors"
	"time"

	"github.com/turbinevalidator/ingestwindow/shred"
)

// ErrTimeout is returned by PacketReceiver.RecvTimeout when no batch arrives
// before the deadline.
var ErrTimeout = errors.New("window: recv timeout")

// ErrDisconnected is returned by PacketReceiver.RecvTimeout and TryRecv when
// the upstream producer has closed its side of the channel.
var ErrDisconnected = errors.New("window: channel disconnected")

// PacketReceiver is the inbound side of the ingest stage: a source of
// PacketBatch values produced upstream by UDP socket I/O and batching, which
// are out of scope for this package.
type PacketReceiver interface {
	// RecvTimeout blocks up to timeout for the next batch, distinguishing
	// ErrTimeout from ErrDisconnected.
	RecvTimeout(timeout time.Duration) (shred.PacketBatch, error)

	// TryRecv returns immediately: a batch if one is queued, ErrTimeout if
	// none is available yet, or ErrDisconnected if closed.
	TryRecv() (shred.PacketBatch, error)
}

// PacketSender is the outbound retransmit sink. Send failures are expected
// (no consumer is a valid configuration) and must be treated as non-fatal
// by callers.
type PacketSender interface {
	Send(batch shred.PacketBatch) error
}

// ChannelReceiver adapts a Go channel of PacketBatch to PacketReceiver.
type ChannelReceiver struct {
	C <-chan shred.PacketBatch
}

// NewChannelReceiver wraps c as a PacketReceiver.
func NewChannelReceiver(c <-chan shred.PacketBatch) *ChannelReceiver {
	return &ChannelReceiver{C: c}
}

// RecvTimeout implements PacketReceiver.
func (r *ChannelReceiver) RecvTimeout(timeout time.Duration) (shred.PacketBatch, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case batch, ok := <-r.C:
		if !ok {
			return nil, ErrDisconnected
		}
		return batch, nil
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// TryRecv implements PacketReceiver.
func (r *ChannelReceiver) TryRecv() (shred.PacketBatch, error) {
	select {
	case batch, ok := <-r.C:
		if !ok {
			return nil, ErrDisconnected
		}
		return batch, nil
	default:
		return nil, ErrTimeout
	}
}

// ChannelSender adapts a Go channel of PacketBatch to PacketSender. Send is
// non-blocking: if the channel is full or has no receiver, the batch is
// dropped and Send returns ErrNoConsumer.
type ChannelSender struct {
	C chan<- shred.PacketBatch
}

// NewChannelSender wraps c as a PacketSender.
func NewChannelSender(c chan<- shred.PacketBatch) *ChannelSender {
	return &ChannelSender{C: c}
}

// ErrNoConsumer is returned by ChannelSender.Send when the send could not be
// completed without blocking. The ingest stage treats this identically to
// any other send failure: ignored.
var ErrNoConsumer = errors.New("window: no retransmit consumer")

// Send implements PacketSender.
func (s *ChannelSender) Send(batch shred.PacketBatch) error {
	select {
	case s.C <- batch:
		return nil
	default:
		return ErrNoConsumer
	}
}
