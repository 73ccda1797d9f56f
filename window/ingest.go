package window

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turbinevalidator/ingestwindow/bankctx"
	"github.com/turbinevalidator/ingestwindow/blockstore"
	"github.com/turbinevalidator/ingestwindow/leaderschedule"
	"github.com/turbinevalidator/ingestwindow/shred"
)

// RecvTimeout is the time budget for the first blocking receive of a batch.
const RecvTimeout = 200 * time.Millisecond

// DefaultWorkers is the decode/filter pool size used when the host's CPU
// count cannot be determined (runtime.NumCPU() reporting 0 or less).
const DefaultWorkers = 10

// Ingestor performs one bounded unit of ingest work per RecvWindow call:
// receive-with-coalescing, parallel decode+filter, order-preserving
// retention, non-blocking retransmit, and durable persistence.
type Ingestor struct {
	Receiver PacketReceiver
	Sender   PacketSender
	Store    blockstore.Store
	Oracle   leaderschedule.Oracle
	Filter   Filter

	// Workers bounds the decode/filter pool's concurrency. Zero means
	// size to runtime.NumCPU(), falling back to DefaultWorkers if that
	// reports 0.
	Workers int

	// RecvTimeoutOverride replaces RecvTimeout when non-zero, letting a
	// deployment tune the receive budget from its own configuration.
	RecvTimeoutOverride time.Duration
}

func (in *Ingestor) workers() int {
	if in.Workers > 0 {
		return in.Workers
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return DefaultWorkers
}

func (in *Ingestor) recvTimeout() time.Duration {
	if in.RecvTimeoutOverride > 0 {
		return in.RecvTimeoutOverride
	}
	return RecvTimeout
}

// survivor pairs a decoded, admitted shred with its original position in
// the coalesced batch, so retention can rebuild the packet sequence in
// input order without a lookup structure.
type survivor struct {
	index int
	shred *shred.Shred
}

// RecvWindow performs one bounded unit of ingest work: receive one
// coalesced batch, decode and filter it in parallel, forward survivors to
// the retransmit sink, and persist the decoded survivors. It returns an
// error only for ErrTimeout, ErrDisconnected, or a block-store failure.
func (in *Ingestor) RecvWindow(ctx context.Context, bank bankctx.Bank) error {
	start := time.Now()
	defer ingestBatchLatency.UpdateSince(start)

	batch, err := in.Receiver.RecvTimeout(in.recvTimeout())
	if err != nil {
		return err
	}

	// Opportunistically drain any batches already queued, without blocking,
	// to amortize per-call overhead and maximize the parallel work size.
	for {
		more, err := in.Receiver.TryRecv()
		if err != nil {
			break
		}
		batch = append(batch, more...)
	}

	ingestReceivedTotal.Inc(int64(len(batch)))

	survivors, err := in.decodeAndFilter(ctx, batch, bank)
	if err != nil {
		return err
	}

	retained := retainPackets(batch, survivors)
	shreds := make([]*shred.Shred, len(survivors))
	for i, s := range survivors {
		shreds[i] = s.shred
	}
	ingestRetainedTotal.Inc(int64(len(shreds)))

	if len(retained) > 0 {
		// Send failure is ignored: absence of a retransmit consumer is a
		// valid configuration and must not block ingest.
		_ = in.Sender.Send(retained)
	}

	if err := in.Store.Insert(ctx, shreds, in.Oracle); err != nil {
		ingestBlockStoreErrors.Inc(1)
		return fmt.Errorf("window: block store insert: %w", err)
	}
	ingestInsertedTotal.Inc(int64(len(shreds)))

	return nil
}

// decodeAndFilter runs the embarrassingly-parallel map-filter stage: for
// each packet, attempt to deserialize and then evaluate the admission
// filter. Survivors are returned sorted by original index, preserving
// receive order.
func (in *Ingestor) decodeAndFilter(ctx context.Context, batch shred.PacketBatch, bank bankctx.Bank) ([]survivor, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	results := make([]*survivor, len(batch))
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(in.workers())

	for idx, pkt := range batch {
		idx, pkt := idx, pkt
		group.Go(func() error {
			sh, err := shred.Deserialize(pkt.Data)
			if err != nil {
				ingestDeserializeErrors.Inc(1)
				return nil // malformed traffic is dropped silently
			}
			if !in.Filter(sh, pkt.Data, bank) {
				return nil
			}
			pkt.Meta.Slot = sh.Slot
			pkt.Meta.Seed = sh.Seed
			results[idx] = &survivor{index: idx, shred: sh}
			return nil
		})
	}
	// The pool never returns a non-nil error: every failure mode (bad
	// deserialize, filter rejection) is handled by dropping, not erroring.
	if err := group.Wait(); err != nil {
		return nil, err
	}

	survivors := make([]survivor, 0, len(batch))
	for _, r := range results {
		if r != nil {
			survivors = append(survivors, *r)
		}
	}
	// results is already input-ordered by construction (slice index), but
	// sort defensively in case a future variant reorders within the pool.
	sort.Slice(survivors, func(i, j int) bool { return survivors[i].index < survivors[j].index })
	return survivors, nil
}

// retainPackets rebuilds the packet batch to contain exactly the packets at
// surviving indices, in their original relative order: a single pass over
// the batch while advancing a cursor through the sorted surviving-index
// sequence, with no index lookups.
func retainPackets(batch shred.PacketBatch, survivors []survivor) shred.PacketBatch {
	if len(survivors) == 0 {
		return nil
	}
	retained := make(shred.PacketBatch, 0, len(survivors))
	cursor := 0
	for i, pkt := range batch {
		if cursor >= len(survivors) {
			break
		}
		if survivors[cursor].index == i {
			retained = append(retained, pkt)
			cursor++
		}
	}
	return retained
}
