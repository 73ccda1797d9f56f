package window

import (
	"context"
	"crypto/ed25519"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/turbinevalidator/ingestwindow/bankctx"
	"github.com/turbinevalidator/ingestwindow/blockstore"
	"github.com/turbinevalidator/ingestwindow/leaderschedule"
	"github.com/turbinevalidator/ingestwindow/shred"
)

// fakeReceiver serves a fixed sequence of batches: the first RecvTimeout
// call returns batches[0], and every subsequent TryRecv call drains one
// more queued batch until exhausted, after which it reports ErrTimeout
// (nothing queued right now) to end the coalescing drain.
type fakeReceiver struct {
	batches []shred.PacketBatch
	next    int
}

func (f *fakeReceiver) RecvTimeout(time.Duration) (shred.PacketBatch, error) {
	if f.next >= len(f.batches) {
		return nil, ErrTimeout
	}
	b := f.batches[f.next]
	f.next++
	return b, nil
}

func (f *fakeReceiver) TryRecv() (shred.PacketBatch, error) {
	if f.next >= len(f.batches) {
		return nil, ErrTimeout
	}
	b := f.batches[f.next]
	f.next++
	return b, nil
}

type fakeSender struct {
	sent []shred.PacketBatch
}

func (f *fakeSender) Send(batch shred.PacketBatch) error {
	f.sent = append(f.sent, batch)
	return nil
}

func wirePacket(t *testing.T, priv ed25519.PrivateKey, slot uint64, index uint32, seed uint64) *shred.Packet {
	return &shred.Packet{Data: signedWire(t, priv, slot, index, seed)}
}

func noisePacket() *shred.Packet {
	return &shred.Packet{Data: make([]byte, 8)} // too short to be a valid shred
}

func TestRecvWindow_HappyPath(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var leader shred.Identity
	copy(leader[:], pub)

	oracle := leaderschedule.NewStatic(map[uint64]shred.Identity{0: leader})
	var self shred.Identity
	filter := NewFilter(self, oracle)

	batch := make(shred.PacketBatch, 0, 50)
	for i := 0; i < 50; i++ {
		batch = append(batch, wirePacket(t, priv, 0, uint32(i), uint64(i)))
	}

	recv := &fakeReceiver{batches: []shred.PacketBatch{batch}}
	send := &fakeSender{}
	store := blockstore.NewMemStore()
	defer store.Close()

	in := &Ingestor{Receiver: recv, Sender: send, Store: store, Oracle: oracle, Filter: filter}
	require.NoError(t, in.RecvWindow(context.Background(), bankctx.New(0)))

	require.Len(t, send.sent, 1)
	require.Len(t, send.sent[0], 50)
	for i, pkt := range send.sent[0] {
		require.Equal(t, uint64(0), pkt.Meta.Slot)
		require.Equal(t, uint64(i), pkt.Meta.Seed)
	}

	for i := 0; i < 50; i++ {
		_, ok, err := store.Get(0, uint32(i))
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestRecvWindow_MixedValidAndNoise(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var leader shred.Identity
	copy(leader[:], pub)

	oracle := leaderschedule.NewStatic(map[uint64]shred.Identity{1: leader})
	var self shred.Identity
	filter := NewFilter(self, oracle)

	batch := make(shred.PacketBatch, 0, 60)
	for i := 0; i < 50; i++ {
		batch = append(batch, wirePacket(t, priv, 1, uint32(i), uint64(i)))
	}
	for i := 0; i < 10; i++ {
		batch = append(batch, noisePacket())
	}

	recv := &fakeReceiver{batches: []shred.PacketBatch{batch}}
	send := &fakeSender{}
	store := blockstore.NewMemStore()
	defer store.Close()

	in := &Ingestor{Receiver: recv, Sender: send, Store: store, Oracle: oracle, Filter: filter}
	require.NoError(t, in.RecvWindow(context.Background(), bankctx.New(1)))

	require.Len(t, send.sent, 1)
	require.Len(t, send.sent[0], 50)

	for i := 0; i < 50; i++ {
		_, ok, err := store.Get(1, uint32(i))
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestRecvWindow_AllNoise(t *testing.T) {
	oracle := leaderschedule.NewStatic(nil)
	var self shred.Identity
	filter := NewFilter(self, oracle)

	batch := make(shred.PacketBatch, 0, 10)
	for i := 0; i < 10; i++ {
		batch = append(batch, noisePacket())
	}

	recv := &fakeReceiver{batches: []shred.PacketBatch{batch}}
	send := &fakeSender{}
	store := blockstore.NewMemStore()
	defer store.Close()

	in := &Ingestor{Receiver: recv, Sender: send, Store: store, Oracle: oracle, Filter: filter}
	require.NoError(t, in.RecvWindow(context.Background(), bankctx.New(0)))

	require.Len(t, send.sent, 0)
}

func TestRecvWindow_SelfOriginDrop(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var self shred.Identity
	copy(self[:], pub)

	oracle := leaderschedule.NewStatic(map[uint64]shred.Identity{2: self})
	filter := NewFilter(self, oracle)

	batch := make(shred.PacketBatch, 0, 5)
	for i := 0; i < 5; i++ {
		batch = append(batch, wirePacket(t, priv, 2, uint32(i), uint64(i)))
	}

	recv := &fakeReceiver{batches: []shred.PacketBatch{batch}}
	send := &fakeSender{}
	store := blockstore.NewMemStore()
	defer store.Close()

	before := circularTransmissionTotal.Count()

	in := &Ingestor{Receiver: recv, Sender: send, Store: store, Oracle: oracle, Filter: filter}
	require.NoError(t, in.RecvWindow(context.Background(), bankctx.New(2)))

	require.Len(t, send.sent, 0)
	require.Equal(t, before+5, circularTransmissionTotal.Count())
}

func TestRecvWindow_UnknownLeader(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	oracle := leaderschedule.NewStatic(nil) // no leader known for any slot
	var self shred.Identity
	filter := NewFilter(self, oracle)

	batch := shred.PacketBatch{wirePacket(t, priv, 42, 0, 0)}

	recv := &fakeReceiver{batches: []shred.PacketBatch{batch}}
	send := &fakeSender{}
	store := blockstore.NewMemStore()
	defer store.Close()

	before := unknownLeaderTotal.Count()

	in := &Ingestor{Receiver: recv, Sender: send, Store: store, Oracle: oracle, Filter: filter}
	require.NoError(t, in.RecvWindow(context.Background(), bankctx.New(42)))

	require.Len(t, send.sent, 0)
	require.Equal(t, before+1, unknownLeaderTotal.Count())
}

func TestRecvWindow_DisconnectedPropagates(t *testing.T) {
	store := blockstore.NewMemStore()
	defer store.Close()

	in := &Ingestor{
		Receiver: &disconnectedReceiver{},
		Sender:   &fakeSender{},
		Store:    store,
		Oracle:   leaderschedule.NewStatic(nil),
		Filter:   NewFilter(shred.Identity{}, leaderschedule.NewStatic(nil)),
	}
	err := in.RecvWindow(context.Background(), bankctx.New(0))
	require.ErrorIs(t, err, ErrDisconnected)
}

func TestIngestor_WorkersSizesToNumCPU(t *testing.T) {
	in := &Ingestor{}
	require.Equal(t, runtime.NumCPU(), in.workers())

	in.Workers = 3
	require.Equal(t, 3, in.workers())
}

type disconnectedReceiver struct{}

func (disconnectedReceiver) RecvTimeout(time.Duration) (shred.PacketBatch, error) {
	return nil, ErrDisconnected
}
func (disconnectedReceiver) TryRecv() (shred.PacketBatch, error) { return nil, ErrDisconnected }
