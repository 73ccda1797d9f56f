package repair

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/turbinevalidator/ingestwindow/blockstore"
	"github.com/turbinevalidator/ingestwindow/leaderschedule"
	"github.com/turbinevalidator/ingestwindow/shred"
)

type staticHighest uint64

func (s staticHighest) HighestSlot() uint64 { return uint64(s) }

func TestService_RangeScanFindsGaps(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer serverConn.Close()
	require.NoError(t, serverConn.SetReadDeadline(time.Now().Add(2*time.Second)))

	store := blockstore.NewMemStore()
	defer store.Close()
	// Insert index 0 of slot 1 only; indices 1.. remain "missing" up to
	// IndicesPerSlot.
	require.NoError(t, store.Insert(nil, []*shred.Shred{{Slot: 1, Index: 0, RawBytes: []byte("x")}}, nil))

	requester, err := NewRequester("127.0.0.1:0")
	require.NoError(t, err)
	defer requester.Close()

	var exitFlag atomic.Bool
	svc := NewService(store, StaticPeers{serverConn.LocalAddr().(*net.UDPAddr)}, requester, Range{Start: 1, End: 1}, &exitFlag)
	svc.PollInterval = 20 * time.Millisecond
	svc.IndicesPerSlot = 2

	svc.Start()
	defer func() {
		exitFlag.Store(true)
		require.NoError(t, svc.Join())
	}()

	buf := make([]byte, 4096)
	n, _, err := serverConn.ReadFromUDP(buf)
	require.NoError(t, err)
	require.Equal(t, wireSize, n) // exactly one missing index (slot 1, index 1)
}

func TestService_CatchUpWakesOnCompletedSlot(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer serverConn.Close()
	require.NoError(t, serverConn.SetReadDeadline(time.Now().Add(2*time.Second)))

	store := blockstore.NewMemStore()
	defer store.Close()
	// Only (slot 1, index 0) is present; with IndicesPerSlot=1 and a
	// highest slot of 1, the scan window is [0, 1] and slot 0's single
	// index is the only gap.
	require.NoError(t, store.Insert(nil, []*shred.Shred{{Slot: 1, Index: 0, RawBytes: []byte("x")}}, nil))

	requester, err := NewRequester("127.0.0.1:0")
	require.NoError(t, err)
	defer requester.Close()

	completed := make(chan uint64, 1)
	strategy := CatchUp{BankForks: staticHighest(1), CompletedSlots: completed}

	var exitFlag atomic.Bool
	// A poll interval long enough that only the completed-slot notification,
	// not the ticker, can plausibly deliver the request within the test's
	// read deadline.
	svc := NewService(store, StaticPeers{serverConn.LocalAddr().(*net.UDPAddr)}, requester, strategy, &exitFlag)
	svc.PollInterval = time.Hour
	svc.IndicesPerSlot = 1

	svc.Start()
	defer func() {
		exitFlag.Store(true)
		require.NoError(t, svc.Join())
	}()

	completed <- 1

	buf := make([]byte, 4096)
	n, _, err := serverConn.ReadFromUDP(buf)
	require.NoError(t, err)
	require.Equal(t, wireSize, n) // exactly one missing index (slot 0, index 0)
}

func TestService_CatchUpExtendsForKnownRotations(t *testing.T) {
	oracle := leaderschedule.NewStatic(nil)
	var leader shred.Identity
	oracle.Set(11, leader)
	oracle.Set(12, leader)
	// 13 deliberately left unset: the walk must stop there, not at Lookahead.

	var exitFlag atomic.Bool
	strategy := CatchUp{BankForks: staticHighest(10), EpochSchedule: oracle}
	svc := NewService(nil, nil, nil, strategy, &exitFlag)
	svc.Lookahead = 5

	start, end, ok := svc.slotRange()
	require.True(t, ok)
	require.Equal(t, uint64(0), start)
	require.Equal(t, uint64(12), end)
}

func TestService_NoStrategyIsNoop(t *testing.T) {
	store := blockstore.NewMemStore()
	defer store.Close()

	requester, err := NewRequester("127.0.0.1:0")
	require.NoError(t, err)
	defer requester.Close()

	var exitFlag atomic.Bool
	svc := NewService(store, StaticPeers{}, requester, nil, &exitFlag)
	svc.PollInterval = 10 * time.Millisecond

	svc.Start()
	time.Sleep(50 * time.Millisecond)
	exitFlag.Store(true)
	require.NoError(t, svc.Join())
}
