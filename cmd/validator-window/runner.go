package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"

	"github.com/turbinevalidator/ingestwindow/bankctx"
	"github.com/turbinevalidator/ingestwindow/blockstore"
	"github.com/turbinevalidator/ingestwindow/leaderschedule"
	"github.com/turbinevalidator/ingestwindow/repair"
	"github.com/turbinevalidator/ingestwindow/shred"
	"github.com/turbinevalidator/ingestwindow/window"
)

// Runner wires the window service and repair service together from a
// Config into a single Start/Stop/Join lifecycle.
type Runner struct {
	cfg *Config

	store     blockstore.Store
	requester *repair.Requester

	window *window.Service
	repair *repair.Service

	exitFlag *atomic.Bool
}

// NewRunner constructs a Runner from cfg, opening the configured block
// store backend and UDP sockets but not yet starting any goroutines.
func NewRunner(cfg *Config) (*Runner, error) {
	identity, err := decodeIdentity(cfg.NodeIdentityHex)
	if err != nil {
		return nil, fmt.Errorf("runner: node identity: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("runner: open store: %w", err)
	}

	// UDP socket I/O and packet batching are external collaborators;
	// packetCh/retransmitCh stand in for whatever producer/consumer binds
	// cfg.ListenAddr and cfg.RetransmitAddr in a full deployment.
	packetCh := make(chan shred.PacketBatch, 64)
	retransmitCh := make(chan shred.PacketBatch, 64)

	receiver := window.NewChannelReceiver(packetCh)
	sender := window.NewChannelSender(retransmitCh)

	oracle := leaderschedule.NewStatic(nil)
	filter := window.NewFilter(identity, oracle)

	ingestor := &window.Ingestor{
		Receiver:            receiver,
		Sender:              sender,
		Store:               store,
		Oracle:              oracle,
		Filter:              filter,
		Workers:             cfg.IngestWorkers,
		RecvTimeoutOverride: cfg.RecvTimeout,
	}

	requester, err := repair.NewRequester(cfg.RepairListenAddr)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("runner: repair requester: %w", err)
	}
	requester.SetBatchSize(cfg.RepairBatchSize)

	var peers repair.StaticPeers
	for _, p := range cfg.RepairPeers {
		addr, err := net.ResolveUDPAddr("udp", p)
		if err != nil {
			requester.Close()
			store.Close()
			return nil, fmt.Errorf("runner: repair peer %q: %w", p, err)
		}
		peers = append(peers, addr)
	}

	strategy, err := buildStrategy(cfg, oracle)
	if err != nil {
		requester.Close()
		store.Close()
		return nil, err
	}

	exitFlag := &atomic.Bool{}

	repairSvc := repair.NewService(store, peers, requester, strategy, exitFlag)
	repairSvc.PollInterval = cfg.RepairPollInterval

	windowSvc := window.NewService(ingestor, window.StaticBankForks(bankctx.New(0)), repairSvc, exitFlag)
	windowSvc.StallWarnThresholdOverride = cfg.StallWarnThreshold

	return &Runner{
		cfg:       cfg,
		store:     store,
		requester: requester,
		window:    windowSvc,
		repair:    repairSvc,
		exitFlag:  exitFlag,
	}, nil
}

// Start begins the window service (which in turn starts the repair
// service).
func (r *Runner) Start() error {
	r.window.Start(context.Background())
	return nil
}

// Stop requests cooperative shutdown via the shared exit flag.
func (r *Runner) Stop() error {
	r.window.Stop()
	if err := r.window.Join(); err != nil {
		log.Error("window service join failed", "err", err)
	}
	r.requester.Close()
	return r.store.Close()
}

func decodeIdentity(hexKey string) (shred.Identity, error) {
	var id shred.Identity
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return id, fmt.Errorf("decode hex: %w", err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("expected %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

func openStore(cfg *Config) (blockstore.Store, error) {
	if cfg.InMemory || cfg.DataDir == "" {
		return blockstore.NewMemStore(), nil
	}
	return blockstore.OpenPebbleStore(cfg.DataDir)
}

func buildStrategy(cfg *Config, oracle leaderschedule.Oracle) (repair.Strategy, error) {
	switch cfg.RepairStrategy {
	case "range":
		return repair.Range{Start: cfg.RepairRangeStart, End: cfg.RepairRangeEnd}, nil
	case "catchup":
		completed := make(chan uint64)
		return repair.CatchUp{
			BankForks:      staticHighestSlot(cfg.RepairRangeEnd),
			CompletedSlots: completed,
			EpochSchedule:  oracle,
		}, nil
	default:
		return nil, fmt.Errorf("runner: unknown repair strategy %q", cfg.RepairStrategy)
	}
}

// staticHighestSlot is a placeholder BankForksReader for deployments that
// haven't wired a real fork-tracking bank-forks view; it reports a fixed
// slot as the high-water mark.
type staticHighestSlot uint64

func (s staticHighestSlot) HighestSlot() uint64 { return uint64(s) }
