// validator-window is the standalone ingest-window and repair daemon: it
// consumes shreds from the turbine network, filters and retransmits them,
// persists accepted fragments, and drives repair of missing ones.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

// workerStackBytes is applied at process start via debug.SetMaxStack as the
// stand-in for a per-goroutine 8 MiB worker stack: Go goroutines grow their
// stack on demand from a small initial allocation, so there is no
// per-goroutine stack-size knob to set. SetMaxStack caps every goroutine's
// stack at this size; Go's default ceiling on 64-bit hosts is 1 GB, so this
// lowers the ceiling rather than raising it.
const workerStackBytes = 8 << 20

var (
	app = cli.NewApp()

	listenAddrFlag = &cli.StringFlag{
		Name:  "listen-addr",
		Usage: "UDP address the ingest receiver listens on",
		Value: "0.0.0.0:8001",
	}
	retransmitAddrFlag = &cli.StringFlag{
		Name:  "retransmit-addr",
		Usage: "UDP address outbound retransmits are sent to",
		Value: "0.0.0.0:8002",
	}
	repairListenAddrFlag = &cli.StringFlag{
		Name:  "repair-listen-addr",
		Usage: "local address the repair requester binds",
		Value: "0.0.0.0:8003",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "pebble data directory for the block store",
		Value: "./validator-window-data",
	}
	inMemoryFlag = &cli.BoolFlag{
		Name:  "in-memory",
		Usage: "use an in-memory block store instead of pebble",
		Value: false,
	}
	recvTimeoutFlag = &cli.DurationFlag{
		Name:  "recv-timeout",
		Usage: "bounded blocking receive timeout for the ingest stage",
		Value: 200 * time.Millisecond,
	}
	stallWarnThresholdFlag = &cli.DurationFlag{
		Name:  "stall-warn-threshold",
		Usage: "cumulative idle duration before a liveness warning is emitted",
		Value: 30 * time.Second,
	}
	ingestWorkersFlag = &cli.IntFlag{
		Name:  "ingest-workers",
		Usage: "decode/filter pool size (0 = CPU count, fallback 10)",
		Value: 0,
	}
	repairStrategyFlag = &cli.StringFlag{
		Name:  "repair-strategy",
		Usage: "repair strategy: 'range' or 'catchup'",
		Value: "range",
	}
	repairRangeStartFlag = &cli.Uint64Flag{
		Name:  "repair-range-start",
		Usage: "first slot to repair under the 'range' strategy",
		Value: 0,
	}
	repairRangeEndFlag = &cli.Uint64Flag{
		Name:  "repair-range-end",
		Usage: "last slot to repair under the 'range' strategy",
		Value: 0,
	}
	repairPollIntervalFlag = &cli.DurationFlag{
		Name:  "repair-poll-interval",
		Usage: "interval between repair gap scans",
		Value: 500 * time.Millisecond,
	}
	repairBatchSizeFlag = &cli.IntFlag{
		Name:  "repair-batch-size",
		Usage: "max repair requests per UDP datagram",
		Value: 32,
	}
	repairPeersFlag = &cli.StringFlag{
		Name:  "repair-peers",
		Usage: "comma-separated host:port repair peer endpoints",
		Value: "",
	}
	nodeIdentityFlag = &cli.StringFlag{
		Name:  "node-identity",
		Usage: "hex-encoded ed25519 public key identifying this node",
	}
)

func init() {
	app.Name = "validator-window"
	app.Usage = "turbine shred ingest window and repair daemon"
	app.Action = runDaemon
	app.Flags = []cli.Flag{
		listenAddrFlag,
		retransmitAddrFlag,
		repairListenAddrFlag,
		dataDirFlag,
		inMemoryFlag,
		recvTimeoutFlag,
		stallWarnThresholdFlag,
		ingestWorkersFlag,
		repairStrategyFlag,
		repairRangeStartFlag,
		repairRangeEndFlag,
		repairPollIntervalFlag,
		repairBatchSizeFlag,
		repairPeersFlag,
		nodeIdentityFlag,
	}
}

func main() {
	debug.SetMaxStack(workerStackBytes)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(ctx *cli.Context) error {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelInfo, true)))

	cfg := buildConfigFromCLI(ctx)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	runner, err := NewRunner(cfg)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := runner.Start(); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	log.Info("validator-window started", "listen", cfg.ListenAddr, "datadir", cfg.DataDir)

	sig := <-sigCh
	log.Info("received signal, shutting down", "signal", sig)

	return runner.Stop()
}

func buildConfigFromCLI(ctx *cli.Context) *Config {
	var peers []string
	if raw := ctx.String(repairPeersFlag.Name); raw != "" {
		peers = strings.Split(raw, ",")
	}
	return &Config{
		ListenAddr:         ctx.String(listenAddrFlag.Name),
		RetransmitAddr:     ctx.String(retransmitAddrFlag.Name),
		RepairListenAddr:   ctx.String(repairListenAddrFlag.Name),
		DataDir:            ctx.String(dataDirFlag.Name),
		InMemory:           ctx.Bool(inMemoryFlag.Name),
		RecvTimeout:        ctx.Duration(recvTimeoutFlag.Name),
		StallWarnThreshold: ctx.Duration(stallWarnThresholdFlag.Name),
		WorkerStackBytes:   workerStackBytes,
		IngestWorkers:      ctx.Int(ingestWorkersFlag.Name),
		RepairStrategy:     ctx.String(repairStrategyFlag.Name),
		RepairRangeStart:   ctx.Uint64(repairRangeStartFlag.Name),
		RepairRangeEnd:     ctx.Uint64(repairRangeEndFlag.Name),
		RepairPollInterval: ctx.Duration(repairPollIntervalFlag.Name),
		RepairBatchSize:    ctx.Int(repairBatchSizeFlag.Name),
		RepairPeers:        peers,
		NodeIdentityHex:    ctx.String(nodeIdentityFlag.Name),
	}
}
