package main

import (
	"fmt"
	"time"
)

// Config holds the validator-window daemon configuration.
type Config struct {
	// Listen addresses
	ListenAddr       string // UDP address the ingest receiver listens on
	RetransmitAddr   string // UDP address outbound retransmits are sent to
	RepairListenAddr string // local address the repair requester binds

	// Data store
	DataDir  string // pebble data directory (required unless InMemory is set)
	InMemory bool   // force the in-memory store even if DataDir is set

	// Tunables
	RecvTimeout        time.Duration
	StallWarnThreshold time.Duration
	WorkerStackBytes   uint64
	IngestWorkers      int // 0 = CPU count, fallback window.DefaultWorkers (10)

	// Repair
	RepairStrategy     string // "range" or "catchup"
	RepairRangeStart   uint64
	RepairRangeEnd     uint64
	RepairPollInterval time.Duration
	RepairBatchSize    int
	RepairPeers        []string // "host:port" peer endpoints

	// Identity and schedule
	NodeIdentityHex string // hex-encoded ed25519 public key
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen-addr is required")
	}
	if c.NodeIdentityHex == "" {
		return fmt.Errorf("node-identity is required")
	}
	if !c.InMemory && c.DataDir == "" {
		return fmt.Errorf("datadir is required unless in-memory store is selected")
	}
	if c.RecvTimeout <= 0 {
		return fmt.Errorf("recv-timeout must be > 0")
	}
	if c.StallWarnThreshold <= 0 {
		return fmt.Errorf("stall-warn-threshold must be > 0")
	}
	switch c.RepairStrategy {
	case "range":
		if c.RepairRangeEnd < c.RepairRangeStart {
			return fmt.Errorf("repair-range-end must be >= repair-range-start")
		}
	case "catchup":
		// no additional static validation: driven by runtime bank-forks state
	default:
		return fmt.Errorf("repair-strategy must be 'range' or 'catchup', got %q", c.RepairStrategy)
	}
	if c.RepairPollInterval <= 0 {
		return fmt.Errorf("repair-poll-interval must be > 0")
	}
	return nil
}
