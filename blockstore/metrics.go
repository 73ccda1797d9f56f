package blockstore

import "github.com/ethereum/go-ethereum/metrics"

var (
	insertedTotal = metrics.NewRegisteredCounter("blockstore/insert/shreds/total", nil)
	insertLatency = metrics.NewRegisteredTimer("blockstore/insert/latency", nil)
	insertErrors  = metrics.NewRegisteredCounter("blockstore/insert/errors/total", nil)
)
