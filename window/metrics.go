package window

import "github.com/ethereum/go-ethereum/metrics"

var (
	unknownLeaderTotal        = metrics.NewRegisteredCounter("window/filter/unknown_leader", nil)
	circularTransmissionTotal = metrics.NewRegisteredCounter("window/filter/circular_transmission", nil)
	invalidSignatureTotal     = metrics.NewRegisteredCounter("window/filter/invalid_signature", nil)

	ingestReceivedTotal     = metrics.NewRegisteredCounter("window/ingest/received_total", nil)
	ingestRetainedTotal     = metrics.NewRegisteredCounter("window/ingest/retained_total", nil)
	ingestInsertedTotal     = metrics.NewRegisteredCounter("window/ingest/inserted_total", nil)
	ingestDeserializeErrors = metrics.NewRegisteredCounter("window/ingest/deserialize_errors", nil)
	ingestBlockStoreErrors  = metrics.NewRegisteredCounter("window/ingest/blockstore_errors", nil)
	ingestBatchLatency      = metrics.NewRegisteredTimer("window/ingest/batch_latency", nil)

	serviceStallWarnings = metrics.NewRegisteredCounter("window/service/stall_warnings", nil)
)
