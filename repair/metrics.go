package repair

import "github.com/ethereum/go-ethereum/metrics"

var (
	requestsSentTotal = metrics.NewRegisteredCounter("repair/requests/sent_total", nil)
	batchesSentTotal  = metrics.NewRegisteredCounter("repair/requests/batches_total", nil)
	sendErrorsTotal   = metrics.NewRegisteredCounter("repair/requests/send_errors", nil)
	gapsFoundTotal    = metrics.NewRegisteredCounter("repair/gaps/found_total", nil)
)
