package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	rpcRotations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chain_rpc_rotations_total",
			Help: "Count of RPC endpoint rotations after a failed call.",
		},
	)

	rpcExhausted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chain_rpc_exhausted_total",
			Help: "Count of calls that exhausted every RPC endpoint.",
		},
	)

	receiptWaitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chain_receipt_wait_seconds",
			Help:    "Time from transaction submission to mined receipt.",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 80, 120},
		},
		[]string{"success"},
	)

	gasEstimateFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chain_gas_estimate_fallbacks_total",
			Help: "Count of transactions submitted with the default gas limit after estimation failed.",
		},
	)
)

func init() {
	register(rpcRotations, rpcExhausted, receiptWaitSeconds, gasEstimateFallbacks)
}

func RPCRotation()          { rpcRotations.Inc() }
func RPCExhausted()         { rpcExhausted.Inc() }
func GasEstimateFallback()  { gasEstimateFallbacks.Inc() }

func ObserveReceiptWait(seconds float64, success bool) {
	receiptWaitSeconds.WithLabelValues(strconv.FormatBool(success)).Observe(seconds)
}
