package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	verificationOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_outcomes_total",
			Help: "Verification outcomes by method, success and confidence.",
		},
		[]string{"method", "success", "confidence"},
	)

	jobsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "escrow_jobs_created_total",
			Help: "Count of jobs successfully escrowed.",
		},
	)

	escrowedMicros = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "escrow_locked_micros_total",
			Help: "Sum of escrowed totals (budget plus fee) in micro-units.",
		},
	)

	degradedJobs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "escrow_degraded_jobs_total",
			Help: "Jobs recorded without an on-chain id (event decode failed).",
		},
	)

	recoveredJobs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "escrow_recovered_jobs_total",
			Help: "Degraded jobs repaired by the reconciler.",
		},
	)

	unconfirmedJobs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "escrow_unconfirmed_jobs_total",
			Help: "Jobs recorded with a submitted but unconfirmed creation transaction.",
		},
	)

	discardedJobs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "escrow_discarded_jobs_total",
			Help: "Recorded jobs dropped because the creation transaction reverted or never mined.",
		},
	)

	withdrawalsSettled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "withdrawals_settled_total",
			Help: "Count of confirmed payouts.",
		},
	)

	withdrawnMicros = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "withdrawals_micros_total",
			Help: "Sum of transferred payout amounts in micro-units.",
		},
	)

	syncFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "withdrawal_sync_failures_total",
			Help: "Per-job completion syncs that failed during withdrawal.",
		},
	)
)

func init() {
	register(verificationOutcomes, jobsCreated, escrowedMicros, degradedJobs,
		recoveredJobs, unconfirmedJobs, discardedJobs,
		withdrawalsSettled, withdrawnMicros, syncFailures)
}

func VerificationOutcome(method string, success bool, confidence string) {
	verificationOutcomes.WithLabelValues(method, strconv.FormatBool(success), confidence).Inc()
}

func JobCreated(totalMicros int64, degraded bool) {
	jobsCreated.Inc()
	escrowedMicros.Add(float64(totalMicros))
	if degraded {
		degradedJobs.Inc()
	}
}

func JobRecovered()   { recoveredJobs.Inc() }
func JobUnconfirmed() { unconfirmedJobs.Inc() }
func JobDiscarded()   { discardedJobs.Inc() }
func SyncFailure()    { syncFailures.Inc() }

func WithdrawalSettled(amountMicros int64) {
	withdrawalsSettled.Inc()
	withdrawnMicros.Add(float64(amountMicros))
}
