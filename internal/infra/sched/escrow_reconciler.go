package sched

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/rs/zerolog"

	"social-boost-platform/internal/domain"
	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/domain/ports/adapter"
	"social-boost-platform/internal/domain/ports/repository"
	"social-boost-platform/internal/infra/metrics"
	"social-boost-platform/internal/infra/worker"
)

// EscrowReconciler periodically scans for jobs recorded without an on-chain
// id, either because the creation event could not be decoded or because the
// creation transaction was submitted but never confirmed. Each is resolved by
// re-reading the creation receipt: a decodable event repairs the id, a revert
// or a transaction absent past the grace period discards the record. Without
// this loop those jobs could never be synced at withdrawal time.
type EscrowReconciler struct {
	jobs         repository.JobRepository
	chain        adapter.EscrowChain
	pool         *worker.Pool
	interval     time.Duration
	discardAfter time.Duration
	log          *zerolog.Logger
}

func NewEscrowReconciler(jobs repository.JobRepository, chain adapter.EscrowChain, pool *worker.Pool, interval, discardAfter time.Duration, logger *zerolog.Logger) *EscrowReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if discardAfter <= 0 {
		discardAfter = time.Hour
	}
	return &EscrowReconciler{jobs: jobs, chain: chain, pool: pool, interval: interval, discardAfter: discardAfter, log: logger}
}

func (w *EscrowReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *EscrowReconciler) tick(ctx context.Context) {
	degraded, err := w.jobs.ListUnrecovered(ctx, nil, 100)
	if err != nil {
		w.log.Error().Err(err).Msg("escrow-reconciler: list degraded jobs")
		return
	}
	for _, job := range degraded {
		j := job
		if err := w.pool.Submit(func(ctx context.Context) error {
			return w.recover(ctx, j)
		}); err != nil {
			// Queue saturated; the next tick picks the job up again.
			w.log.Warn().Err(err).Str("job_id", j.ID).Msg("escrow-reconciler: submit")
		}
	}
}

func (w *EscrowReconciler) recover(ctx context.Context, job *model.Job) error {
	onChainID, err := w.chain.JobIDFromTx(ctx, job.TxHash)
	switch {
	case errors.Is(err, domain.ErrChainExecutionFailed):
		// Mined and reverted: no funds were escrowed, the record is noise.
		return w.discard(ctx, job, "creation reverted")
	case errors.Is(err, ethereum.NotFound):
		if time.Since(job.CreatedAt) > w.discardAfter {
			// Dropped from the mempool; the funds never moved.
			return w.discard(ctx, job, "transaction never mined")
		}
		w.log.Debug().Str("job_id", job.ID).Str("tx", job.TxHash).
			Msg("escrow-reconciler: creation not mined yet")
		return nil
	case err != nil:
		w.log.Warn().Err(err).Str("job_id", job.ID).Str("tx", job.TxHash).
			Msg("escrow-reconciler: recovery attempt failed")
		return err
	}
	if !onChainID.IsInt64() {
		w.log.Error().Str("job_id", job.ID).Str("on_chain_id", onChainID.String()).
			Msg("escrow-reconciler: on-chain id out of range")
		return nil
	}
	if err := w.jobs.SetOnChainID(ctx, nil, job.ID, onChainID.Int64()); err != nil {
		return err
	}
	metrics.JobRecovered()
	w.log.Info().Str("job_id", job.ID).Int64("on_chain_id", onChainID.Int64()).
		Msg("escrow-reconciler: recovered on-chain id")
	return nil
}

func (w *EscrowReconciler) discard(ctx context.Context, job *model.Job, reason string) error {
	if err := w.jobs.Discard(ctx, nil, job.ID); err != nil {
		w.log.Error().Err(err).Str("job_id", job.ID).Msg("escrow-reconciler: discard failed")
		return err
	}
	metrics.JobDiscarded()
	w.log.Info().Str("job_id", job.ID).Str("tx", job.TxHash).Str("reason", reason).
		Msg("escrow-reconciler: discarded job that never escrowed")
	return nil
}
