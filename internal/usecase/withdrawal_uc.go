// File: internal/usecase/withdrawal_uc.go
package usecase

import (
	"context"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"

	"social-boost-platform/internal/domain"
	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/domain/ports/adapter"
	"social-boost-platform/internal/domain/ports/repository"
	"social-boost-platform/internal/infra/metrics"
)

// Compile-time check
var _ WithdrawalUseCase = (*withdrawalUC)(nil)

type WithdrawResult struct {
	TxHash string
	Amount model.Amount
	// AmountFromEvent is false when the payout event could not be parsed and
	// Amount is the off-chain computed figure (logged as lower confidence).
	AmountFromEvent bool
	Synced          int
	Cleared         int
}

type WithdrawalUseCase interface {
	Withdraw(ctx context.Context, performerID string) (*WithdrawResult, error)
}

type withdrawalUC struct {
	performers  repository.PerformerRepository
	completions repository.CompletionRepository
	jobs        repository.JobRepository
	cache       repository.BalanceCache
	chain       adapter.EscrowChain
	signers     adapter.SignerRegistry
	// operator attests completions to the contract; performers only sign
	// their own payout.
	operator adapter.TxSigner

	minWithdraw model.Amount
	minGasWei   *big.Int
	log         *zerolog.Logger
}

func NewWithdrawalUseCase(
	performers repository.PerformerRepository,
	completions repository.CompletionRepository,
	jobs repository.JobRepository,
	cache repository.BalanceCache,
	chain adapter.EscrowChain,
	signers adapter.SignerRegistry,
	operator adapter.TxSigner,
	minWithdraw model.Amount,
	minGasWei *big.Int,
	logger *zerolog.Logger,
) *withdrawalUC {
	if minGasWei == nil {
		minGasWei = big.NewInt(0)
	}
	return &withdrawalUC{
		performers:  performers,
		completions: completions,
		jobs:        jobs,
		cache:       cache,
		chain:       chain,
		signers:     signers,
		operator:    operator,
		minWithdraw: minWithdraw,
		minGasWei:   minGasWei,
		log:         logger,
	}
}

// Withdraw runs the settlement state machine: aggregate, threshold-check,
// sync, payout, clear. Sync is idempotent per job; the ledger is cleared only
// after the payout receipt is confirmed, so a crash anywhere before that
// leaves every completion intact for retry.
func (u *withdrawalUC) Withdraw(ctx context.Context, performerID string) (*WithdrawResult, error) {
	performer, err := u.performers.FindByID(ctx, nil, performerID)
	if err != nil {
		return nil, fmt.Errorf("performer %s: %w", performerID, err)
	}

	earned, err := u.completions.EarnedBalance(ctx, nil, performerID)
	if err != nil {
		return nil, err
	}
	if earned < u.minWithdraw {
		return nil, fmt.Errorf("performer %s: earned %s below minimum %s: %w",
			performerID, earned, u.minWithdraw, domain.ErrBelowThreshold)
	}

	// Gas check up front: a payout that would die mid-flight on fees is
	// rejected before any contract call.
	gas, err := u.chain.NativeBalance(ctx, performer.Wallet)
	if err != nil {
		return nil, err
	}
	if gas.Cmp(u.minGasWei) < 0 {
		return nil, fmt.Errorf("wallet %s: gas balance %s wei below minimum %s wei: %w",
			performer.Wallet, gas, u.minGasWei, domain.ErrInsufficientGas)
	}

	synced, err := u.syncCompletions(ctx, performer)
	if err != nil {
		return nil, err
	}

	// Re-read what the contract will actually pay; stale expectations after
	// partial syncs must not reach the payout step.
	avail, err := u.chain.UserEarnings(ctx, performer.Wallet)
	if err != nil {
		return nil, err
	}
	availAmount, err := model.AmountFromBigInt(avail)
	if err != nil {
		return nil, err
	}
	if availAmount < u.minWithdraw {
		return nil, fmt.Errorf("performer %s: on-chain earnings %s below minimum %s after %d syncs: %w",
			performerID, availAmount, u.minWithdraw, synced, domain.ErrSyncIncomplete)
	}

	signer, err := u.signers.SignerFor(ctx, performer.Wallet)
	if err != nil {
		return nil, fmt.Errorf("signer for %s: %w", performer.Wallet, err)
	}
	payout, err := u.chain.WithdrawEarnings(ctx, signer)
	if err != nil {
		return nil, fmt.Errorf("payout for %s: %w", performerID, err)
	}

	amount := availAmount
	if payout.AmountFromEvent {
		if amount, err = model.AmountFromBigInt(payout.Amount); err != nil {
			return nil, err
		}
	} else {
		u.log.Warn().Str("tx", payout.Receipt.TxHash).Str("fallback_amount", amount.StringFull()).
			Msg("payout event parse failed, using off-chain computed amount")
	}

	// Payout is confirmed; only now may the ledger be cleared and the cached
	// balance credited.
	cleared, err := u.completions.Clear(ctx, nil, performerID)
	if err != nil {
		// The payout happened; a failed clear must be loud and retried by the
		// operator, never hidden.
		return nil, fmt.Errorf("payout tx %s confirmed but ledger clear failed: %w",
			payout.Receipt.TxHash, err)
	}
	_ = u.cache.Add(ctx, performer.Wallet, amount)

	metrics.WithdrawalSettled(int64(amount))
	u.log.Info().Str("performer_id", performerID).Str("tx", payout.Receipt.TxHash).
		Str("amount", amount.StringFull()).Int("synced", synced).Int("cleared", cleared).
		Msg("withdrawal settled")

	return &WithdrawResult{
		TxHash:          payout.Receipt.TxHash,
		Amount:          amount,
		AmountFromEvent: payout.AmountFromEvent,
		Synced:          synced,
		Cleared:         cleared,
	}, nil
}

// syncCompletions pushes each off-chain completion to the contract.
// Already-synced jobs are skipped (idempotent no-op); individual failures are
// logged and do not abort the remaining syncs, so withdrawal proceeds
// best-effort across jobs.
func (u *withdrawalUC) syncCompletions(ctx context.Context, performer *model.Performer) (int, error) {
	completions, err := u.completions.ListByPerformer(ctx, nil, performer.ID)
	if err != nil {
		return 0, err
	}
	synced := 0
	for _, c := range completions {
		job, err := u.jobs.FindByID(ctx, nil, c.JobID)
		if err != nil {
			metrics.SyncFailure()
			u.log.Error().Err(err).Str("job_id", c.JobID).Msg("sync: job lookup failed")
			continue
		}
		if job.OnChainID == nil {
			// Degraded job still awaiting the reconciler; it cannot be
			// synced until the on-chain id is recovered.
			metrics.SyncFailure()
			u.log.Warn().Str("job_id", job.ID).Str("tx", job.TxHash).
				Msg("sync: job has no on-chain id yet")
			continue
		}
		onChainID := big.NewInt(*job.OnChainID)

		done, err := u.chain.JobCompleted(ctx, onChainID, performer.Wallet)
		if err == nil && done {
			synced++
			continue
		}
		if _, err := u.chain.CompleteJob(ctx, u.operator, onChainID, performer.Wallet); err != nil {
			metrics.SyncFailure()
			u.log.Error().Err(err).Str("job_id", job.ID).Int64("on_chain_id", *job.OnChainID).
				Msg("sync: completion sync failed")
			continue
		}
		synced++
	}
	return synced, nil
}
