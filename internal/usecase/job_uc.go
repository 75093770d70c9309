// File: internal/usecase/job_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"social-boost-platform/internal/domain"
	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/domain/ports/adapter"
	"social-boost-platform/internal/domain/ports/repository"
	"social-boost-platform/internal/infra/metrics"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

type CreateJobRequest struct {
	CreatorID     string
	CreatorWallet string
	PostRef       string
	Action        model.ActionKind
	Price         model.Amount
	MaxActions    int
	ReplyText     string
}

type CreateJobResult struct {
	Job       *model.Job
	TxHash    string
	TotalCost model.Amount
	// Degraded is set when the on-chain job id could not be extracted from
	// the creation event. Funds have moved; the reconciler repairs the id.
	Degraded bool
}

type JobUseCase interface {
	Create(ctx context.Context, req CreateJobRequest) (*CreateJobResult, error)
}

type jobUC struct {
	jobs    repository.JobRepository
	cache   repository.BalanceCache
	chain   adapter.EscrowChain
	signers adapter.SignerRegistry

	feeRateBps int64
	tolerance  model.Amount
	log        *zerolog.Logger
}

func NewJobUseCase(
	jobs repository.JobRepository,
	cache repository.BalanceCache,
	chain adapter.EscrowChain,
	signers adapter.SignerRegistry,
	feeRateBps int64,
	tolerance model.Amount,
	logger *zerolog.Logger,
) *jobUC {
	return &jobUC{
		jobs:       jobs,
		cache:      cache,
		chain:      chain,
		signers:    signers,
		feeRateBps: feeRateBps,
		tolerance:  tolerance,
		log:        logger,
	}
}

func (u *jobUC) validate(req CreateJobRequest) error {
	switch {
	case req.CreatorID == "" || req.CreatorWallet == "":
		return fmt.Errorf("creator identity required: %w", domain.ErrInvalidArgument)
	case req.PostRef == "":
		return fmt.Errorf("post reference required: %w", domain.ErrInvalidArgument)
	case !req.Action.Valid():
		return fmt.Errorf("unknown action %q: %w", req.Action, domain.ErrInvalidArgument)
	case req.Price <= 0:
		return fmt.Errorf("price per action must be positive: %w", domain.ErrInvalidArgument)
	case req.MaxActions <= 0:
		return fmt.Errorf("max actions must be positive: %w", domain.ErrInvalidArgument)
	case req.Action == model.ActionReply && req.ReplyText == "":
		return fmt.Errorf("reply jobs need reply text: %w", domain.ErrInvalidArgument)
	}
	return nil
}

// Create runs the creation state machine: validate, price, check balance
// (cached then authoritative), escrow on chain, record. Once the chain call
// succeeds the job is always persisted, degraded or not, because escrowed
// funds cannot be un-moved by this service.
func (u *jobUC) Create(ctx context.Context, req CreateJobRequest) (*CreateJobResult, error) {
	if err := u.validate(req); err != nil {
		return nil, err
	}

	budget, err := req.Price.MulCount(req.MaxActions)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInvalidArgument)
	}
	fee := budget.FeeBps(u.feeRateBps)
	total := budget + fee

	// Cached balance is a fast-fail UX optimization only; the chain read
	// below is the gating decision.
	if cached, found, err := u.cache.Get(ctx, req.CreatorWallet); err == nil && found && cached < total {
		return nil, fmt.Errorf("wallet %s: cached balance %s below required %s: %w",
			req.CreatorWallet, cached, total, domain.ErrInsufficientFunds)
	}

	balanceBefore, err := u.onChainBalance(ctx, req.CreatorWallet)
	if err != nil {
		return nil, err
	}
	// A stale cache could pass the first check with a zero wallet, so the
	// zero case is rejected explicitly.
	if balanceBefore == 0 || balanceBefore < total {
		return nil, fmt.Errorf("wallet %s: on-chain balance %s below required %s: %w",
			req.CreatorWallet, balanceBefore, total, domain.ErrInsufficientFunds)
	}

	signer, err := u.signers.SignerFor(ctx, req.CreatorWallet)
	if err != nil {
		return nil, fmt.Errorf("signer for %s: %w", req.CreatorWallet, err)
	}

	// Approval must confirm and be re-verified before the spend is submitted.
	if _, err := u.chain.Approve(ctx, signer, total.BigInt()); err != nil {
		return nil, fmt.Errorf("approve escrow for %s: %w", total, err)
	}
	allowance, err := u.chain.Allowance(ctx, req.CreatorWallet)
	if err != nil {
		return nil, err
	}
	if allowance.Cmp(total.BigInt()) < 0 {
		// The approval tx reported success but the allowance did not land;
		// trusting the call's return value alone is not enough.
		return nil, fmt.Errorf("wallet %s: allowance %s below required %s after approval: %w",
			req.CreatorWallet, allowance, total, domain.ErrTransferUnverified)
	}

	created, err := u.chain.CreateJob(ctx, signer, req.PostRef, req.Action,
		req.Price.BigInt(), int64(req.MaxActions))
	if err != nil {
		// A known hash without confirmation means funds may be escrowed. A
		// revert is different: nothing moved, so a plain failure is correct.
		if created.Receipt.TxHash != "" && !errors.Is(err, domain.ErrChainExecutionFailed) {
			return nil, u.recordUnconfirmed(ctx, req, budget, fee, created.Receipt.TxHash, err)
		}
		return nil, fmt.Errorf("create job on chain: %w", err)
	}

	// The receipt says success, but a receipt does not guarantee the expected
	// economic effect; verify the actual balance delta before recording.
	balanceAfter, err := u.onChainBalance(ctx, req.CreatorWallet)
	if err != nil {
		return nil, fmt.Errorf("re-read balance after escrow (tx %s): %w", created.Receipt.TxHash, err)
	}
	delta := balanceBefore - balanceAfter
	if model.AbsDiff(delta, total) > u.tolerance {
		return nil, fmt.Errorf("tx %s: balance moved %s, expected %s: %w",
			created.Receipt.TxHash, delta, total, domain.ErrTransferUnverified)
	}

	job := &model.Job{
		ID:             uuid.NewString(),
		CreatorID:      req.CreatorID,
		CreatorWallet:  req.CreatorWallet,
		PostRef:        req.PostRef,
		Action:         req.Action,
		PricePerAction: req.Price,
		MaxActions:     req.MaxActions,
		Budget:         budget,
		Fee:            fee,
		ReplyText:      req.ReplyText,
		Status:         model.JobStatusActive,
		CreatedAt:      time.Now(),
		TxHash:         created.Receipt.TxHash,
	}
	degraded := created.OnChainID == nil
	if !degraded {
		if !created.OnChainID.IsInt64() {
			degraded = true
		} else {
			id := created.OnChainID.Int64()
			job.OnChainID = &id
		}
	}
	if degraded {
		u.log.Warn().Str("job_id", job.ID).Str("tx", job.TxHash).
			Msg("creation event decode failed, recording job without on-chain id")
	}

	if err := u.jobs.Save(ctx, nil, job); err != nil {
		// Funds are escrowed but the record failed; surface everything the
		// operator needs to reconcile by hand.
		return nil, fmt.Errorf("job escrowed in tx %s but record failed: %w", job.TxHash, err)
	}

	_ = u.cache.Set(ctx, req.CreatorWallet, balanceAfter)
	metrics.JobCreated(int64(total), degraded)
	u.log.Info().Str("job_id", job.ID).Str("tx", job.TxHash).Str("total", total.StringFull()).
		Bool("degraded", degraded).Msg("job escrowed")

	return &CreateJobResult{Job: job, TxHash: job.TxHash, TotalCost: total, Degraded: degraded}, nil
}

// recordUnconfirmed persists a degraded job for a creation transaction that
// was submitted but never confirmed. If the transaction mines later, funds
// are escrowed; without this record no trace of them would exist off chain.
// The reconciler either fills in the on-chain id once the receipt appears or
// discards the record when the transaction reverted or was dropped.
func (u *jobUC) recordUnconfirmed(ctx context.Context, req CreateJobRequest, budget, fee model.Amount, txHash string, cause error) error {
	job := &model.Job{
		ID:             uuid.NewString(),
		CreatorID:      req.CreatorID,
		CreatorWallet:  req.CreatorWallet,
		PostRef:        req.PostRef,
		Action:         req.Action,
		PricePerAction: req.Price,
		MaxActions:     req.MaxActions,
		Budget:         budget,
		Fee:            fee,
		ReplyText:      req.ReplyText,
		Status:         model.JobStatusActive,
		CreatedAt:      time.Now(),
		TxHash:         txHash,
	}
	if saveErr := u.jobs.Save(ctx, nil, job); saveErr != nil {
		u.log.Error().Err(saveErr).Str("tx", txHash).
			Msg("unconfirmed escrow could not be recorded, operator must reconcile by hand")
		return fmt.Errorf("job submitted in tx %s, unconfirmed and unrecorded (%v): %w", txHash, saveErr, cause)
	}
	metrics.JobUnconfirmed()
	u.log.Warn().Str("job_id", job.ID).Str("tx", txHash).Err(cause).
		Msg("escrow unconfirmed, recorded for reconciliation")
	return fmt.Errorf("job submitted in tx %s awaiting confirmation, recorded as %s: %w", txHash, job.ID, cause)
}

func (u *jobUC) onChainBalance(ctx context.Context, wallet string) (model.Amount, error) {
	raw, err := u.chain.TokenBalance(ctx, wallet)
	if err != nil {
		return 0, err
	}
	amount, err := model.AmountFromBigInt(raw)
	if err != nil {
		return 0, fmt.Errorf("wallet %s: %w", wallet, err)
	}
	return amount, nil
}
