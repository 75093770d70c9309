//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"social-boost-platform/internal/domain"
	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/domain/ports/adapter"
	"social-boost-platform/internal/usecase"
)

type jobDeps struct {
	jobs    *MockJobRepo
	cache   *MockBalanceCache
	chain   *MockChain
	signers *MockSignerRegistry
}

func newJobDeps() *jobDeps {
	return &jobDeps{
		jobs:    NewMockJobRepo(),
		cache:   NewMockBalanceCache(),
		chain:   &MockChain{},
		signers: &MockSignerRegistry{},
	}
}

func (d *jobDeps) uc() usecase.JobUseCase {
	// 10% fee, 0.01 tolerance on the balance delta check.
	return usecase.NewJobUseCase(d.jobs, d.cache, d.chain, d.signers,
		1000, mustAmount("0.01"), newTestLogger())
}

func likeRequest() usecase.CreateJobRequest {
	return usecase.CreateJobRequest{
		CreatorID:     "creator-1",
		CreatorWallet: "0xCREATOR",
		PostRef:       "post-123",
		Action:        model.ActionLike,
		Price:         mustAmount("0.01"),
		MaxActions:    10,
	}
}

// scriptEscrow wires the chain mock for a clean creation: the balance drops
// by exactly `total` across the escrow call and the allowance lands.
func scriptEscrow(d *jobDeps, before, total model.Amount, onChainID *big.Int) {
	balance := before
	d.chain.TokenBalanceFunc = func(ctx context.Context, wallet string) (*big.Int, error) {
		return balance.BigInt(), nil
	}
	d.chain.AllowanceFunc = func(ctx context.Context, owner string) (*big.Int, error) {
		return total.BigInt(), nil
	}
	d.chain.CreateJobFunc = func(ctx context.Context, signer adapter.TxSigner, postRef string, action model.ActionKind, pricePerAction *big.Int, maxActions int64) (adapter.CreateJobResult, error) {
		balance -= total
		return adapter.CreateJobResult{
			Receipt:   adapter.TxReceipt{TxHash: "0xcreate", Succeeded: true},
			OnChainID: onChainID,
		}, nil
	}
}

func TestJobUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("should escrow budget plus fee and record the job", func(t *testing.T) {
		deps := newJobDeps()
		// 0.01 x 10 = 0.10 budget, 10% fee = 0.01, total 0.11
		scriptEscrow(deps, mustAmount("1.00"), mustAmount("0.11"), big.NewInt(42))

		res, err := deps.uc().Create(ctx, likeRequest())
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if res.TotalCost != mustAmount("0.11") {
			t.Errorf("expected total 0.11, got %s", res.TotalCost.StringFull())
		}
		if res.Job.Budget != mustAmount("0.10") || res.Job.Fee != mustAmount("0.01") {
			t.Errorf("expected budget 0.10 fee 0.01, got %s / %s",
				res.Job.Budget.StringFull(), res.Job.Fee.StringFull())
		}
		if res.Job.OnChainID == nil || *res.Job.OnChainID != 42 {
			t.Errorf("expected on-chain id 42, got %v", res.Job.OnChainID)
		}
		if res.Degraded {
			t.Error("expected a non-degraded creation")
		}
		stored, err := deps.jobs.FindByID(ctx, nil, res.Job.ID)
		if err != nil {
			t.Fatalf("job not persisted: %v", err)
		}
		if stored.Status != model.JobStatusActive {
			t.Errorf("expected active job, got %q", stored.Status)
		}
		// Cache reflects the post-escrow balance.
		if cached, ok, _ := deps.cache.Get(ctx, "0xCREATOR"); !ok || cached != mustAmount("0.89") {
			t.Errorf("expected cached balance 0.89, got %s (hit=%v)", cached.StringFull(), ok)
		}
	})

	t.Run("validation", func(t *testing.T) {
		deps := newJobDeps()
		uc := deps.uc()
		cases := []struct {
			name   string
			mutate func(*usecase.CreateJobRequest)
		}{
			{"missing wallet", func(r *usecase.CreateJobRequest) { r.CreatorWallet = "" }},
			{"missing post ref", func(r *usecase.CreateJobRequest) { r.PostRef = "" }},
			{"unknown action", func(r *usecase.CreateJobRequest) { r.Action = "follow" }},
			{"zero price", func(r *usecase.CreateJobRequest) { r.Price = 0 }},
			{"zero max actions", func(r *usecase.CreateJobRequest) { r.MaxActions = 0 }},
			{"reply without text", func(r *usecase.CreateJobRequest) { r.Action = model.ActionReply }},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				req := likeRequest()
				tc.mutate(&req)
				if _, err := uc.Create(ctx, req); !errors.Is(err, domain.ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got: %v", err)
				}
			})
		}
	})

	t.Run("should fast-fail on a low cached balance without a chain read", func(t *testing.T) {
		deps := newJobDeps()
		deps.cache.Set(ctx, "0xCREATOR", mustAmount("0.05"))
		chainReads := 0
		deps.chain.TokenBalanceFunc = func(ctx context.Context, wallet string) (*big.Int, error) {
			chainReads++
			return mustAmount("1.00").BigInt(), nil
		}

		_, err := deps.uc().Create(ctx, likeRequest())
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got: %v", err)
		}
		if chainReads != 0 {
			t.Errorf("cached rejection must not read the chain, got %d reads", chainReads)
		}
	})

	t.Run("should reject a zero on-chain balance even with a rich cache", func(t *testing.T) {
		deps := newJobDeps()
		deps.cache.Set(ctx, "0xCREATOR", mustAmount("5.00"))
		deps.chain.TokenBalanceFunc = func(ctx context.Context, wallet string) (*big.Int, error) {
			return big.NewInt(0), nil
		}

		_, err := deps.uc().Create(ctx, likeRequest())
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Fatalf("expected ErrInsufficientFunds, got: %v", err)
		}
	})

	t.Run("should reject when the allowance does not land after approval", func(t *testing.T) {
		deps := newJobDeps()
		deps.chain.TokenBalanceFunc = func(ctx context.Context, wallet string) (*big.Int, error) {
			return mustAmount("1.00").BigInt(), nil
		}
		deps.chain.AllowanceFunc = func(ctx context.Context, owner string) (*big.Int, error) {
			return mustAmount("0.05").BigInt(), nil // short of the 0.11 total
		}

		_, err := deps.uc().Create(ctx, likeRequest())
		if !errors.Is(err, domain.ErrTransferUnverified) {
			t.Fatalf("expected ErrTransferUnverified, got: %v", err)
		}
	})

	t.Run("should reject when the balance delta does not match the escrowed total", func(t *testing.T) {
		deps := newJobDeps()
		deps.chain.TokenBalanceFunc = func(ctx context.Context, wallet string) (*big.Int, error) {
			return mustAmount("1.00").BigInt(), nil // never moves
		}
		deps.chain.AllowanceFunc = func(ctx context.Context, owner string) (*big.Int, error) {
			return mustAmount("0.11").BigInt(), nil
		}

		_, err := deps.uc().Create(ctx, likeRequest())
		if !errors.Is(err, domain.ErrTransferUnverified) {
			t.Fatalf("expected ErrTransferUnverified, got: %v", err)
		}
		if jobs, _ := deps.jobs.ListUnrecovered(ctx, nil, 10); len(jobs) != 0 {
			t.Error("no job may be recorded on an unverified transfer")
		}
	})

	t.Run("should record a degraded job when the creation event cannot be decoded", func(t *testing.T) {
		deps := newJobDeps()
		scriptEscrow(deps, mustAmount("1.00"), mustAmount("0.11"), nil)

		res, err := deps.uc().Create(ctx, likeRequest())
		if err != nil {
			t.Fatalf("degraded creation must still succeed, got: %v", err)
		}
		if !res.Degraded {
			t.Error("expected degraded result")
		}
		if res.Job.OnChainID != nil {
			t.Errorf("expected nil on-chain id, got %v", *res.Job.OnChainID)
		}
		pending, _ := deps.jobs.ListUnrecovered(ctx, nil, 10)
		if len(pending) != 1 {
			t.Fatalf("degraded job must be visible to the reconciler, got %d", len(pending))
		}
	})

	t.Run("should record a pending job when the creation is submitted but unconfirmed", func(t *testing.T) {
		deps := newJobDeps()
		scriptEscrow(deps, mustAmount("1.00"), mustAmount("0.11"), nil)
		deps.chain.CreateJobFunc = func(ctx context.Context, signer adapter.TxSigner, postRef string, action model.ActionKind, pricePerAction *big.Int, maxActions int64) (adapter.CreateJobResult, error) {
			// Submitted and on the wire, but the receipt wait gave out.
			return adapter.CreateJobResult{Receipt: adapter.TxReceipt{TxHash: "0xpending"}},
				fmt.Errorf("receipt wait for tx 0xpending: %w", domain.ErrChainUnavailable)
		}

		_, err := deps.uc().Create(ctx, likeRequest())
		if !errors.Is(err, domain.ErrChainUnavailable) {
			t.Fatalf("expected ErrChainUnavailable, got: %v", err)
		}
		pending, _ := deps.jobs.ListUnrecovered(ctx, nil, 10)
		if len(pending) != 1 {
			t.Fatalf("unconfirmed escrow must leave a record for the reconciler, got %d", len(pending))
		}
		if pending[0].TxHash != "0xpending" {
			t.Errorf("expected recorded tx 0xpending, got %q", pending[0].TxHash)
		}
		if pending[0].OnChainID != nil {
			t.Errorf("expected nil on-chain id, got %v", *pending[0].OnChainID)
		}
		if pending[0].Budget != mustAmount("0.10") || pending[0].Fee != mustAmount("0.01") {
			t.Errorf("expected budget 0.10 fee 0.01, got %s / %s",
				pending[0].Budget.StringFull(), pending[0].Fee.StringFull())
		}
	})

	t.Run("should not record anything when the creation reverts", func(t *testing.T) {
		deps := newJobDeps()
		scriptEscrow(deps, mustAmount("1.00"), mustAmount("0.11"), nil)
		deps.chain.CreateJobFunc = func(ctx context.Context, signer adapter.TxSigner, postRef string, action model.ActionKind, pricePerAction *big.Int, maxActions int64) (adapter.CreateJobResult, error) {
			// A reverted creation never moved funds.
			return adapter.CreateJobResult{Receipt: adapter.TxReceipt{TxHash: "0xrevert"}},
				fmt.Errorf("%w: tx 0xrevert", domain.ErrChainExecutionFailed)
		}

		_, err := deps.uc().Create(ctx, likeRequest())
		if !errors.Is(err, domain.ErrChainExecutionFailed) {
			t.Fatalf("expected ErrChainExecutionFailed, got: %v", err)
		}
		if pending, _ := deps.jobs.ListUnrecovered(ctx, nil, 10); len(pending) != 0 {
			t.Fatalf("a reverted creation must not leave a record, got %d", len(pending))
		}
	})

	t.Run("should surface a missing signer", func(t *testing.T) {
		deps := newJobDeps()
		deps.chain.TokenBalanceFunc = func(ctx context.Context, wallet string) (*big.Int, error) {
			return mustAmount("1.00").BigInt(), nil
		}
		deps.signers.Err = domain.ErrNotFound

		_, err := deps.uc().Create(ctx, likeRequest())
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got: %v", err)
		}
	})
}
