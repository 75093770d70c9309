package adapter

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"social-boost-platform/internal/domain/model"
)

// TxReceipt is the minimal confirmation record the engine needs: every
// state-changing call is followed by a receipt wait, and a reverted receipt
// is surfaced as ErrChainExecutionFailed, never treated as success.
type TxReceipt struct {
	TxHash      string
	Succeeded   bool
	BlockNumber uint64
	GasUsed     uint64
}

// TxSigner signs prepared transactions for one wallet. Key custody lives
// outside this service; the engine only ever sees the signing interface.
type TxSigner interface {
	Address() string
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// SignerRegistry resolves the signer for a wallet address. Provided by the
// surrounding application (wallet custody is out of scope here).
type SignerRegistry interface {
	SignerFor(ctx context.Context, wallet string) (TxSigner, error)
}

// CreateJobResult carries the creation receipt plus the contract-side job id
// extracted from the JobCreated event. OnChainID is nil when the event could
// not be decoded: funds have already moved, so the caller records a degraded
// job instead of failing. When submission succeeded but the receipt wait did
// not, Receipt.TxHash is still set alongside the returned error; the caller
// records the pending transaction for the reconciler instead of dropping it.
type CreateJobResult struct {
	Receipt   TxReceipt
	OnChainID *big.Int
}

// WithdrawResult carries the payout receipt and the transferred amount parsed
// from the event log. AmountFromEvent is false when event parsing failed and
// the caller should fall back to its off-chain figure.
type WithdrawResult struct {
	Receipt         TxReceipt
	Amount          *big.Int
	AmountFromEvent bool
}

// EscrowChain wraps the token and escrow contracts behind multi-endpoint
// failover. All amounts are token minimum units (micro-units).
type EscrowChain interface {
	// Read-only token/contract state.
	TokenBalance(ctx context.Context, wallet string) (*big.Int, error)
	NativeBalance(ctx context.Context, wallet string) (*big.Int, error)
	Allowance(ctx context.Context, owner string) (*big.Int, error)
	UserEarnings(ctx context.Context, wallet string) (*big.Int, error)
	JobCompleted(ctx context.Context, onChainJobID *big.Int, wallet string) (bool, error)

	// State-changing calls. Each waits for its receipt before returning.
	Approve(ctx context.Context, signer TxSigner, amount *big.Int) (TxReceipt, error)
	CreateJob(ctx context.Context, signer TxSigner, postRef string, action model.ActionKind, pricePerAction *big.Int, maxActions int64) (CreateJobResult, error)
	CompleteJob(ctx context.Context, signer TxSigner, onChainJobID *big.Int, performer string) (TxReceipt, error)
	WithdrawEarnings(ctx context.Context, signer TxSigner) (WithdrawResult, error)

	// JobIDFromTx re-fetches a creation receipt by hash and re-attempts the
	// JobCreated event decode. Used by the reconciler for degraded jobs.
	JobIDFromTx(ctx context.Context, txHash string) (*big.Int, error)
}
