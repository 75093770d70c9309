package repository

import (
	"context"

	"social-boost-platform/internal/domain/model"
)

// SessionRepository holds live verification sessions in shared storage so any
// service instance can resolve any session. Implementations must expire
// sessions after the configured window and keep at most one live session per
// (job, performer): saving a new one supersedes the old.
type SessionRepository interface {
	Save(ctx context.Context, s *model.VerificationSession) error
	Find(ctx context.Context, id string) (*model.VerificationSession, error)
	Delete(ctx context.Context, id string) error
}

// BalanceCache is the advisory off-chain cache of wallet token balances. It
// only serves fast-fail checks; the authoritative balance is always re-read
// on chain before any gating decision.
type BalanceCache interface {
	Get(ctx context.Context, wallet string) (model.Amount, bool, error)
	Set(ctx context.Context, wallet string, amount model.Amount) error
	// Add shifts the cached value without a chain read, e.g. crediting a
	// confirmed payout. A miss is a no-op.
	Add(ctx context.Context, wallet string, delta model.Amount) error
	Invalidate(ctx context.Context, wallet string) error
}
