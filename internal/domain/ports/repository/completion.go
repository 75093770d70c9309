package repository

import (
	"context"

	"social-boost-platform/internal/domain/model"
)

// -----------------------------
// Completion ledger
// -----------------------------

// CompletionRepository is the authoritative off-chain record of rewarded
// actions. At-most-once per (job, performer) is enforced by the storage
// layer's uniqueness constraint, not by check-then-insert: Save returns
// ErrDuplicateCompletion when the row already exists.
type CompletionRepository interface {
	Save(ctx context.Context, qx any, c *model.Completion) error
	Find(ctx context.Context, qx any, jobID, performerID string) (*model.Completion, error)
	ListByPerformer(ctx context.Context, qx any, performerID string) ([]*model.Completion, error)
	// EarnedBalance is the sum of reward amounts over the performer's
	// completions, recomputed on read.
	EarnedBalance(ctx context.Context, qx any, performerID string) (model.Amount, error)
	// Clear deletes all of a performer's completions and returns the count.
	// Used only by settlement after a confirmed payout.
	Clear(ctx context.Context, qx any, performerID string) (int, error)
}

// -----------------------------
// Performers
// -----------------------------

type PerformerRepository interface {
	Save(ctx context.Context, qx any, p *model.Performer) error
	FindByID(ctx context.Context, qx any, id string) (*model.Performer, error)
}
