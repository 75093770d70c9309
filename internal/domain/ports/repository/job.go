package repository

import (
	"context"

	"social-boost-platform/internal/domain/model"
)

// -----------------------------
// Jobs
// -----------------------------

type JobRepository interface {
	Save(ctx context.Context, qx any, j *model.Job) error
	FindByID(ctx context.Context, qx any, id string) (*model.Job, error)
	// ConsumeSlot atomically increments completed_actions and flips the job
	// to exhausted when the last slot is taken. Returns ErrJobExhausted when
	// no active slot remains, so callers never over-commit a budget.
	ConsumeSlot(ctx context.Context, qx any, id string) (*model.Job, error)
	// ListUnrecovered returns jobs whose on-chain id is still unknown, either
	// because the JobCreated event decode failed or because the creation
	// transaction was never confirmed.
	ListUnrecovered(ctx context.Context, qx any, limit int) ([]*model.Job, error)
	SetOnChainID(ctx context.Context, qx any, id string, onChainID int64) error
	// Discard removes a record whose creation transaction reverted or was
	// dropped, meaning no funds were ever escrowed. Guarded: only rows still
	// missing an on-chain id and with no consumed slots qualify.
	Discard(ctx context.Context, qx any, id string) error
}
