package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"social-boost-platform/internal/domain"
	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct{ pool *pgxpool.Pool }

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
}

func (r *jobRepo) Save(ctx context.Context, qx any, j *model.Job) error {
	const q = `
INSERT INTO jobs (
  id, creator_id, creator_wallet, post_ref, action, price_per_action, max_actions,
  completed_actions, budget, fee, reply_text, status, created_at, tx_hash, on_chain_id
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
) ON CONFLICT (id) DO UPDATE SET
  completed_actions=$8, status=$12, on_chain_id=$15;`

	_, err := execSQL(ctx, r.pool, qx, q,
		j.ID, j.CreatorID, j.CreatorWallet, j.PostRef, string(j.Action), int64(j.PricePerAction),
		j.MaxActions, j.CompletedActions, int64(j.Budget), int64(j.Fee), j.ReplyText,
		string(j.Status), j.CreatedAt, j.TxHash, j.OnChainID)
	return err
}

const jobColumns = `id, creator_id, creator_wallet, post_ref, action, price_per_action, max_actions,
  completed_actions, budget, fee, reply_text, status, created_at, tx_hash, on_chain_id`

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var action, status string
	var price, budget, fee int64
	err := row.Scan(&j.ID, &j.CreatorID, &j.CreatorWallet, &j.PostRef, &action, &price,
		&j.MaxActions, &j.CompletedActions, &budget, &fee, &j.ReplyText, &status,
		&j.CreatedAt, &j.TxHash, &j.OnChainID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	j.Action = model.ActionKind(action)
	j.Status = model.JobStatus(status)
	j.PricePerAction = model.Amount(price)
	j.Budget = model.Amount(budget)
	j.Fee = model.Amount(fee)
	return &j, nil
}

func (r *jobRepo) FindByID(ctx context.Context, qx any, id string) (*model.Job, error) {
	row, err := queryRowSQL(ctx, r.pool, qx, `SELECT `+jobColumns+` FROM jobs WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

// ConsumeSlot takes one action slot atomically. The WHERE guard means a job
// that is already exhausted (or concurrently drained) yields no row, which
// surfaces as ErrJobExhausted rather than over-committing the budget.
func (r *jobRepo) ConsumeSlot(ctx context.Context, qx any, id string) (*model.Job, error) {
	const q = `
UPDATE jobs SET
  completed_actions = completed_actions + 1,
  status = CASE WHEN completed_actions + 1 >= max_actions THEN 'exhausted' ELSE status END
WHERE id=$1 AND status='active' AND completed_actions < max_actions
RETURNING ` + jobColumns

	row, err := queryRowSQL(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	j, err := scanJob(row)
	if errors.Is(err, domain.ErrNotFound) {
		// Distinguish missing from exhausted for the caller's error message.
		if _, ferr := r.FindByID(ctx, qx, id); ferr == nil {
			return nil, domain.ErrJobExhausted
		}
		return nil, domain.ErrNotFound
	}
	return j, err
}

func (r *jobRepo) ListUnrecovered(ctx context.Context, qx any, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := querySQL(ctx, r.pool, qx,
		`SELECT `+jobColumns+` FROM jobs WHERE on_chain_id IS NULL ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *jobRepo) Discard(ctx context.Context, qx any, id string) error {
	// Confirmed jobs and anything that already paid a slot are untouchable.
	cmd, err := execSQL(ctx, r.pool, qx,
		`DELETE FROM jobs WHERE id=$1 AND on_chain_id IS NULL AND completed_actions = 0`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *jobRepo) SetOnChainID(ctx context.Context, qx any, id string, onChainID int64) error {
	cmd, err := execSQL(ctx, r.pool, qx,
		`UPDATE jobs SET on_chain_id=$2 WHERE id=$1 AND on_chain_id IS NULL`, id, onChainID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
