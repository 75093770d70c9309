package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"social-boost-platform/internal/domain"
	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/domain/ports/repository"
)

var _ repository.CompletionRepository = (*completionRepo)(nil)

type completionRepo struct{ pool *pgxpool.Pool }

func NewCompletionRepo(pool *pgxpool.Pool) *completionRepo {
	return &completionRepo{pool: pool}
}

// uniqueViolation is the Postgres error code raised by the
// completions_job_performer_key constraint.
const uniqueViolation = "23505"

// Save inserts a completion row. The (job_id, performer_id) primary key is
// the at-most-once guard: concurrent attempts race at the database, and the
// loser gets ErrDuplicateCompletion instead of a second reward.
func (r *completionRepo) Save(ctx context.Context, qx any, c *model.Completion) error {
	const q = `
INSERT INTO completions (job_id, performer_id, reward, completed_at)
VALUES ($1,$2,$3,$4);`

	_, err := execSQL(ctx, r.pool, qx, q, c.JobID, c.PerformerID, int64(c.Reward), c.CompletedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateCompletion
		}
		return err
	}
	return nil
}

func (r *completionRepo) Find(ctx context.Context, qx any, jobID, performerID string) (*model.Completion, error) {
	row, err := queryRowSQL(ctx, r.pool, qx,
		`SELECT job_id, performer_id, reward, completed_at FROM completions WHERE job_id=$1 AND performer_id=$2`,
		jobID, performerID)
	if err != nil {
		return nil, err
	}
	return scanCompletion(row)
}

func scanCompletion(row pgx.Row) (*model.Completion, error) {
	var c model.Completion
	var reward int64
	if err := row.Scan(&c.JobID, &c.PerformerID, &reward, &c.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c.Reward = model.Amount(reward)
	return &c, nil
}

func (r *completionRepo) ListByPerformer(ctx context.Context, qx any, performerID string) ([]*model.Completion, error) {
	rows, err := querySQL(ctx, r.pool, qx,
		`SELECT job_id, performer_id, reward, completed_at FROM completions WHERE performer_id=$1 ORDER BY completed_at`,
		performerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Completion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *completionRepo) EarnedBalance(ctx context.Context, qx any, performerID string) (model.Amount, error) {
	row, err := queryRowSQL(ctx, r.pool, qx,
		`SELECT COALESCE(SUM(reward),0) FROM completions WHERE performer_id=$1`, performerID)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, err
	}
	return model.Amount(sum), nil
}

func (r *completionRepo) Clear(ctx context.Context, qx any, performerID string) (int, error) {
	cmd, err := execSQL(ctx, r.pool, qx, `DELETE FROM completions WHERE performer_id=$1`, performerID)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}
