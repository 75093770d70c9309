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

var _ repository.PerformerRepository = (*performerRepo)(nil)

type performerRepo struct{ pool *pgxpool.Pool }

func NewPerformerRepo(pool *pgxpool.Pool) *performerRepo {
	return &performerRepo{pool: pool}
}

func (r *performerRepo) Save(ctx context.Context, qx any, p *model.Performer) error {
	const q = `
INSERT INTO performers (id, wallet, social_handle, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET wallet=$2, social_handle=$3;`

	_, err := execSQL(ctx, r.pool, qx, q, p.ID, p.Wallet, p.SocialHandle, p.CreatedAt)
	return err
}

func (r *performerRepo) FindByID(ctx context.Context, qx any, id string) (*model.Performer, error) {
	row, err := queryRowSQL(ctx, r.pool, qx,
		`SELECT id, wallet, social_handle, created_at FROM performers WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	var p model.Performer
	if err := row.Scan(&p.ID, &p.Wallet, &p.SocialHandle, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
