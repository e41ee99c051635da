package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/pkg/util"
)

// EntityRepository reads tenant/department records.
type EntityRepository interface {
	// GetByID returns nil, nil when the entity does not exist.
	GetByID(ctx context.Context, id string) (*domain.Entity, error)
}

type entityRepository struct {
	pool *pgxpool.Pool
}

// NewEntityRepository instantiates repository.
func NewEntityRepository(pool *pgxpool.Pool) EntityRepository {
	return &entityRepository{pool: pool}
}

func (r *entityRepository) GetByID(ctx context.Context, id string) (*domain.Entity, error) {
	const query = `
        SELECT id, name, parent_id, is_active, created_at
        FROM entities WHERE id=$1`
	var entity domain.Entity
	if err := querier(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&entity.ID,
		&entity.Name,
		&entity.ParentID,
		&entity.IsActive,
		&entity.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || util.IsNotInitialized(err) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}
