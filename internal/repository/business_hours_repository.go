package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/pkg/util"
)

// BusinessHoursRepository reads weekly open-hours entries. A nil entityID
// selects the global calendar.
type BusinessHoursRepository interface {
	ListActive(ctx context.Context, entityID *string) ([]domain.BusinessHoursEntry, error)
}

type businessHoursRepository struct {
	pool *pgxpool.Pool
}

// NewBusinessHoursRepository instantiates repository.
func NewBusinessHoursRepository(pool *pgxpool.Pool) BusinessHoursRepository {
	return &businessHoursRepository{pool: pool}
}

func (r *businessHoursRepository) ListActive(ctx context.Context, entityID *string) ([]domain.BusinessHoursEntry, error) {
	const byEntity = `
        SELECT id, entity_id, day_of_week, start_minute, end_minute, is_active
        FROM business_hours
        WHERE entity_id=$1 AND is_active
        ORDER BY day_of_week, start_minute`
	const global = `
        SELECT id, entity_id, day_of_week, start_minute, end_minute, is_active
        FROM business_hours
        WHERE entity_id IS NULL AND is_active
        ORDER BY day_of_week, start_minute`

	query := global
	args := []any{}
	if entityID != nil {
		query = byEntity
		args = append(args, *entityID)
	}

	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		if util.IsNotInitialized(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var result []domain.BusinessHoursEntry
	for rows.Next() {
		var entry domain.BusinessHoursEntry
		var weekday int
		if err := rows.Scan(
			&entry.ID,
			&entry.EntityID,
			&weekday,
			&entry.StartMinute,
			&entry.EndMinute,
			&entry.IsActive,
		); err != nil {
			return nil, err
		}
		entry.Weekday = time.Weekday(weekday)
		result = append(result, entry)
	}
	return result, rows.Err()
}
