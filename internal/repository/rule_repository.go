package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/pkg/util"
)

// SlaRuleRepository reads SLA threshold rules. Selection among candidates is
// the resolver's job; the repository only narrows to active rules per entity.
type SlaRuleRepository interface {
	ListActiveByEntity(ctx context.Context, entityID string) ([]domain.SlaRule, error)
	GetByID(ctx context.Context, id string) (*domain.SlaRule, error)
}

type slaRuleRepository struct {
	pool *pgxpool.Pool
}

// NewSlaRuleRepository instantiates repository.
func NewSlaRuleRepository(pool *pgxpool.Pool) SlaRuleRepository {
	return &slaRuleRepository{pool: pool}
}

const ruleColumns = `id, entity_id, priority, response_minutes, resolution_minutes,
               escalation_minutes, business_hours_only, is_active, created_at`

func (r *slaRuleRepository) ListActiveByEntity(ctx context.Context, entityID string) ([]domain.SlaRule, error) {
	const query = `
        SELECT ` + ruleColumns + `
        FROM sla_rules
        WHERE entity_id=$1 AND is_active
        ORDER BY created_at DESC, id`
	rows, err := querier(ctx, r.pool).Query(ctx, query, entityID)
	if err != nil {
		if util.IsNotInitialized(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *slaRuleRepository) GetByID(ctx context.Context, id string) (*domain.SlaRule, error) {
	const query = `
        SELECT ` + ruleColumns + `
        FROM sla_rules WHERE id=$1`
	var rule domain.SlaRule
	if err := querier(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&rule.ID,
		&rule.EntityID,
		&rule.Priority,
		&rule.ResponseMinutes,
		&rule.ResolutionMinutes,
		&rule.EscalationMinutes,
		&rule.BusinessHoursOnly,
		&rule.IsActive,
		&rule.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || util.IsNotInitialized(err) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func scanRules(rows pgx.Rows) ([]domain.SlaRule, error) {
	var result []domain.SlaRule
	for rows.Next() {
		var rule domain.SlaRule
		if err := rows.Scan(
			&rule.ID,
			&rule.EntityID,
			&rule.Priority,
			&rule.ResponseMinutes,
			&rule.ResolutionMinutes,
			&rule.EscalationMinutes,
			&rule.BusinessHoursOnly,
			&rule.IsActive,
			&rule.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}
