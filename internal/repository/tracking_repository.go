package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/pkg/util"
)

// TrackingRepository encapsulates the denormalized SLA tracking store. Only
// the deadline tracker and the consistency synchronizer write through it.
type TrackingRepository interface {
	// GetByTicket returns nil, nil when no tracking row exists yet.
	GetByTicket(ctx context.Context, ticketID string) (*domain.SlaTracking, error)
	// Upsert inserts or replaces the row keyed by ticket id.
	Upsert(ctx context.Context, tracking *domain.SlaTracking) error
	List(ctx context.Context) ([]domain.SlaTracking, error)
}

type trackingRepository struct {
	pool *pgxpool.Pool
}

// NewTrackingRepository instantiates repository.
func NewTrackingRepository(pool *pgxpool.Pool) TrackingRepository {
	return &trackingRepository{pool: pool}
}

const trackingColumns = `id, ticket_id, rule_id, response_due_at, resolution_due_at, escalation_due_at,
               first_response_at, resolved_at, response_sla_met, resolution_sla_met,
               escalation_triggered, response_breach_minutes, resolution_breach_minutes,
               created_at, updated_at`

func (r *trackingRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.SlaTracking, error) {
	const query = `
        SELECT ` + trackingColumns + `
        FROM sla_tracking WHERE ticket_id=$1`
	var tracking domain.SlaTracking
	if err := querier(ctx, r.pool).QueryRow(ctx, query, ticketID).Scan(
		&tracking.ID,
		&tracking.TicketID,
		&tracking.RuleID,
		&tracking.ResponseDueAt,
		&tracking.ResolutionDueAt,
		&tracking.EscalationDueAt,
		&tracking.FirstResponseAt,
		&tracking.ResolvedAt,
		&tracking.ResponseSlaMet,
		&tracking.ResolutionSlaMet,
		&tracking.EscalationTriggered,
		&tracking.ResponseBreachMinutes,
		&tracking.ResolutionBreachMinutes,
		&tracking.CreatedAt,
		&tracking.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || util.IsNotInitialized(err) {
			return nil, nil
		}
		return nil, err
	}
	return &tracking, nil
}

func (r *trackingRepository) Upsert(ctx context.Context, tracking *domain.SlaTracking) error {
	if tracking.ID == "" {
		tracking.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO sla_tracking (id, ticket_id, rule_id, response_due_at, resolution_due_at,
            escalation_due_at, first_response_at, resolved_at, response_sla_met,
            resolution_sla_met, escalation_triggered, response_breach_minutes,
            resolution_breach_minutes, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW(),NOW())
        ON CONFLICT (ticket_id) DO UPDATE SET
            rule_id=EXCLUDED.rule_id,
            response_due_at=EXCLUDED.response_due_at,
            resolution_due_at=EXCLUDED.resolution_due_at,
            escalation_due_at=EXCLUDED.escalation_due_at,
            first_response_at=EXCLUDED.first_response_at,
            resolved_at=EXCLUDED.resolved_at,
            response_sla_met=EXCLUDED.response_sla_met,
            resolution_sla_met=EXCLUDED.resolution_sla_met,
            escalation_triggered=EXCLUDED.escalation_triggered,
            response_breach_minutes=EXCLUDED.response_breach_minutes,
            resolution_breach_minutes=EXCLUDED.resolution_breach_minutes,
            updated_at=NOW()`
	_, err := querier(ctx, r.pool).Exec(ctx, query,
		tracking.ID,
		tracking.TicketID,
		tracking.RuleID,
		tracking.ResponseDueAt,
		tracking.ResolutionDueAt,
		tracking.EscalationDueAt,
		tracking.FirstResponseAt,
		tracking.ResolvedAt,
		tracking.ResponseSlaMet,
		tracking.ResolutionSlaMet,
		tracking.EscalationTriggered,
		tracking.ResponseBreachMinutes,
		tracking.ResolutionBreachMinutes,
	)
	if util.IsNotInitialized(err) {
		return nil
	}
	return err
}

func (r *trackingRepository) List(ctx context.Context) ([]domain.SlaTracking, error) {
	const query = `
        SELECT ` + trackingColumns + `
        FROM sla_tracking
        ORDER BY created_at`
	rows, err := querier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		if util.IsNotInitialized(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var result []domain.SlaTracking
	for rows.Next() {
		var tracking domain.SlaTracking
		if err := rows.Scan(
			&tracking.ID,
			&tracking.TicketID,
			&tracking.RuleID,
			&tracking.ResponseDueAt,
			&tracking.ResolutionDueAt,
			&tracking.EscalationDueAt,
			&tracking.FirstResponseAt,
			&tracking.ResolvedAt,
			&tracking.ResponseSlaMet,
			&tracking.ResolutionSlaMet,
			&tracking.EscalationTriggered,
			&tracking.ResponseBreachMinutes,
			&tracking.ResolutionBreachMinutes,
			&tracking.CreatedAt,
			&tracking.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, tracking)
	}
	return result, rows.Err()
}
