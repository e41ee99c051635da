package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/pkg/util"
)

// ResponseMetricRepository stores derived first-response duration metrics.
type ResponseMetricRepository interface {
	// ListTicketsWithoutMetric returns responded tickets that have no
	// first-response metric row yet.
	ListTicketsWithoutMetric(ctx context.Context) ([]domain.Ticket, error)
	Insert(ctx context.Context, metric domain.ResponseMetric) error
}

type responseMetricRepository struct {
	pool *pgxpool.Pool
}

// NewResponseMetricRepository instantiates repository.
func NewResponseMetricRepository(pool *pgxpool.Pool) ResponseMetricRepository {
	return &responseMetricRepository{pool: pool}
}

func (r *responseMetricRepository) ListTicketsWithoutMetric(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT t.id, t.entity_id, t.ticket_number, t.subject, t.customer_email, t.priority, t.status,
               t.assigned_to, t.created_by, t.created_at, t.first_response_at, t.resolved_at, t.closed_at
        FROM tickets t
        LEFT JOIN response_metrics m ON m.ticket_id = t.id AND m.metric_type = 'first_response'
        WHERE t.first_response_at IS NOT NULL AND m.id IS NULL
        ORDER BY t.created_at`
	rows, err := querier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		if util.IsNotInitialized(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *responseMetricRepository) Insert(ctx context.Context, metric domain.ResponseMetric) error {
	if metric.ID == "" {
		metric.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO response_metrics (id, ticket_id, metric_type, duration_minutes, created_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (ticket_id, metric_type) DO NOTHING`
	_, err := querier(ctx, r.pool).Exec(ctx, query,
		metric.ID,
		metric.TicketID,
		metric.MetricType,
		metric.DurationMinutes,
		metric.CreatedAt,
	)
	if util.IsNotInitialized(err) {
		return nil
	}
	return err
}
