package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/pkg/util"
)

// TicketRepository encapsulates the engine's reads and milestone writes
// against the ticket store. The ticket store stays authoritative for
// milestone timestamps; the engine never invents them.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	SetFirstResponse(ctx context.Context, id string, when time.Time) error
	SetResolved(ctx context.Context, id string, when time.Time) error
	SetStatus(ctx context.Context, id string, status domain.TicketStatus) error
	ListActive(ctx context.Context) ([]domain.Ticket, error)
	ListActiveWithoutTracking(ctx context.Context) ([]domain.Ticket, error)
	ListAll(ctx context.Context) ([]domain.Ticket, error)
	ListByEntityBetween(ctx context.Context, entityID string, from, to time.Time) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, entity_id, ticket_number, subject, customer_email, priority, status,
               assigned_to, created_by, created_at, first_response_at, resolved_at, closed_at`

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := querier(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.EntityID,
		&ticket.Number,
		&ticket.Subject,
		&ticket.CustomerEmail,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AssignedTo,
		&ticket.CreatedBy,
		&ticket.CreatedAt,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || util.IsNotInitialized(err) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) SetFirstResponse(ctx context.Context, id string, when time.Time) error {
	const query = `UPDATE tickets SET first_response_at=$1, updated_at=NOW() WHERE id=$2`
	return r.exec(ctx, query, when, id)
}

func (r *ticketRepository) SetResolved(ctx context.Context, id string, when time.Time) error {
	const query = `UPDATE tickets SET resolved_at=$1, updated_at=NOW() WHERE id=$2`
	return r.exec(ctx, query, when, id)
}

func (r *ticketRepository) SetStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	const query = `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2`
	return r.exec(ctx, query, status, id)
}

func (r *ticketRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := querier(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		if util.IsNotInitialized(err) {
			return nil
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListActive(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets
        WHERE status NOT IN ('resolved','closed','cancelled')
        ORDER BY created_at`
	return r.list(ctx, query)
}

func (r *ticketRepository) ListActiveWithoutTracking(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT t.id, t.entity_id, t.ticket_number, t.subject, t.customer_email, t.priority, t.status,
               t.assigned_to, t.created_by, t.created_at, t.first_response_at, t.resolved_at, t.closed_at
        FROM tickets t
        LEFT JOIN sla_tracking s ON s.ticket_id = t.id
        WHERE s.id IS NULL AND t.status NOT IN ('resolved','closed','cancelled')
        ORDER BY t.created_at`
	return r.list(ctx, query)
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets
        ORDER BY created_at`
	return r.list(ctx, query)
}

func (r *ticketRepository) ListByEntityBetween(ctx context.Context, entityID string, from, to time.Time) ([]domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets
        WHERE entity_id=$1 AND created_at BETWEEN $2 AND $3
        ORDER BY created_at`
	return r.list(ctx, query, entityID, from, to)
}

func (r *ticketRepository) list(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		if util.IsNotInitialized(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.EntityID,
			&ticket.Number,
			&ticket.Subject,
			&ticket.CustomerEmail,
			&ticket.Priority,
			&ticket.Status,
			&ticket.AssignedTo,
			&ticket.CreatedBy,
			&ticket.CreatedAt,
			&ticket.FirstResponseAt,
			&ticket.ResolvedAt,
			&ticket.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
