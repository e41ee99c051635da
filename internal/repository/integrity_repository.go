package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/pkg/util"
)

// MilestoneField names a nullable milestone column that the repair pass may
// clear. The closed set keeps generated SQL away from arbitrary input.
type MilestoneField string

const (
	FieldFirstResponseAt MilestoneField = "first_response_at"
	FieldResolvedAt      MilestoneField = "resolved_at"
	FieldClosedAt        MilestoneField = "closed_at"
)

// TicketEmail pairs a ticket with its stored customer address.
type TicketEmail struct {
	TicketID string
	Number   string
	Email    string
}

// IntegrityStore exposes the row-level reads and conservative writes the
// constraint enforcer needs. Every method tolerates an uninitialized store.
type IntegrityStore interface {
	ListInvalidRatings(ctx context.Context) ([]domain.Rating, error)
	UpdateRating(ctx context.Context, id string, value int) error
	ListTicketEmails(ctx context.Context) ([]TicketEmail, error)
	UpdateCustomerEmail(ctx context.Context, ticketID, email string) error
	ClearMilestone(ctx context.Context, ticketID string, field MilestoneField) error
	ListNonPositiveMetrics(ctx context.Context) ([]domain.ResponseMetric, error)
	DeleteMetric(ctx context.Context, id string) error
	ListTicketsMissingEntity(ctx context.Context) ([]string, error)
	InstallCheckConstraints(ctx context.Context) error
}

type integrityStore struct {
	pool *pgxpool.Pool
}

// NewIntegrityStore instantiates the pgx-backed integrity store.
func NewIntegrityStore(pool *pgxpool.Pool) IntegrityStore {
	return &integrityStore{pool: pool}
}

func (s *integrityStore) ListInvalidRatings(ctx context.Context) ([]domain.Rating, error) {
	const query = `
        SELECT id, ticket_id, rating, created_at
        FROM ticket_ratings
        WHERE rating < 1 OR rating > 5
        ORDER BY created_at`
	rows, err := querier(ctx, s.pool).Query(ctx, query)
	if err != nil {
		if util.IsNotInitialized(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var result []domain.Rating
	for rows.Next() {
		var rating domain.Rating
		if err := rows.Scan(&rating.ID, &rating.TicketID, &rating.Rating, &rating.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, rating)
	}
	return result, rows.Err()
}

func (s *integrityStore) UpdateRating(ctx context.Context, id string, value int) error {
	const query = `UPDATE ticket_ratings SET rating=$1 WHERE id=$2`
	_, err := querier(ctx, s.pool).Exec(ctx, query, value, id)
	if util.IsNotInitialized(err) {
		return nil
	}
	return err
}

func (s *integrityStore) ListTicketEmails(ctx context.Context) ([]TicketEmail, error) {
	const query = `
        SELECT id, ticket_number, customer_email
        FROM tickets
        WHERE customer_email IS NOT NULL AND customer_email <> ''
        ORDER BY created_at`
	rows, err := querier(ctx, s.pool).Query(ctx, query)
	if err != nil {
		if util.IsNotInitialized(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var result []TicketEmail
	for rows.Next() {
		var te TicketEmail
		if err := rows.Scan(&te.TicketID, &te.Number, &te.Email); err != nil {
			return nil, err
		}
		result = append(result, te)
	}
	return result, rows.Err()
}

func (s *integrityStore) UpdateCustomerEmail(ctx context.Context, ticketID, email string) error {
	const query = `UPDATE tickets SET customer_email=$1, updated_at=NOW() WHERE id=$2`
	_, err := querier(ctx, s.pool).Exec(ctx, query, email, ticketID)
	if util.IsNotInitialized(err) {
		return nil
	}
	return err
}

func (s *integrityStore) ClearMilestone(ctx context.Context, ticketID string, field MilestoneField) error {
	switch field {
	case FieldFirstResponseAt, FieldResolvedAt, FieldClosedAt:
	default:
		return fmt.Errorf("unknown milestone field %q", field)
	}
	query := fmt.Sprintf(`UPDATE tickets SET %s=NULL, updated_at=NOW() WHERE id=$1`, field)
	_, err := querier(ctx, s.pool).Exec(ctx, query, ticketID)
	if util.IsNotInitialized(err) {
		return nil
	}
	return err
}

func (s *integrityStore) ListNonPositiveMetrics(ctx context.Context) ([]domain.ResponseMetric, error) {
	const query = `
        SELECT id, ticket_id, metric_type, duration_minutes, created_at
        FROM response_metrics
        WHERE duration_minutes <= 0
        ORDER BY created_at`
	rows, err := querier(ctx, s.pool).Query(ctx, query)
	if err != nil {
		if util.IsNotInitialized(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var result []domain.ResponseMetric
	for rows.Next() {
		var metric domain.ResponseMetric
		if err := rows.Scan(&metric.ID, &metric.TicketID, &metric.MetricType, &metric.DurationMinutes, &metric.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, metric)
	}
	return result, rows.Err()
}

func (s *integrityStore) DeleteMetric(ctx context.Context, id string) error {
	const query = `DELETE FROM response_metrics WHERE id=$1`
	_, err := querier(ctx, s.pool).Exec(ctx, query, id)
	if util.IsNotInitialized(err) {
		return nil
	}
	return err
}

func (s *integrityStore) ListTicketsMissingEntity(ctx context.Context) ([]string, error) {
	const query = `
        SELECT t.id
        FROM tickets t
        LEFT JOIN entities e ON t.entity_id = e.id
        WHERE e.id IS NULL
        ORDER BY t.created_at`
	rows, err := querier(ctx, s.pool).Query(ctx, query)
	if err != nil {
		if util.IsNotInitialized(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}

// checkConstraints declares the standing invariants installed at the store
// boundary. Once present, later violating inserts fail loudly instead of
// being silently coerced.
var checkConstraints = []struct {
	table string
	name  string
	check string
}{
	{"ticket_ratings", "chk_rating_range", "rating >= 1 AND rating <= 5"},
	{"tickets", "chk_status_domain", `status IN ('new','open','pending','in_progress','waiting_customer','escalated','resolved','closed','cancelled')`},
	{"tickets", "chk_priority_domain", `priority IN ('low','normal','high','urgent','critical')`},
	{"tickets", "chk_first_response_after_create", "first_response_at IS NULL OR first_response_at >= created_at"},
	{"tickets", "chk_resolved_after_create", "resolved_at IS NULL OR resolved_at >= created_at"},
	{"tickets", "chk_closed_after_resolved", "closed_at IS NULL OR resolved_at IS NULL OR closed_at >= resolved_at"},
	{"tickets", "chk_email_format", `customer_email IS NULL OR customer_email = '' OR customer_email ~ '^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$'`},
	{"sla_tracking", "chk_response_breach_minutes", "response_breach_minutes >= 0"},
	{"sla_tracking", "chk_resolution_breach_minutes", "resolution_breach_minutes >= 0"},
	{"response_metrics", "chk_positive_duration", "duration_minutes > 0"},
}

func (s *integrityStore) InstallCheckConstraints(ctx context.Context) error {
	const existsQuery = `SELECT EXISTS (
        SELECT 1 FROM information_schema.table_constraints
        WHERE table_schema = current_schema() AND table_name = $1 AND constraint_name = $2)`

	for _, c := range checkConstraints {
		var exists bool
		if err := querier(ctx, s.pool).QueryRow(ctx, existsQuery, c.table, c.name).Scan(&exists); err != nil {
			if util.IsNotInitialized(err) {
				continue
			}
			return err
		}
		if exists {
			continue
		}
		// NOT VALID: pre-existing violations are repaired separately, new
		// writes are checked immediately.
		query := fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s) NOT VALID`, c.table, c.name, c.check)
		if _, err := querier(ctx, s.pool).Exec(ctx, query); err != nil {
			if util.IsNotInitialized(err) {
				continue
			}
			return err
		}
	}
	return nil
}
