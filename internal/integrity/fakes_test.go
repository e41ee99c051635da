package integrity

import (
	"context"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
)

type fakeSchemaStore struct {
	tables      map[string]bool
	constraints map[string]bool
	orphans     map[string]int64
	installed   []string
	swept       []string
}

func newFakeSchemaStore(tables ...string) *fakeSchemaStore {
	store := &fakeSchemaStore{
		tables:      make(map[string]bool),
		constraints: make(map[string]bool),
		orphans:     make(map[string]int64),
	}
	for _, table := range tables {
		store.tables[table] = true
	}
	return store
}

func (f *fakeSchemaStore) TableExists(_ context.Context, table string) (bool, error) {
	return f.tables[table], nil
}

func (f *fakeSchemaStore) HasConstraint(_ context.Context, _, name string) (bool, error) {
	return f.constraints[name], nil
}

func (f *fakeSchemaStore) AddForeignKey(_ context.Context, rel repository.Relationship) error {
	f.constraints[rel.Name] = true
	f.installed = append(f.installed, rel.Name)
	return nil
}

func (f *fakeSchemaStore) CountOrphans(_ context.Context, rel repository.Relationship) (int64, error) {
	return f.orphans[rel.Name], nil
}

func (f *fakeSchemaStore) DeleteOrphans(_ context.Context, rel repository.Relationship) (int64, error) {
	f.swept = append(f.swept, rel.Name)
	count := f.orphans[rel.Name]
	f.orphans[rel.Name] = 0
	return count, nil
}

func (f *fakeSchemaStore) NullOrphans(_ context.Context, rel repository.Relationship) (int64, error) {
	f.swept = append(f.swept, rel.Name)
	count := f.orphans[rel.Name]
	f.orphans[rel.Name] = 0
	return count, nil
}

type clearedMilestone struct {
	ticketID string
	field    repository.MilestoneField
}

type fakeIntegrityStore struct {
	ratings       []domain.Rating
	emails        []repository.TicketEmail
	metrics       []domain.ResponseMetric
	missingEntity []string

	clearedMilestones []clearedMilestone
	constraintsSet    bool
}

func (f *fakeIntegrityStore) ListInvalidRatings(context.Context) ([]domain.Rating, error) {
	var out []domain.Rating
	for _, rating := range f.ratings {
		if rating.Rating < 1 || rating.Rating > 5 {
			out = append(out, rating)
		}
	}
	return out, nil
}

func (f *fakeIntegrityStore) UpdateRating(_ context.Context, id string, value int) error {
	for i := range f.ratings {
		if f.ratings[i].ID == id {
			f.ratings[i].Rating = value
		}
	}
	return nil
}

func (f *fakeIntegrityStore) ListTicketEmails(context.Context) ([]repository.TicketEmail, error) {
	out := make([]repository.TicketEmail, len(f.emails))
	copy(out, f.emails)
	return out, nil
}

func (f *fakeIntegrityStore) UpdateCustomerEmail(_ context.Context, ticketID, email string) error {
	for i := range f.emails {
		if f.emails[i].TicketID == ticketID {
			f.emails[i].Email = email
		}
	}
	return nil
}

func (f *fakeIntegrityStore) ClearMilestone(_ context.Context, ticketID string, field repository.MilestoneField) error {
	f.clearedMilestones = append(f.clearedMilestones, clearedMilestone{ticketID: ticketID, field: field})
	return nil
}

func (f *fakeIntegrityStore) ListNonPositiveMetrics(context.Context) ([]domain.ResponseMetric, error) {
	var out []domain.ResponseMetric
	for _, metric := range f.metrics {
		if metric.DurationMinutes <= 0 {
			out = append(out, metric)
		}
	}
	return out, nil
}

func (f *fakeIntegrityStore) DeleteMetric(_ context.Context, id string) error {
	kept := f.metrics[:0]
	for _, metric := range f.metrics {
		if metric.ID != id {
			kept = append(kept, metric)
		}
	}
	f.metrics = kept
	return nil
}

func (f *fakeIntegrityStore) ListTicketsMissingEntity(context.Context) ([]string, error) {
	return append([]string(nil), f.missingEntity...), nil
}

func (f *fakeIntegrityStore) InstallCheckConstraints(context.Context) error {
	f.constraintsSet = true
	return nil
}

type fakeTicketRepo struct {
	tickets []domain.Ticket
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	for i := range f.tickets {
		if f.tickets[i].ID == id {
			ticket := f.tickets[i]
			return &ticket, nil
		}
	}
	return nil, nil
}

func (f *fakeTicketRepo) SetFirstResponse(context.Context, string, time.Time) error { return nil }
func (f *fakeTicketRepo) SetResolved(context.Context, string, time.Time) error      { return nil }
func (f *fakeTicketRepo) SetStatus(context.Context, string, domain.TicketStatus) error {
	return nil
}

func (f *fakeTicketRepo) ListActive(context.Context) ([]domain.Ticket, error) { return nil, nil }
func (f *fakeTicketRepo) ListActiveWithoutTracking(context.Context) ([]domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) ListAll(context.Context) ([]domain.Ticket, error) {
	return append([]domain.Ticket(nil), f.tickets...), nil
}

func (f *fakeTicketRepo) ListByEntityBetween(context.Context, string, time.Time, time.Time) ([]domain.Ticket, error) {
	return nil, nil
}
