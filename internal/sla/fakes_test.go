package sla

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
)

type fakeRuleRepo struct {
	rules []domain.SlaRule
}

func (f *fakeRuleRepo) ListActiveByEntity(_ context.Context, entityID string) ([]domain.SlaRule, error) {
	var out []domain.SlaRule
	for _, rule := range f.rules {
		if rule.EntityID == entityID && rule.IsActive {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeRuleRepo) GetByID(_ context.Context, id string) (*domain.SlaRule, error) {
	for i := range f.rules {
		if f.rules[i].ID == id {
			rule := f.rules[i]
			return &rule, nil
		}
	}
	return nil, nil
}

type fakeEntityRepo struct {
	entities map[string]domain.Entity
}

func (f *fakeEntityRepo) GetByID(_ context.Context, id string) (*domain.Entity, error) {
	entity, ok := f.entities[id]
	if !ok {
		return nil, nil
	}
	return &entity, nil
}

type fakeTicketRepo struct {
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo(tickets ...*domain.Ticket) *fakeTicketRepo {
	repo := &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
	for _, ticket := range tickets {
		repo.tickets[ticket.ID] = ticket
	}
	return repo
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, nil
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketRepo) SetFirstResponse(_ context.Context, id string, when time.Time) error {
	if ticket, ok := f.tickets[id]; ok {
		ticket.FirstResponseAt = &when
	}
	return nil
}

func (f *fakeTicketRepo) SetResolved(_ context.Context, id string, when time.Time) error {
	if ticket, ok := f.tickets[id]; ok {
		ticket.ResolvedAt = &when
	}
	return nil
}

func (f *fakeTicketRepo) SetStatus(_ context.Context, id string, status domain.TicketStatus) error {
	if ticket, ok := f.tickets[id]; ok {
		ticket.Status = status
	}
	return nil
}

func (f *fakeTicketRepo) ListActive(_ context.Context) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range f.sorted() {
		if !ticket.Status.IsTerminal() {
			out = append(out, ticket)
		}
	}
	return out, nil
}

func (f *fakeTicketRepo) ListAll(_ context.Context) ([]domain.Ticket, error) {
	return f.sorted(), nil
}

func (f *fakeTicketRepo) ListActiveWithoutTracking(_ context.Context) ([]domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) ListByEntityBetween(_ context.Context, entityID string, from, to time.Time) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range f.sorted() {
		if ticket.EntityID != entityID {
			continue
		}
		if ticket.CreatedAt.Before(from) || ticket.CreatedAt.After(to) {
			continue
		}
		out = append(out, ticket)
	}
	return out, nil
}

func (f *fakeTicketRepo) sorted() []domain.Ticket {
	out := make([]domain.Ticket, 0, len(f.tickets))
	for _, ticket := range f.tickets {
		out = append(out, *ticket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type fakeTrackingRepo struct {
	rows    map[string]*domain.SlaTracking
	upserts int
}

func newFakeTrackingRepo() *fakeTrackingRepo {
	return &fakeTrackingRepo{rows: make(map[string]*domain.SlaTracking)}
}

func (f *fakeTrackingRepo) GetByTicket(_ context.Context, ticketID string) (*domain.SlaTracking, error) {
	row, ok := f.rows[ticketID]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (f *fakeTrackingRepo) Upsert(_ context.Context, tracking *domain.SlaTracking) error {
	if tracking.ID == "" {
		tracking.ID = "trk-" + tracking.TicketID
	}
	copied := *tracking
	f.rows[tracking.TicketID] = &copied
	f.upserts++
	return nil
}

func (f *fakeTrackingRepo) List(_ context.Context) ([]domain.SlaTracking, error) {
	keys := make([]string, 0, len(f.rows))
	for key := range f.rows {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]domain.SlaTracking, 0, len(keys))
	for _, key := range keys {
		out = append(out, *f.rows[key])
	}
	return out, nil
}

type captureDispatcher struct {
	published []events.Event
}

func (c *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	c.published = append(c.published, event)
	return nil
}

func (c *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (c *captureDispatcher) ofType(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, event := range c.published {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}
