package integrity

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/repository"
)

// relationships is the declared ownership matrix. Dependents of a deleted
// ticket go with it; audit-style references to users and rules survive as
// nulls. The matrix is the single source of truth for both FK installation
// and orphan sweeping.
var relationships = []repository.Relationship{
	{Name: "fk_tickets_entity", ChildTable: "tickets", ChildColumn: "entity_id", ParentTable: "entities", ParentColumn: "id", OnDelete: repository.DeleteCascade},
	{Name: "fk_tickets_assigned_to", ChildTable: "tickets", ChildColumn: "assigned_to", ParentTable: "users", ParentColumn: "id", OnDelete: repository.DeleteSetNull},
	{Name: "fk_tickets_created_by", ChildTable: "tickets", ChildColumn: "created_by", ParentTable: "users", ParentColumn: "id", OnDelete: repository.DeleteSetNull},
	{Name: "fk_replies_ticket", ChildTable: "ticket_replies", ChildColumn: "ticket_id", ParentTable: "tickets", ParentColumn: "id", OnDelete: repository.DeleteCascade},
	{Name: "fk_replies_user", ChildTable: "ticket_replies", ChildColumn: "user_id", ParentTable: "users", ParentColumn: "id", OnDelete: repository.DeleteSetNull},
	{Name: "fk_attachments_ticket", ChildTable: "attachments", ChildColumn: "ticket_id", ParentTable: "tickets", ParentColumn: "id", OnDelete: repository.DeleteCascade},
	{Name: "fk_attachments_reply", ChildTable: "attachments", ChildColumn: "reply_id", ParentTable: "ticket_replies", ParentColumn: "id", OnDelete: repository.DeleteCascade},
	{Name: "fk_attachments_uploaded_by", ChildTable: "attachments", ChildColumn: "uploaded_by", ParentTable: "users", ParentColumn: "id", OnDelete: repository.DeleteSetNull},
	{Name: "fk_ratings_ticket", ChildTable: "ticket_ratings", ChildColumn: "ticket_id", ParentTable: "tickets", ParentColumn: "id", OnDelete: repository.DeleteCascade},
	{Name: "fk_tracking_ticket", ChildTable: "sla_tracking", ChildColumn: "ticket_id", ParentTable: "tickets", ParentColumn: "id", OnDelete: repository.DeleteCascade},
	{Name: "fk_tracking_rule", ChildTable: "sla_tracking", ChildColumn: "rule_id", ParentTable: "sla_rules", ParentColumn: "id", OnDelete: repository.DeleteSetNull},
	{Name: "fk_metrics_ticket", ChildTable: "response_metrics", ChildColumn: "ticket_id", ParentTable: "tickets", ParentColumn: "id", OnDelete: repository.DeleteCascade},
	{Name: "fk_rules_entity", ChildTable: "sla_rules", ChildColumn: "entity_id", ParentTable: "entities", ParentColumn: "id", OnDelete: repository.DeleteCascade},
	{Name: "fk_hours_entity", ChildTable: "business_hours", ChildColumn: "entity_id", ParentTable: "entities", ParentColumn: "id", OnDelete: repository.DeleteCascade},
	{Name: "fk_entities_parent", ChildTable: "entities", ChildColumn: "parent_id", ParentTable: "entities", ParentColumn: "id", OnDelete: repository.DeleteSetNull},
}

// Relationships returns a copy of the declared matrix.
func Relationships() []repository.Relationship {
	out := make([]repository.Relationship, len(relationships))
	copy(out, relationships)
	return out
}

// ticketDependents narrows the matrix to rows hanging off a deleted ticket or
// reply. These are the only orphans the enforcer may clean mechanically;
// tickets pointing at a missing entity are reported, never removed.
func ticketDependents() []repository.Relationship {
	var deps []repository.Relationship
	for _, rel := range relationships {
		if rel.ParentTable == "tickets" || rel.ParentTable == "ticket_replies" {
			deps = append(deps, rel)
		}
	}
	return deps
}

// SweepReport is the outcome of one relationship's orphan sweep.
type SweepReport struct {
	Relationship string
	Rule         repository.DeleteRule
	RowsAffected int64
}

// Manager installs and polices the declared relationships.
type Manager struct {
	store  repository.SchemaStore
	logger *zap.Logger
}

// NewManager constructs a Manager.
func NewManager(store repository.SchemaStore, logger *zap.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// InstallRelationships adds each declared foreign key that is not already
// present. Keys are installed NOT VALID, so pre-existing orphans do not block
// installation; SweepOrphans deals with those. Idempotent and
// order-independent.
func (m *Manager) InstallRelationships(ctx context.Context) error {
	for _, rel := range relationships {
		childOK, err := m.store.TableExists(ctx, rel.ChildTable)
		if err != nil {
			return err
		}
		parentOK, err := m.store.TableExists(ctx, rel.ParentTable)
		if err != nil {
			return err
		}
		if !childOK || !parentOK {
			m.logger.Debug("skipping foreign key, table not yet initialized",
				zap.String("constraint", rel.Name))
			continue
		}

		exists, err := m.store.HasConstraint(ctx, rel.ChildTable, rel.Name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := m.store.AddForeignKey(ctx, rel); err != nil {
			return err
		}
		m.logger.Info("installed foreign key",
			zap.String("constraint", rel.Name),
			zap.String("table", rel.ChildTable),
			zap.String("on_delete", string(rel.OnDelete)),
		)
	}
	return nil
}

// SweepOrphans applies each relationship's delete rule to rows whose parent
// is already gone: cascade children are deleted, set-null references are
// cleared. A second sweep finds nothing.
func (m *Manager) SweepOrphans(ctx context.Context) ([]SweepReport, error) {
	return m.sweep(ctx, relationships)
}

// SweepTicketDependents sweeps only rows orphaned by a deleted ticket or
// reply. This is the auto-repair surface; the entity and user relationships
// are reachable only through the full SweepOrphans.
func (m *Manager) SweepTicketDependents(ctx context.Context) ([]SweepReport, error) {
	return m.sweep(ctx, ticketDependents())
}

func (m *Manager) sweep(ctx context.Context, rels []repository.Relationship) ([]SweepReport, error) {
	reports := make([]SweepReport, 0, len(rels))
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		var (
			affected int64
			err      error
		)
		switch rel.OnDelete {
		case repository.DeleteCascade:
			affected, err = m.store.DeleteOrphans(ctx, rel)
		case repository.DeleteSetNull:
			affected, err = m.store.NullOrphans(ctx, rel)
		}
		if err != nil {
			return reports, err
		}
		if affected > 0 {
			m.logger.Info("swept orphaned rows",
				zap.String("constraint", rel.Name),
				zap.Int64("rows_affected", affected),
			)
		}
		reports = append(reports, SweepReport{Relationship: rel.Name, Rule: rel.OnDelete, RowsAffected: affected})
	}
	return reports, nil
}

// CountOrphans totals dangling references per relationship without mutating
// anything.
func (m *Manager) CountOrphans(ctx context.Context) (map[string]int64, error) {
	return m.count(ctx, relationships)
}

// CountTicketDependents counts only orphans the enforcer is allowed to
// repair. Backs the orphaned_rows check and its dry run.
func (m *Manager) CountTicketDependents(ctx context.Context) (map[string]int64, error) {
	return m.count(ctx, ticketDependents())
}

func (m *Manager) count(ctx context.Context, rels []repository.Relationship) (map[string]int64, error) {
	counts := make(map[string]int64, len(rels))
	for _, rel := range rels {
		count, err := m.store.CountOrphans(ctx, rel)
		if err != nil {
			return nil, err
		}
		counts[rel.Name] = count
	}
	return counts, nil
}
