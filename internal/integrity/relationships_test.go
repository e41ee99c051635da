package integrity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/repository"
)

func allTables() []string {
	seen := map[string]bool{}
	var tables []string
	for _, rel := range Relationships() {
		for _, table := range []string{rel.ChildTable, rel.ParentTable} {
			if !seen[table] {
				seen[table] = true
				tables = append(tables, table)
			}
		}
	}
	return tables
}

func TestInstallRelationshipsIsIdempotent(t *testing.T) {
	store := newFakeSchemaStore(allTables()...)
	manager := NewManager(store, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, manager.InstallRelationships(ctx))
	assert.Len(t, store.installed, len(Relationships()))

	require.NoError(t, manager.InstallRelationships(ctx))
	assert.Len(t, store.installed, len(Relationships()), "existing keys are not re-added")
}

func TestInstallRelationshipsSkipsMissingTables(t *testing.T) {
	store := newFakeSchemaStore("tickets", "entities")
	manager := NewManager(store, zap.NewNop())

	require.NoError(t, manager.InstallRelationships(context.Background()))
	assert.Equal(t, []string{"fk_tickets_entity", "fk_entities_parent"}, store.installed,
		"only relationships whose tables both exist are installed")
}

func TestSweepOrphansRemovesDanglingReply(t *testing.T) {
	store := newFakeSchemaStore(allTables()...)
	store.orphans["fk_replies_ticket"] = 1
	manager := NewManager(store, zap.NewNop())
	ctx := context.Background()

	sweeps, err := manager.SweepOrphans(ctx)
	require.NoError(t, err)

	var total int64
	for _, sweep := range sweeps {
		total += sweep.RowsAffected
		if sweep.Relationship == "fk_replies_ticket" {
			assert.Equal(t, repository.DeleteCascade, sweep.Rule)
			assert.Equal(t, int64(1), sweep.RowsAffected)
		}
	}
	assert.Equal(t, int64(1), total)

	again, err := manager.SweepOrphans(ctx)
	require.NoError(t, err)
	for _, sweep := range again {
		assert.Zero(t, sweep.RowsAffected, sweep.Relationship)
	}
}

func TestSweepOrphansNullsAuditReferences(t *testing.T) {
	store := newFakeSchemaStore(allTables()...)
	store.orphans["fk_tickets_assigned_to"] = 3
	manager := NewManager(store, zap.NewNop())

	sweeps, err := manager.SweepOrphans(context.Background())
	require.NoError(t, err)
	for _, sweep := range sweeps {
		if sweep.Relationship == "fk_tickets_assigned_to" {
			assert.Equal(t, repository.DeleteSetNull, sweep.Rule)
			assert.Equal(t, int64(3), sweep.RowsAffected)
		}
	}
}

func TestCountOrphansDoesNotMutate(t *testing.T) {
	store := newFakeSchemaStore(allTables()...)
	store.orphans["fk_ratings_ticket"] = 2
	manager := NewManager(store, zap.NewNop())

	counts, err := manager.CountOrphans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["fk_ratings_ticket"])
	assert.Equal(t, int64(2), store.orphans["fk_ratings_ticket"])
}
