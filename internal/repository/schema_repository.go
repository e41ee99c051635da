package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/pkg/util"
)

// DeleteRule is the declared action when a parent row disappears.
type DeleteRule string

const (
	DeleteCascade DeleteRule = "CASCADE"
	DeleteSetNull DeleteRule = "SET NULL"
)

// Relationship declares one ownership edge between a child table and its
// parent. The identifiers come from the static matrix in the integrity
// package, never from user input.
type Relationship struct {
	Name         string
	ChildTable   string
	ChildColumn  string
	ParentTable  string
	ParentColumn string
	OnDelete     DeleteRule
}

// SchemaStore performs relationship installation and orphan sweeps against
// the physical store.
type SchemaStore interface {
	TableExists(ctx context.Context, table string) (bool, error)
	HasConstraint(ctx context.Context, table, name string) (bool, error)
	AddForeignKey(ctx context.Context, rel Relationship) error
	CountOrphans(ctx context.Context, rel Relationship) (int64, error)
	// DeleteOrphans removes child rows whose parent is gone (cascade rule).
	DeleteOrphans(ctx context.Context, rel Relationship) (int64, error)
	// NullOrphans clears dangling references on set-null relationships.
	NullOrphans(ctx context.Context, rel Relationship) (int64, error)
}

type schemaStore struct {
	pool *pgxpool.Pool
}

// NewSchemaStore instantiates the pgx-backed schema store.
func NewSchemaStore(pool *pgxpool.Pool) SchemaStore {
	return &schemaStore{pool: pool}
}

func (s *schemaStore) TableExists(ctx context.Context, table string) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM information_schema.tables
        WHERE table_schema = current_schema() AND table_name = $1)`
	var exists bool
	if err := querier(ctx, s.pool).QueryRow(ctx, query, table).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *schemaStore) HasConstraint(ctx context.Context, table, name string) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM information_schema.table_constraints
        WHERE table_schema = current_schema() AND table_name = $1 AND constraint_name = $2)`
	var exists bool
	if err := querier(ctx, s.pool).QueryRow(ctx, query, table, name).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *schemaStore) AddForeignKey(ctx context.Context, rel Relationship) error {
	// NOT VALID keeps installation from failing on pre-existing violations;
	// those are the constraint enforcer's job to find and repair.
	query := fmt.Sprintf(
		`ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE %s NOT VALID`,
		rel.ChildTable, rel.Name, rel.ChildColumn, rel.ParentTable, rel.ParentColumn, rel.OnDelete,
	)
	_, err := querier(ctx, s.pool).Exec(ctx, query)
	if util.IsNotInitialized(err) {
		return nil
	}
	return err
}

func (s *schemaStore) CountOrphans(ctx context.Context, rel Relationship) (int64, error) {
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM %s c
         LEFT JOIN %s p ON c.%s = p.%s
         WHERE c.%s IS NOT NULL AND p.%s IS NULL`,
		rel.ChildTable, rel.ParentTable, rel.ChildColumn, rel.ParentColumn,
		rel.ChildColumn, rel.ParentColumn,
	)
	var count int64
	if err := querier(ctx, s.pool).QueryRow(ctx, query).Scan(&count); err != nil {
		if util.IsNotInitialized(err) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func (s *schemaStore) DeleteOrphans(ctx context.Context, rel Relationship) (int64, error) {
	query := fmt.Sprintf(
		`DELETE FROM %s c
         WHERE c.%s IS NOT NULL
           AND NOT EXISTS (SELECT 1 FROM %s p WHERE p.%s = c.%s)`,
		rel.ChildTable, rel.ChildColumn, rel.ParentTable, rel.ParentColumn, rel.ChildColumn,
	)
	cmd, err := querier(ctx, s.pool).Exec(ctx, query)
	if err != nil {
		if util.IsNotInitialized(err) {
			return 0, nil
		}
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (s *schemaStore) NullOrphans(ctx context.Context, rel Relationship) (int64, error) {
	query := fmt.Sprintf(
		`UPDATE %s c SET %s = NULL
         WHERE c.%s IS NOT NULL
           AND NOT EXISTS (SELECT 1 FROM %s p WHERE p.%s = c.%s)`,
		rel.ChildTable, rel.ChildColumn, rel.ChildColumn,
		rel.ParentTable, rel.ParentColumn, rel.ChildColumn,
	)
	cmd, err := querier(ctx, s.pool).Exec(ctx, query)
	if err != nil {
		if util.IsNotInitialized(err) {
			return 0, nil
		}
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
