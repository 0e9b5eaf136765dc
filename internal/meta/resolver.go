// internal/meta/resolver.go
package meta

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benmann/supabase/internal/domain"
	"github.com/benmann/supabase/internal/logger"
)

// ErrEntityNotFound signals that the selected identifier resolves to no
// known entity. Callers render a not-found state and must not proceed to
// fetch rows or columns.
var ErrEntityNotFound = errors.New("entity not found")

// Resolver answers entity metadata questions against the administered
// database's catalogs.
type Resolver struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

func NewResolver(pool *pgxpool.Pool, log *logger.Logger) *Resolver {
	return &Resolver{pool: pool, log: log}
}

// Resolve classifies an entity and loads its columns, primary keys and
// relationships. Relationship deletion actions are left unresolved; the
// grid adapter fills them in from ListForeignKeys.
func (r *Resolver) Resolve(ctx context.Context, schema, name string) (*domain.Entity, error) {
	var relkind string
	err := r.pool.QueryRow(ctx, `
		SELECT c.relkind::text
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2`, schema, name).Scan(&relkind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s.%s", ErrEntityNotFound, schema, name)
		}
		return nil, fmt.Errorf("failed to classify entity %s.%s: %w", schema, name, err)
	}

	entity := &domain.Entity{
		Schema: schema,
		Name:   name,
		Kind:   KindFromRelkind(relkind),
	}

	if entity.Columns, err = r.loadColumns(ctx, schema, name); err != nil {
		return nil, err
	}
	if entity.PrimaryKeys, err = r.loadPrimaryKeys(ctx, schema, name); err != nil {
		return nil, err
	}
	if entity.Relationships, err = r.loadRelationships(ctx, schema, name); err != nil {
		return nil, err
	}

	return entity, nil
}

// List returns the entities of a schema for the sidebar.
func (r *Resolver) List(ctx context.Context, schema string) ([]domain.EntityRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.relname, c.relkind::text
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind IN ('r', 'p', 'v', 'm', 'f')
		ORDER BY c.relname`, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities in schema %s: %w", schema, err)
	}
	defer rows.Close()

	var refs []domain.EntityRef
	for rows.Next() {
		var name, relkind string
		if err := rows.Scan(&name, &relkind); err != nil {
			return nil, fmt.Errorf("failed to scan entity listing: %w", err)
		}
		refs = append(refs, domain.EntityRef{Schema: schema, Name: name, Kind: KindFromRelkind(relkind)})
	}
	return refs, rows.Err()
}

// ListForeignKeys returns the foreign-key constraint listing of a schema:
// constraint id plus its resolved deletion action.
func (r *Resolver) ListForeignKeys(ctx context.Context, schema string) ([]domain.ForeignKeyConstraint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT con.oid::bigint, con.conname, con.confdeltype::text
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE con.contype = 'f' AND n.nspname = $1
		ORDER BY con.oid`, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list foreign keys in schema %s: %w", schema, err)
	}
	defer rows.Close()

	var constraints []domain.ForeignKeyConstraint
	for rows.Next() {
		var fk domain.ForeignKeyConstraint
		var code string
		if err := rows.Scan(&fk.ID, &fk.Name, &code); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key listing: %w", err)
		}
		fk.DeletionAction = deletionActionFromCode(code)
		constraints = append(constraints, fk)
	}
	return constraints, rows.Err()
}

// ListEncryptedColumns returns the encrypted column names of an entity.
// When the encryption extension is not installed the list is empty, never
// an error: the dashboard must work against vanilla Postgres.
func (r *Resolver) ListEncryptedColumns(ctx context.Context, schema, name string) ([]string, error) {
	var installed bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_namespace WHERE nspname = 'pgsodium')`).Scan(&installed)
	if err != nil {
		return nil, fmt.Errorf("failed to probe encryption extension: %w", err)
	}
	if !installed {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT mr.attname
		FROM pgsodium.masking_rule mr
		JOIN pg_catalog.pg_class c ON c.oid = mr.attrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2
		ORDER BY mr.attname`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list encrypted columns for %s.%s: %w", schema, name, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("failed to scan encrypted column listing: %w", err)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (r *Resolver) loadColumns(ctx context.Context, schema, name string) ([]domain.Column, error) {
	enums, err := r.loadEnumValues(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT column_name, data_type, udt_name, udt_schema, is_nullable = 'YES', ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load columns for %s.%s: %w", schema, name, err)
	}
	defer rows.Close()

	var columns []domain.Column
	for rows.Next() {
		var col domain.Column
		if err := rows.Scan(&col.Name, &col.DataType, &col.Format, &col.TypeSchema, &col.Nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		// Array udt names carry a leading underscore ("_order_status").
		col.EnumValues = enums[strings.TrimPrefix(col.Format, "_")]
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (r *Resolver) loadEnumValues(ctx context.Context) (map[string][]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.typname, array_agg(e.enumlabel ORDER BY e.enumsortorder)
		FROM pg_catalog.pg_type t
		JOIN pg_catalog.pg_enum e ON e.enumtypid = t.oid
		GROUP BY t.typname`)
	if err != nil {
		return nil, fmt.Errorf("failed to load enum values: %w", err)
	}
	defer rows.Close()

	enums := make(map[string][]string)
	for rows.Next() {
		var typname string
		var labels []string
		if err := rows.Scan(&typname, &labels); err != nil {
			return nil, fmt.Errorf("failed to scan enum values: %w", err)
		}
		enums[typname] = labels
	}
	return enums, rows.Err()
}

func (r *Resolver) loadPrimaryKeys(ctx context.Context, schema, name string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.attname
		FROM pg_catalog.pg_index i
		JOIN pg_catalog.pg_class c ON c.oid = i.indrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_catalog.pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(i.indkey)
		WHERE n.nspname = $1 AND c.relname = $2 AND i.indisprimary
		ORDER BY a.attnum`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load primary keys for %s.%s: %w", schema, name, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan primary key metadata: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// loadRelationships loads the entity's outgoing foreign-key links. Only the
// first column pair of a composite foreign key is surfaced; the grid links
// cells one column at a time.
func (r *Resolver) loadRelationships(ctx context.Context, schema, name string) ([]domain.Relationship, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT con.oid::bigint, con.conname,
		       src_ns.nspname, src.relname, src_col.attname,
		       tgt_ns.nspname, tgt.relname, tgt_col.attname
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class src ON src.oid = con.conrelid
		JOIN pg_catalog.pg_namespace src_ns ON src_ns.oid = src.relnamespace
		JOIN pg_catalog.pg_class tgt ON tgt.oid = con.confrelid
		JOIN pg_catalog.pg_namespace tgt_ns ON tgt_ns.oid = tgt.relnamespace
		JOIN pg_catalog.pg_attribute src_col ON src_col.attrelid = src.oid AND src_col.attnum = con.conkey[1]
		JOIN pg_catalog.pg_attribute tgt_col ON tgt_col.attrelid = tgt.oid AND tgt_col.attnum = con.confkey[1]
		WHERE con.contype = 'f' AND src_ns.nspname = $1 AND src.relname = $2
		ORDER BY con.conname`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load relationships for %s.%s: %w", schema, name, err)
	}
	defer rows.Close()

	var rels []domain.Relationship
	for rows.Next() {
		var rel domain.Relationship
		if err := rows.Scan(&rel.ID, &rel.ConstraintName,
			&rel.SourceSchema, &rel.SourceTable, &rel.SourceColumn,
			&rel.TargetSchema, &rel.TargetTable, &rel.TargetColumn); err != nil {
			return nil, fmt.Errorf("failed to scan relationship metadata: %w", err)
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}
