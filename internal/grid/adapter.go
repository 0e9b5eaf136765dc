// internal/grid/adapter.go
package grid

import (
	"sort"

	"github.com/benmann/supabase/internal/domain"
	"github.com/benmann/supabase/internal/logger"
)

// Adapter turns raw entity metadata into the normalized descriptor the grid
// widget consumes. It performs no I/O: identical inputs always produce the
// same descriptor, which lets the rendering layer key re-renders by
// schema+name.
type Adapter struct {
	log *logger.Logger
}

func NewAdapter(log *logger.Logger) *Adapter {
	return &Adapter{log: log}
}

// BuildDescriptor normalizes an entity for the grid. Views, materialized
// views, foreign tables and unknown kinds are adapted read-only: their
// primary-key and relationship sets are emptied regardless of the source
// metadata, so the editing path downstream can never attempt a keyed
// update. Base tables get every relationship enriched with a deletion
// action from the constraint listing. A protected schema also forces the
// descriptor read-only.
func (a *Adapter) BuildDescriptor(entity *domain.Entity, constraints []domain.ForeignKeyConstraint, encryptedColumns []string, protectedSchema bool) *domain.TableDescriptor {
	desc := &domain.TableDescriptor{
		Schema:  entity.Schema,
		Name:    entity.Name,
		Kind:    entity.Kind,
		Columns: a.buildColumns(entity.Columns, entity.PrimaryKeys, encryptedColumns),
	}

	switch entity.Kind {
	case domain.KindTable:
		desc.Editable = !protectedSchema
		desc.PrimaryKeys = append([]string(nil), entity.PrimaryKeys...)
		desc.Relationships = a.resolveDeletionActions(entity, constraints)
	case domain.KindView, domain.KindMaterializedView, domain.KindForeignTable, domain.KindUnknown:
		desc.Editable = false
		desc.PrimaryKeys = []string{}
		desc.Relationships = []domain.Relationship{}
	}

	return desc
}

func (a *Adapter) buildColumns(columns []domain.Column, primaryKeys, encryptedColumns []string) []domain.GridColumn {
	pkSet := make(map[string]bool, len(primaryKeys))
	for _, key := range primaryKeys {
		pkSet[key] = true
	}
	encSet := make(map[string]bool, len(encryptedColumns))
	for _, col := range encryptedColumns {
		encSet[col] = true
	}

	grid := make([]domain.GridColumn, 0, len(columns))
	for _, col := range columns {
		grid = append(grid, domain.GridColumn{
			Name:       col.Name,
			DataType:   col.DataType,
			Format:     col.Format,
			Nullable:   col.Nullable,
			EnumValues: col.EnumValues,
			PrimaryKey: pkSet[col.Name],
			Encrypted:  encSet[col.Name],
			Position:   col.Position,
		})
	}
	sort.SliceStable(grid, func(i, j int) bool { return grid[i].Position < grid[j].Position })
	return grid
}

// resolveDeletionActions matches each relationship against the constraint
// listing by id. Unmatched relationships fall back to "no action"; the
// fallback is logged so the degradation is observable.
func (a *Adapter) resolveDeletionActions(entity *domain.Entity, constraints []domain.ForeignKeyConstraint) []domain.Relationship {
	actions := make(map[int64]domain.DeletionAction, len(constraints))
	for _, fk := range constraints {
		actions[fk.ID] = fk.DeletionAction
	}

	rels := make([]domain.Relationship, 0, len(entity.Relationships))
	for _, rel := range entity.Relationships {
		if action, ok := actions[rel.ID]; ok {
			rel.DeletionAction = action
		} else {
			a.log.Debugf("Grid: no constraint entry for relationship %s (%d) on %s.%s, defaulting to no action",
				rel.ConstraintName, rel.ID, entity.Schema, entity.Name)
			rel.DeletionAction = domain.ActionNoAction
		}
		rels = append(rels, rel)
	}
	return rels
}
