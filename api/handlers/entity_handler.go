// api/handlers/entity_handler.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/benmann/supabase/api/models"
	"github.com/benmann/supabase/internal/core"
	"github.com/benmann/supabase/internal/domain"
	"github.com/benmann/supabase/internal/grid"
	"github.com/benmann/supabase/internal/meta"
	"github.com/benmann/supabase/internal/telemetry"
)

// MetadataResolver resolves connected-database metadata for the grid.
type MetadataResolver interface {
	Resolve(ctx context.Context, schema, name string) (*domain.Entity, error)
	List(ctx context.Context, schema string) ([]domain.EntityRef, error)
	ListForeignKeys(ctx context.Context, schema string) ([]domain.ForeignKeyConstraint, error)
	ListEncryptedColumns(ctx context.Context, schema, name string) ([]string, error)
}

// RowFetcher serves row pages, consulting the result cache first.
type RowFetcher interface {
	Fetch(ctx context.Context, entity *domain.Entity, opts *core.ListQueryOptions) ([]domain.Row, domain.QueryKey, error)
}

// RowUpdater applies a single-row edit optimistically.
type RowUpdater interface {
	UpdateRow(ctx context.Context, entity *domain.Entity, previousRow, changes domain.Row) error
}

// EntityHandler serves the schema browsing and grid endpoints.
type EntityHandler struct {
	Resolver  MetadataResolver
	Fetcher   RowFetcher
	Updater   RowUpdater
	Adapter   *grid.Adapter
	Telemetry *telemetry.Collector
}

// NewEntityHandler creates a new EntityHandler.
func NewEntityHandler(resolver MetadataResolver, fetcher RowFetcher, updater RowUpdater, adapter *grid.Adapter, collector *telemetry.Collector) *EntityHandler {
	return &EntityHandler{
		Resolver:  resolver,
		Fetcher:   fetcher,
		Updater:   updater,
		Adapter:   adapter,
		Telemetry: collector,
	}
}

// ListEntities handles GET /api/v1/schemas/:schema/entities
func (h *EntityHandler) ListEntities(c *gin.Context) {
	schema := c.Param("schema")
	if !core.IsValidIdentifier(schema) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid schema name."})
		return
	}

	entities, err := h.Resolver.List(c.Request.Context(), schema)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, models.ListEntitiesResponse{Schema: schema, Entities: entities})
}

// GetEntity handles GET /api/v1/schemas/:schema/entities/:entity
//
// The response descriptor is what the grid renders from: adapted columns,
// editability, and relationships enriched with deletion actions.
func (h *EntityHandler) GetEntity(c *gin.Context) {
	schema, name, ok := h.pathIdentifiers(c)
	if !ok {
		return
	}

	descriptor, _, err := h.describe(c.Request.Context(), schema, name)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, models.EntityResponse{Descriptor: descriptor})
}

// ListRows handles GET /api/v1/schemas/:schema/entities/:entity/rows
//
// Metadata is resolved before the row query so that rendering metadata is
// always at least as new as the rows it labels.
func (h *EntityHandler) ListRows(c *gin.Context) {
	schema, name, ok := h.pathIdentifiers(c)
	if !ok {
		return
	}

	entity, err := h.Resolver.Resolve(c.Request.Context(), schema, name)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	opts, err := core.ParseListQueryOptions(c.Request.URL.Query())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, _, err := h.Fetcher.Fetch(c.Request.Context(), entity, opts)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, models.RowsResponse{
		Schema: schema,
		Entity: name,
		Rows:   rows,
		Count:  len(rows),
	})
}

// UpdateRow handles PATCH /api/v1/schemas/:schema/entities/:entity/rows
func (h *EntityHandler) UpdateRow(c *gin.Context) {
	schema, name, ok := h.pathIdentifiers(c)
	if !ok {
		return
	}

	var req models.UpdateRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	descriptor, entity, err := h.describe(c.Request.Context(), schema, name)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	if !descriptor.Editable {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "This selection is read-only."})
		return
	}

	// The coordinator keys the update off the adapted descriptor, never the
	// raw catalog entity, so read-only selections can never reach the remote.
	effective := *entity
	effective.PrimaryKeys = descriptor.PrimaryKeys

	if err := h.Updater.UpdateRow(c.Request.Context(), &effective, req.Row, req.Changes); err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	h.Telemetry.Send("grid", "row_updated", schema+"."+name)
	c.JSON(http.StatusOK, models.UpdateRowResponse{Message: "Row updated successfully."})
}

// pathIdentifiers validates the :schema and :entity path parameters.
func (h *EntityHandler) pathIdentifiers(c *gin.Context) (string, string, bool) {
	schema := c.Param("schema")
	name := c.Param("entity")
	if !core.IsValidIdentifier(schema) || !core.IsValidIdentifier(name) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid schema or entity name."})
		return "", "", false
	}
	return schema, name, true
}

// describe resolves an entity and adapts it into a grid descriptor.
func (h *EntityHandler) describe(ctx context.Context, schema, name string) (*domain.TableDescriptor, *domain.Entity, error) {
	entity, err := h.Resolver.Resolve(ctx, schema, name)
	if err != nil {
		return nil, nil, err
	}

	var constraints []domain.ForeignKeyConstraint
	if entity.Kind == domain.KindTable {
		constraints, err = h.Resolver.ListForeignKeys(ctx, schema)
		if err != nil {
			return nil, nil, err
		}
	}

	encrypted, err := h.Resolver.ListEncryptedColumns(ctx, schema, name)
	if err != nil {
		return nil, nil, err
	}

	descriptor := h.Adapter.BuildDescriptor(entity, constraints, encrypted, meta.IsProtectedSchema(schema))
	return descriptor, entity, nil
}
