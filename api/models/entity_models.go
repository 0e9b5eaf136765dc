// api/models/entity_models.go
package models

import "github.com/benmann/supabase/internal/domain"

// --- Entity/Grid Request and Response Structs ---

// ListEntitiesResponse wraps the entity listing of a schema.
type ListEntitiesResponse struct {
	Schema   string             `json:"schema"`
	Entities []domain.EntityRef `json:"entities"`
}

// EntityResponse carries the adapted grid descriptor for a selection.
type EntityResponse struct {
	Descriptor *domain.TableDescriptor `json:"descriptor"`
}

// RowsResponse carries one page of rows for a selection.
type RowsResponse struct {
	Schema string       `json:"schema"`
	Entity string       `json:"entity"`
	Rows   []domain.Row `json:"rows"`
	Count  int          `json:"count"`
}

// UpdateRowRequest carries a single-row edit: the row as it was rendered
// (the primary-key values are read from it) plus only the changed fields.
type UpdateRowRequest struct {
	Row     domain.Row `json:"row" binding:"required"`
	Changes domain.Row `json:"changes" binding:"required"`
}

// UpdateRowResponse acknowledges an applied edit.
type UpdateRowResponse struct {
	Message string `json:"message"`
}

// ToggleFlagResponse reports the new state of a toggled feature flag.
type ToggleFlagResponse struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}
