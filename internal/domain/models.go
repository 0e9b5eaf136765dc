// internal/domain/models.go
package domain

import "time"

// User defines the structure for dashboard account data in the local DB.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// EntityKind classifies a queryable relational object. It is a closed set:
// adapter and handler logic switch over it exhaustively instead of probing
// for optional metadata fields.
type EntityKind string

const (
	KindTable            EntityKind = "table"
	KindView             EntityKind = "view"
	KindMaterializedView EntityKind = "materialized_view"
	KindForeignTable     EntityKind = "foreign_table"
	KindUnknown          EntityKind = "unknown"
)

// DeletionAction is the resolved ON DELETE policy of a foreign-key
// relationship.
type DeletionAction string

const (
	ActionNoAction   DeletionAction = "no_action"
	ActionRestrict   DeletionAction = "restrict"
	ActionCascade    DeletionAction = "cascade"
	ActionSetNull    DeletionAction = "set_null"
	ActionSetDefault DeletionAction = "set_default"
)

// Column describes one column of an entity. Immutable once fetched; a new
// selection replaces the whole catalog.
type Column struct {
	Name       string   `json:"name"`
	DataType   string   `json:"data_type"`             // e.g. "integer", "ARRAY", "USER-DEFINED"
	Format     string   `json:"format"`                // udt name, e.g. "int4", "_order_status"
	TypeSchema string   `json:"type_schema,omitempty"` // schema of the udt, for cast targets
	Nullable   bool     `json:"nullable"`
	EnumValues []string `json:"enum_values,omitempty"`
	Position   int      `json:"position"`
}

// Relationship identifies a single-column foreign-key link between two
// entities. DeletionAction is left unresolved by the metadata resolver; the
// grid adapter fills it in from the constraint listing.
type Relationship struct {
	ID             int64          `json:"id"` // pg_constraint oid
	ConstraintName string         `json:"constraint_name"`
	SourceSchema   string         `json:"source_schema"`
	SourceTable    string         `json:"source_table"`
	SourceColumn   string         `json:"source_column"`
	TargetSchema   string         `json:"target_schema"`
	TargetTable    string         `json:"target_table"`
	TargetColumn   string         `json:"target_column"`
	DeletionAction DeletionAction `json:"deletion_action,omitempty"`
}

// ForeignKeyConstraint is one element of the companion constraint listing
// used to resolve relationship deletion actions.
type ForeignKeyConstraint struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	DeletionAction DeletionAction `json:"deletion_action"`
}

// Entity is the raw metadata of a selected table, view, materialized view
// or foreign table. Replaced wholesale when the selection changes.
type Entity struct {
	Schema        string         `json:"schema"`
	Name          string         `json:"name"`
	Kind          EntityKind     `json:"kind"`
	Columns       []Column       `json:"columns"`
	PrimaryKeys   []string       `json:"primary_keys"`
	Relationships []Relationship `json:"relationships"`
}

// EntityRef is the listing form of an entity (dashboard sidebar).
type EntityRef struct {
	Schema string     `json:"schema"`
	Name   string     `json:"name"`
	Kind   EntityKind `json:"kind"`
}

// Row maps column names to values. When the entity has a primary key the
// row is uniquely addressed by its primary-key column values.
type Row map[string]any

// QueryKey addresses one cached query result: schema + entity + query
// shape (pagination/sort serialized into Shape). Comparable, so it can key
// maps directly.
type QueryKey struct {
	Schema string
	Entity string
	Shape  string
}

// GridColumn is a Column prepared for the grid widget.
type GridColumn struct {
	Name       string   `json:"name"`
	DataType   string   `json:"data_type"`
	Format     string   `json:"format"`
	Nullable   bool     `json:"nullable"`
	EnumValues []string `json:"enum_values,omitempty"`
	PrimaryKey bool     `json:"primary_key"`
	Encrypted  bool     `json:"encrypted"`
	Position   int      `json:"position"`
}

// TableDescriptor is the normalized shape the grid widget consumes. For
// non-table kinds PrimaryKeys and Relationships are always empty so the
// editing path downstream never attempts a keyed update.
type TableDescriptor struct {
	Schema        string         `json:"schema"`
	Name          string         `json:"name"`
	Kind          EntityKind     `json:"kind"`
	Editable      bool           `json:"editable"`
	Columns       []GridColumn   `json:"columns"`
	PrimaryKeys   []string       `json:"primary_keys"`
	Relationships []Relationship `json:"relationships"`
}
