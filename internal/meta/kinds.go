// internal/meta/kinds.go
package meta

import (
	"strings"

	"github.com/benmann/supabase/internal/domain"
)

// protectedSchemas is the fixed denylist of schemas excluded from editing:
// Postgres system schemas plus the schemas the platform itself manages.
var protectedSchemas = map[string]bool{
	"pg_catalog":         true,
	"information_schema": true,
	"pg_toast":           true,
	"auth":               true,
	"storage":            true,
	"realtime":           true,
	"extensions":         true,
	"graphql":            true,
	"graphql_public":     true,
	"pgsodium":           true,
	"pgsodium_masks":     true,
	"vault":              true,
	"pgbouncer":          true,
	"net":                true,
}

// IsProtectedSchema reports whether a schema is excluded from editing.
// Pure lookup; temporary schemas match by prefix.
func IsProtectedSchema(schema string) bool {
	if protectedSchemas[schema] {
		return true
	}
	return strings.HasPrefix(schema, "pg_temp_") || strings.HasPrefix(schema, "pg_toast_temp_")
}

// KindFromRelkind maps a pg_class.relkind code to an EntityKind. Partitioned
// tables edit like ordinary tables.
func KindFromRelkind(relkind string) domain.EntityKind {
	switch relkind {
	case "r", "p":
		return domain.KindTable
	case "v":
		return domain.KindView
	case "m":
		return domain.KindMaterializedView
	case "f":
		return domain.KindForeignTable
	default:
		return domain.KindUnknown
	}
}

// deletionActionFromCode maps pg_constraint.confdeltype to a DeletionAction.
func deletionActionFromCode(code string) domain.DeletionAction {
	switch code {
	case "r":
		return domain.ActionRestrict
	case "c":
		return domain.ActionCascade
	case "n":
		return domain.ActionSetNull
	case "d":
		return domain.ActionSetDefault
	default: // "a" and anything unexpected
		return domain.ActionNoAction
	}
}
