// internal/core/validation.go
package core

import (
	"regexp"
)

// Regular expression for valid schema/table/column names (alphanumeric + underscore)
var nameValidationRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// IsValidIdentifier checks if a string is a valid identifier (e.g. schema,
// table or column name). Applies basic format and length checks; Postgres
// truncates identifiers at 63 bytes.
func IsValidIdentifier(name string) bool {
	return nameValidationRegex.MatchString(name) && len(name) > 0 && len(name) <= 63
}