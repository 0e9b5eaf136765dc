// internal/gateway/values.go
package gateway

import (
	"reflect"

	"github.com/benmann/supabase/internal/domain"
)

func deepCopyRows(rows []domain.Row) []domain.Row {
	out := make([]domain.Row, len(rows))
	for i, row := range rows {
		out[i] = deepCopyRow(row)
	}
	return out
}

func deepCopyRow(row domain.Row) domain.Row {
	out := make(domain.Row, len(row))
	for col, val := range row {
		out[col] = copyValue(val)
	}
	return out
}

// copyValue duplicates the container types row values can carry after JSON
// decoding or a pgx scan. Scalars are immutable and returned as-is.
func copyValue(val any) any {
	switch v := val.(type) {
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = copyValue(elem)
		}
		return out
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []byte:
		out := make([]byte, len(v))
		copy(out, v)
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[k] = copyValue(elem)
		}
		return out
	default:
		return v
	}
}

// identifierEqual compares an identifier value from a request against a
// cached value. Cached rows come from pgx scans (int64, etc.) while request
// bodies decode through encoding/json (float64), so numeric values compare
// by magnitude; everything else requires exact equality.
func identifierEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	if as, aok := asString(a); aok {
		bs, bok := asString(b)
		return bok && as == bs
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}
