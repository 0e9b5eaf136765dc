// internal/core/validation_test.go
package core

import (
	"net/url"
	"strings"
	"testing"
)

func TestIsValidIdentifier(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    bool
		comment string
	}{
		{"valid simple", "my_table", true, ""},
		{"valid with numbers", "table_123", true, ""},
		{"valid uppercase", "MY_TABLE", true, ""},
		{"valid underscore start", "_deleted_users", true, ""},
		{"valid underscore end", "table_", true, ""},
		{"valid short", "a", true, ""},
		{"valid long (63 chars)", strings.Repeat("a", 63), true, ""},
		{"invalid empty", "", false, "empty string"},
		{"invalid space", "my table", false, "contains space"},
		{"invalid hyphen", "my-table", false, "contains hyphen"},
		{"invalid quote", `users"; --`, false, "contains quote"},
		{"invalid dot", "public.users", false, "schema and name arrive as separate params"},
		{"invalid too long", strings.Repeat("a", 64), false, "exceeds 63 chars"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsValidIdentifier(tc.input)
			if got != tc.want {
				t.Errorf("IsValidIdentifier(%q) = %v; want %v. %s", tc.input, got, tc.want, tc.comment)
			}
		})
	}
}

func TestParseListQueryOptions(t *testing.T) {
	testCases := []struct {
		name    string
		query   string
		wantErr bool
		check   func(t *testing.T, opts *ListQueryOptions)
	}{
		{"defaults", "", false, func(t *testing.T, opts *ListQueryOptions) {
			if opts.Limit != DefaultLimit || opts.Offset != 0 || opts.SortOrder != "asc" {
				t.Errorf("unexpected defaults: %+v", opts)
			}
		}},
		{"explicit values", "limit=50&offset=100&sort=created_at&order=DESC", false, func(t *testing.T, opts *ListQueryOptions) {
			if opts.Limit != 50 || opts.Offset != 100 || opts.SortBy != "created_at" || opts.SortOrder != "desc" {
				t.Errorf("unexpected options: %+v", opts)
			}
		}},
		{"limit too large", "limit=100000", true, nil},
		{"limit zero", "limit=0", true, nil},
		{"negative offset", "offset=-1", true, nil},
		{"bad sort column", "sort=created_at%3Bdrop", true, nil},
		{"bad order", "order=sideways", true, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := url.ParseQuery(tc.query)
			if err != nil {
				t.Fatalf("bad test query: %v", err)
			}
			opts, err := ParseListQueryOptions(values)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error, got options %+v", opts)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.check != nil {
				tc.check(t, opts)
			}
		})
	}
}

func TestListQueryOptionsShapeIsStable(t *testing.T) {
	a := &ListQueryOptions{Limit: 100, Offset: 0, SortBy: "id", SortOrder: "asc"}
	b := &ListQueryOptions{Limit: 100, Offset: 0, SortBy: "id", SortOrder: "asc"}
	if a.Shape() != b.Shape() {
		t.Errorf("identical options produced different shapes: %q vs %q", a.Shape(), b.Shape())
	}
	c := &ListQueryOptions{Limit: 100, Offset: 50, SortBy: "id", SortOrder: "asc"}
	if a.Shape() == c.Shape() {
		t.Errorf("different options produced the same shape: %q", a.Shape())
	}
}
