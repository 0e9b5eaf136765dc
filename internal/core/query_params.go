// internal/core/query_params.go
package core

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Default and limit constants for pagination
const (
	DefaultLimit = 100
	MaxLimit     = 1000
	DefaultOrder = "asc"
)

// ListQueryOptions holds parsed query parameters for the rows endpoint.
// Shape() serializes them into the query-shape component of a QueryKey, so
// identical options always address the same cache entry.
type ListQueryOptions struct {
	Limit  int
	Offset int

	SortBy    string
	SortOrder string // "asc" or "desc"
}

// ParseListQueryOptions extracts pagination and sorting options from query
// parameters. Returns the parsed options and any validation error.
func ParseListQueryOptions(queryParams url.Values) (*ListQueryOptions, error) {
	opts := &ListQueryOptions{
		Limit:     DefaultLimit,
		Offset:    0,
		SortBy:    "",
		SortOrder: DefaultOrder,
	}

	if limitStr := queryParams.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, fmt.Errorf("invalid 'limit' parameter: must be an integer")
		}
		if limit < 1 {
			return nil, fmt.Errorf("invalid 'limit' parameter: must be at least 1")
		}
		if limit > MaxLimit {
			return nil, fmt.Errorf("invalid 'limit' parameter: maximum is %d", MaxLimit)
		}
		opts.Limit = limit
	}

	if offsetStr := queryParams.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, fmt.Errorf("invalid 'offset' parameter: must be an integer")
		}
		if offset < 0 {
			return nil, fmt.Errorf("invalid 'offset' parameter: must be non-negative")
		}
		opts.Offset = offset
	}

	if sortBy := queryParams.Get("sort"); sortBy != "" {
		if !IsValidIdentifier(sortBy) {
			return nil, fmt.Errorf("invalid 'sort' parameter: '%s' is not a valid column name", sortBy)
		}
		opts.SortBy = sortBy
	}

	if order := queryParams.Get("order"); order != "" {
		lowerOrder := strings.ToLower(order)
		if lowerOrder != "asc" && lowerOrder != "desc" {
			return nil, fmt.Errorf("invalid 'order' parameter: must be 'asc' or 'desc'")
		}
		opts.SortOrder = lowerOrder
	}

	return opts, nil
}

// Shape serializes the options into a stable string for cache keying.
func (o *ListQueryOptions) Shape() string {
	return fmt.Sprintf("limit=%d&offset=%d&sort=%s&order=%s", o.Limit, o.Offset, o.SortBy, o.SortOrder)
}
