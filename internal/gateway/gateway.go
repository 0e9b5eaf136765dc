// internal/gateway/gateway.go
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"github.com/benmann/supabase/internal/core"
	"github.com/benmann/supabase/internal/domain"
	"github.com/benmann/supabase/internal/logger"
)

// ErrRemoteFailure wraps any network or server-side error from the
// administered database.
var ErrRemoteFailure = errors.New("remote store failure")

// Gateway issues queries and mutations against the administered database
// and owns the shared result cache. Concurrent fetches for one query key
// are coalesced; a fetch superseded by Cancel or Invalidate never writes a
// stale result over newer state.
type Gateway struct {
	pool  *pgxpool.Pool
	cache *ResultCache
	log   *logger.Logger
	group singleflight.Group

	mu       sync.Mutex
	gens     map[domain.QueryKey]uint64
	inflight map[domain.QueryKey]context.CancelFunc
}

func New(pool *pgxpool.Pool, cache *ResultCache, log *logger.Logger) *Gateway {
	return &Gateway{
		pool:     pool,
		cache:    cache,
		log:      log,
		gens:     make(map[domain.QueryKey]uint64),
		inflight: make(map[domain.QueryKey]context.CancelFunc),
	}
}

// Cache exposes the shared result cache. Mutating it is reserved for the
// mutation coordinator.
func (g *Gateway) Cache() *ResultCache {
	return g.cache
}

// Fetch returns the rows for an entity selection, from cache when present.
// Cache misses are fetched remotely; duplicate concurrent fetches for the
// same key share one query. A fetch failure leaves prior cached state
// untouched.
func (g *Gateway) Fetch(ctx context.Context, entity *domain.Entity, opts *core.ListQueryOptions) ([]domain.Row, domain.QueryKey, error) {
	key := domain.QueryKey{Schema: entity.Schema, Entity: entity.Name, Shape: opts.Shape()}

	if rows, ok := g.cache.Fresh(key); ok {
		return rows, key, nil
	}

	g.mu.Lock()
	startGen := g.gens[key]
	g.mu.Unlock()

	result, err, _ := g.group.Do(flightKey(key), func() (any, error) {
		fetchCtx, cancel := context.WithCancel(context.Background())
		g.mu.Lock()
		g.inflight[key] = cancel
		g.mu.Unlock()
		defer func() {
			cancel()
			g.mu.Lock()
			delete(g.inflight, key)
			g.mu.Unlock()
		}()

		rows, err := g.queryRows(fetchCtx, entity, opts)
		if err != nil {
			return nil, err
		}

		// A Cancel or Invalidate that raced this fetch makes the result
		// stale; it is returned to the caller but never cached.
		g.mu.Lock()
		stale := g.gens[key] != startGen
		g.mu.Unlock()
		if stale {
			g.log.Debugf("Gateway: discarding stale fetch result for %s.%s [%s]", key.Schema, key.Entity, key.Shape)
		} else {
			g.cache.Put(key, rows)
		}
		return rows, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, key, ctx.Err()
		}
		return nil, key, fmt.Errorf("%w: %w", ErrRemoteFailure, err)
	}

	return result.([]domain.Row), key, nil
}

// Cancel aborts any in-flight fetch for a query key and marks its eventual
// result stale.
func (g *Gateway) Cancel(key domain.QueryKey) {
	g.mu.Lock()
	g.gens[key]++
	cancel := g.inflight[key]
	g.mu.Unlock()

	g.group.Forget(flightKey(key))
	if cancel != nil {
		cancel()
	}
}

// Invalidate drops the cached result for a key and supersedes any fetch in
// flight, forcing the next read to refetch.
func (g *Gateway) Invalidate(key domain.QueryKey) {
	g.Cancel(key)
	g.cache.Invalidate(key)
}

// Update issues a keyed UPDATE against the remote store. Enum-valued array
// columns are bound as text arrays and cast to their declared type; the
// list arrives from the mutation coordinator unchanged.
func (g *Gateway) Update(ctx context.Context, entity *domain.Entity, identifiers, changes domain.Row, enumArrayColumns []string) error {
	if len(identifiers) == 0 {
		return fmt.Errorf("%w: refusing unkeyed update", ErrRemoteFailure)
	}

	enumArrays := make(map[string]bool, len(enumArrayColumns))
	for _, col := range enumArrayColumns {
		enumArrays[col] = true
	}

	var (
		assignments []string
		conditions  []string
		args        []any
	)

	for _, col := range sortedColumns(changes) {
		placeholder := fmt.Sprintf("$%d", len(args)+1)
		quoted := pgx.Identifier{col}.Sanitize()
		if enumArrays[col] {
			assignments = append(assignments,
				fmt.Sprintf("%s = %s::text[]::%s", quoted, placeholder, g.arrayTypeFor(entity, col)))
			args = append(args, toStringSlice(changes[col]))
		} else {
			assignments = append(assignments, fmt.Sprintf("%s = %s", quoted, placeholder))
			args = append(args, changes[col])
		}
	}

	for _, col := range sortedColumns(identifiers) {
		placeholder := fmt.Sprintf("$%d", len(args)+1)
		conditions = append(conditions, fmt.Sprintf("%s = %s", pgx.Identifier{col}.Sanitize(), placeholder))
		args = append(args, identifiers[col])
	}

	sqlStatement := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		pgx.Identifier{entity.Schema, entity.Name}.Sanitize(),
		strings.Join(assignments, ", "),
		strings.Join(conditions, " AND "))

	tag, err := g.pool.Exec(ctx, sqlStatement, args...)
	if err != nil {
		g.log.Warnf("Gateway: update failed for %s.%s: %v", entity.Schema, entity.Name, err)
		return fmt.Errorf("%w: %w", ErrRemoteFailure, err)
	}
	if tag.RowsAffected() == 0 {
		g.log.Warnf("Gateway: update matched no rows for %s.%s", entity.Schema, entity.Name)
	}
	return nil
}

func (g *Gateway) queryRows(ctx context.Context, entity *domain.Entity, opts *core.ListQueryOptions) ([]domain.Row, error) {
	columns := make([]string, 0, len(entity.Columns))
	for _, col := range entity.Columns {
		columns = append(columns, pgx.Identifier{col.Name}.Sanitize())
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("entity %s.%s has no columns", entity.Schema, entity.Name)
	}

	sqlStatement := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(columns, ", "),
		pgx.Identifier{entity.Schema, entity.Name}.Sanitize())

	if opts.SortBy != "" {
		direction := "ASC"
		if opts.SortOrder == "desc" {
			direction = "DESC"
		}
		sqlStatement += fmt.Sprintf(" ORDER BY %s %s", pgx.Identifier{opts.SortBy}.Sanitize(), direction)
	}
	sqlStatement += fmt.Sprintf(" LIMIT %d OFFSET %d", opts.Limit, opts.Offset)

	rows, err := g.pool.Query(ctx, sqlStatement)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var result []domain.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(domain.Row, len(fields))
		for i, field := range fields {
			row[string(field.Name)] = values[i]
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// arrayTypeFor resolves the declared array type of a column for the update
// cast, falling back to text[] when the column is unknown. The element type
// is schema-qualified so enum types outside the connection's search_path
// still cast.
func (g *Gateway) arrayTypeFor(entity *domain.Entity, column string) string {
	for _, col := range entity.Columns {
		if col.Name == column {
			elem := strings.TrimPrefix(col.Format, "_")
			if col.TypeSchema != "" {
				return pgx.Identifier{col.TypeSchema, elem}.Sanitize() + "[]"
			}
			return pgx.Identifier{elem}.Sanitize() + "[]"
		}
	}
	return "text[]"
}

func sortedColumns(row domain.Row) []string {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func toStringSlice(val any) []string {
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			out = append(out, fmt.Sprint(elem))
		}
		return out
	case nil:
		return nil
	default:
		return []string{fmt.Sprint(v)}
	}
}

func flightKey(key domain.QueryKey) string {
	return key.Schema + "." + key.Entity + "?" + key.Shape
}
