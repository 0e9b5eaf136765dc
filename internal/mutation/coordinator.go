// internal/mutation/coordinator.go
package mutation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benmann/supabase/internal/domain"
	"github.com/benmann/supabase/internal/gateway"
	"github.com/benmann/supabase/internal/logger"
)

// ErrPrimaryKeyNotFound signals a row-update attempt with no identifiable
// primary key. No remote call is made; the error surfaces as a user-visible
// notification.
var ErrPrimaryKeyNotFound = errors.New("primary key not found")

// RemoteStore is the slice of the gateway the coordinator needs.
type RemoteStore interface {
	Update(ctx context.Context, entity *domain.Entity, identifiers, changes domain.Row, enumArrayColumns []string) error
	Invalidate(key domain.QueryKey)
}

// Coordinator applies row updates optimistically to the shared result
// cache before the remote write completes, and reconciles on failure. It
// is the only component allowed to mutate cached rows outside of a fresh
// fetch.
type Coordinator struct {
	remote RemoteStore
	cache  *gateway.ResultCache
	log    *logger.Logger
}

func NewCoordinator(remote RemoteStore, cache *gateway.ResultCache, log *logger.Logger) *Coordinator {
	return &Coordinator{remote: remote, cache: cache, log: log}
}

// UpdateRow updates one row of an entity.
//
// The identifier set is read from the primary-key columns of previousRow.
// The change is merged into every cached result whose rows match the full
// identifier set before the remote write is issued; on remote failure each
// touched entry is restored to its own pre-merge snapshot and marked for
// refetch. On success the optimistic state stands, no refetch needed.
func (c *Coordinator) UpdateRow(ctx context.Context, entity *domain.Entity, previousRow, changes domain.Row) error {
	if len(changes) == 0 {
		return nil
	}

	identifiers, err := identifierSet(entity, previousRow)
	if err != nil {
		return err
	}

	enumArrayColumns := enumArrayColumnsIn(entity, changes)

	snapshots := c.cache.MergeMatching(entity.Schema, entity.Name, identifiers, changes)

	if err := c.remote.Update(ctx, entity, identifiers, changes, enumArrayColumns); err != nil {
		c.log.Warnf("Mutation: update of %s.%s failed, rolling back %d cache entries: %v",
			entity.Schema, entity.Name, len(snapshots), err)
		c.cache.Restore(snapshots)
		for _, snap := range snapshots {
			c.remote.Invalidate(snap.Key)
		}
		return err
	}

	return nil
}

// identifierSet reads the prior value of every primary-key column from the
// row being edited. Editing rows without a primary key is disallowed, as is
// editing a row that does not carry all of its key values.
func identifierSet(entity *domain.Entity, previousRow domain.Row) (domain.Row, error) {
	if len(entity.PrimaryKeys) == 0 {
		return nil, fmt.Errorf("%w: %s.%s has no primary key", ErrPrimaryKeyNotFound, entity.Schema, entity.Name)
	}

	identifiers := make(domain.Row, len(entity.PrimaryKeys))
	for _, key := range entity.PrimaryKeys {
		val, ok := previousRow[key]
		if !ok {
			return nil, fmt.Errorf("%w: row is missing key column %q", ErrPrimaryKeyNotFound, key)
		}
		identifiers[key] = val
	}
	return identifiers, nil
}

// enumArrayColumnsIn lists the changed columns that are enum-valued arrays.
// These need special serialization on the remote side; the list is passed
// through to the gateway unchanged.
func enumArrayColumnsIn(entity *domain.Entity, changes domain.Row) []string {
	var columns []string
	for _, col := range entity.Columns {
		if _, changed := changes[col.Name]; !changed {
			continue
		}
		if strings.EqualFold(col.DataType, "array") && len(col.EnumValues) > 0 {
			columns = append(columns, col.Name)
		}
	}
	return columns
}
