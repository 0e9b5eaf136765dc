// internal/mutation/coordinator_test.go
package mutation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmann/supabase/internal/domain"
	"github.com/benmann/supabase/internal/gateway"
	"github.com/benmann/supabase/internal/logger"
)

// fakeRemote records update calls and fails on demand.
type fakeRemote struct {
	updateErr   error
	updates     int
	identifiers domain.Row
	changes     domain.Row
	enumArrays  []string
	invalidated []domain.QueryKey
}

func (f *fakeRemote) Update(_ context.Context, _ *domain.Entity, identifiers, changes domain.Row, enumArrayColumns []string) error {
	f.updates++
	f.identifiers = identifiers
	f.changes = changes
	f.enumArrays = enumArrayColumns
	return f.updateErr
}

func (f *fakeRemote) Invalidate(key domain.QueryKey) {
	f.invalidated = append(f.invalidated, key)
}

func usersEntity() *domain.Entity {
	return &domain.Entity{
		Schema: "public",
		Name:   "users",
		Kind:   domain.KindTable,
		Columns: []domain.Column{
			{Name: "id", DataType: "integer", Format: "int4", Position: 1},
			{Name: "name", DataType: "text", Format: "text", Position: 2},
			{Name: "roles", DataType: "ARRAY", Format: "_user_role", Position: 3,
				EnumValues: []string{"admin", "member"}},
			{Name: "tags", DataType: "ARRAY", Format: "_text", Position: 4},
		},
		PrimaryKeys: []string{"id"},
	}
}

func newFixture(t *testing.T, remoteErr error) (*Coordinator, *fakeRemote, *gateway.ResultCache, domain.QueryKey) {
	t.Helper()
	cache := gateway.NewResultCache()
	key := domain.QueryKey{Schema: "public", Entity: "users", Shape: "limit=100&offset=0&sort=&order=asc"}
	cache.Put(key, []domain.Row{
		{"id": int64(1), "name": "a"},
		{"id": int64(2), "name": "b"},
	})
	remote := &fakeRemote{updateErr: remoteErr}
	return NewCoordinator(remote, cache, logger.NewLogger()), remote, cache, key
}

func TestUpdateRowSuccessLeavesOptimisticState(t *testing.T) {
	coordinator, remote, cache, key := newFixture(t, nil)

	err := coordinator.UpdateRow(context.Background(), usersEntity(),
		domain.Row{"id": float64(1), "name": "a"},
		domain.Row{"name": "b"})
	require.NoError(t, err)

	assert.Equal(t, 1, remote.updates)
	assert.Equal(t, domain.Row{"id": float64(1)}, remote.identifiers)

	rows, _, _ := cache.Get(key)
	assert.Equal(t, "b", rows[0]["name"], "optimistic merge stands after success")
	assert.Equal(t, "b", rows[1]["name"], "unrelated row untouched")

	_, fresh := cache.Fresh(key)
	assert.True(t, fresh, "no refetch is forced on success")
	assert.Empty(t, remote.invalidated)
}

func TestUpdateRowFailureRollsBackAndInvalidates(t *testing.T) {
	remoteErr := errors.New("connection reset")
	coordinator, remote, cache, key := newFixture(t, remoteErr)

	before, _, _ := cache.Get(key)

	err := coordinator.UpdateRow(context.Background(), usersEntity(),
		domain.Row{"id": float64(1), "name": "a"},
		domain.Row{"name": "b"})
	require.ErrorIs(t, err, remoteErr)

	after, _, _ := cache.Get(key)
	assert.Equal(t, before, after, "cache state after rollback equals the pre-merge snapshot")
	assert.Equal(t, []domain.QueryKey{key}, remote.invalidated, "touched entry marked for refetch")
}

func TestUpdateRowWithoutPrimaryKeyIsRejectedLocally(t *testing.T) {
	coordinator, remote, cache, key := newFixture(t, nil)

	entity := usersEntity()
	entity.PrimaryKeys = nil

	before, _, _ := cache.Get(key)

	err := coordinator.UpdateRow(context.Background(), entity,
		domain.Row{"id": float64(1), "name": "a"},
		domain.Row{"name": "b"})
	require.ErrorIs(t, err, ErrPrimaryKeyNotFound)

	assert.Zero(t, remote.updates, "no remote call is made")
	after, _, _ := cache.Get(key)
	assert.Equal(t, before, after, "cache untouched")
}

func TestUpdateRowMissingKeyValueIsRejected(t *testing.T) {
	coordinator, remote, _, _ := newFixture(t, nil)

	err := coordinator.UpdateRow(context.Background(), usersEntity(),
		domain.Row{"name": "a"}, // no id value in the previous row
		domain.Row{"name": "b"})
	require.ErrorIs(t, err, ErrPrimaryKeyNotFound)
	assert.Zero(t, remote.updates)
}

func TestUpdateRowPassesEnumArrayColumnsThrough(t *testing.T) {
	coordinator, remote, _, _ := newFixture(t, nil)

	err := coordinator.UpdateRow(context.Background(), usersEntity(),
		domain.Row{"id": float64(1)},
		domain.Row{"roles": []any{"admin"}, "tags": []any{"x"}, "name": "c"})
	require.NoError(t, err)

	assert.Equal(t, []string{"roles"}, remote.enumArrays,
		"only enum-valued array columns are flagged; plain arrays and scalars are not")
}

func TestUpdateRowMergesEveryCachedShape(t *testing.T) {
	coordinator, _, cache, key := newFixture(t, nil)

	otherShape := domain.QueryKey{Schema: "public", Entity: "users", Shape: "limit=10&offset=0&sort=id&order=desc"}
	cache.Put(otherShape, []domain.Row{
		{"id": int64(2), "name": "b"},
		{"id": int64(1), "name": "a"},
	})

	err := coordinator.UpdateRow(context.Background(), usersEntity(),
		domain.Row{"id": float64(1)},
		domain.Row{"name": "z"})
	require.NoError(t, err)

	rows, _, _ := cache.Get(key)
	assert.Equal(t, "z", rows[0]["name"])
	otherRows, _, _ := cache.Get(otherShape)
	assert.Equal(t, "z", otherRows[1]["name"], "every cached query shape of the entity is patched")
}

func TestUpdateRowEmptyChangesIsANoOp(t *testing.T) {
	coordinator, remote, _, _ := newFixture(t, nil)

	err := coordinator.UpdateRow(context.Background(), usersEntity(),
		domain.Row{"id": float64(1)}, domain.Row{})
	require.NoError(t, err)
	assert.Zero(t, remote.updates)
}

func TestConcurrentMutationsRestoreTheirOwnSnapshots(t *testing.T) {
	// Two overlapping mutations: the second fails and must restore the
	// snapshot it captured itself, which already contains the first
	// mutation's merge.
	coordinator, remote, cache, key := newFixture(t, nil)

	require.NoError(t, coordinator.UpdateRow(context.Background(), usersEntity(),
		domain.Row{"id": float64(1)}, domain.Row{"name": "first"}))

	remote.updateErr = errors.New("boom")
	err := coordinator.UpdateRow(context.Background(), usersEntity(),
		domain.Row{"id": float64(2)}, domain.Row{"name": "second"})
	require.Error(t, err)

	rows, _, _ := cache.Get(key)
	assert.Equal(t, "first", rows[0]["name"], "rollback must not clobber the earlier mutation's result")
	assert.Equal(t, "b", rows[1]["name"], "failed mutation's own change is undone")
}
