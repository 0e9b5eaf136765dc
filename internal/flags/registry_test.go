// internal/flags/registry_test.go
package flags

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmann/supabase/config"
	"github.com/benmann/supabase/internal/logger"
	"github.com/benmann/supabase/internal/storage"
)

type memoryStore struct {
	state map[string]bool
}

func (m *memoryStore) FlagEnabled(_ context.Context, key string) (bool, error) {
	return m.state[key], nil
}

func (m *memoryStore) SetFlagEnabled(_ context.Context, key string, enabled bool) error {
	m.state[key] = enabled
	return nil
}

type recordedEvent struct {
	category, action, label string
}

type recordingSender struct {
	events []recordedEvent
}

func (r *recordingSender) Send(category, action, label string) {
	r.events = append(r.events, recordedEvent{category, action, label})
}

func newTestRegistry() (*Registry, *memoryStore, *recordingSender) {
	store := &memoryStore{state: map[string]bool{}}
	sender := &recordingSender{}
	return NewRegistry(store, sender, logger.NewLogger()), store, sender
}

func TestFlagsDefaultToDisabled(t *testing.T) {
	registry, _, _ := newTestRegistry()

	flags, err := registry.List(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, flags)
	for _, flag := range flags {
		assert.False(t, flag.Enabled, "flag %s should default to disabled", flag.Key)
	}
	assert.False(t, registry.IsEnabled(context.Background(), flags[0].Key))
}

func TestToggleEnablePersistsAndEmitsOneEvent(t *testing.T) {
	registry, store, sender := newTestRegistry()

	enabled, err := registry.Toggle(context.Background(), "grid-virtualized-rows")
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.True(t, store.state["grid-virtualized-rows"], "true persisted under the flag key")

	require.Len(t, sender.events, 1, "exactly one telemetry event per toggle")
	assert.Equal(t, recordedEvent{"ui_preview", "enabled", "grid-virtualized-rows"}, sender.events[0])
}

func TestToggleBackToDisabled(t *testing.T) {
	registry, _, sender := newTestRegistry()

	_, err := registry.Toggle(context.Background(), "inline-sql-editor")
	require.NoError(t, err)
	enabled, err := registry.Toggle(context.Background(), "inline-sql-editor")
	require.NoError(t, err)

	assert.False(t, enabled)
	require.Len(t, sender.events, 2)
	assert.Equal(t, "disabled", sender.events[1].action)
}

func TestToggleUnknownKeyIsRejected(t *testing.T) {
	registry, store, sender := newTestRegistry()

	_, err := registry.Toggle(context.Background(), "not-a-flag")
	assert.ErrorIs(t, err, ErrUnknownFlag)
	assert.Empty(t, store.state)
	assert.Empty(t, sender.events)
}

func TestListPreservesCatalogOrder(t *testing.T) {
	registry, _, _ := newTestRegistry()

	first, err := registry.List(context.Background())
	require.NoError(t, err)
	second, err := registry.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// TestRegistryWithSQLiteStore exercises the registry against the real
// local store, the way the server wires it.
func TestRegistryWithSQLiteStore(t *testing.T) {
	cfg := &config.Config{LocalDbDir: t.TempDir(), LocalDbFile: "test_dashboard.db"}
	db, err := storage.ConnectLocalDB(cfg)
	require.NoError(t, err)
	defer db.Close()

	sender := &recordingSender{}
	registry := NewRegistry(storage.NewFlagStore(db), sender, logger.NewLogger())

	ctx := context.Background()
	assert.False(t, registry.IsEnabled(ctx, "schema-visualizer"))

	enabled, err := registry.Toggle(ctx, "schema-visualizer")
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.True(t, registry.IsEnabled(ctx, "schema-visualizer"))

	// State survives a fresh registry over the same store.
	fresh := NewRegistry(storage.NewFlagStore(db), sender, logger.NewLogger())
	assert.True(t, fresh.IsEnabled(ctx, "schema-visualizer"))
}
