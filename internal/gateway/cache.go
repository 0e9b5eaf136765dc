// internal/gateway/cache.go
package gateway

import (
	"sync"

	"github.com/benmann/supabase/internal/domain"
)

// Event describes a cache entry change for subscribers. Consumers compare
// versions and re-render only when the version they hold is behind.
type Event struct {
	Key         domain.QueryKey
	Version     uint64
	Invalidated bool
}

// ResultCache holds the query results shared across all open views of an
// entity. It is an explicit state container: every change bumps the entry
// version and notifies subscribers. The snapshot/merge/restore surface is
// reserved for the mutation coordinator; nothing else may write to cached
// rows outside of a fresh Put.
type ResultCache struct {
	mu      sync.Mutex
	entries map[domain.QueryKey]*cacheEntry
	subs    map[int]chan Event
	nextSub int
	// versions survive entry invalidation so a refetched entry never
	// reuses a version a subscriber has already seen
	versions map[domain.QueryKey]uint64
}

type cacheEntry struct {
	rows []domain.Row
	// stale marks an entry for refetch without discarding its rows: open
	// views keep rendering the last known state until the refetch lands
	stale bool
}

// Snapshot is the exact state of one cache entry captured before an
// optimistic merge. Restore reinstates precisely this state.
type Snapshot struct {
	Key  domain.QueryKey
	Rows []domain.Row
}

func NewResultCache() *ResultCache {
	return &ResultCache{
		entries:  make(map[domain.QueryKey]*cacheEntry),
		subs:     make(map[int]chan Event),
		versions: make(map[domain.QueryKey]uint64),
	}
}

// Get returns a copy of the cached rows for a key and the entry's current
// version, stale entries included. The copy keeps readers isolated from
// later optimistic merges.
func (c *ResultCache) Get(key domain.QueryKey) ([]domain.Row, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, c.versions[key], false
	}
	return deepCopyRows(entry.rows), c.versions[key], true
}

// Fresh returns cached rows only when the entry exists and is not marked
// for refetch. The gateway treats anything else as a cache miss.
func (c *ResultCache) Fresh(key domain.QueryKey) ([]domain.Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || entry.stale {
		return nil, false
	}
	return deepCopyRows(entry.rows), true
}

// Put replaces the cached rows for a key with a fresh fetch result and
// clears any stale mark.
func (c *ResultCache) Put(key domain.QueryKey, rows []domain.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry{rows: deepCopyRows(rows)}
	c.bumpAndNotifyLocked(key, false)
}

// Invalidate marks a cache entry for refetch. The rows are kept so open
// views continue rendering the last known state until a fresh fetch lands.
func (c *ResultCache) Invalidate(key domain.QueryKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || entry.stale {
		return
	}
	entry.stale = true
	c.bumpAndNotifyLocked(key, true)
}

// Version returns the current version for a key (zero if never written).
func (c *ResultCache) Version(key domain.QueryKey) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[key]
}

// Subscribe registers a change listener. The returned cancel func must be
// called to release it. Events are dropped, not blocked on, when the
// subscriber falls behind.
func (c *ResultCache) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan Event, 16)
	c.subs[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// MergeMatching applies changed fields to every cached row of the given
// entity whose identifier columns ALL equal the submitted identifiers
// (exact equality per key, no partial matching). It captures a snapshot of
// each touched entry before merging and returns them; the whole
// snapshot+merge runs under one lock acquisition so concurrent mutations
// cannot interleave their snapshot/restore pairs.
//
// Coordinator use only.
func (c *ResultCache) MergeMatching(schema, entity string, identifiers, changes domain.Row) []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var snapshots []Snapshot
	for key, cached := range c.entries {
		if key.Schema != schema || key.Entity != entity {
			continue
		}

		var matched []int
		for i, row := range cached.rows {
			if rowMatchesIdentifiers(row, identifiers) {
				matched = append(matched, i)
			}
		}
		if len(matched) == 0 {
			continue
		}

		snapshots = append(snapshots, Snapshot{Key: key, Rows: deepCopyRows(cached.rows)})
		for _, i := range matched {
			for col, val := range changes {
				cached.rows[i][col] = copyValue(val)
			}
		}
		c.bumpAndNotifyLocked(key, false)
	}
	return snapshots
}

// Restore reinstates the exact entry states captured in the snapshots.
//
// Coordinator use only.
func (c *ResultCache) Restore(snapshots []Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, snap := range snapshots {
		c.entries[snap.Key] = &cacheEntry{rows: deepCopyRows(snap.Rows)}
		c.bumpAndNotifyLocked(snap.Key, false)
	}
}

func (c *ResultCache) bumpAndNotifyLocked(key domain.QueryKey, invalidated bool) {
	c.versions[key]++
	event := Event{Key: key, Version: c.versions[key], Invalidated: invalidated}
	for _, sub := range c.subs {
		select {
		case sub <- event:
		default:
		}
	}
}

func rowMatchesIdentifiers(row, identifiers domain.Row) bool {
	for col, want := range identifiers {
		have, ok := row[col]
		if !ok || !identifierEqual(have, want) {
			return false
		}
	}
	return true
}
