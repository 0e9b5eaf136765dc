// internal/flags/registry.go
package flags

import (
	"context"
	"errors"
	"fmt"

	"github.com/benmann/supabase/internal/logger"
)

// ErrUnknownFlag signals a toggle attempt against a key that is not in the
// catalog. Flags cannot be added or removed at runtime.
var ErrUnknownFlag = errors.New("unknown feature flag")

// Descriptor describes one opt-in preview feature.
type Descriptor struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	DiscussionURL string `json:"discussion_url,omitempty"`
}

// Flag is a descriptor together with its persisted enablement.
type Flag struct {
	Descriptor
	Enabled bool `json:"enabled"`
}

// catalog is the static ordered list of preview features, compiled in at
// startup.
var catalog = []Descriptor{
	{
		Key:           "grid-virtualized-rows",
		Name:          "Virtualized grid rows",
		Description:   "Render only visible rows in the table grid for large result sets.",
		DiscussionURL: "https://github.com/orgs/supabase/discussions/27965",
	},
	{
		Key:         "inline-sql-editor",
		Name:        "Inline SQL editor",
		Description: "Edit and run the SQL behind the current grid view without leaving it.",
	},
	{
		Key:           "schema-visualizer",
		Name:          "Schema visualizer",
		Description:   "Diagram view of entities and their foreign-key relationships.",
		DiscussionURL: "https://github.com/orgs/supabase/discussions/29438",
	},
	{
		Key:         "cls-editor",
		Name:        "Column-level security editor",
		Description: "Manage column privileges from the table editor side panel.",
	},
}

// StateStore persists flag enablement; absent keys read as disabled.
type StateStore interface {
	FlagEnabled(ctx context.Context, key string) (bool, error)
	SetFlagEnabled(ctx context.Context, key string, enabled bool) error
}

// EventSender reports flag toggles; implemented by the telemetry collector.
type EventSender interface {
	Send(category, action, label string)
}

// Registry serves the static preview-feature catalog with persisted
// enable/disable state. Immutable after construction; which feature is
// currently selected for preview is caller-side UI state and never touches
// the registry.
type Registry struct {
	descriptors []Descriptor
	store       StateStore
	events      EventSender
	log         *logger.Logger
}

func NewRegistry(store StateStore, events EventSender, log *logger.Logger) *Registry {
	return &Registry{
		descriptors: append([]Descriptor(nil), catalog...),
		store:       store,
		events:      events,
		log:         log,
	}
}

// List returns every flag in catalog order with its current state.
func (r *Registry) List(ctx context.Context) ([]Flag, error) {
	flags := make([]Flag, 0, len(r.descriptors))
	for _, desc := range r.descriptors {
		enabled, err := r.store.FlagEnabled(ctx, desc.Key)
		if err != nil {
			return nil, err
		}
		flags = append(flags, Flag{Descriptor: desc, Enabled: enabled})
	}
	return flags, nil
}

// IsEnabled reads the persisted state of one flag; unknown or unset keys
// are disabled.
func (r *Registry) IsEnabled(ctx context.Context, key string) bool {
	if !r.knows(key) {
		return false
	}
	enabled, err := r.store.FlagEnabled(ctx, key)
	if err != nil {
		r.log.Warnf("Flags: failed to read state for %q, treating as disabled: %v", key, err)
		return false
	}
	return enabled
}

// Toggle flips the persisted state of a flag and reports the change. It
// returns the new state.
func (r *Registry) Toggle(ctx context.Context, key string) (bool, error) {
	if !r.knows(key) {
		return false, fmt.Errorf("%w: %s", ErrUnknownFlag, key)
	}

	enabled, err := r.store.FlagEnabled(ctx, key)
	if err != nil {
		return false, err
	}
	next := !enabled
	if err := r.store.SetFlagEnabled(ctx, key, next); err != nil {
		return false, err
	}

	action := "disabled"
	if next {
		action = "enabled"
	}
	r.events.Send("ui_preview", action, key)

	return next, nil
}

func (r *Registry) knows(key string) bool {
	for _, desc := range r.descriptors {
		if desc.Key == key {
			return true
		}
	}
	return false
}
