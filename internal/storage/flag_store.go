// internal/storage/flag_store.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FlagStore persists feature-flag enablement in the local database. Absent
// keys read as disabled.
type FlagStore struct {
	DB *sql.DB
}

func NewFlagStore(db *sql.DB) *FlagStore {
	return &FlagStore{DB: db}
}

// FlagEnabled reports the persisted state of a flag; absent keys are false.
func (s *FlagStore) FlagEnabled(ctx context.Context, key string) (bool, error) {
	var enabled bool
	err := s.DB.QueryRowContext(ctx, `SELECT enabled FROM feature_flags WHERE key = ? LIMIT 1`, key).Scan(&enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		customLog.Printf("Storage: Failed to read flag state for %q: %v", key, err)
		return false, fmt.Errorf("database error reading flag state: %w", err)
	}
	return enabled, nil
}

// SetFlagEnabled upserts the persisted state of a flag.
func (s *FlagStore) SetFlagEnabled(ctx context.Context, key string, enabled bool) error {
	sqlStatement := `
	INSERT INTO feature_flags (key, enabled, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET enabled = excluded.enabled, updated_at = CURRENT_TIMESTAMP`
	if _, err := s.DB.ExecContext(ctx, sqlStatement, key, enabled); err != nil {
		customLog.Printf("Storage: Failed to persist flag state for %q: %v", key, err)
		return fmt.Errorf("database error persisting flag state: %w", err)
	}
	return nil
}
