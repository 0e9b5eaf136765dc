// internal/storage/apikey_repo.go
package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrAPIKeyGeneration = errors.New("failed to generate api key components")
	ErrAPIKeyNotFound   = errors.New("api key not found")
)

// APIKeyPrefix identifies dashboard service keys in the Authorization
// header. Not a secret.
const APIKeyPrefix = "dash_"

const apiKeySecretLength = 32

// StoreAPIKey generates and stores a new service key owned by a dashboard
// account. The full key is returned once upon successful creation.
func StoreAPIKey(ctx context.Context, db *sql.DB, userID int64) (string, error) {
	randomBytes := make([]byte, apiKeySecretLength)
	if _, err := rand.Read(randomBytes); err != nil {
		customLog.Warnf("Storage: Failed to generate random bytes for API key: %v", err)
		return "", ErrAPIKeyGeneration
	}

	key := APIKeyPrefix + base64.RawURLEncoding.EncodeToString(randomBytes)

	insertSQL := `INSERT INTO api_keys (owner_id, key) VALUES (?, ?)`
	if _, err := db.ExecContext(ctx, insertSQL, userID, key); err != nil {
		customLog.Warnf("Storage: Failed to store API key for user %d: %v", userID, err)
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			// UNIQUE collision on the key column is practically impossible
			return "", ErrAPIKeyGeneration
		}
		return "", fmt.Errorf("database error storing API key: %w", err)
	}

	return key, nil
}

// FindUserIDByAPIKey resolves a service key to its owning account.
func FindUserIDByAPIKey(ctx context.Context, db *sql.DB, key string) (int64, error) {
	var userID int64
	err := db.QueryRowContext(ctx, `SELECT owner_id FROM api_keys WHERE key = ? LIMIT 1`, key).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrAPIKeyNotFound
		}
		customLog.Printf("Storage: Failed to look up API key: %v", err)
		return 0, fmt.Errorf("database error finding API key: %w", err)
	}
	return userID, nil
}

// DeleteAPIKey revokes a service key. The owner check keeps one account
// from revoking another's keys.
func DeleteAPIKey(ctx context.Context, db *sql.DB, userID int64, key string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM api_keys WHERE key = ? AND owner_id = ?`, key, userID)
	if err != nil {
		customLog.Printf("Storage: Failed to delete API key for user %d: %v", userID, err)
		return fmt.Errorf("database error deleting API key: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check API key deletion: %w", err)
	}
	if affected == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}
