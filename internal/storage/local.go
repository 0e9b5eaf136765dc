// internal/storage/local.go
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Driver registration

	"github.com/benmann/supabase/config"
	"github.com/benmann/supabase/internal/logger"
)

var customLog = logger.NewLogger()

// ConnectLocalDB initializes the connection pool for the local SQLite
// database and ensures the required tables ('users', 'feature_flags',
// 'api_keys') exist. This store holds dashboard-local state only; all entity metadata
// and rows live in the administered Postgres.
func ConnectLocalDB(cfg *config.Config) (*sql.DB, error) {
	dbPath := filepath.Join(cfg.LocalDbDir, cfg.LocalDbFile)
	customLog.Printf("Storage: Initializing local database: %s", dbPath)

	if err := os.MkdirAll(cfg.LocalDbDir, 0750); err != nil {
		customLog.Printf("Storage: Error creating data directory '%s': %v", cfg.LocalDbDir, err)
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		customLog.Printf("Storage: Failed to open local db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to open local db: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		customLog.Printf("Storage: Failed to ping local db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to connect to local db: %w", err)
	}

	createUsersTableSQL := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err = db.Exec(createUsersTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure users table: %w", err)
	}

	createFlagsTableSQL := `
	CREATE TABLE IF NOT EXISTS feature_flags (
		key TEXT PRIMARY KEY,
		enabled INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err = db.Exec(createFlagsTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure feature_flags table: %w", err)
	}

	createAPIKeysTableSQL := `
	CREATE TABLE IF NOT EXISTS api_keys (
		api_key_id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NOT NULL,
		key TEXT UNIQUE NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
	);`
	if _, err = db.Exec(createAPIKeysTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure api_keys table: %w", err)
	}

	customLog.Println("Storage: Local database ready.")
	return db, nil
}
