// internal/storage/user_repo.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/benmann/supabase/internal/domain"
)

// Specific errors for local-store operations
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

// CreateUser inserts a new dashboard account into the local database.
func CreateUser(ctx context.Context, db *sql.DB, email string, passwordHash string) (int64, error) {
	sqlStatement := `INSERT INTO users (email, password_hash) VALUES (?, ?)`
	result, err := db.ExecContext(ctx, sqlStatement, email, passwordHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			if strings.Contains(sqliteErr.Error(), "users.email") {
				return 0, ErrEmailExists
			}
		}
		customLog.Printf("Storage: Failed to insert user %s: %v", email, err)
		return 0, fmt.Errorf("database error during user creation: %w", err)
	}
	userID, err := result.LastInsertId()
	if err != nil {
		customLog.Printf("Storage: Failed to get last insert ID for user %s: %v", email, err)
		return 0, fmt.Errorf("failed to retrieve user ID after creation: %w", err)
	}
	return userID, nil
}

// FindUserByEmail retrieves a dashboard account by its email address.
func FindUserByEmail(ctx context.Context, db *sql.DB, email string) (*domain.User, error) {
	sqlStatement := `SELECT id, email, password_hash, created_at FROM users WHERE email = ? LIMIT 1`
	row := db.QueryRowContext(ctx, sqlStatement, email)
	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		customLog.Printf("Storage: Failed to find user by email %s: %v", email, err)
		return nil, fmt.Errorf("database error finding user: %w", err)
	}
	return &user, nil
}
