package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/benmann/supabase/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Config holds application configuration values
type Config struct {
	ServerPort    string
	JWTSecret     string
	JWTExpiration time.Duration

	// Local dashboard state (accounts, feature flags) lives in SQLite.
	LocalDbDir  string
	LocalDbFile string

	// Remote administered database. Either a full DSN or a YAML profile
	// file (CONNECTION_PROFILE) that is rendered into one.
	DatabaseURL string

	// Telemetry collector endpoint; empty disables reporting.
	TelemetryURL string

	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables.
// It uses a .env file for local development if present (ignores it for production).
func LoadConfig() (*Config, error) {
	customLog.Println("Loading configuration from environment variables...")

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			customLog.Warnf("Warning: Error loading .env file: %v", err)
		}
	}

	port := getEnv("SERVER_PORT", "8080")
	jwtSecret := os.Getenv("JWT_SECRET")
	jwtExpHoursStr := getEnv("JWT_EXPIRATION_HOURS", "24")
	dbDir := getEnv("LOCAL_STATE_DIRECTORY", "data")
	dbFile := getEnv("LOCAL_STATE_FILE", "dashboard.db")
	databaseURL := os.Getenv("DATABASE_URL")
	telemetryURL := os.Getenv("TELEMETRY_URL")

	// Critical: Ensure JWT Secret is set
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable must be set")
	}

	// The remote connection comes from DATABASE_URL, or from a YAML
	// connection profile when CONNECTION_PROFILE points at one.
	if databaseURL == "" {
		profilePath := os.Getenv("CONNECTION_PROFILE")
		if profilePath == "" {
			return nil, errors.New("either DATABASE_URL or CONNECTION_PROFILE must be set")
		}
		profile, err := LoadProfile(profilePath)
		if err != nil {
			return nil, err
		}
		databaseURL = profile.DSN()
	}

	jwtExpHours, err := strconv.Atoi(jwtExpHoursStr)
	if err != nil || jwtExpHours <= 0 {
		customLog.Warnf("Invalid JWT_EXPIRATION_HOURS '%s'. Using default 24h. Error: %v", jwtExpHoursStr, err)
		jwtExpHours = 24
	}
	jwtExpiration := time.Hour * time.Duration(jwtExpHours)

	cfg := &Config{
		ServerPort:     port,
		JWTSecret:      jwtSecret,
		JWTExpiration:  jwtExpiration,
		LocalDbDir:     dbDir,
		LocalDbFile:    dbFile,
		DatabaseURL:    databaseURL,
		TelemetryURL:   telemetryURL,
		AllowedOrigins: []string{getEnv("ALLOWED_ORIGIN", "http://localhost:3000")},
	}

	customLog.Printf("Configuration loaded successfully. Port: %s, JWT Exp: %v", cfg.ServerPort, cfg.JWTExpiration)
	return cfg, nil
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
