package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes a remote database connection in a YAML file, as an
// alternative to passing a full DSN through the environment.
type Profile struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// LoadProfile reads and validates a YAML connection profile.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read connection profile: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse connection profile: %w", err)
	}

	if profile.Host == "" || profile.Database == "" || profile.Username == "" {
		return nil, fmt.Errorf("connection profile must set host, database and username")
	}
	if profile.Port == 0 {
		profile.Port = 5432
	}
	if profile.SSLMode == "" {
		profile.SSLMode = "disable"
	}

	return &profile, nil
}

// DSN renders the profile as a postgres connection URL.
func (p *Profile) DSN() string {
	userInfo := url.UserPassword(p.Username, p.Password)
	return fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=%s",
		userInfo.String(), p.Host, p.Port, p.Database, p.SSLMode)
}
