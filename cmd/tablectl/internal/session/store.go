// Package session keeps the tablectl login between invocations.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNoSession is returned when nobody is logged in.
var ErrNoSession = errors.New("not logged in, run tablectl login or tablectl signup")

const configFile = "config.json"

// Profile is the saved login for one server.
type Profile struct {
	Server       string    `json:"server"`
	Email        string    `json:"email"`
	SessionToken string    `json:"session_token"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Config represents the tablectl configuration file.
type Config struct {
	Version int      `json:"version"`
	Profile *Profile `json:"profile,omitempty"`
}

// Store manages the configuration file on the local filesystem.
type Store struct {
	baseDir string
}

// NewStore creates a store rooted at baseDir.
// If baseDir is empty, uses ~/.worktable/
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".worktable")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("session store initialized")

	return &Store{baseDir: baseDir}, nil
}

// Load returns the saved profile, or ErrNoSession.
func (s *Store) Load() (*Profile, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Profile == nil || cfg.Profile.SessionToken == "" {
		return nil, ErrNoSession
	}
	return cfg.Profile, nil
}

// Save replaces the saved profile.
func (s *Store) Save(p Profile) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	p.UpdatedAt = time.Now().UTC()
	cfg.Profile = &p

	if err := s.saveConfig(cfg); err != nil {
		return err
	}

	log.Debug().Str("server", p.Server).Str("email", p.Email).Msg("session saved")

	return nil
}

// Clear forgets the saved profile.
func (s *Store) Clear() error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	cfg.Profile = nil
	return s.saveConfig(cfg)
}

func (s *Store) loadConfig() (*Config, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Version: 1}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// saveConfig writes the config file atomically.
func (s *Store) saveConfig(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(s.baseDir, configFile)
	tempPath := configPath + ".tmp"

	// The session token is a bearer secret.
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}
