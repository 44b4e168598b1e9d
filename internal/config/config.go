// Package config handles configuration paths and the Phabricator settings file.
package config

import (
	"os"
	"path/filepath"
)

const (
	// AppName is the application directory name.
	AppName = "phab"

	// SettingsFile is the settings filename under the home directory.
	SettingsFile = ".phab"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// WatchlistFile is the watchlist database filename for the JSON store.
	WatchlistFile = "db.json"

	// SQLiteFile is the watchlist database filename for the SQLite store.
	SQLiteFile = "db.sqlite"

	// EnvFile is the optional dotenv file with PHAB_* overrides.
	EnvFile = ".env"
)

// Watchlist store kinds.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the data directory path (token, watchlists, .env).
	Dir string

	// SettingsPath is the HJSON settings file path.
	SettingsPath string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Store selects the watchlist database kind (StoreJSON or StoreSQLite).
	Store string
}

// New creates a new Config with the default or specified paths.
// If dataDir is empty, uses XDG_CONFIG_HOME/phab or $HOME/.config/phab.
// If settingsPath is empty, uses $HOME/.phab.
func New(dataDir, settingsPath string) (*Config, error) {
	dir := dataDir
	if dir == "" {
		dir = DefaultDataDir()
	}
	path := settingsPath
	if path == "" {
		path = DefaultSettingsPath()
	}
	return &Config{Dir: dir, SettingsPath: path, Store: StoreJSON}, nil
}

// DefaultDataDir returns the default data directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// DefaultSettingsPath returns $HOME/.phab.
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return SettingsFile
	}
	return filepath.Join(home, SettingsFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// WatchlistPath returns the path to the watchlist database for the selected store.
func (c *Config) WatchlistPath() string {
	if c.Store == StoreSQLite {
		return filepath.Join(c.Dir, SQLiteFile)
	}
	return filepath.Join(c.Dir, WatchlistFile)
}

// ValidStore reports whether name is a known watchlist store kind.
func ValidStore(name string) bool {
	return name == StoreJSON || name == StoreSQLite
}

// EnvPath returns the path to the optional dotenv file.
func (c *Config) EnvPath() string {
	return filepath.Join(c.Dir, EnvFile)
}

// EnsureDir creates the data directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasSettings checks if the settings file exists.
func (c *Config) HasSettings() bool {
	_, err := os.Stat(c.SettingsPath)
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
