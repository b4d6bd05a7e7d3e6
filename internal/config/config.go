// Package config handles TOML-based configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"hibiki/internal/media"
)

// Config holds all application configuration.
type Config struct {
	Base         string `toml:"base"`
	Server       string `toml:"server"`
	Type         string `toml:"type"`
	Player       string `toml:"player"`
	SubsLanguage string `toml:"subs_language"`
	History      bool   `toml:"history"`
	Listen       string `toml:"listen"`
	Debug        bool   `toml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Base:         "hianime.to",
		Server:       "HD-1",
		Type:         "sub",
		Player:       "mpv",
		SubsLanguage: "english",
		History:      true,
		Listen:       ":8410",
		Debug:        false,
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hibiki"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "hibiki"), nil
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	serverOK := false
	for _, name := range media.HosterNames {
		if strings.EqualFold(c.Server, name) {
			serverOK = true
			break
		}
	}
	if !serverOK {
		return fmt.Errorf("unsupported server %q (valid: %s)", c.Server, strings.Join(media.HosterNames, ", "))
	}

	if _, ok := media.ParseTrackType(c.Type); !ok {
		return fmt.Errorf("unsupported type %q (valid: sub, dub, raw, mixed)", c.Type)
	}

	validPlayers := map[string]bool{
		"mpv": true, "vlc": true, "iina": true, "celluloid": true,
	}
	if !validPlayers[strings.ToLower(c.Player)] {
		return fmt.Errorf("unsupported player %q (valid: mpv, vlc, iina, celluloid)", c.Player)
	}

	if c.Base == "" {
		return fmt.Errorf("base domain cannot be empty")
	}
	if strings.Contains(c.Base, "://") {
		return fmt.Errorf("base must be a bare domain, got %q", c.Base)
	}

	return nil
}

// TrackType returns the validated track type.
func (c *Config) TrackType() media.TrackType {
	t, _ := media.ParseTrackType(c.Type)
	return t
}

// HistoryPath returns the path to the watch-progress database.
func HistoryPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "hibiki", "history.db"), nil
}
