package config

import (
	"os"
	"path/filepath"

	"github.com/matzehuels/leafshift/pkg/linac"
	"github.com/matzehuels/leafshift/pkg/mlc"
)

// Dir returns the configuration directory using XDG standard (~/.config/leafshift/).
func Dir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}

// CacheDir returns the cache directory using XDG standard (~/.cache/leafshift/).
func CacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// DefaultPath returns the default config.toml location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LinacPath returns the linac_config.json location for c.
func (c *Config) LinacPath() (string, error) {
	if c.LinacFile != "" {
		return c.LinacFile, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, linac.FileName), nil
}

// CachePath returns the file cache directory for c.
func (c *Config) CachePath() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return CacheDir()
}

// HistoryPath returns the SQLite history database location for c.
func (c *Config) HistoryPath() (string, error) {
	if c.History.SQLite.Path != "" {
		return c.History.SQLite.Path, nil
	}
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// OpenLinacStore loads the linac file and applies the [linacs] overrides.
// Overrides live in memory only; updates through the store are written to
// the linac file.
func (c *Config) OpenLinacStore() (*linac.Store, error) {
	path, err := c.LinacPath()
	if err != nil {
		return nil, err
	}
	store, err := linac.OpenStore(path)
	if err != nil {
		return nil, err
	}
	if len(c.Linacs) == 0 {
		return store, nil
	}

	merged := store.Snapshot()
	for name, m := range c.Linacs {
		f, err := linacFamily(name)
		if err != nil {
			return nil, err
		}
		if merged, err = merged.With(f, m); err != nil {
			return nil, err
		}
	}
	return linac.NewStore(merged, path), nil
}

func linacFamily(name string) (mlc.Family, error) {
	return mlc.ParseFamily(name)
}
