// Package config loads the leafshift application configuration.
//
// The configuration is a TOML file, by default ~/.config/leafshift/config.toml
// (honouring XDG_CONFIG_HOME). Every field has a default, so a missing file
// is not an error:
//
//	language = "es"
//	linac_file = "/etc/leafshift/linac_config.json"
//
//	[linacs.HD]
//	DeviceSerialNumber = "6119"
//	TreatmentMachineName = "TrueBeam3"
//
//	[server]
//	addr = ":8080"
//	max_upload_mb = 50
//	read_timeout = "30s"
//
//	[cache]
//	backend = "file"   # null | file | redis
//	ttl = "24h"
//
//	[cache.redis]
//	addr = "localhost:6379"
//
//	[history]
//	backend = "sqlite" # none | sqlite | mongo
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	errs "github.com/matzehuels/leafshift/pkg/errors"
	"github.com/matzehuels/leafshift/pkg/linac"
)

// AppName is used for directory names.
const AppName = "leafshift"

// Backend names.
const (
	CacheNull  = "null"
	CacheFile  = "file"
	CacheRedis = "redis"

	HistoryNone   = "none"
	HistorySQLite = "sqlite"
	HistoryMongo  = "mongo"
)

// Config is the application configuration.
type Config struct {
	// Language is the default message language ("es" or "en").
	Language string `toml:"language"`

	// LinacFile is the linac_config.json path. Empty means the default
	// location in the configuration directory.
	LinacFile string `toml:"linac_file"`

	// Linacs overrides entries of the linac file when present.
	Linacs map[string]linac.Machine `toml:"linacs,omitempty"`

	Server  ServerConfig  `toml:"server"`
	Cache   CacheConfig   `toml:"cache"`
	History HistoryConfig `toml:"history"`
}

// ServerConfig configures `leafshift serve`.
type ServerConfig struct {
	Addr        string        `toml:"addr"`
	MaxUploadMB int64         `toml:"max_upload_mb"`
	ReadTimeout time.Duration `toml:"read_timeout"`
}

// CacheConfig selects the conversion result cache.
type CacheConfig struct {
	Backend string        `toml:"backend"`
	Dir     string        `toml:"dir"`
	TTL     time.Duration `toml:"ttl"`
	Redis   RedisConfig   `toml:"redis"`
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// HistoryConfig selects where conversion attempts are recorded.
type HistoryConfig struct {
	Backend string       `toml:"backend"`
	SQLite  SQLiteConfig `toml:"sqlite"`
	Mongo   MongoConfig  `toml:"mongo"`
}

// SQLiteConfig configures the SQLite history backend.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// MongoConfig configures the MongoDB history backend.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Language: "es",
		Server: ServerConfig{
			Addr:        ":8080",
			MaxUploadMB: 50,
			ReadTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			TTL:     24 * time.Hour,
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		History: HistoryConfig{
			Backend: HistorySQLite,
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   AppName,
				Collection: "conversions",
			},
		},
	}
}

// Load reads the configuration at path on top of the defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "read %s", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Validate checks backend names and limits.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Language) {
	case "es", "en":
	default:
		return errs.New(errs.ErrCodeInvalidConfig, "language must be es or en, got %q", c.Language)
	}
	switch c.Cache.Backend {
	case CacheNull, CacheFile, CacheRedis:
	default:
		return errs.New(errs.ErrCodeInvalidConfig, "cache backend must be null, file or redis, got %q", c.Cache.Backend)
	}
	switch c.History.Backend {
	case HistoryNone, HistorySQLite, HistoryMongo:
	default:
		return errs.New(errs.ErrCodeInvalidConfig, "history backend must be none, sqlite or mongo, got %q", c.History.Backend)
	}
	if c.Server.MaxUploadMB <= 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "server max_upload_mb must be positive")
	}
	for name, m := range c.Linacs {
		if _, err := linacFamily(name); err != nil {
			return err
		}
		if err := m.Validate(); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "linacs.%s", name)
		}
	}
	return nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}
