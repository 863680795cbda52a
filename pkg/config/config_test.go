package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/leafshift/pkg/errors"
	"github.com/matzehuels/leafshift/pkg/linac"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
language = "en"

[linacs.HD]
DeviceSerialNumber = "9999"
TreatmentMachineName = "TB9"

[server]
addr = "127.0.0.1:9000"
read_timeout = "5s"

[cache]
backend = "redis"
ttl = "1h"

[cache.redis]
addr = "redis:6379"
db = 2

[history]
backend = "mongo"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(50), cfg.Server.MaxUploadMB, "unset keys keep defaults")
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 2, cfg.Cache.Redis.DB)
	assert.Equal(t, HistoryMongo, cfg.History.Backend)
	assert.Equal(t, "conversions", cfg.History.Mongo.Collection)
	assert.Equal(t, linac.Machine{DeviceSerialNumber: "9999", TreatmentMachineName: "TB9"}, cfg.Linacs["HD"])
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"language": `language = "fr"`,
		"cache":    "[cache]\nbackend = \"memcached\"",
		"history":  "[history]\nbackend = \"postgres\"",
		"upload":   "[server]\nmax_upload_mb = 0",
		"linac":    "[linacs.Agility]\nDeviceSerialNumber = \"1\"\nTreatmentMachineName = \"X\"",
		"syntax":   "language = ",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Defaults()
	cfg.Language = "en"
	cfg.Cache.TTL = 90 * time.Minute
	require.NoError(t, Save(path, cfg))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestSaveRejectsInvalid(t *testing.T) {
	cfg := Defaults()
	cfg.Cache.Backend = "bogus"
	err := Save(filepath.Join(t.TempDir(), "c.toml"), cfg)
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidConfig))
}

func TestPathsHonourXDG(t *testing.T) {
	cfgHome := t.TempDir()
	cacheHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfgHome)
	t.Setenv("XDG_CACHE_HOME", cacheHome)

	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfgHome, AppName), dir)

	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfgHome, AppName, "config.toml"), p)

	cfg := Defaults()
	lp, err := cfg.LinacPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfgHome, AppName, linac.FileName), lp)

	cp, err := cfg.CachePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cacheHome, AppName), cp)

	hp, err := cfg.HistoryPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cacheHome, AppName, "history.db"), hp)
}

func TestOpenLinacStoreAppliesOverrides(t *testing.T) {
	cfg := Defaults()
	cfg.LinacFile = filepath.Join(t.TempDir(), linac.FileName)
	cfg.Linacs = map[string]linac.Machine{
		"Millenium": {DeviceSerialNumber: "1234", TreatmentMachineName: "Clinac"},
	}

	store, err := cfg.OpenLinacStore()
	require.NoError(t, err)
	snap := store.Snapshot()
	assert.Equal(t, "Clinac", snap.Millennium.TreatmentMachineName)
	assert.Equal(t, linac.Defaults().HD, snap.HD)

	// The file itself keeps the defaults.
	onDisk, _, err := linac.LoadFile(cfg.LinacFile)
	require.NoError(t, err)
	assert.Equal(t, linac.Defaults(), onDisk)
}
