package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, Defaults(), *cfg)
	assert.Equal(t, ":8090", cfg.Addr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "memory", cfg.Session.Store)
}

func TestLoad_FileEnvFlagsPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
store:
  driver: badger
  path: /var/lib/forum
session:
  cookie_name: from_file
  max_age: 2h
log:
  level: debug
`), 0o600))

	t.Setenv("FORUM_SESSION__COOKIE_NAME", "from_env")
	t.Setenv("FORUM_LOG__FORMAT", "console")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--addr", ":9100", "--session-secure"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, "badger", cfg.Store.Driver)
	assert.Equal(t, "/var/lib/forum", cfg.Store.Path)
	assert.Equal(t, "from_env", cfg.Session.CookieName)
	assert.True(t, cfg.Session.Secure)
	assert.Equal(t, 2*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_UnsetFlagsKeepFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forum.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: badger\n"), 0o600))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "badger", cfg.Store.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"badger in memory", func(c *Config) { c.Store.Driver = "badger"; c.Store.Path = "" }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "couch" }, false},
		{"sqlite without path", func(c *Config) { c.Store.Path = "" }, false},
		{"unknown session store", func(c *Config) { c.Session.Store = "redis" }, false},
		{"empty cookie name", func(c *Config) { c.Session.CookieName = "" }, false},
		{"negative max age", func(c *Config) { c.Session.MaxAge = -time.Second }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
