// Package config loads forum settings from defaults, an optional YAML file,
// FORUM_* environment variables and command-line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	EnvPrefix     = "FORUM_"
	ConfigPathEnv = EnvPrefix + "CONFIG"
)

type Config struct {
	Addr      string        `koanf:"addr"`
	Dev       bool          `koanf:"dev"`
	StaticDir string        `koanf:"static_dir"`
	Store     StoreConfig   `koanf:"store"`
	Session   SessionConfig `koanf:"session"`
	Log       LogConfig     `koanf:"log"`
}

type StoreConfig struct {
	// Driver is sqlite or badger.
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

type SessionConfig struct {
	// Store is memory or badger.
	Store      string        `koanf:"store"`
	Path       string        `koanf:"path"`
	CookieName string        `koanf:"cookie_name"`
	Secure     bool          `koanf:"secure"`
	MaxAge     time.Duration `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func Defaults() Config {
	return Config{
		Addr:      ":8090",
		StaticDir: "web/static",
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "forum.db",
		},
		Session: SessionConfig{
			Store:      "memory",
			Path:       "sessions",
			CookieName: "forum_session",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load layers the configuration sources. path may be empty, in which case
// FORUM_CONFIG is consulted. flags may be nil; only flags that were
// explicitly set override earlier layers.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey maps FORUM_SESSION__COOKIE_NAME to session.cookie_name.
func envKey(k string) string {
	if k == ConfigPathEnv {
		return ""
	}
	k = strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
	return strings.ReplaceAll(k, "__", ".")
}

// flagKey maps --store-driver to store.driver and --session-max-age to
// session.max_age. Flags that were not set keep the loaded value.
func flagKey(flagSet *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		if !f.Changed {
			return "", nil
		}
		key := f.Name
		for _, section := range []string{"store", "session", "log"} {
			if rest, ok := strings.CutPrefix(key, section+"-"); ok {
				key = section + "." + rest
				break
			}
		}
		return strings.ReplaceAll(key, "-", "_"), posflag.FlagVal(flagSet, f)
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for sqlite"))
		}
	case "badger":
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	switch c.Session.Store {
	case "memory", "badger":
	default:
		errs = append(errs, fmt.Errorf("unknown session.store %q", c.Session.Store))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("session.cookie_name must not be empty"))
	}
	if c.Session.MaxAge < 0 {
		errs = append(errs, errors.New("session.max_age must not be negative"))
	}
	return errors.Join(errs...)
}

// RegisterFlags adds the flags understood by Load to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("addr", d.Addr, "listen address")
	fs.Bool("dev", d.Dev, "development mode (disables static caching)")
	fs.String("static-dir", d.StaticDir, "directory served under /static")
	fs.String("store-driver", d.Store.Driver, "document store: sqlite or badger")
	fs.String("store-path", d.Store.Path, "document store file or directory (badger: empty keeps it in memory)")
	fs.String("session-store", d.Session.Store, "session store: memory or badger")
	fs.String("session-path", d.Session.Path, "badger session directory")
	fs.String("session-cookie-name", d.Session.CookieName, "session cookie name")
	fs.Bool("session-secure", d.Session.Secure, "mark the session cookie Secure")
	fs.Duration("session-max-age", d.Session.MaxAge, "session lifetime, 0 for browser session")
	fs.String("log-level", d.Log.Level, "log level")
	fs.String("log-format", d.Log.Format, "log format: json or console")
}
