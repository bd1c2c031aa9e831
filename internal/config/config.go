// Package config loads the publisher's TOML configuration file. Flags
// in cmd/publisher override individual fields after loading.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration accepts human-readable values like "30s" or "2h15m" in TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type StoreConfig struct {
	// Backend selects "s3" or "sqlite".
	Backend    string `toml:"backend"`
	SqlitePath string `toml:"sqlite_path"`
	S3Bucket   string `toml:"s3_bucket"`
	S3Region   string `toml:"s3_region"`
}

type CacheConfig struct {
	// Backend selects "redis" or "memory".
	Backend       string   `toml:"backend"`
	RedisAddress  string   `toml:"redis_address"`
	RedisPassword string   `toml:"redis_password"`
	RedisDatabase int      `toml:"redis_database"`
	KeyPrefix     string   `toml:"key_prefix"`
	ListTTL       Duration `toml:"list_ttl"`
	MetaTTL       Duration `toml:"meta_ttl"`
}

type SummaryConfig struct {
	SweepInterval Duration `toml:"sweep_interval"`
}

type AdminConfig struct {
	APIKey          string   `toml:"api_key"`
	FreezeThreshold int      `toml:"freeze_threshold"`
	FreezeWindow    Duration `toml:"freeze_window"`
}

type Config struct {
	HTTPAddr string        `toml:"http_addr"`
	Store    StoreConfig   `toml:"store"`
	Cache    CacheConfig   `toml:"cache"`
	Summary  SummaryConfig `toml:"summary"`
	Admin    AdminConfig   `toml:"admin"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		HTTPAddr: ":8080",
		Store: StoreConfig{
			Backend:    "sqlite",
			SqlitePath: "artifacts.db",
		},
		Cache: CacheConfig{
			Backend: "memory",
			ListTTL: Duration(6 * time.Minute),
			MetaTTL: Duration(10 * time.Minute),
		},
		Summary: SummaryConfig{
			SweepInterval: Duration(15 * time.Minute),
		},
		Admin: AdminConfig{
			FreezeThreshold: 3,
			FreezeWindow:    Duration(time.Minute),
		},
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: http_addr cannot be empty")
	}

	switch c.Store.Backend {
	case "sqlite":
		if c.Store.SqlitePath == "" {
			return errors.New("config: sqlite_path cannot be empty for the sqlite backend")
		}
	case "s3":
		if c.Store.S3Bucket == "" {
			return errors.New("config: s3_bucket cannot be empty for the s3 backend")
		}
		if c.Store.S3Region == "" {
			return errors.New("config: s3_region cannot be empty for the s3 backend")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddress == "" {
			return errors.New("config: redis_address cannot be empty for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}

	if c.Cache.ListTTL.Std() <= 0 || c.Cache.MetaTTL.Std() <= 0 {
		return errors.New("config: cache TTLs must be positive")
	}
	if c.Summary.SweepInterval.Std() <= 0 {
		return errors.New("config: sweep_interval must be positive")
	}
	return nil
}
