package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "publisher.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func Test_Default_Validates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func Test_Load_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
http_addr = ":9090"

[store]
backend = "s3"
s3_bucket = "trust-artifacts"
s3_region = "eu-west-1"

[cache]
backend = "redis"
redis_address = "localhost:6379"
key_prefix = "pub:"
list_ttl = "30s"

[summary]
sweep_interval = "5m"

[admin]
api_key = "hunter2"
freeze_threshold = 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config must validate: %v", err)
	}

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("unexpected http_addr %q", cfg.HTTPAddr)
	}
	if cfg.Store.Backend != "s3" || cfg.Store.S3Bucket != "trust-artifacts" {
		t.Errorf("store section not applied: %+v", cfg.Store)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddress != "localhost:6379" {
		t.Errorf("cache section not applied: %+v", cfg.Cache)
	}
	if cfg.Cache.ListTTL.Std() != 30*time.Second {
		t.Errorf("expected list_ttl 30s, got %v", cfg.Cache.ListTTL.Std())
	}
	// Untouched fields keep their defaults.
	if cfg.Cache.MetaTTL.Std() != 10*time.Minute {
		t.Errorf("expected the default meta_ttl, got %v", cfg.Cache.MetaTTL.Std())
	}
	if cfg.Summary.SweepInterval.Std() != 5*time.Minute {
		t.Errorf("expected sweep_interval 5m, got %v", cfg.Summary.SweepInterval.Std())
	}
	if cfg.Admin.APIKey != "hunter2" || cfg.Admin.FreezeThreshold != 5 {
		t.Errorf("admin section not applied: %+v", cfg.Admin)
	}
}

func Test_Load_BadDuration(t *testing.T) {
	path := writeConfig(t, `
[cache]
list_ttl = "not a duration"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error for a malformed duration")
	}
}

func Test_Load_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func Test_Validate(t *testing.T) {
	tests := map[string]struct {
		mutate  func(*Config)
		wantErr bool
	}{
		"empty http addr": {
			mutate:  func(c *Config) { c.HTTPAddr = "" },
			wantErr: true,
		},
		"unknown store backend": {
			mutate:  func(c *Config) { c.Store.Backend = "postgres" },
			wantErr: true,
		},
		"s3 without bucket": {
			mutate: func(c *Config) {
				c.Store.Backend = "s3"
				c.Store.S3Region = "eu-west-1"
			},
			wantErr: true,
		},
		"sqlite without path": {
			mutate:  func(c *Config) { c.Store.SqlitePath = "" },
			wantErr: true,
		},
		"redis without address": {
			mutate:  func(c *Config) { c.Cache.Backend = "redis" },
			wantErr: true,
		},
		"unknown cache backend": {
			mutate:  func(c *Config) { c.Cache.Backend = "memcached" },
			wantErr: true,
		},
		"zero ttl": {
			mutate:  func(c *Config) { c.Cache.ListTTL = 0 },
			wantErr: true,
		},
		"zero sweep interval": {
			mutate:  func(c *Config) { c.Summary.SweepInterval = 0 },
			wantErr: true,
		},
		"valid s3 and redis": {
			mutate: func(c *Config) {
				c.Store.Backend = "s3"
				c.Store.S3Bucket = "bucket"
				c.Store.S3Region = "eu-west-1"
				c.Cache.Backend = "redis"
				c.Cache.RedisAddress = "localhost:6379"
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected a validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
