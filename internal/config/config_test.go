package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	cfg := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	def := Default()
	if cfg.Directory.CacheCapacity != def.Directory.CacheCapacity {
		t.Fatalf("cache capacity = %d", cfg.Directory.CacheCapacity)
	}
	if cfg.Directory.CacheTTL != time.Hour {
		t.Fatalf("cache ttl = %v", cfg.Directory.CacheTTL)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("log level = %q", cfg.Logging.Level)
	}
}

func TestLoadFromPathMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planit.yaml")
	raw := `
dataDir: /srv/planit
directory:
  baseUrl: https://keys.example.com
  cacheCapacity: 50
  cacheTtl: 30m
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := LoadFromPath(path)
	if cfg.DataDir != "/srv/planit" {
		t.Fatalf("data dir = %q", cfg.DataDir)
	}
	if cfg.Directory.BaseURL != "https://keys.example.com" {
		t.Fatalf("base url = %q", cfg.Directory.BaseURL)
	}
	if cfg.Directory.CacheCapacity != 50 {
		t.Fatalf("cache capacity = %d", cfg.Directory.CacheCapacity)
	}
	if cfg.Directory.CacheTTL != 30*time.Minute {
		t.Fatalf("cache ttl = %v", cfg.Directory.CacheTTL)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Logging.Level)
	}
	// Untouched fields keep their defaults.
	if cfg.Keystore.UnlockBurst != 5 {
		t.Fatalf("unlock burst = %d", cfg.Keystore.UnlockBurst)
	}
}

func TestLoadFromPathUnparseableFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planit.yaml")
	if err := os.WriteFile(path, []byte("{{nope"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := LoadFromPath(path)
	if cfg.Directory.CacheCapacity != Default().Directory.CacheCapacity {
		t.Fatal("broken file should fall back to defaults")
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planit.yaml")
	if err := os.WriteFile(path, []byte("directory:\n  baseUrl: https://file.example.com\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PLANIT_DIRECTORY_URL", "https://env.example.com")
	t.Setenv("PLANIT_PASSPHRASE", "env-secret")
	t.Setenv("PLANIT_DIRECTORY_CACHE_CAPACITY", "7")
	t.Setenv("PLANIT_LOG_LEVEL", "warn")

	cfg := LoadFromPath(path)
	if cfg.Directory.BaseURL != "https://env.example.com" {
		t.Fatalf("base url = %q", cfg.Directory.BaseURL)
	}
	if cfg.Passphrase != "env-secret" {
		t.Fatal("passphrase should come from the environment")
	}
	if cfg.Directory.CacheCapacity != 7 {
		t.Fatalf("cache capacity = %d", cfg.Directory.CacheCapacity)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("log level = %q", cfg.Logging.Level)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Config{DataDir: "/srv/planit"}
	if got := cfg.KeystorePath(); got != filepath.Join("/srv/planit", "keys.enc") {
		t.Fatalf("keystore path = %q", got)
	}
	if got := cfg.BackupVaultPath(); got != filepath.Join("/srv/planit", "backup_keys.enc") {
		t.Fatalf("backup vault path = %q", got)
	}
}
