package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is everything the client needs to assemble the crypto subsystem.
// Values resolve in order: defaults, then the YAML file, then PLANIT_*
// environment variables.
type Config struct {
	DataDir    string          `yaml:"dataDir"`
	Passphrase string          `yaml:"-"`
	Directory  DirectoryConfig `yaml:"directory"`
	Keystore   KeystoreConfig  `yaml:"keystore"`
	Logging    LoggingConfig   `yaml:"logging"`
}

type DirectoryConfig struct {
	BaseURL        string        `yaml:"baseUrl"`
	CacheCapacity  int           `yaml:"cacheCapacity"`
	CacheTTL       time.Duration `yaml:"cacheTtl"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

type KeystoreConfig struct {
	UnlockRPS   float64 `yaml:"unlockRps"`
	UnlockBurst int     `yaml:"unlockBurst"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DataDir: filepath.Join(home, ".planit"),
		Directory: DirectoryConfig{
			BaseURL:        "http://127.0.0.1:8480",
			CacheCapacity:  100,
			CacheTTL:       time.Hour,
			RequestTimeout: 10 * time.Second,
		},
		Keystore: KeystoreConfig{
			UnlockRPS:   0.2,
			UnlockBurst: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromPath resolves the effective config. A missing or unparseable
// file falls back to defaults rather than failing: the subsystem must
// come up even on a half-provisioned device.
func LoadFromPath(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"configs/planit.yaml",
			filepath.Join(cfg.DataDir, "planit.yaml"),
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		Merge(&cfg, parsed)
		break
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

func Merge(dst *Config, src Config) {
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if src.Directory.BaseURL != "" {
		dst.Directory.BaseURL = src.Directory.BaseURL
	}
	if src.Directory.CacheCapacity != 0 {
		dst.Directory.CacheCapacity = src.Directory.CacheCapacity
	}
	if src.Directory.CacheTTL != 0 {
		dst.Directory.CacheTTL = src.Directory.CacheTTL
	}
	if src.Directory.RequestTimeout != 0 {
		dst.Directory.RequestTimeout = src.Directory.RequestTimeout
	}
	if src.Keystore.UnlockRPS != 0 {
		dst.Keystore.UnlockRPS = src.Keystore.UnlockRPS
	}
	if src.Keystore.UnlockBurst != 0 {
		dst.Keystore.UnlockBurst = src.Keystore.UnlockBurst
	}
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
}

// ApplyEnvOverrides lets deploy environments adjust the config without
// touching files. The passphrase only ever comes from the environment so
// it cannot end up committed inside a config file.
func ApplyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PLANIT_DATA_DIR")); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("PLANIT_PASSPHRASE"); v != "" {
		cfg.Passphrase = v
	}
	if v := strings.TrimSpace(os.Getenv("PLANIT_DIRECTORY_URL")); v != "" {
		cfg.Directory.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PLANIT_DIRECTORY_CACHE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Directory.CacheTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("PLANIT_DIRECTORY_CACHE_CAPACITY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Directory.CacheCapacity = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("PLANIT_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("PLANIT_LOG_FORMAT")); v != "" {
		cfg.Logging.Format = v
	}
}

// KeystorePath is where the sealed key pairs live under the data dir.
func (c Config) KeystorePath() string {
	return filepath.Join(c.DataDir, "keys.enc")
}

// BackupVaultPath is where the sealed backup keys live.
func (c Config) BackupVaultPath() string {
	return filepath.Join(c.DataDir, "backup_keys.enc")
}

// RecordsPath is where the sealed message record snapshots live.
func (c Config) RecordsPath() string {
	return filepath.Join(c.DataDir, "records.enc")
}
