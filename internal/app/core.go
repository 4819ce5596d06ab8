// Package app assembles the encryption subsystem from configuration.
// Everything is wired here through plain constructor injection; there are
// no package-level singletons, so tests and embedders can assemble as
// many independent cores as they need.
package app

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/internal/backup"
	"github.com/kamalraji/plan-it-together-sub013/internal/config"
	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
	"github.com/kamalraji/plan-it-together-sub013/internal/directory"
	"github.com/kamalraji/plan-it-together-sub013/internal/e2ee"
	"github.com/kamalraji/plan-it-together-sub013/internal/keys"
	"github.com/kamalraji/plan-it-together-sub013/internal/platform/privacylog"
	"github.com/kamalraji/plan-it-together-sub013/internal/platform/ratelimiter"
	"github.com/kamalraji/plan-it-together-sub013/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
)

var ErrPassphraseRequired = errors.New("keystore passphrase is required (set PLANIT_PASSPHRASE)")

const unlockIdleTTL = 10 * time.Minute

// Core is the assembled crypto subsystem.
type Core struct {
	Config    config.Config
	Logger    *slog.Logger
	Keys      *keys.Manager
	Directory *directory.Client
	Messenger *e2ee.Messenger
	Backups   *backup.Service
	Records   *storage.RecordStore
	Status    *e2ee.StatusAnalyzer
}

type Option func(*options)

type options struct {
	logger   *slog.Logger
	dirSvc   directory.Service
	sampler  e2ee.MessageSampler
	entropy  *crypto.Random
	registry prometheus.Registerer
}

// WithLogger replaces the config-derived logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.logger = log }
}

// WithDirectoryService substitutes the remote directory implementation,
// mainly for tests and local development.
func WithDirectoryService(svc directory.Service) Option {
	return func(o *options) { o.dirSvc = svc }
}

// WithMessageSampler replaces the default record-store sampler the status
// analyzer queries, mainly for embedders with their own message storage.
func WithMessageSampler(sampler e2ee.MessageSampler) Option {
	return func(o *options) { o.sampler = sampler }
}

// WithEntropy overrides the random source, for deterministic tests.
func WithEntropy(r *crypto.Random) Option {
	return func(o *options) { o.entropy = r }
}

// WithRegisterer sets where directory cache metrics are registered.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

func New(cfg config.Config, opts ...Option) (*Core, error) {
	if strings.TrimSpace(cfg.Passphrase) == "" {
		return nil, ErrPassphraseRequired
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = BuildLogger(cfg.Logging)
	}
	entropy := o.entropy
	if entropy == nil {
		entropy = crypto.NewRandom()
	}

	dirSvc := o.dirSvc
	if dirSvc == nil {
		dirSvc = directory.NewHTTPService(cfg.Directory.BaseURL, &http.Client{
			Timeout: cfg.Directory.RequestTimeout,
		})
	}
	dirClient := directory.NewClient(dirSvc, cfg.Directory.CacheCapacity, cfg.Directory.CacheTTL, o.registry, log)

	throttle := ratelimiter.New(cfg.Keystore.UnlockRPS, cfg.Keystore.UnlockBurst, unlockIdleTTL)
	store := keys.NewStore(cfg.KeystorePath(), cfg.Passphrase, throttle)
	keyMgr := keys.NewManager(store, dirClient, entropy, log)

	records, err := storage.NewEncryptedRecordStore(cfg.RecordsPath(), cfg.Passphrase)
	if err != nil {
		return nil, err
	}
	sampler := o.sampler
	if sampler == nil {
		sampler = records
	}

	return &Core{
		Config:    cfg,
		Logger:    log,
		Keys:      keyMgr,
		Directory: dirClient,
		Messenger: e2ee.NewMessenger(keyMgr, dirClient, entropy, log),
		Backups:   backup.NewService(backup.NewVault(cfg.BackupVaultPath(), cfg.Passphrase), entropy, log),
		Records:   records,
		Status:    e2ee.NewStatusAnalyzer(sampler, keyMgr, log),
	}, nil
}

// BuildLogger turns the logging config into a sanitizing slog logger.
// Every sink is wrapped so raw identifiers and secrets never reach it.
func BuildLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(cfg.Level)) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(privacylog.WrapHandler(handler))
}
