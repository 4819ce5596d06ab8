package directory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
	"github.com/kamalraji/plan-it-together-sub013/internal/platform/privacylog"
	"github.com/kamalraji/plan-it-together-sub013/pkg/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	DefaultCacheCapacity = 100
	DefaultCacheTTL      = time.Hour
)

// Client fronts the remote directory with a bounded TTL cache so repeated
// sends to the same recipients do not hammer the server. Entries are
// evicted least-recently-used once the cache is full; lookups refresh
// recency. Failed fetches are never cached.
type Client struct {
	svc      Service
	log      *slog.Logger
	now      func() time.Time
	capacity int
	ttl      time.Duration

	mu    sync.Mutex
	items map[string]*cacheEntry

	hits       prometheus.Counter
	misses     prometheus.Counter
	evictions  prometheus.Counter
	fetchFails prometheus.Counter
}

type cacheEntry struct {
	bundle     models.PublicKeyBundle
	expiresAt  time.Time
	lastAccess time.Time
}

func NewClient(svc Service, capacity int, ttl time.Duration, reg prometheus.Registerer, log *slog.Logger) *Client {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = slog.Default()
	}
	factory := promauto.With(reg)
	return &Client{
		svc:      svc,
		log:      log,
		now:      time.Now,
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*cacheEntry),
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "planit_directory_cache_hits_total",
			Help: "Recipient key lookups served from the local cache.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "planit_directory_cache_misses_total",
			Help: "Recipient key lookups that required a directory fetch.",
		}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "planit_directory_cache_evictions_total",
			Help: "Cache entries evicted to stay within capacity.",
		}),
		fetchFails: factory.NewCounter(prometheus.CounterOpts{
			Name: "planit_directory_fetch_failures_total",
			Help: "Directory fetches that returned an error.",
		}),
	}
}

// ActiveBundle returns the recipient's active public key bundle, from
// cache when fresh, otherwise from the directory.
func (c *Client) ActiveBundle(ctx context.Context, userID string) (models.PublicKeyBundle, error) {
	userID = models.NormalizeUserID(userID)
	if userID == "" {
		return models.PublicKeyBundle{}, fmt.Errorf("%w: empty user id", ErrRecipientKeyNotFound)
	}
	now := c.now()

	c.mu.Lock()
	if entry, ok := c.items[userID]; ok && now.Before(entry.expiresAt) {
		entry.lastAccess = now
		bundle := cloneBundle(entry.bundle)
		c.mu.Unlock()
		c.hits.Inc()
		return bundle, nil
	}
	c.mu.Unlock()
	c.misses.Inc()

	bundle, err := c.svc.FetchActiveBundle(ctx, userID)
	if err != nil {
		c.fetchFails.Inc()
		return models.PublicKeyBundle{}, err
	}
	if err := validateBundle(userID, bundle); err != nil {
		c.fetchFails.Inc()
		c.log.Warn("directory returned unusable bundle", privacylog.SanitizeArgs(
			"user_id", userID,
			"error", err.Error(),
		)...)
		return models.PublicKeyBundle{}, err
	}

	c.mu.Lock()
	c.insertLocked(userID, bundle, now)
	c.mu.Unlock()
	return cloneBundle(bundle), nil
}

// Publish forwards a bundle to the directory and drops any cached entry
// for that owner so the next lookup observes the new key.
func (c *Client) Publish(ctx context.Context, bundle models.PublicKeyBundle) error {
	if err := c.svc.PublishBundle(ctx, bundle); err != nil {
		return err
	}
	c.Invalidate(bundle.OwnerID)
	return nil
}

// PublishBundle implements keys.Publisher.
func (c *Client) PublishBundle(ctx context.Context, bundle models.PublicKeyBundle) error {
	return c.Publish(ctx, bundle)
}

// Invalidate removes one user's cached bundle, if present.
func (c *Client) Invalidate(userID string) {
	userID = models.NormalizeUserID(userID)
	c.mu.Lock()
	delete(c.items, userID)
	c.mu.Unlock()
}

// Len reports how many entries the cache currently holds.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Client) insertLocked(userID string, bundle models.PublicKeyBundle, now time.Time) {
	if _, ok := c.items[userID]; !ok && len(c.items) >= c.capacity {
		c.evictOldestLocked()
	}
	c.items[userID] = &cacheEntry{
		bundle:     cloneBundle(bundle),
		expiresAt:  now.Add(c.ttl),
		lastAccess: now,
	}
}

func (c *Client) evictOldestLocked() {
	oldestID := ""
	oldestAt := time.Time{}
	for id, entry := range c.items {
		if oldestID == "" || entry.lastAccess.Before(oldestAt) {
			oldestID = id
			oldestAt = entry.lastAccess
		}
	}
	if oldestID == "" {
		return
	}
	delete(c.items, oldestID)
	c.evictions.Inc()
}

func validateBundle(userID string, bundle models.PublicKeyBundle) error {
	if !bundle.IsActive {
		return fmt.Errorf("%w: bundle is not active", ErrRecipientKeyNotFound)
	}
	if models.NormalizeUserID(bundle.OwnerID) != userID {
		return fmt.Errorf("%w: bundle owner mismatch", ErrUnavailable)
	}
	if err := crypto.ValidatePublicKey(bundle.PublicKey); err != nil {
		return fmt.Errorf("directory bundle for this user: %w", err)
	}
	return nil
}

func cloneBundle(b models.PublicKeyBundle) models.PublicKeyBundle {
	out := b
	out.PublicKey = append([]byte(nil), b.PublicKey...)
	return out
}
