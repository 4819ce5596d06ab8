package keys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
	"github.com/kamalraji/plan-it-together-sub013/internal/platform/privacylog"
	"github.com/kamalraji/plan-it-together-sub013/pkg/models"
)

var ErrLocalKeyNotFound = errors.New("no local key pair available")

// Publisher pushes the public half of a pair to the key directory.
type Publisher interface {
	PublishBundle(ctx context.Context, bundle models.PublicKeyBundle) error
}

// Manager owns the device's key agreement pairs: creation, rotation,
// archival for old-message decryption, and directory publication.
// All methods are safe for concurrent use; creation is serialized so
// concurrent first calls mint exactly one pair.
type Manager struct {
	mu      sync.Mutex
	store   *Store
	pub     Publisher
	entropy *crypto.Random
	log     *slog.Logger
	now     func() time.Time

	// cached mirrors the sealed file so steady-state reads skip the KDF.
	cached *storedState
}

func NewManager(store *Store, pub Publisher, entropy *crypto.Random, log *slog.Logger) *Manager {
	if entropy == nil {
		entropy = crypto.NewRandom()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: store, pub: pub, entropy: entropy, log: log, now: time.Now}
}

func newManagerWithClock(store *Store, pub Publisher, entropy *crypto.Random, log *slog.Logger, now func() time.Time) *Manager {
	m := NewManager(store, pub, entropy, log)
	m.now = now
	return m
}

// GetOrCreate returns the active pair, minting and publishing a fresh one
// when none exists or the current one has expired. The expired pair is
// archived, never discarded, so old messages stay readable.
func (m *Manager) GetOrCreate(ctx context.Context, userID string) (Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	state, err := m.loadLocked(now)
	if err != nil {
		return Pair{}, err
	}
	if state.Active != nil && state.Active.Valid(now) {
		if state.PendingPublish {
			m.retryPublishLocked(ctx, userID, state)
		}
		return state.Active.Clone(), nil
	}
	return m.mintLocked(ctx, userID, state, now)
}

// Rotate archives the current active pair and mints a new one regardless
// of remaining validity.
func (m *Manager) Rotate(ctx context.Context, userID string) (Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	state, err := m.loadLocked(now)
	if err != nil {
		return Pair{}, err
	}
	return m.mintLocked(ctx, userID, state, now)
}

// ImportFromRecoveryPhrase rebuilds the active pair from a recovery
// phrase, archiving whatever is currently active.
func (m *Manager) ImportFromRecoveryPhrase(ctx context.Context, userID, phrase string) (Pair, error) {
	private, err := PrivateFromPhrase(phrase)
	if err != nil {
		return Pair{}, err
	}
	defer crypto.Wipe(private)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	state, err := m.loadLocked(now)
	if err != nil {
		return Pair{}, err
	}
	pair, err := PairFromPrivate(private, now)
	if err != nil {
		return Pair{}, err
	}
	return m.installLocked(ctx, userID, state, pair)
}

// ExportRecoveryPhrase renders the active private scalar as a mnemonic
// phrase. There must be an active pair to export.
func (m *Manager) ExportRecoveryPhrase() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.loadLocked(m.now())
	if err != nil {
		return "", err
	}
	if state.Active == nil {
		return "", ErrLocalKeyNotFound
	}
	return PhraseFromPrivate(state.Active.Private)
}

// Current returns a copy of the active pair without creating one.
func (m *Manager) Current() (Pair, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.loadLocked(m.now())
	if err != nil || state.Active == nil {
		return Pair{}, false
	}
	return state.Active.Clone(), true
}

// DecryptPairs returns every pair that may have been used to receive
// messages: the active pair first, then archived pairs newest first.
func (m *Manager) DecryptPairs() ([]Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.loadLocked(m.now())
	if err != nil {
		return nil, err
	}
	if state.Active == nil && len(state.Archived) == 0 {
		return nil, ErrLocalKeyNotFound
	}
	out := make([]Pair, 0, 1+len(state.Archived))
	if state.Active != nil {
		out = append(out, state.Active.Clone())
	}
	for i := len(state.Archived) - 1; i >= 0; i-- {
		out = append(out, state.Archived[i].Clone())
	}
	return out, nil
}

// Clear wipes in-memory key material and removes the sealed store.
// Messages encrypted to the cleared keys become permanently unreadable.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil {
		if m.cached.Active != nil {
			m.cached.Active.Wipe()
		}
		for i := range m.cached.Archived {
			m.cached.Archived[i].Wipe()
		}
		m.cached = nil
	}
	return m.store.Delete()
}

func (m *Manager) loadLocked(now time.Time) (*storedState, error) {
	if m.cached != nil {
		return m.cached, nil
	}
	state, err := m.store.Load(now)
	if err != nil {
		return nil, err
	}
	m.cached = &state
	return m.cached, nil
}

func (m *Manager) mintLocked(ctx context.Context, userID string, state *storedState, now time.Time) (Pair, error) {
	pair, err := NewPair(m.entropy.Reader(), now)
	if err != nil {
		return Pair{}, fmt.Errorf("mint key pair: %w", err)
	}
	return m.installLocked(ctx, userID, state, pair)
}

// installLocked persists pair as the new active pair, then publishes it.
// Persist comes first: a pair the directory never heard of is recoverable,
// a published pair with no local private key is not.
func (m *Manager) installLocked(ctx context.Context, userID string, state *storedState, pair Pair) (Pair, error) {
	if state.Active != nil {
		state.Archived = append(state.Archived, *state.Active)
	}
	state.Active = &pair
	state.PendingPublish = true
	if err := m.store.Save(*state); err != nil {
		// Cache no longer matches disk; reload on the next call.
		m.cached = nil
		return Pair{}, err
	}
	m.log.Info("key pair installed", privacylog.SanitizeArgs(
		"user_id", userID,
		"key_id", pair.KeyID,
		"expires_at", pair.ExpiresAt,
	)...)
	m.retryPublishLocked(ctx, userID, state)
	return pair.Clone(), nil
}

// retryPublishLocked pushes the active bundle to the directory. Failure is
// not fatal: the pending flag stays set and the next call tries again.
func (m *Manager) retryPublishLocked(ctx context.Context, userID string, state *storedState) {
	if m.pub == nil || state.Active == nil {
		return
	}
	if err := m.pub.PublishBundle(ctx, state.Active.Bundle(userID)); err != nil {
		m.log.Warn("key bundle publish failed, will retry", privacylog.SanitizeArgs(
			"user_id", userID,
			"key_id", state.Active.KeyID,
			"error", err.Error(),
		)...)
		return
	}
	state.PendingPublish = false
	if err := m.store.Save(*state); err != nil {
		m.log.Warn("could not record publish confirmation", "error", err.Error())
	}
}
