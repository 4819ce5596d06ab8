package keys

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/internal/platform/ratelimiter"
	"github.com/kamalraji/plan-it-together-sub013/internal/securestore"
)

var (
	ErrUnlockThrottled = errors.New("keystore unlock attempts are throttled")
	ErrBadPassphrase   = errors.New("keystore passphrase is wrong")
)

// storedState is the single sealed document on disk, in memory form.
// Active and archived pairs travel together so a load either yields the
// whole key history or nothing.
type storedState struct {
	Active   *Pair
	Archived []Pair
	// PendingPublish marks an active pair the directory has not confirmed
	// yet, so publication is retried on the next use.
	PendingPublish bool
}

// storedPair is the on-disk form of a Pair. Key bytes travel as codec
// base64 text, so a corrupted document fails key format validation on
// load instead of handing malformed material downstream.
type storedPair struct {
	PublicKey  string    `json:"public_key"`
	PrivateKey string    `json:"private_key"`
	KeyID      string    `json:"key_id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type storedDocument struct {
	Active         *storedPair  `json:"active,omitempty"`
	Archived       []storedPair `json:"archived,omitempty"`
	PendingPublish bool         `json:"pending_publish,omitempty"`
}

func encodeStoredPair(p Pair) (storedPair, error) {
	pub, err := EncodePublic(p.Public)
	if err != nil {
		return storedPair{}, err
	}
	priv, err := EncodePrivate(p.Private)
	if err != nil {
		return storedPair{}, err
	}
	return storedPair{
		PublicKey:  pub,
		PrivateKey: priv,
		KeyID:      p.KeyID,
		CreatedAt:  p.CreatedAt,
		ExpiresAt:  p.ExpiresAt,
	}, nil
}

func decodeStoredPair(sp storedPair) (Pair, error) {
	pub, err := DecodePublic(sp.PublicKey)
	if err != nil {
		return Pair{}, err
	}
	priv, err := DecodePrivate(sp.PrivateKey)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		Public:    pub,
		Private:   priv,
		KeyID:     sp.KeyID,
		CreatedAt: sp.CreatedAt,
		ExpiresAt: sp.ExpiresAt,
	}, nil
}

func encodeDocument(state storedState) (storedDocument, error) {
	doc := storedDocument{PendingPublish: state.PendingPublish}
	if state.Active != nil {
		sp, err := encodeStoredPair(*state.Active)
		if err != nil {
			return storedDocument{}, err
		}
		doc.Active = &sp
	}
	for _, p := range state.Archived {
		sp, err := encodeStoredPair(p)
		if err != nil {
			return storedDocument{}, err
		}
		doc.Archived = append(doc.Archived, sp)
	}
	return doc, nil
}

func decodeDocument(doc storedDocument) (storedState, error) {
	state := storedState{PendingPublish: doc.PendingPublish}
	if doc.Active != nil {
		p, err := decodeStoredPair(*doc.Active)
		if err != nil {
			return storedState{}, fmt.Errorf("active pair: %w", err)
		}
		state.Active = &p
	}
	for i, sp := range doc.Archived {
		p, err := decodeStoredPair(sp)
		if err != nil {
			return storedState{}, fmt.Errorf("archived pair %d: %w", i, err)
		}
		state.Archived = append(state.Archived, p)
	}
	return state, nil
}

// Store persists key pairs inside a passphrase-sealed envelope file.
// Unlock attempts are throttled per store path to slow down guessing.
type Store struct {
	path       string
	passphrase string
	throttle   *ratelimiter.MapLimiter
}

func NewStore(path, passphrase string, throttle *ratelimiter.MapLimiter) *Store {
	return &Store{path: path, passphrase: passphrase, throttle: throttle}
}

// Load reads the sealed state. A missing file is not an error: it returns
// an empty state, meaning no keys exist yet.
func (s *Store) Load(now time.Time) (storedState, error) {
	if ok, retry := s.throttle.AllowWithRetry(s.path, now); !ok {
		return storedState{}, fmt.Errorf("%w: retry in %s", ErrUnlockThrottled, retry.Round(time.Millisecond))
	}
	var doc storedDocument
	err := securestore.ReadDecryptedJSON(s.path, s.passphrase, &doc)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		return storedState{}, nil
	case errors.Is(err, securestore.ErrAuthFailed):
		return storedState{}, fmt.Errorf("unlock %s: %w", s.path, ErrBadPassphrase)
	default:
		return storedState{}, fmt.Errorf("load keystore: %w", err)
	}
	state, err := decodeDocument(doc)
	if err != nil {
		return storedState{}, fmt.Errorf("load keystore: %w", err)
	}
	return state, nil
}

// Save seals and writes the whole state. The underlying write is atomic,
// so readers never observe a partially rotated keystore.
func (s *Store) Save(state storedState) error {
	doc, err := encodeDocument(state)
	if err != nil {
		return fmt.Errorf("save keystore: %w", err)
	}
	if err := securestore.WriteEncryptedJSON(s.path, s.passphrase, doc); err != nil {
		return fmt.Errorf("save keystore: %w", err)
	}
	return nil
}

// Delete removes the sealed file. Missing files are fine: the post state
// is the same either way.
func (s *Store) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete keystore: %w", err)
	}
	return nil
}

func (s *Store) Path() string { return s.path }
