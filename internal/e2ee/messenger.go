// Package e2ee is the end-to-end encryption facade the rest of the client
// talks to. It glues key management, the recipient directory, and the
// cipher primitives into whole-message operations; nothing outside this
// package handles shared keys directly.
package e2ee

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
	"github.com/kamalraji/plan-it-together-sub013/internal/keys"
	"github.com/kamalraji/plan-it-together-sub013/internal/platform/privacylog"
	"github.com/kamalraji/plan-it-together-sub013/pkg/models"
)

// KeyRing is the slice of the key manager the facade depends on.
type KeyRing interface {
	GetOrCreate(ctx context.Context, userID string) (keys.Pair, error)
	DecryptPairs() ([]keys.Pair, error)
}

// Directory resolves recipients to their active public key bundles.
type Directory interface {
	ActiveBundle(ctx context.Context, userID string) (models.PublicKeyBundle, error)
}

type Messenger struct {
	ring    KeyRing
	dir     Directory
	entropy *crypto.Random
	log     *slog.Logger
}

func NewMessenger(ring KeyRing, dir Directory, entropy *crypto.Random, log *slog.Logger) *Messenger {
	if entropy == nil {
		entropy = crypto.NewRandom()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Messenger{ring: ring, dir: dir, entropy: entropy, log: log}
}

// EncryptMessage seals plaintext for one recipient. The sender's key pair
// is minted on first use; the recipient must have published an active key.
func (m *Messenger) EncryptMessage(ctx context.Context, senderID, recipientID string, plaintext []byte) (models.EncryptedPayload, error) {
	bundle, err := m.dir.ActiveBundle(ctx, recipientID)
	if err != nil {
		return models.EncryptedPayload{}, err
	}
	pair, err := m.ring.GetOrCreate(ctx, senderID)
	if err != nil {
		return models.EncryptedPayload{}, err
	}
	defer pair.Wipe()

	payload, err := m.sealTo(pair, bundle.PublicKey, plaintext)
	if err != nil {
		return models.EncryptedPayload{}, err
	}
	m.log.Debug("message sealed", privacylog.SanitizeArgs(
		"sender_id", senderID,
		"recipient_id", recipientID,
		"key_id", bundle.KeyID,
	)...)
	return payload, nil
}

// DecryptMessage opens a payload addressed to this device. Every local
// pair is tried, active first, so messages sealed against a rotated key
// stay readable. A payload that no pair opens fails authentication.
func (m *Messenger) DecryptMessage(ctx context.Context, payload models.EncryptedPayload) ([]byte, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if payload.SchemeVersion != models.SchemeVersionAsymmetric {
		return nil, fmt.Errorf("%w: scheme %d needs a conversation key", models.ErrInvalidPayload, payload.SchemeVersion)
	}

	pairs, err := m.ring.DecryptPairs()
	if err != nil {
		return nil, err
	}
	defer func() {
		for i := range pairs {
			pairs[i].Wipe()
		}
	}()

	for i := range pairs {
		var plaintext []byte
		err := crypto.WithSharedKey(pairs[i].Private, payload.SenderPublicKey, func(key []byte) error {
			var openErr error
			plaintext, openErr = crypto.Open(payload.Ciphertext, key, payload.Nonce)
			return openErr
		})
		if err == nil {
			return plaintext, nil
		}
	}
	return nil, crypto.ErrAuthentication
}

// sealTo derives the pairwise key and seals plaintext with a fresh nonce,
// embedding the sender's public half so the peer can derive the same key.
func (m *Messenger) sealTo(pair keys.Pair, recipientPublic, plaintext []byte) (models.EncryptedPayload, error) {
	nonce, err := m.entropy.Nonce()
	if err != nil {
		return models.EncryptedPayload{}, err
	}
	var ciphertext []byte
	err = crypto.WithSharedKey(pair.Private, recipientPublic, func(key []byte) error {
		var sealErr error
		ciphertext, sealErr = crypto.Seal(plaintext, key, nonce)
		return sealErr
	})
	if err != nil {
		return models.EncryptedPayload{}, err
	}
	return models.EncryptedPayload{
		Ciphertext:      ciphertext,
		Nonce:           nonce,
		SenderPublicKey: append([]byte(nil), pair.Public...),
		SchemeVersion:   models.SchemeVersionAsymmetric,
	}, nil
}
