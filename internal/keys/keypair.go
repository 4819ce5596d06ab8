package keys

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
	"github.com/kamalraji/plan-it-together-sub013/pkg/models"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"
)

// DefaultValidity is how long a freshly minted pair stays usable before
// rotation is due.
const DefaultValidity = 365 * 24 * time.Hour

var ErrInvalidPair = errors.New("invalid key pair")

// Pair is one P-256 key agreement pair together with its lifecycle window.
// Private is the raw 32-byte scalar; callers own wiping their copies.
type Pair struct {
	Public    []byte
	Private   []byte
	KeyID     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewPair generates a fresh pair from entropy, stamped with the given
// creation time and the default validity window.
func NewPair(entropy io.Reader, createdAt time.Time) (Pair, error) {
	pub, priv, err := crypto.GenerateKeyPair(entropy)
	if err != nil {
		return Pair{}, err
	}
	id, err := BuildKeyID(pub)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		Public:    pub,
		Private:   priv,
		KeyID:     id,
		CreatedAt: createdAt.UTC(),
		ExpiresAt: createdAt.UTC().Add(DefaultValidity),
	}, nil
}

// PairFromPrivate rebuilds a pair around an existing private scalar,
// recomputing the public key and key ID.
func PairFromPrivate(private []byte, createdAt time.Time) (Pair, error) {
	pub, err := crypto.PublicKeyFor(private)
	if err != nil {
		return Pair{}, err
	}
	id, err := BuildKeyID(pub)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		Public:    pub,
		Private:   append([]byte(nil), private...),
		KeyID:     id,
		CreatedAt: createdAt.UTC(),
		ExpiresAt: createdAt.UTC().Add(DefaultValidity),
	}, nil
}

// BuildKeyID derives the public fingerprint users and servers refer to a
// key by: a prefix plus the base58 BLAKE2b digest of the public point.
func BuildKeyID(publicKey []byte) (string, error) {
	if len(publicKey) != crypto.PublicKeySize {
		return "", fmt.Errorf("%w: public key size %d", ErrInvalidPair, len(publicKey))
	}
	h := blake2b.Sum256(publicKey)
	return "pk1" + base58.Encode(h[:]), nil
}

// Valid reports whether the pair carries complete material and has not
// expired at the given instant.
func (p Pair) Valid(now time.Time) bool {
	if len(p.Public) != crypto.PublicKeySize || len(p.Private) != crypto.PrivateKeySize {
		return false
	}
	if p.KeyID == "" {
		return false
	}
	return !p.ExpiresAt.IsZero() && now.Before(p.ExpiresAt)
}

// Bundle renders the shareable half of the pair for directory publication.
func (p Pair) Bundle(ownerID string) models.PublicKeyBundle {
	return models.PublicKeyBundle{
		OwnerID:   ownerID,
		PublicKey: append([]byte(nil), p.Public...),
		KeyID:     p.KeyID,
		IsActive:  true,
		CreatedAt: p.CreatedAt,
		ExpiresAt: p.ExpiresAt,
	}
}

// Clone deep-copies the pair so callers can wipe their copy independently.
func (p Pair) Clone() Pair {
	out := p
	out.Public = append([]byte(nil), p.Public...)
	out.Private = append([]byte(nil), p.Private...)
	return out
}

// Wipe zeroes the private scalar in place.
func (p *Pair) Wipe() {
	crypto.Wipe(p.Private)
}
