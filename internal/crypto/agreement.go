package crypto

import (
	"crypto/ecdh"
	"crypto/sha256"
	"fmt"
	"io"
)

// Key agreement runs over NIST P-256. Public keys travel as 65-byte
// uncompressed points (0x04 || X || Y), private keys as 32-byte scalars.
const (
	PublicKeySize  = 65
	PrivateKeySize = 32
)

func curve() ecdh.Curve { return ecdh.P256() }

// GenerateKeyPair draws a fresh P-256 key pair from r and returns both halves
// in their byte encodings.
func GenerateKeyPair(r io.Reader) (publicKey, privateKey []byte, err error) {
	priv, err := curve().GenerateKey(r)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key pair: %w", err)
	}
	return priv.PublicKey().Bytes(), priv.Bytes(), nil
}

// PublicKeyFor recovers the uncompressed public point for a private scalar.
func PublicKeyFor(privateKey []byte) ([]byte, error) {
	priv, err := parsePrivate(privateKey)
	if err != nil {
		return nil, err
	}
	return priv.PublicKey().Bytes(), nil
}

// SharedKey performs ECDH between a local private scalar and a remote public
// point and hashes the resulting x-coordinate into the 32-byte symmetric key.
// The intermediate secret is wiped before return. ErrKeyFormat covers any
// input that is not a validly encoded point or scalar on the curve.
func SharedKey(localPrivate, remotePublic []byte) ([]byte, error) {
	priv, err := parsePrivate(localPrivate)
	if err != nil {
		return nil, err
	}
	pub, err := parsePublic(remotePublic)
	if err != nil {
		return nil, err
	}
	// Fixed-width big-endian x-coordinate of the shared point.
	secret, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}
	key := sha256.Sum256(secret)
	Wipe(secret)
	return key[:], nil
}

// WithSharedKey derives the pairwise key, hands it to f, and wipes it on every
// exit path including panics and errors from f.
func WithSharedKey(localPrivate, remotePublic []byte, f func(key []byte) error) error {
	key, err := SharedKey(localPrivate, remotePublic)
	if err != nil {
		return err
	}
	defer Wipe(key)
	return f(key)
}

// ValidatePublicKey reports whether encoded is a well-formed point on the
// agreement curve.
func ValidatePublicKey(encoded []byte) error {
	_, err := parsePublic(encoded)
	return err
}

func parsePrivate(encoded []byte) (*ecdh.PrivateKey, error) {
	if len(encoded) != PrivateKeySize {
		return nil, ErrKeyFormat
	}
	priv, err := curve().NewPrivateKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}
	return priv, nil
}

func parsePublic(encoded []byte) (*ecdh.PublicKey, error) {
	if len(encoded) != PublicKeySize {
		return nil, ErrKeyFormat
	}
	pub, err := curve().NewPublicKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}
	return pub, nil
}
