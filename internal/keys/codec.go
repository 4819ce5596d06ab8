package keys

import (
	"encoding/base64"
	"fmt"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
)

// Key material crosses text boundaries as standard base64: inside sealed
// keystore documents and wherever a user shares a public key out of band.
// Decoding always validates, so malformed text fails at the boundary as a
// key format error instead of surfacing mid-handshake.

// EncodePublic renders an uncompressed public point as base64 text.
func EncodePublic(publicKey []byte) (string, error) {
	if err := crypto.ValidatePublicKey(publicKey); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(publicKey), nil
}

// DecodePublic parses base64 text back into a validated public point.
func DecodePublic(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: public key text: %v", crypto.ErrKeyFormat, err)
	}
	if err := crypto.ValidatePublicKey(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// EncodePrivate renders a private scalar as base64 text.
func EncodePrivate(privateKey []byte) (string, error) {
	if len(privateKey) != crypto.PrivateKeySize {
		return "", fmt.Errorf("%w: private key size %d", crypto.ErrKeyFormat, len(privateKey))
	}
	return base64.StdEncoding.EncodeToString(privateKey), nil
}

// DecodePrivate parses base64 text back into a private scalar, rejecting
// byte strings that are not a usable P-256 scalar.
func DecodePrivate(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: private key text: %v", crypto.ErrKeyFormat, err)
	}
	if _, err := crypto.PublicKeyFor(raw); err != nil {
		return nil, err
	}
	return raw, nil
}
