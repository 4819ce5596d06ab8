package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

var (
	ErrKeyFormat      = errors.New("malformed key material")
	ErrAuthentication = errors.New("payload authentication failed")
)

const (
	// KeySize is the AES-256 key length.
	KeySize = 32
	// NonceSize is the GCM nonce length. Always random, never derived.
	NonceSize = 12
	// TagSize is the GCM authentication tag appended to ciphertext.
	TagSize = 16
)

// Seal encrypts plaintext with AES-256-GCM and returns ciphertext with the
// 16-byte tag appended. No additional authenticated data is used. The nonce
// must be freshly drawn from a secure source for every call; reuse under the
// same key voids every guarantee GCM makes.
func Seal(plaintext, key, nonce []byte) ([]byte, error) {
	aead, err := newGCM(key, nonce)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// Open authenticates and decrypts a Seal output. Tag verification failure
// returns ErrAuthentication and no plaintext, partial or otherwise.
func Open(ciphertext, key, nonce []byte) ([]byte, error) {
	aead, err := newGCM(key, nonce)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < TagSize {
		return nil, ErrAuthentication
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

func newGCM(key, nonce []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrKeyFormat
	}
	if len(nonce) != NonceSize {
		return nil, ErrKeyFormat
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrKeyFormat
	}
	return cipher.NewGCM(block)
}
