package securestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReadDecryptedFile loads path and unseals it with passphrase.
// Missing files surface as os.ErrNotExist so callers can distinguish
// "nothing stored yet" from a bad passphrase.
func ReadDecryptedFile(path, passphrase string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decrypt(passphrase, raw)
}

// ReadDecryptedJSON unseals path and unmarshals the plaintext into v.
func ReadDecryptedJSON(path, passphrase string, v any) error {
	plaintext, err := ReadDecryptedFile(path, passphrase)
	if err != nil {
		return err
	}
	defer zeroBytes(plaintext)
	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), ErrInvalid)
	}
	return nil
}

// WriteEncryptedJSON marshals v, seals it, and writes it atomically:
// a temp file in the same directory is renamed over path only after a
// full write, so a crash never leaves a half-written store behind.
func WriteEncryptedJSON(path, passphrase string, v any) error {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return err
	}
	defer zeroBytes(plaintext)

	sealed, err := Encrypt(passphrase, plaintext)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
