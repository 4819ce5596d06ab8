// Package backup derives and manages per-export encryption keys. Backup
// keys are mixed from fresh entropy and never from the long-term message
// keys, so compromising one side exposes nothing about the other.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"

	"golang.org/x/crypto/hkdf"
)

const (
	hkdfInfoBackup = "planit/backup/key/v1"
	// SeedSize is the entropy fed into each backup key derivation.
	SeedSize = 32
)

// DeriveKey stretches a random seed together with the user, backup, and
// creation instant into the 256-bit key for one export.
func DeriveKey(seed []byte, userID, backupID string, createdAt time.Time) ([]byte, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: seed size %d", crypto.ErrKeyFormat, len(seed))
	}
	info := hkdfInfoBackup + "|" + userID + "|" + backupID + "|" + strconv.FormatInt(createdAt.UTC().Unix(), 10)
	reader := hkdf.New(sha256.New, seed, nil, []byte(info))
	key := make([]byte, crypto.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// KeyHash is the integrity check stored server-side next to a backup:
// the first half of the key's SHA-256 digest, hex encoded. The key itself
// never leaves the device.
func KeyHash(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:16])
}
