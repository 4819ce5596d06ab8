package backup

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
	"github.com/kamalraji/plan-it-together-sub013/internal/platform/privacylog"
	"github.com/kamalraji/plan-it-together-sub013/pkg/models"

	"github.com/google/uuid"
)

var ErrKeyMismatch = errors.New("backup key does not match its manifest")

// Service produces encrypted exports and restores them. Every export gets
// its own derived key; the manifest carries a truncated key digest so a
// restore can detect the wrong key before touching any ciphertext.
type Service struct {
	vault   *Vault
	entropy *crypto.Random
	log     *slog.Logger
	now     func() time.Time
}

func NewService(vault *Vault, entropy *crypto.Random, log *slog.Logger) *Service {
	if entropy == nil {
		entropy = crypto.NewRandom()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{vault: vault, entropy: entropy, log: log, now: time.Now}
}

// Export seals payload under a fresh backup key. The returned blob is the
// ciphertext; the nonce and derivation details ride in the manifest.
func (s *Service) Export(userID string, payload []byte) (blob []byte, manifest models.BackupManifest, err error) {
	backupID := uuid.NewString()
	createdAt := s.now().UTC()

	seed, err := s.entropy.Salt(SeedSize)
	if err != nil {
		return nil, models.BackupManifest{}, err
	}
	defer crypto.Wipe(seed)

	key, err := DeriveKey(seed, userID, backupID, createdAt)
	if err != nil {
		return nil, models.BackupManifest{}, err
	}
	defer crypto.Wipe(key)

	nonce, err := s.entropy.Nonce()
	if err != nil {
		return nil, models.BackupManifest{}, err
	}
	blob, err = crypto.Seal(payload, key, nonce)
	if err != nil {
		return nil, models.BackupManifest{}, err
	}

	if err := s.vault.Put(backupID, userID, key, createdAt); err != nil {
		return nil, models.BackupManifest{}, fmt.Errorf("store backup key: %w", err)
	}

	manifest = models.BackupManifest{
		BackupID:          backupID,
		UserID:            userID,
		EncryptionKeyHash: KeyHash(key),
		Metadata: models.BackupMetadata{
			EncryptionVersion: models.SchemeVersionSymmetric,
			Algorithm:         "AES-256-GCM",
			Nonce:             nonce,
			KeyDerivation:     "HKDF-SHA256",
		},
		CreatedAt: createdAt,
	}
	s.log.Info("backup exported", privacylog.SanitizeArgs(
		"user_id", userID,
		"backup_id", backupID,
		"size", len(blob),
	)...)
	return blob, manifest, nil
}

// Restore opens a backup blob. The stored key's digest is compared to the
// manifest first; on mismatch the restore aborts with ErrKeyMismatch and
// no decryption is attempted.
func (s *Service) Restore(manifest models.BackupManifest, blob []byte) ([]byte, error) {
	key, err := s.vault.Get(manifest.BackupID)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)

	if KeyHash(key) != manifest.EncryptionKeyHash {
		s.log.Warn("backup key mismatch", privacylog.SanitizeArgs(
			"backup_id", manifest.BackupID,
		)...)
		return nil, ErrKeyMismatch
	}
	plaintext, err := crypto.Open(blob, key, manifest.Metadata.Nonce)
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}

// VerifyKey checks the stored key against the manifest digest without
// decrypting anything.
func (s *Service) VerifyKey(manifest models.BackupManifest) error {
	key, err := s.vault.Get(manifest.BackupID)
	if err != nil {
		return err
	}
	defer crypto.Wipe(key)
	if KeyHash(key) != manifest.EncryptionKeyHash {
		return ErrKeyMismatch
	}
	return nil
}

// Forget discards a backup's key from the vault.
func (s *Service) Forget(backupID string) error {
	return s.vault.Delete(backupID)
}

// List reports the backup IDs whose keys the vault still holds, sorted for
// stable output. Only these backups are restorable from this device.
func (s *Service) List() ([]string, error) {
	ids, err := s.vault.List()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}
