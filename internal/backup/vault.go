package backup

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
	"github.com/kamalraji/plan-it-together-sub013/internal/securestore"
)

var ErrBackupKeyNotFound = errors.New("no key stored for this backup")

type vaultRecord struct {
	Key       []byte    `json:"key"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Vault keeps one derived key per backup inside a passphrase-sealed file,
// keyed by backup ID.
type Vault struct {
	mu         sync.Mutex
	path       string
	passphrase string
}

func NewVault(path, passphrase string) *Vault {
	return &Vault{path: path, passphrase: passphrase}
}

func (v *Vault) Put(backupID, userID string, key []byte, createdAt time.Time) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	records, err := v.loadLocked()
	if err != nil {
		return err
	}
	records[backupID] = vaultRecord{
		Key:       append([]byte(nil), key...),
		UserID:    userID,
		CreatedAt: createdAt.UTC(),
	}
	return securestore.WriteEncryptedJSON(v.path, v.passphrase, records)
}

func (v *Vault) Get(backupID string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	records, err := v.loadLocked()
	if err != nil {
		return nil, err
	}
	record, ok := records[backupID]
	if !ok {
		return nil, ErrBackupKeyNotFound
	}
	return append([]byte(nil), record.Key...), nil
}

// Delete forgets one backup's key. The backup becomes permanently
// unreadable.
func (v *Vault) Delete(backupID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	records, err := v.loadLocked()
	if err != nil {
		return err
	}
	record, ok := records[backupID]
	if !ok {
		return nil
	}
	crypto.Wipe(record.Key)
	delete(records, backupID)
	return securestore.WriteEncryptedJSON(v.path, v.passphrase, records)
}

// List returns the stored backup IDs in no particular order.
func (v *Vault) List() ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	records, err := v.loadLocked()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (v *Vault) loadLocked() (map[string]vaultRecord, error) {
	records := map[string]vaultRecord{}
	err := securestore.ReadDecryptedJSON(v.path, v.passphrase, &records)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load backup vault: %w", err)
	}
	return records, nil
}
