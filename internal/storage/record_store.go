// Package storage keeps per-conversation message records on disk so the
// status analyzer has something to sample. Records hold transport metadata
// only; plaintext never reaches this package.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kamalraji/plan-it-together-sub013/internal/securestore"
	"github.com/kamalraji/plan-it-together-sub013/pkg/models"
)

var ErrRecordConflict = errors.New("message record id conflict")

// RecordStore is an optionally persistent store of message records grouped
// by conversation. With a path and passphrase the snapshot is sealed at
// rest; with neither it is purely in memory.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string][]models.MessageRecord
	path    string
	secret  string
}

func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string][]models.MessageRecord)}
}

func NewEncryptedRecordStore(path, passphrase string) (*RecordStore, error) {
	s := &RecordStore{
		records: make(map[string][]models.MessageRecord),
		path:    path,
		secret:  passphrase,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Append stores one record under the conversation. Re-appending an identical
// record is a no-op; the same ID with different content is a conflict.
func (s *RecordStore) Append(conversationID string, rec models.MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records[conversationID] {
		if existing.ID != rec.ID {
			continue
		}
		if recordsEqual(existing, rec) {
			return nil
		}
		return ErrRecordConflict
	}
	next := cloneRecordsMap(s.records)
	next[conversationID] = append(next[conversationID], rec)
	if err := s.persistSnapshotLocked(next); err != nil {
		return err
	}
	s.records = next
	return nil
}

// RecentMessages returns up to limit records for the conversation, newest
// first. It satisfies the sampler contract of the status analyzer.
func (s *RecordStore) RecentMessages(_ context.Context, conversationID string, limit int) ([]models.MessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := append([]models.MessageRecord(nil), s.records[conversationID]...)
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].SentAt.After(recs[j].SentAt)
	})
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	return recs, nil
}

func (s *RecordStore) Count(conversationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[conversationID])
}

func (s *RecordStore) Conversations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.records))
	for id := range s.records {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ClearConversation drops every record for the conversation. It reports how
// many records were removed.
func (s *RecordStore) ClearConversation(conversationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := len(s.records[conversationID])
	if dropped == 0 {
		return 0, nil
	}
	next := cloneRecordsMap(s.records)
	delete(next, conversationID)
	if err := s.persistSnapshotLocked(next); err != nil {
		return 0, err
	}
	s.records = next
	return dropped, nil
}

func (s *RecordStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	decoded := data
	if s.secret != "" {
		decoded, err = securestore.Decrypt(s.secret, data)
		if err != nil {
			// Snapshots written before at-rest sealing are plain JSON.
			if errors.Is(err, securestore.ErrLegacyData) {
				decoded = data
			} else {
				return err
			}
		}
	}
	var snapshot struct {
		Records map[string][]models.MessageRecord `json:"records"`
	}
	if err := json.Unmarshal(decoded, &snapshot); err != nil {
		return err
	}
	if snapshot.Records != nil {
		s.records = snapshot.Records
	}
	return nil
}

func (s *RecordStore) persistSnapshotLocked(records map[string][]models.MessageRecord) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	snapshot := struct {
		Records map[string][]models.MessageRecord `json:"records"`
	}{Records: records}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if s.secret != "" {
		data, err = securestore.Encrypt(s.secret, data)
		if err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0o600)
}

func cloneRecordsMap(in map[string][]models.MessageRecord) map[string][]models.MessageRecord {
	out := make(map[string][]models.MessageRecord, len(in))
	for k, v := range in {
		out[k] = append([]models.MessageRecord(nil), v...)
	}
	return out
}

func recordsEqual(a, b models.MessageRecord) bool {
	return a.ID == b.ID &&
		a.Encrypted == b.Encrypted &&
		bytes.Equal(a.Nonce, b.Nonce) &&
		bytes.Equal(a.SenderPublicKey, b.SenderPublicKey) &&
		a.SentAt.Equal(b.SentAt)
}
