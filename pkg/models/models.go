package models

import (
	"errors"
	"strings"
	"time"
)

// Scheme versions carried in persisted payloads. Version 1 marks keys derived
// through the pairwise ECDH path, version 2 marks pure-symmetric keys
// (file bodies, backups).
const (
	SchemeVersionAsymmetric = 1
	SchemeVersionSymmetric  = 2
)

const (
	NonceSize     = 12
	KeySize       = 32
	PublicKeySize = 65
)

var ErrInvalidPayload = errors.New("invalid encrypted payload")

// PublicKeyBundle is one directory entry: the active public half of a user's
// key pair as served by the hosted backend. Cached copies are read-only.
type PublicKeyBundle struct {
	OwnerID   string    `json:"user_id"`
	PublicKey []byte    `json:"public_key"`
	KeyID     string    `json:"key_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EncryptedPayload is the unit persisted by the external message store.
// The auth tag is appended to Ciphertext; AuthTag is only populated when a
// storage schema keeps the tag in a separate column.
type EncryptedPayload struct {
	Ciphertext      []byte `json:"ciphertext"`
	Nonce           []byte `json:"nonce"`
	SenderPublicKey []byte `json:"sender_public_key,omitempty"`
	SchemeVersion   int    `json:"encryption_version"`
	AuthTag         []byte `json:"auth_tag,omitempty"`
}

// Validate checks the structural invariants a payload must satisfy before any
// decryption is attempted. It does not authenticate anything.
func (p EncryptedPayload) Validate() error {
	if len(p.Ciphertext) == 0 {
		return ErrInvalidPayload
	}
	if len(p.Nonce) != NonceSize {
		return ErrInvalidPayload
	}
	switch p.SchemeVersion {
	case SchemeVersionAsymmetric:
		if len(p.SenderPublicKey) != PublicKeySize {
			return ErrInvalidPayload
		}
	case SchemeVersionSymmetric:
	default:
		return ErrInvalidPayload
	}
	return nil
}

// GroupKeyGrant is one member's wrapped copy of a shared group key. Grants for
// superseded key versions are retained, never overwritten in place.
type GroupKeyGrant struct {
	GrantID    string `json:"grant_id"`
	GroupID    string `json:"group_id"`
	MemberID   string `json:"member_id"`
	KeyVersion int    `json:"key_version"`
	EncryptedPayload
}

// EncryptedFile pairs the symmetric-encrypted file body with the wrapped
// per-file key that travelled through the pairwise message path.
type EncryptedFile struct {
	Blob       []byte           `json:"blob"`
	WrappedKey EncryptedPayload `json:"wrapped_key"`
}

// EncryptionStatus classifies a conversation's posture from a sample of its
// recent stored payloads. Derived, never persisted.
type EncryptionStatus string

const (
	StatusFullyEncrypted EncryptionStatus = "fully_encrypted"
	StatusTransportOnly  EncryptionStatus = "transport_only"
	StatusLegacy         EncryptionStatus = "legacy"
	StatusMixed          EncryptionStatus = "mixed"
	StatusAnalysisFailed EncryptionStatus = "analysis_failed"
)

// MessageRecord is the minimal view of a stored message the status analyzer
// samples from the storage collaborator.
type MessageRecord struct {
	ID              string    `json:"id"`
	Encrypted       bool      `json:"encrypted"`
	Nonce           []byte    `json:"nonce,omitempty"`
	SenderPublicKey []byte    `json:"sender_public_key,omitempty"`
	SentAt          time.Time `json:"sent_at"`
}

// HasCryptoMetadata reports whether the record carries the metadata an
// encrypted payload always has alongside its flag.
func (r MessageRecord) HasCryptoMetadata() bool {
	return len(r.Nonce) > 0 || len(r.SenderPublicKey) > 0
}

// BackupManifest is persisted server-side next to an export. It carries a
// truncated digest of the backup key, never the key itself.
type BackupManifest struct {
	BackupID          string         `json:"backup_id"`
	UserID            string         `json:"user_id"`
	EncryptionKeyHash string         `json:"encryption_key_hash"`
	Metadata          BackupMetadata `json:"metadata"`
	CreatedAt         time.Time      `json:"created_at"`
}

type BackupMetadata struct {
	EncryptionVersion int    `json:"encryption_version"`
	Algorithm         string `json:"algorithm"`
	Nonce             []byte `json:"nonce"`
	KeyDerivation     string `json:"key_derivation"`
}

// NormalizeUserID trims the identifier form accepted at package boundaries.
func NormalizeUserID(raw string) string {
	return strings.TrimSpace(raw)
}
