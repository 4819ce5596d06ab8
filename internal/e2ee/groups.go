package e2ee

import (
	"context"
	"errors"
	"fmt"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
	"github.com/kamalraji/plan-it-together-sub013/pkg/models"

	"github.com/google/uuid"
)

// NewGroupKey mints a fresh symmetric conversation key for a group.
func (m *Messenger) NewGroupKey() ([]byte, error) {
	return m.entropy.Key()
}

// WrapGroupKey seals the group key for one member through the pairwise
// message path, producing the grant that is delivered to that member.
func (m *Messenger) WrapGroupKey(ctx context.Context, senderID, groupID, memberID string, keyVersion int, groupKey []byte) (models.GroupKeyGrant, error) {
	if len(groupKey) != crypto.KeySize {
		return models.GroupKeyGrant{}, fmt.Errorf("%w: group key size %d", crypto.ErrKeyFormat, len(groupKey))
	}
	payload, err := m.EncryptMessage(ctx, senderID, memberID, groupKey)
	if err != nil {
		return models.GroupKeyGrant{}, err
	}
	return models.GroupKeyGrant{
		GrantID:          uuid.NewString(),
		GroupID:          groupID,
		MemberID:         memberID,
		KeyVersion:       keyVersion,
		EncryptedPayload: payload,
	}, nil
}

// WrapForMembers fans the group key out to every member. Grants for
// reachable members are returned even when some members fail; the joined
// error names what went wrong so the caller can retry just those.
func (m *Messenger) WrapForMembers(ctx context.Context, senderID, groupID string, keyVersion int, groupKey []byte, memberIDs []string) ([]models.GroupKeyGrant, error) {
	grants := make([]models.GroupKeyGrant, 0, len(memberIDs))
	var errs error
	for _, memberID := range memberIDs {
		grant, err := m.WrapGroupKey(ctx, senderID, groupID, memberID, keyVersion, groupKey)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("member %s: %w", memberID, err))
			continue
		}
		grants = append(grants, grant)
	}
	return grants, errs
}

// UnwrapGroupKey recovers the group key from a grant addressed to this
// device.
func (m *Messenger) UnwrapGroupKey(ctx context.Context, grant models.GroupKeyGrant) ([]byte, error) {
	groupKey, err := m.DecryptMessage(ctx, grant.EncryptedPayload)
	if err != nil {
		return nil, err
	}
	if len(groupKey) != crypto.KeySize {
		crypto.Wipe(groupKey)
		return nil, fmt.Errorf("%w: grant held %d bytes", crypto.ErrKeyFormat, len(groupKey))
	}
	return groupKey, nil
}

// EncryptGroupMessage seals plaintext with the shared group key. The
// payload carries no sender key: group messages are symmetric.
func (m *Messenger) EncryptGroupMessage(groupKey, plaintext []byte) (models.EncryptedPayload, error) {
	nonce, err := m.entropy.Nonce()
	if err != nil {
		return models.EncryptedPayload{}, err
	}
	ciphertext, err := crypto.Seal(plaintext, groupKey, nonce)
	if err != nil {
		return models.EncryptedPayload{}, err
	}
	return models.EncryptedPayload{
		Ciphertext:    ciphertext,
		Nonce:         nonce,
		SchemeVersion: models.SchemeVersionSymmetric,
	}, nil
}

// DecryptGroupMessage opens a symmetric payload with the group key.
func (m *Messenger) DecryptGroupMessage(groupKey []byte, payload models.EncryptedPayload) ([]byte, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if payload.SchemeVersion != models.SchemeVersionSymmetric {
		return nil, fmt.Errorf("%w: scheme %d is not a group payload", models.ErrInvalidPayload, payload.SchemeVersion)
	}
	return crypto.Open(payload.Ciphertext, groupKey, payload.Nonce)
}
