package e2ee

import (
	"context"
	"fmt"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
	"github.com/kamalraji/plan-it-together-sub013/pkg/models"
)

// EncryptFile seals an attachment with a single-use file key and wraps
// that key for the recipient through the message path. The blob carries
// its nonce as a prefix so it is self-contained.
func (m *Messenger) EncryptFile(ctx context.Context, senderID, recipientID string, data []byte) (models.EncryptedFile, error) {
	fileKey, err := m.entropy.Key()
	if err != nil {
		return models.EncryptedFile{}, err
	}
	defer crypto.Wipe(fileKey)

	nonce, err := m.entropy.Nonce()
	if err != nil {
		return models.EncryptedFile{}, err
	}
	sealed, err := crypto.Seal(data, fileKey, nonce)
	if err != nil {
		return models.EncryptedFile{}, err
	}
	blob := make([]byte, 0, len(nonce)+len(sealed))
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)

	wrapped, err := m.EncryptMessage(ctx, senderID, recipientID, fileKey)
	if err != nil {
		return models.EncryptedFile{}, fmt.Errorf("wrap file key: %w", err)
	}
	return models.EncryptedFile{Blob: blob, WrappedKey: wrapped}, nil
}

// DecryptFile unwraps the file key with local pairs and opens the blob.
func (m *Messenger) DecryptFile(ctx context.Context, file models.EncryptedFile) ([]byte, error) {
	if len(file.Blob) < crypto.NonceSize+crypto.TagSize {
		return nil, fmt.Errorf("%w: blob too short", models.ErrInvalidPayload)
	}
	fileKey, err := m.DecryptMessage(ctx, file.WrappedKey)
	if err != nil {
		return nil, fmt.Errorf("unwrap file key: %w", err)
	}
	defer crypto.Wipe(fileKey)

	nonce := file.Blob[:crypto.NonceSize]
	return crypto.Open(file.Blob[crypto.NonceSize:], fileKey, nonce)
}
