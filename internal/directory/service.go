package directory

import (
	"context"
	"errors"

	"github.com/kamalraji/plan-it-together-sub013/pkg/models"
)

var (
	ErrRecipientKeyNotFound = errors.New("recipient has no active public key")
	ErrUnavailable          = errors.New("key directory unavailable")
)

// Service is the remote key directory. Implementations fetch the single
// active bundle per user and accept publications of fresh bundles.
type Service interface {
	FetchActiveBundle(ctx context.Context, userID string) (models.PublicKeyBundle, error)
	PublishBundle(ctx context.Context, bundle models.PublicKeyBundle) error
}
