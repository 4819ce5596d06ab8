package e2ee

import (
	"context"
	"log/slog"

	"github.com/kamalraji/plan-it-together-sub013/internal/keys"
	"github.com/kamalraji/plan-it-together-sub013/internal/platform/privacylog"
	"github.com/kamalraji/plan-it-together-sub013/pkg/models"
)

// StatusSampleSize caps how many recent messages one analysis inspects.
const StatusSampleSize = 20

// MessageSampler fetches the most recent stored message records for a
// conversation, newest first, at most limit entries.
type MessageSampler interface {
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]models.MessageRecord, error)
}

// KeyPresence answers whether this device currently holds an active pair.
type KeyPresence interface {
	Current() (keys.Pair, bool)
}

// StatusAnalyzer classifies a conversation's encryption posture from a
// sample of its recent messages. The result is recomputed per query and
// never persisted.
type StatusAnalyzer struct {
	sampler MessageSampler
	ring    KeyPresence
	log     *slog.Logger
}

func NewStatusAnalyzer(sampler MessageSampler, ring KeyPresence, log *slog.Logger) *StatusAnalyzer {
	if log == nil {
		log = slog.Default()
	}
	return &StatusAnalyzer{sampler: sampler, ring: ring, log: log}
}

// Analyze inspects up to StatusSampleSize recent messages. A mixed
// conversation is always reported as mixed, never rounded up to secure.
// Sampler failures classify as analysis-failed alongside the error.
func (a *StatusAnalyzer) Analyze(ctx context.Context, conversationID string) (models.EncryptionStatus, error) {
	records, err := a.sampler.RecentMessages(ctx, conversationID, StatusSampleSize)
	if err != nil {
		a.log.Warn("conversation sample failed", privacylog.SanitizeArgs(
			"conversation_id", conversationID,
			"error", err.Error(),
		)...)
		return models.StatusAnalysisFailed, err
	}

	if len(records) == 0 {
		// Brand-new conversation: the first message will be encrypted as
		// long as keys exist, so report optimistically.
		if _, ok := a.ring.Current(); ok {
			return models.StatusFullyEncrypted, nil
		}
		return models.StatusTransportOnly, nil
	}

	encrypted := 0
	for _, record := range records {
		if record.Encrypted && record.HasCryptoMetadata() {
			encrypted++
		}
	}
	switch encrypted {
	case len(records):
		return models.StatusFullyEncrypted, nil
	case 0:
		return models.StatusLegacy, nil
	default:
		return models.StatusMixed, nil
	}
}
