package e2ee

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/internal/keys"
	"github.com/kamalraji/plan-it-together-sub013/pkg/models"
)

type fakeSampler struct {
	records  []models.MessageRecord
	err      error
	gotLimit int
}

func (f *fakeSampler) RecentMessages(_ context.Context, _ string, limit int) ([]models.MessageRecord, error) {
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func encryptedRecords(n int) []models.MessageRecord {
	out := make([]models.MessageRecord, n)
	for i := range out {
		out[i] = models.MessageRecord{
			ID:        "msg",
			Encrypted: true,
			Nonce:     make([]byte, 12),
			SentAt:    time.Now(),
		}
	}
	return out
}

func legacyRecords(n int) []models.MessageRecord {
	out := make([]models.MessageRecord, n)
	for i := range out {
		out[i] = models.MessageRecord{ID: "msg", SentAt: time.Now()}
	}
	return out
}

func newStatusAnalyzer(t *testing.T, sampler MessageSampler, withKeys bool) *StatusAnalyzer {
	t.Helper()
	ring := &memoryRing{}
	if withKeys {
		pair, err := keys.NewPair(rand.Reader, time.Now())
		if err != nil {
			t.Fatalf("new pair: %v", err)
		}
		ring.pairs = []keys.Pair{pair}
	}
	return NewStatusAnalyzer(sampler, ring, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAnalyzeClassification(t *testing.T) {
	cases := map[string]struct {
		records []models.MessageRecord
		want    models.EncryptionStatus
	}{
		"all encrypted": {encryptedRecords(20), models.StatusFullyEncrypted},
		"none":          {legacyRecords(20), models.StatusLegacy},
		"half":          {append(encryptedRecords(10), legacyRecords(10)...), models.StatusMixed},
		"single legacy": {append(encryptedRecords(19), legacyRecords(1)...), models.StatusMixed},
	}
	for name, tc := range cases {
		sampler := &fakeSampler{records: tc.records}
		analyzer := newStatusAnalyzer(t, sampler, true)
		got, err := analyzer.Analyze(context.Background(), "conv_1")
		if err != nil {
			t.Fatalf("%s: analyze failed: %v", name, err)
		}
		if got != tc.want {
			t.Errorf("%s: status = %s, want %s", name, got, tc.want)
		}
		if sampler.gotLimit != StatusSampleSize {
			t.Errorf("%s: sampled with limit %d", name, sampler.gotLimit)
		}
	}
}

func TestAnalyzeCountsFlagWithoutMetadataAsLegacy(t *testing.T) {
	// The encrypted flag alone is not proof: without nonce or sender key
	// the message cannot actually be decrypted.
	records := []models.MessageRecord{{ID: "msg", Encrypted: true, SentAt: time.Now()}}
	analyzer := newStatusAnalyzer(t, &fakeSampler{records: records}, true)
	got, err := analyzer.Analyze(context.Background(), "conv_1")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if got != models.StatusLegacy {
		t.Fatalf("status = %s, want legacy", got)
	}
}

func TestAnalyzeEmptyConversation(t *testing.T) {
	withKeys := newStatusAnalyzer(t, &fakeSampler{}, true)
	got, err := withKeys.Analyze(context.Background(), "conv_new")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if got != models.StatusFullyEncrypted {
		t.Fatalf("with keys: status = %s, want fully encrypted", got)
	}

	withoutKeys := newStatusAnalyzer(t, &fakeSampler{}, false)
	got, err = withoutKeys.Analyze(context.Background(), "conv_new")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if got != models.StatusTransportOnly {
		t.Fatalf("without keys: status = %s, want transport only", got)
	}
}

func TestAnalyzeSamplerFailure(t *testing.T) {
	sampler := &fakeSampler{err: errors.New("store offline")}
	analyzer := newStatusAnalyzer(t, sampler, true)
	got, err := analyzer.Analyze(context.Background(), "conv_1")
	if err == nil {
		t.Fatal("expected the sampler error to propagate")
	}
	if got != models.StatusAnalysisFailed {
		t.Fatalf("status = %s, want analysis failed", got)
	}
}
