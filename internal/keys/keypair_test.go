package keys

import (
	"bytes"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
)

func TestNewPairShape(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	pair, err := NewPair(rand.Reader, created)
	if err != nil {
		t.Fatalf("new pair failed: %v", err)
	}
	if len(pair.Public) != crypto.PublicKeySize {
		t.Fatalf("public key length = %d", len(pair.Public))
	}
	if len(pair.Private) != crypto.PrivateKeySize {
		t.Fatalf("private key length = %d", len(pair.Private))
	}
	if !strings.HasPrefix(pair.KeyID, "pk1") {
		t.Fatalf("key id %q missing pk1 prefix", pair.KeyID)
	}
	if !pair.ExpiresAt.Equal(created.Add(DefaultValidity)) {
		t.Fatalf("expiry = %v, want created + validity", pair.ExpiresAt)
	}
	if !pair.Valid(created.Add(time.Hour)) {
		t.Fatal("fresh pair should be valid")
	}
	if pair.Valid(pair.ExpiresAt) {
		t.Fatal("pair should be invalid at its expiry instant")
	}
}

func TestBuildKeyIDDeterministic(t *testing.T) {
	a, err := NewPair(rand.Reader, time.Now())
	if err != nil {
		t.Fatalf("new pair failed: %v", err)
	}
	id1, err := BuildKeyID(a.Public)
	if err != nil {
		t.Fatalf("build key id failed: %v", err)
	}
	if id1 != a.KeyID {
		t.Fatalf("recomputed id %q != pair id %q", id1, a.KeyID)
	}

	b, err := NewPair(rand.Reader, time.Now())
	if err != nil {
		t.Fatalf("new pair failed: %v", err)
	}
	if b.KeyID == a.KeyID {
		t.Fatal("distinct keys should not share an id")
	}

	if _, err := BuildKeyID(a.Public[:10]); !errors.Is(err, ErrInvalidPair) {
		t.Fatalf("expected ErrInvalidPair for short key, got %v", err)
	}
}

func TestPairFromPrivateMatchesOriginal(t *testing.T) {
	orig, err := NewPair(rand.Reader, time.Now())
	if err != nil {
		t.Fatalf("new pair failed: %v", err)
	}
	rebuilt, err := PairFromPrivate(orig.Private, time.Now())
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if !bytes.Equal(rebuilt.Public, orig.Public) {
		t.Fatal("rebuilt public key differs")
	}
	if rebuilt.KeyID != orig.KeyID {
		t.Fatal("rebuilt key id differs")
	}
}

func TestBundleCopiesMaterial(t *testing.T) {
	pair, err := NewPair(rand.Reader, time.Now())
	if err != nil {
		t.Fatalf("new pair failed: %v", err)
	}
	bundle := pair.Bundle("usr_7")
	if bundle.OwnerID != "usr_7" || !bundle.IsActive || bundle.KeyID != pair.KeyID {
		t.Fatalf("unexpected bundle: %+v", bundle)
	}
	bundle.PublicKey[0] ^= 0xff
	if pair.Public[0] == bundle.PublicKey[0] {
		t.Fatal("bundle should hold its own copy of the public key")
	}
}

func TestCloneAndWipeAreIndependent(t *testing.T) {
	pair, err := NewPair(rand.Reader, time.Now())
	if err != nil {
		t.Fatalf("new pair failed: %v", err)
	}
	clone := pair.Clone()
	clone.Wipe()
	if bytes.Equal(clone.Private, pair.Private) {
		t.Fatal("wiping the clone should not touch the original")
	}
	for _, b := range clone.Private {
		if b != 0 {
			t.Fatal("wiped private key should be all zero")
		}
	}
}
