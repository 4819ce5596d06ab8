package keys

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
)

func TestPublicCodecRoundTrip(t *testing.T) {
	pair, err := NewPair(rand.Reader, time.Now())
	if err != nil {
		t.Fatalf("new pair failed: %v", err)
	}
	text, err := EncodePublic(pair.Public)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	back, err := DecodePublic(text)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(back, pair.Public) {
		t.Fatal("decoded public key differs from original")
	}
}

func TestDecodePublicRejectsBadText(t *testing.T) {
	if _, err := DecodePublic("not base64 at all!"); !errors.Is(err, crypto.ErrKeyFormat) {
		t.Fatalf("garbage text must fail with ErrKeyFormat, got %v", err)
	}
	if _, err := DecodePublic("AAAA"); !errors.Is(err, crypto.ErrKeyFormat) {
		t.Fatalf("wrong-length key must fail with ErrKeyFormat, got %v", err)
	}

	junk := make([]byte, crypto.PublicKeySize)
	if _, err := rand.Read(junk); err != nil {
		t.Fatalf("rand: %v", err)
	}
	junk[0] = 0x02
	if _, err := DecodePublic(base64.StdEncoding.EncodeToString(junk)); !errors.Is(err, crypto.ErrKeyFormat) {
		t.Fatalf("compressed-prefix point must fail with ErrKeyFormat, got %v", err)
	}
}

func TestPrivateCodecRoundTrip(t *testing.T) {
	pair, err := NewPair(rand.Reader, time.Now())
	if err != nil {
		t.Fatalf("new pair failed: %v", err)
	}
	text, err := EncodePrivate(pair.Private)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	back, err := DecodePrivate(text)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(back, pair.Private) {
		t.Fatal("decoded private key differs from original")
	}
}

func TestDecodePrivateRejectsUnusableScalars(t *testing.T) {
	if _, err := EncodePrivate(make([]byte, 16)); !errors.Is(err, crypto.ErrKeyFormat) {
		t.Fatalf("short scalar must fail encode with ErrKeyFormat, got %v", err)
	}

	zero := make([]byte, crypto.PrivateKeySize)
	if _, err := DecodePrivate(base64.StdEncoding.EncodeToString(zero)); !errors.Is(err, crypto.ErrKeyFormat) {
		t.Fatalf("zero scalar must fail with ErrKeyFormat, got %v", err)
	}

	huge := bytes.Repeat([]byte{0xFF}, crypto.PrivateKeySize)
	if _, err := DecodePrivate(base64.StdEncoding.EncodeToString(huge)); !errors.Is(err, crypto.ErrKeyFormat) {
		t.Fatalf("out-of-range scalar must fail with ErrKeyFormat, got %v", err)
	}
}
