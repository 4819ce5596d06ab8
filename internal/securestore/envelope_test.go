package securestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kamalraji/plan-it-together-sub013/internal/testutil/fsperm"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("attendee roster for the spring retreat")
	sealed, err := Encrypt("correct horse", plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !strings.HasPrefix(string(sealed), filePrefix) {
		t.Fatalf("sealed data missing %q prefix", filePrefix)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Fatal("sealed data contains plaintext")
	}

	got, err := Decrypt("correct horse", sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	sealed, err := Encrypt("right", []byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt("wrong", sealed); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("want ErrAuthFailed, got %v", err)
	}
}

func TestDecryptRejectsLegacyPlaintext(t *testing.T) {
	if _, err := Decrypt("pass", []byte(`{"old":"format"}`)); !errors.Is(err, ErrLegacyData) {
		t.Fatalf("want ErrLegacyData, got %v", err)
	}
}

func TestDecryptRejectsTamperedEnvelope(t *testing.T) {
	sealed, err := Encrypt("pass", []byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(sealed[len(filePrefix):], &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	env.Ciphertext[0] ^= 0x01
	if _, err := DecryptEnvelope("pass", &env); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("tampered ciphertext: want ErrAuthFailed, got %v", err)
	}
}

func TestDecryptEnvelopeRejectsUnknownShape(t *testing.T) {
	cases := map[string]*Envelope{
		"nil":         nil,
		"bad version": {Version: 99, KDF: "argon2id"},
		"bad kdf":     {Version: envelopeVersion, KDF: "scrypt"},
		"short nonce": {Version: envelopeVersion, KDF: "argon2id", Nonce: make([]byte, 8)},
	}
	for name, env := range cases {
		if _, err := DecryptEnvelope("pass", env); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: want ErrInvalid, got %v", name, err)
		}
	}
}

func TestEnvelopeRecordsKDFParameters(t *testing.T) {
	env, err := EncryptEnvelope("pass", []byte("x"))
	if err != nil {
		t.Fatalf("EncryptEnvelope: %v", err)
	}
	if env.KDFTime != kdfTime || env.KDFMemoryKB != kdfMemoryKB || env.KDFThreads != kdfThreads {
		t.Fatalf("envelope KDF params = (%d,%d,%d)", env.KDFTime, env.KDFMemoryKB, env.KDFThreads)
	}
	if len(env.Salt) != saltSize {
		t.Fatalf("salt length = %d, want %d", len(env.Salt), saltSize)
	}
}

func TestWriteEncryptedJSONRoundTrip(t *testing.T) {
	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	path := filepath.Join(t.TempDir(), "store", "keys.enc")

	if err := WriteEncryptedJSON(path, "pass", record{Name: "alpha", Count: 3}); err != nil {
		t.Fatalf("WriteEncryptedJSON: %v", err)
	}

	fsperm.AssertPrivateDirPerm(t, filepath.Dir(path))
	fsperm.AssertPrivateFilePerm(t, path)

	var got record
	if err := ReadDecryptedJSON(path, "pass", &got); err != nil {
		t.Fatalf("ReadDecryptedJSON: %v", err)
	}
	if got.Name != "alpha" || got.Count != 3 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestWriteEncryptedJSONReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.enc")
	if err := WriteEncryptedJSON(path, "pass", map[string]int{"v": 1}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteEncryptedJSON(path, "pass", map[string]int{"v": 2}); err != nil {
		t.Fatalf("second write: %v", err)
	}
	var got map[string]int
	if err := ReadDecryptedJSON(path, "pass", &got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got["v"] != 2 {
		t.Fatalf("got v=%d, want 2", got["v"])
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("leftover temp files: %v", entries)
	}
}

func TestReadDecryptedFileMissing(t *testing.T) {
	_, err := ReadDecryptedFile(filepath.Join(t.TempDir(), "nope.enc"), "pass")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want os.ErrNotExist, got %v", err)
	}
}
