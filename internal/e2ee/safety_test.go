package e2ee

import (
	"bytes"
	"crypto/rand"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
	"github.com/kamalraji/plan-it-together-sub013/internal/keys"
)

var safetyNumberPattern = regexp.MustCompile(`^\d{5}( \d{5}){11}$`)

func twoPublicKeys(t *testing.T) ([]byte, []byte) {
	t.Helper()
	a, err := keys.NewPair(rand.Reader, time.Now())
	if err != nil {
		t.Fatalf("pair a: %v", err)
	}
	b, err := keys.NewPair(rand.Reader, time.Now())
	if err != nil {
		t.Fatalf("pair b: %v", err)
	}
	return a.Public, b.Public
}

func TestSafetyNumberSymmetry(t *testing.T) {
	mine, theirs := twoPublicKeys(t)

	fromMine, err := GenerateSafetyNumber(mine, theirs)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	fromTheirs, err := GenerateSafetyNumber(theirs, mine)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if fromMine != fromTheirs {
		t.Fatalf("safety numbers differ by direction:\n%s\n%s", fromMine, fromTheirs)
	}
	if !safetyNumberPattern.MatchString(fromMine) {
		t.Fatalf("unexpected format: %q", fromMine)
	}
}

func TestSafetyNumberDistinguishesKeys(t *testing.T) {
	mine, theirs := twoPublicKeys(t)
	_, other := twoPublicKeys(t)

	original, err := GenerateSafetyNumber(mine, theirs)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	substituted, err := GenerateSafetyNumber(mine, other)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if original == substituted {
		t.Fatal("substituted key produced the same safety number")
	}
}

func TestSafetyNumberRejectsBadKeys(t *testing.T) {
	mine, theirs := twoPublicKeys(t)
	if _, err := GenerateSafetyNumber(mine[:30], theirs); err == nil {
		t.Fatal("expected error for truncated local key")
	}
	if _, err := GenerateSafetyNumber(mine, nil); err == nil {
		t.Fatal("expected error for missing remote key")
	}
}

func TestFormatSafetyNumberRowsOfFour(t *testing.T) {
	mine, theirs := twoPublicKeys(t)
	number, err := GenerateSafetyNumber(mine, theirs)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	block := FormatSafetyNumber(number)
	rows := strings.Split(block, "\n")
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3:\n%s", len(rows), block)
	}
	for i, row := range rows {
		if groups := strings.Fields(row); len(groups) != 4 {
			t.Fatalf("row %d has %d groups, want 4: %q", i, len(groups), row)
		}
	}
	if strings.Join(strings.Fields(block), " ") != number {
		t.Fatalf("formatting altered the digits:\n%s", block)
	}
}

func TestMatchesSafetyNumberNormalizesWhitespace(t *testing.T) {
	mine, theirs := twoPublicKeys(t)
	number, err := GenerateSafetyNumber(mine, theirs)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	sloppy := "  " + number[:17] + "\n  " + number[18:] + " "
	ok, err := MatchesSafetyNumber(mine, theirs, sloppy)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if !ok {
		t.Fatal("whitespace variations should still match")
	}

	ok, err = MatchesSafetyNumber(mine, theirs, number[:len(number)-1]+"0")
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if ok && number[len(number)-1] != '0' {
		t.Fatal("altered digits should not match")
	}
}

func TestLessConstantTimeAgreesWithBytesCompare(t *testing.T) {
	for i := 0; i < 2000; i++ {
		a := make([]byte, crypto.PublicKeySize)
		b := make([]byte, crypto.PublicKeySize)
		if _, err := rand.Read(a); err != nil {
			t.Fatalf("rand: %v", err)
		}
		if _, err := rand.Read(b); err != nil {
			t.Fatalf("rand: %v", err)
		}
		if got, want := lessConstantTime(a, b), bytes.Compare(a, b) < 0; got != want {
			t.Fatalf("disagreement on pair %x / %x", a, b)
		}
	}
	same := []byte{1, 2, 3}
	if lessConstantTime(same, same) {
		t.Fatal("a value is not less than itself")
	}
}
