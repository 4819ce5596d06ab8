package e2ee

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
)

const safetyNumberGroups = 12

// GenerateSafetyNumber derives the fingerprint two users compare out of
// band to verify each other's keys. The keys are ordered, concatenated,
// hashed, and rendered as twelve zero-padded 5-digit groups. Both devices
// compute the identical string regardless of which key is local.
func GenerateSafetyNumber(localPublic, remotePublic []byte) (string, error) {
	if err := crypto.ValidatePublicKey(localPublic); err != nil {
		return "", fmt.Errorf("local key: %w", err)
	}
	if err := crypto.ValidatePublicKey(remotePublic); err != nil {
		return "", fmt.Errorf("remote key: %w", err)
	}

	first, second := localPublic, remotePublic
	if !lessConstantTime(first, second) {
		first, second = second, first
	}
	h := sha256.New()
	h.Write(first)
	h.Write(second)
	digest := h.Sum(nil)

	groups := make([]string, 0, safetyNumberGroups)
	for i := 0; i < safetyNumberGroups; i++ {
		window := binary.BigEndian.Uint16(digest[2*i : 2*i+2])
		groups = append(groups, fmt.Sprintf("%05d", uint32(window)%100000))
	}
	return strings.Join(groups, " "), nil
}

// FormatSafetyNumber lays a generated safety number out in three rows of
// four groups, the shape clients display on the verification screen.
func FormatSafetyNumber(number string) string {
	groups := strings.Fields(number)
	var b strings.Builder
	for i, group := range groups {
		b.WriteString(group)
		switch {
		case i == len(groups)-1:
		case i%4 == 3:
			b.WriteByte('\n')
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// MatchesSafetyNumber checks a number the user read off the peer's screen
// against the locally derived one, ignoring whitespace differences.
func MatchesSafetyNumber(localPublic, remotePublic []byte, candidate string) (bool, error) {
	derived, err := GenerateSafetyNumber(localPublic, remotePublic)
	if err != nil {
		return false, err
	}
	normalize := func(s string) string { return strings.Join(strings.Fields(s), " ") }
	return normalize(candidate) == derived, nil
}

// lessConstantTime reports a < b lexicographically without data-dependent
// branches. Timing stays flat across key values so the ordering step
// leaks nothing about either key.
func lessConstantTime(a, b []byte) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var lt, gt byte
	for i := 0; i < n; i++ {
		x, y := uint16(a[i]), uint16(b[i])
		xLess := byte((x - y) >> 8 & 1)
		yLess := byte((y - x) >> 8 & 1)
		undecided := ((lt | gt) ^ 1) & 1
		lt |= undecided & xLess
		gt |= undecided & yLess
	}
	if lt == gt {
		return len(a) < len(b)
	}
	return lt == 1
}
