package crypto

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Random supplies every nonce, salt, and private scalar in the subsystem from
// one OS-entropy-backed source. The reader is injectable for tests only;
// production compositions always use NewRandom.
type Random struct {
	r io.Reader
}

func NewRandom() *Random {
	return &Random{r: rand.Reader}
}

func NewRandomFromReader(r io.Reader) *Random {
	return &Random{r: r}
}

// Nonce returns a fresh 12-byte GCM nonce.
func (s *Random) Nonce() ([]byte, error) {
	return s.bytes(NonceSize)
}

// Key returns a fresh 32-byte symmetric key.
func (s *Random) Key() ([]byte, error) {
	return s.bytes(KeySize)
}

// Salt returns n random bytes for KDF salting.
func (s *Random) Salt(n int) ([]byte, error) {
	return s.bytes(n)
}

// Reader exposes the underlying entropy source for key-pair generation.
func (s *Random) Reader() io.Reader {
	return s.r
}

func (s *Random) bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(s.r, b); err != nil {
		return nil, fmt.Errorf("read entropy: %w", err)
	}
	return b, nil
}
