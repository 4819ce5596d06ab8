package keys

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"

	"github.com/tyler-smith/go-bip39"
)

var ErrInvalidPhrase = errors.New("invalid recovery phrase")

// PhraseFromPrivate encodes a private scalar as a 24-word mnemonic.
// The phrase IS the key: anyone holding it can read the user's messages.
func PhraseFromPrivate(private []byte) (string, error) {
	if len(private) != crypto.PrivateKeySize {
		return "", fmt.Errorf("%w: scalar size %d", ErrInvalidPair, len(private))
	}
	phrase, err := bip39.NewMnemonic(private)
	if err != nil {
		return "", fmt.Errorf("encode recovery phrase: %w", err)
	}
	return phrase, nil
}

// PrivateFromPhrase decodes a mnemonic back into the private scalar and
// checks that it is a usable curve scalar.
func PrivateFromPhrase(phrase string) ([]byte, error) {
	phrase = strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
	if phrase == "" {
		return nil, ErrInvalidPhrase
	}
	if !bip39.IsMnemonicValid(phrase) {
		return nil, ErrInvalidPhrase
	}
	entropy, err := bip39.EntropyFromMnemonic(phrase)
	if err != nil {
		return nil, ErrInvalidPhrase
	}
	if len(entropy) != crypto.PrivateKeySize {
		return nil, fmt.Errorf("%w: expected a 24-word phrase", ErrInvalidPhrase)
	}
	if _, err := crypto.PublicKeyFor(entropy); err != nil {
		return nil, fmt.Errorf("%w: not a valid key scalar", ErrInvalidPhrase)
	}
	return entropy, nil
}

// ValidatePhrase reports whether a phrase is well formed without
// reconstructing the key.
func ValidatePhrase(phrase string) bool {
	return bip39.IsMnemonicValid(strings.Join(strings.Fields(strings.ToLower(phrase)), " "))
}
