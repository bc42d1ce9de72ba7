// Package joincode generates the short tokens that gate room access.
package joincode

import (
	"context"
	"crypto/rand"
	"fmt"
)

// Alphabet excludes visually ambiguous symbols (0/O, 1/I): 32 symbols,
// so the code space is 32^6 ≈ 1.07e9.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length of every join code.
const Length = 6

const maxAttempts = 10

// ExistsFunc reports whether a code is already assigned to a room.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// New returns a random Length-character code drawn from Alphabet.
func New() (string, error) {
	b := make([]byte, Length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	for i := range b {
		// len(Alphabet) is 32, a power of two, so the modulo is unbiased.
		b[i] = Alphabet[int(b[i])%len(Alphabet)]
	}
	return string(b), nil
}

// Unique generates a code not currently assigned to any room, regenerating
// on collision. The exists check races with concurrent creators; the
// registry's uniqueness constraint is the authoritative guard and an
// insert-time conflict is surfaced by the caller as retryable.
func Unique(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := New()
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check join code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("generate unique join code: gave up after %d attempts", maxAttempts)
}
