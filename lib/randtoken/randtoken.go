package randtoken

import (
	"crypto/rand"
	"fmt"
	"io"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	// SessionTokenLength is the size of the anonymous per-device identity
	SessionTokenLength = 16
	// PaymentReferenceLength is the size of a payment correlation reference
	PaymentReferenceLength = 32
)

// New returns a random token of the given length drawn from an
// alphanumeric alphabet. Tokens are correlation identifiers, not secrets.
func New(length int) (string, error) {
	buf := make([]byte, length)

	_, err := io.ReadFull(rand.Reader, buf)
	if err != nil {
		return "", fmt.Errorf("could not generate %d token bytes: %v", length, err)
	}

	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}

	return string(buf), nil
}
