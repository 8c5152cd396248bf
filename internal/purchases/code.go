package purchases

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const (
	CodeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// NewCode returns a random redemption code of CodeLength uppercase
// alphanumerics drawn uniformly from crypto/rand.
func NewCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, CodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// ValidCode reports whether s has the shape of a redemption code.
func ValidCode(s string) bool {
	return codePattern.MatchString(s)
}
