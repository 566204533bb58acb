package shortener

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/jaevor/go-nanoid"
)

const (
	// HexCodeBytes is the number of random bytes behind a generated code.
	HexCodeBytes = 3

	MaxAliasLength = 20
)

// CodeGenerator generates short codes.
type CodeGenerator func() string

// HexCodeGenerator returns a generator producing 6 lowercase hex characters
// from a cryptographically secure random source.
func HexCodeGenerator() CodeGenerator {
	return func() string {
		b := make([]byte, HexCodeBytes)
		_, _ = rand.Read(b)

		return hex.EncodeToString(b)
	}
}

// NanoidCodeGenerator returns a generator producing URL-safe nanoid codes of length characters.
func NanoidCodeGenerator(length int) (CodeGenerator, error) {
	gen, err := nanoid.Standard(length)
	if err != nil {
		return nil, fmt.Errorf("create nanoid generator: %w", err)
	}

	return gen, nil
}

// Route segments an alias would shadow.
var reservedAliases = map[string]struct{}{
	"shorten":   {},
	"info":      {},
	"delete":    {},
	"analytics": {},
	"health":    {},
	"docs":      {},
	"schemas":   {},
	"openapi":   {},
}

// ValidateAlias checks that a custom alias fits in a URL path segment.
func ValidateAlias(alias string) error {
	if len(alias) > MaxAliasLength {
		return fmt.Errorf("%w: must not exceed %d characters", ErrInvalidAlias, MaxAliasLength)
	}

	for _, c := range alias {
		if !isAliasChar(c) {
			return fmt.Errorf("%w: only letters, digits, dash and underscore are allowed", ErrInvalidAlias)
		}
	}

	if _, ok := reservedAliases[alias]; ok {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidAlias, alias)
	}

	return nil
}

func isAliasChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	default:
		return false
	}
}
