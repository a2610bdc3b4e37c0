package utils // package utils provides helpers for activation tokens and admin JWTs

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA‑256 digest of activation tokens
	"encoding/hex"  // hex encoding of raw tokens and digests
	"errors"
	"fmt"
	"io"
	"regexp"
)

// ActivationTokenBytes is the number of random bytes behind an activation
// token.  32 bytes give 256 bits of entropy and render as 64 hex characters.
const ActivationTokenBytes = 32

// ErrEntropyUnavailable is returned when the random source fails.  Callers
// must abort; there is no fallback to weaker randomness.
var ErrEntropyUnavailable = errors.New("entropy source unavailable")

var tokenShape = regexp.MustCompile(`^[a-f0-9]{64}$`)

// TokenGenerator issues activation tokens.  Rand defaults to crypto/rand.
type TokenGenerator struct {
	Rand io.Reader
}

// NewTokenGenerator returns a generator backed by crypto/rand.
func NewTokenGenerator() *TokenGenerator { return &TokenGenerator{Rand: rand.Reader} }

// Issue returns a fresh raw token and its storage hash.  Only the hash is
// persisted; the raw value goes to the user once.
func (g *TokenGenerator) Issue() (raw, hash string, err error) {
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}
	buf := make([]byte, ActivationTokenBytes)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	raw = hex.EncodeToString(buf)
	return raw, HashToken(raw), nil
}

// HashToken returns the SHA‑256 hash of the raw token as a hex string.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ValidTokenFormat reports whether raw has the exact shape Issue produces:
// 64 lowercase hex characters.
func ValidTokenFormat(raw string) bool { return tokenShape.MatchString(raw) }
