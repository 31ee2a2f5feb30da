// Package fairness implements the provably-fair randomness primitive.
//
// Every random draw is a deterministic function of a server seed, a client
// seed and an incrementing nonce. The server publishes a commitment (the
// SHA-256 of the server seed) before the seed is used and reveals the seed
// afterwards, so any client can re-derive the full draw sequence and verify
// that no outcome was altered after the fact.
package fairness

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// unitPrefixLen is the number of hex characters of the digest interpreted as
// an unsigned integer when mapping to [0,1). 13 hex chars = 52 bits, which
// fits exactly in a float64 mantissa.
const unitPrefixLen = 13

// unitDivisor is 16^unitPrefixLen.
const unitDivisor = float64(1 << (4 * unitPrefixLen))

// NewServerSeed returns a fresh 32-byte server seed, hex-encoded, generated
// with cryptographically strong randomness.
func NewServerSeed() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate server seed: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

// DeriveDigest computes the hex digest for one draw. Identical inputs always
// yield identical outputs.
func DeriveDigest(serverSeed, clientSeed string, nonce uint64) string {
	h := sha256.New()
	h.Write([]byte(serverSeed))
	h.Write([]byte(":"))
	h.Write([]byte(clientSeed))
	h.Write([]byte(":"))
	h.Write([]byte(strconv.FormatUint(nonce, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// UnitFloat maps a digest to [0,1) by interpreting a fixed-width prefix as an
// unsigned integer and dividing by its maximum value.
func UnitFloat(digest string) (float64, error) {
	if len(digest) < unitPrefixLen {
		return 0, fmt.Errorf("digest too short: %d chars", len(digest))
	}
	v, err := strconv.ParseUint(digest[:unitPrefixLen], 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse digest prefix: %w", err)
	}
	return float64(v) / unitDivisor, nil
}

// Commitment returns the value the server publishes before using a seed.
func Commitment(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether a revealed server seed matches a previously
// published commitment.
func Verify(commitment, revealedSeed string) bool {
	return Commitment(revealedSeed) == commitment
}

// Stream is a deterministic sequence of unit-interval draws. The nonce
// increments once per draw so no digest is reused within a hand.
type Stream struct {
	serverSeed string
	clientSeed string
	nonce      uint64
}

// NewStream creates a draw stream starting at the given nonce.
func NewStream(serverSeed, clientSeed string, startNonce uint64) *Stream {
	return &Stream{serverSeed: serverSeed, clientSeed: clientSeed, nonce: startNonce}
}

// Next returns the next draw in [0,1) and advances the nonce.
func (s *Stream) Next() float64 {
	digest := DeriveDigest(s.serverSeed, s.clientSeed, s.nonce)
	s.nonce++
	// The digest is always 64 hex chars, so UnitFloat cannot fail here.
	v, _ := UnitFloat(digest)
	return v
}

// Nonce returns the nonce the next draw will use.
func (s *Stream) Nonce() uint64 {
	return s.nonce
}
