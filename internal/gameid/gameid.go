// Package gameid generates sortable identifiers for hands: UUIDv7 encoded
// as 26 characters of Crockford base32, so lexical order follows creation
// time and records list chronologically on disk.
package gameid

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Generate returns a new time-ordered identifier.
func Generate() string {
	var uuid [16]byte

	// 48-bit millisecond timestamp, then random bits, per UUIDv7.
	now := time.Now().UnixMilli()
	uuid[0] = byte(now >> 40)
	uuid[1] = byte(now >> 32)
	uuid[2] = byte(now >> 24)
	uuid[3] = byte(now >> 16)
	uuid[4] = byte(now >> 8)
	uuid[5] = byte(now)

	if _, err := rand.Read(uuid[6:]); err != nil {
		panic("gameid: read random bytes: " + err.Error())
	}

	uuid[6] = (uuid[6] & 0x0f) | 0x70 // version 7
	uuid[8] = (uuid[8] & 0x3f) | 0x80 // variant 10

	return encode(uuid)
}

// encode packs 128 bits into 26 base32 characters, 5 bits at a time.
func encode(data [16]byte) string {
	var out [26]byte
	for i := range out {
		bit := i * 5
		byteIdx := bit / 8
		bitIdx := bit % 8

		var v byte
		if byteIdx < 16 {
			if bitIdx <= 3 {
				v = (data[byteIdx] >> (3 - bitIdx)) & 0x1f
			} else {
				v = (data[byteIdx] << (bitIdx - 3)) & 0x1f
				if byteIdx+1 < 16 {
					v |= data[byteIdx+1] >> (11 - bitIdx)
				}
			}
		}
		out[i] = alphabet[v]
	}
	return string(out[:])
}

// Validate checks that an identifier is well-formed.
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("gameid: want 26 characters, got %d", len(id))
	}
	// 26 base32 chars hold 130 bits; the first char may only carry the top
	// 2 of the 128 real bits.
	if id[0] > '7' {
		return fmt.Errorf("gameid: first character %q out of range", id[0])
	}
	for i, r := range id {
		if !strings.ContainsRune(alphabet, r) {
			return fmt.Errorf("gameid: invalid character %q at position %d", r, i)
		}
	}
	return nil
}
