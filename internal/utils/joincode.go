package utils

import (
	"crypto/rand"
	"strings"
)

// joinCodeAlphabet excludes 0/O and 1/I so codes survive being read
// aloud or scribbled on a flip chart.
const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// JoinCodeLength is the fixed length of session join codes.
const JoinCodeLength = 6

// NewJoinCode returns a random 6-character join code drawn from the
// unambiguous alphabet. Uniqueness is enforced by the sessions table;
// the caller retries on collision.
func NewJoinCode() (string, error) {
	buf := make([]byte, JoinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(JoinCodeLength)
	for _, c := range buf {
		b.WriteByte(joinCodeAlphabet[int(c)%len(joinCodeAlphabet)])
	}
	return b.String(), nil
}

// ValidJoinCode reports whether s is exactly six characters from the
// join-code alphabet. Input should be upper-cased by the caller first.
func ValidJoinCode(s string) bool {
	if len(s) != JoinCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(joinCodeAlphabet, rune(s[i])) {
			return false
		}
	}
	return true
}

// NewTeamToken returns a raw 256-bit bearer token for a freshly joined
// team. It is handed out exactly once; only its hash is stored.
func NewTeamToken() (string, error) {
	return randomHex(32)
}
