package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// NewSessionToken returns a 64-char hex token for QR table sessions. 32 bytes
// of crypto/rand keeps the token unguessable; the table binding lives in the
// session row, never in the token itself.
func NewSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
