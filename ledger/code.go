package ledger

import (
	"crypto/rand"
	"encoding/base32"
	"strings"

	"puceats-api/models"
)

const codeEntropyBytes = 24

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateCode returns a random uppercase alphanumeric code of
// models.TokenCodeLength characters.
func GenerateCode() (string, error) {
	buf := make([]byte, codeEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return codeEncoding.EncodeToString(buf)[:models.TokenCodeLength], nil
}

// Normalize canonicalizes user input before lookup. Codes are issued
// uppercase, so lookups are effectively case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
