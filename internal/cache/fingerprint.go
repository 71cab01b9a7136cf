package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	json "github.com/goccy/go-json"
)

// Fingerprint derives a cache key from an operation name and its
// normalized inputs. Map keys are sorted by the encoder, so logically
// equal inputs produce the same key.
func Fingerprint(operation string, normalized any) (string, error) {
	data, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return operation + ":" + hex.EncodeToString(sum[:])[:32], nil
}

// HashText returns the full hex sha256 of s.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NormalizeText collapses runs of whitespace and trims the ends.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeKey is NormalizeText plus lowercasing.
func NormalizeKey(s string) string {
	return strings.ToLower(NormalizeText(s))
}
