package storage

import "strings"

// Key prefixes of the two records that make up one mapping.
const (
	ForwardPrefix = "short:"
	ReversePrefix = "long:"
)

// ForwardKey returns the key holding the long URL for shortID.
func ForwardKey(shortID string) string {
	return ForwardPrefix + shortID
}

// ReverseKey returns the key holding the short id for longURL.
func ReverseKey(longURL string) string {
	return ReversePrefix + longURL
}

// ShortIDFromKey strips the forward prefix from key.
func ShortIDFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, ForwardPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, ForwardPrefix), true
}

// MatchPrefix turns a trailing-wildcard pattern such as "short:*" into its
// literal prefix.
func MatchPrefix(pattern string) string {
	return strings.TrimSuffix(pattern, "*")
}
