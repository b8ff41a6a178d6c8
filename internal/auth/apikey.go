package auth

import (
	"net/http"
	"strings"
)

// KeyPrefix is the prefix of every operator API key.
const KeyPrefix = "zkt_key_"

// ExtractKey reads an API key from X-API-Key or a Bearer Authorization header.
func ExtractKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// WellFormed reports whether key could have been issued by this service.
// Malformed keys are rejected without a storage lookup.
func WellFormed(key string) bool {
	rest, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok || len(rest) == 0 || len(rest) > 128 {
		return false
	}
	for _, c := range rest {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}
