package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// generateID generates a new UUID
func generateID() string {
	return uuid.New().String()
}

// generateAPIKey generates a new API key
func generateAPIKey() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return fmt.Sprintf("zkt_key_%s", hex.EncodeToString(b))
}

// hashAPIKey hashes an API key for storage
func hashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// toMillis encodes a timestamp for SQLite integer columns
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// fromMillis decodes a timestamp stored by toMillis
func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// encodeMissions serializes a player's completed mission ids
func encodeMissions(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

// decodeMissions parses a completed mission id list
func decodeMissions(data []byte) ([]string, error) {
	if len(data) == 0 {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decoding completed missions: %w", err)
	}
	return ids, nil
}

// ensureID assigns a new id when empty
func ensureID(id *string) {
	if *id == "" {
		*id = generateID()
	}
}

// defaultLimit bounds unbounded list queries
func defaultLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}
