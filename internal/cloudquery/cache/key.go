package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// KeyParams identifies one cloud-function call for caching.
type KeyParams struct {
	Method    string         `json:"method"`
	Params    map[string]any `json:"params"`
	CountName string         `json:"count_name,omitempty"`
}

// GenerateKey returns a deterministic SHA256 hex digest of p.
// Map keys are encoded in sorted order, so parameter order does not matter.
func GenerateKey(p KeyParams) (string, error) {
	p.Method = strings.TrimSpace(p.Method)
	if p.Method == "" {
		return "", fmt.Errorf("%w: method is required", ErrInvalidCacheKey)
	}

	encoded, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding cache key params: %w", err)
	}

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}
