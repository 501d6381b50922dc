package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// Key prefixes of the run cache
const (
	NormalizationPrefix = "norm:"
	GraphPrefix         = "graph:"
)

// Fingerprint hashes the canonical JSON encoding of parts. encoding/json
// sorts map keys, so equal values always give equal fingerprints.
func Fingerprint(parts ...any) (string, error) {
	h := blake3.New()
	for i, part := range parts {
		data, err := json.Marshal(part)
		if err != nil {
			return "", fmt.Errorf("fingerprint part %d: %w", i, err)
		}
		_, _ = h.Write(data)
		_, _ = h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16]), nil
}

// NormalizationKey is the cache key of fitted distribution statistics
func NormalizationKey(fingerprint string) string {
	return NormalizationPrefix + fingerprint
}

// GraphKey is the cache key of graph analysis results
func GraphKey(fingerprint string) string {
	return GraphPrefix + fingerprint
}
