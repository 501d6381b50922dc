package analyzer

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/zeebo/blake3"
)

// shingleSeparator keeps ["ab","c"] and ["a","bc"] from hashing alike
var shingleSeparator = []byte{0x1f}

// MinHashSignature holds the signature vector
type MinHashSignature struct {
	signatures []uint64
	numHashes  int
}

// GetSignatures returns the per-function minima
func (s *MinHashSignature) GetSignatures() []uint64 {
	return s.signatures
}

// GetNumHashes returns the signature length
func (s *MinHashSignature) GetNumHashes() int {
	return s.numHashes
}

// MinHasher computes MinHash signatures for shingle sets
type MinHasher struct {
	numHashes   int
	shingleSize int
}

// NewMinHasher creates a MinHasher with numHashes functions (default 128 if invalid)
func NewMinHasher(numHashes, shingleSize int) *MinHasher {
	if numHashes <= 0 {
		numHashes = 128
	}
	if shingleSize <= 0 {
		shingleSize = 3
	}
	return &MinHasher{numHashes: numHashes, shingleSize: shingleSize}
}

// NumHashes returns the number of hash functions
func (m *MinHasher) NumHashes() int { return m.numHashes }

// ShingleHashes returns the distinct, sorted shingle hashes of an entity.
// Explicit shingles are used as-is; otherwise tokens are windowed into
// shingles of shingleSize, and a sequence shorter than the window forms a
// single shingle. The result is empty when neither is available.
func (m *MinHasher) ShingleHashes(shingles, tokens []string) []uint64 {
	set := make(map[uint64]struct{})
	h := blake3.New()

	if len(shingles) > 0 {
		for _, s := range shingles {
			set[sumShingle(h, []string{s})] = struct{}{}
		}
	} else if len(tokens) > 0 {
		if len(tokens) < m.shingleSize {
			set[sumShingle(h, tokens)] = struct{}{}
		} else {
			for i := 0; i <= len(tokens)-m.shingleSize; i++ {
				set[sumShingle(h, tokens[i:i+m.shingleSize])] = struct{}{}
			}
		}
	}

	hashes := make([]uint64, 0, len(set))
	for v := range set {
		hashes = append(hashes, v)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	return hashes
}

func sumShingle(h *blake3.Hasher, parts []string) uint64 {
	h.Reset()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write(shingleSeparator)
	}
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

// ComputeSignature computes the MinHash signature of a set of shingle hashes.
// It returns nil for an empty set.
func (m *MinHasher) ComputeSignature(shingleHashes []uint64) *MinHashSignature {
	if len(shingleHashes) == 0 {
		return nil
	}
	sig := make([]uint64, m.numHashes)
	for i := range sig {
		sig[i] = math.MaxUint64
	}
	for _, x := range shingleHashes {
		for i := 0; i < m.numHashes; i++ {
			if v := hashUint64WithSeed(x, uint64(i)); v < sig[i] {
				sig[i] = v
			}
		}
	}
	return &MinHashSignature{signatures: sig, numHashes: m.numHashes}
}

// EstimateJaccardSimilarity estimates Jaccard similarity via signature agreement ratio
func (m *MinHasher) EstimateJaccardSimilarity(sig1, sig2 *MinHashSignature) float64 {
	if sig1 == nil || sig2 == nil {
		return 0.0
	}
	n := min(len(sig1.signatures), len(sig2.signatures))
	if n == 0 {
		return 0.0
	}
	match := 0
	for i := 0; i < n; i++ {
		if sig1.signatures[i] == sig2.signatures[i] {
			match++
		}
	}
	return float64(match) / float64(n)
}

// hashUint64WithSeed is a murmur3 finalizer keyed by seed
func hashUint64WithSeed(value uint64, seed uint64) uint64 {
	h := value ^ (seed * 0x9e3779b97f4a7c15)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}
