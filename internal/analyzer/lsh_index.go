package analyzer

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// LSHIndex implements Locality Sensitive Hashing with banding technique
type LSHIndex struct {
	bands      int                          // Number of bands
	rows       int                          // Rows per band
	buckets    []map[uint64][]string        // per band: band key -> entity ids
	signatures map[string]*MinHashSignature // entity id -> signature
	mutex      sync.RWMutex
}

// LSHConfig holds configuration parameters for LSH
type LSHConfig struct {
	Bands int // Number of bands (default: 32)
	Rows  int // Rows per band (default: 4)
}

// Threshold returns the similarity at which a pair becomes a candidate
// with probability about one half: (1/b)^(1/r)
func (c LSHConfig) Threshold() float64 {
	if c.Bands <= 0 || c.Rows <= 0 {
		return 0
	}
	return math.Pow(1.0/float64(c.Bands), 1.0/float64(c.Rows))
}

// NewLSHIndex creates a new LSH index with the given configuration
func NewLSHIndex(config LSHConfig) *LSHIndex {
	if config.Bands <= 0 {
		config.Bands = 32
	}
	if config.Rows <= 0 {
		config.Rows = 4
	}

	buckets := make([]map[uint64][]string, config.Bands)
	for i := range buckets {
		buckets[i] = make(map[uint64][]string)
	}
	return &LSHIndex{
		bands:      config.Bands,
		rows:       config.Rows,
		buckets:    buckets,
		signatures: make(map[string]*MinHashSignature),
	}
}

// AddFragment adds an entity with its signature to the index
func (idx *LSHIndex) AddFragment(id string, signature *MinHashSignature) error {
	if signature == nil {
		return fmt.Errorf("signature cannot be nil")
	}
	if signature.GetNumHashes() < idx.bands*idx.rows {
		return fmt.Errorf("signature has %d hashes, but need at least %d (bands=%d, rows=%d)",
			signature.GetNumHashes(), idx.bands*idx.rows, idx.bands, idx.rows)
	}

	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	if _, exists := idx.signatures[id]; exists {
		return fmt.Errorf("entity %s is already indexed", id)
	}
	idx.signatures[id] = signature

	sigs := signature.GetSignatures()
	for band := 0; band < idx.bands; band++ {
		key := idx.bandKey(sigs, band)
		idx.buckets[band][key] = append(idx.buckets[band][key], id)
	}
	return nil
}

// bandKey hashes one band of a signature, keyed by the band index
func (idx *LSHIndex) bandKey(signatures []uint64, band int) uint64 {
	start := band * idx.rows
	buf := make([]byte, 8*(idx.rows+1))
	binary.LittleEndian.PutUint64(buf, uint64(band))
	for i := 0; i < idx.rows; i++ {
		binary.LittleEndian.PutUint64(buf[8*(i+1):], signatures[start+i])
	}
	return xxhash.Sum64(buf)
}

// BuildIndex builds the index from a batch of signatures. Nil signatures are skipped.
func (idx *LSHIndex) BuildIndex(signatures map[string]*MinHashSignature) error {
	ids := make([]string, 0, len(signatures))
	for id := range signatures {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if signatures[id] == nil {
			continue
		}
		if err := idx.AddFragment(id, signatures[id]); err != nil {
			return fmt.Errorf("failed to add entity %s to buckets: %w", id, err)
		}
	}
	return nil
}

// CandidatePair is an unordered pair of entities that share at least one band key.
// A always sorts before B. Estimate is filled in by the candidate stage.
type CandidatePair struct {
	A        string
	B        string
	Estimate float64
}

// CandidatePairs returns every pair sharing a bucket, deduplicated and
// sorted by (A, B)
func (idx *LSHIndex) CandidatePairs() []CandidatePair {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	seen := make(map[CandidatePair]struct{})
	for _, bandBuckets := range idx.buckets {
		for _, bucket := range bandBuckets {
			if len(bucket) < 2 {
				continue
			}
			for i := 0; i < len(bucket); i++ {
				for j := i + 1; j < len(bucket); j++ {
					a, b := bucket[i], bucket[j]
					if a > b {
						a, b = b, a
					}
					seen[CandidatePair{A: a, B: b}] = struct{}{}
				}
			}
		}
	}

	pairs := make([]CandidatePair, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}

// FindCandidates finds indexed entities sharing a band with the query signature
func (idx *LSHIndex) FindCandidates(querySignature *MinHashSignature) []string {
	if querySignature == nil || querySignature.GetNumHashes() < idx.bands*idx.rows {
		return []string{}
	}

	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	candidateSet := make(map[string]bool)
	sigs := querySignature.GetSignatures()
	for band := 0; band < idx.bands; band++ {
		for _, id := range idx.buckets[band][idx.bandKey(sigs, band)] {
			candidateSet[id] = true
		}
	}

	candidates := make([]string, 0, len(candidateSet))
	for candidate := range candidateSet {
		candidates = append(candidates, candidate)
	}
	sort.Strings(candidates)
	return candidates
}

// GetSignature retrieves the stored signature for an entity
func (idx *LSHIndex) GetSignature(id string) *MinHashSignature {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()
	return idx.signatures[id]
}

// Size returns the number of entities in the index
func (idx *LSHIndex) Size() int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()
	return len(idx.signatures)
}

// GetConfig returns the LSH configuration
func (idx *LSHIndex) GetConfig() LSHConfig {
	return LSHConfig{Bands: idx.bands, Rows: idx.rows}
}

// EstimateFalseNegativeRate is the probability that a pair with the given
// true similarity shares no band: (1 - s^r)^b
func (idx *LSHIndex) EstimateFalseNegativeRate(trueSimilarity float64) float64 {
	if trueSimilarity <= 0 {
		return 1.0
	}
	if trueSimilarity >= 1 {
		return 0.0
	}
	probBandMatches := math.Pow(trueSimilarity, float64(idx.rows))
	return math.Pow(1.0-probBandMatches, float64(idx.bands))
}
