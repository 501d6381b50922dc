package analyzer

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sibyllinesoft/valknut-sub001/domain"
	"github.com/sibyllinesoft/valknut-sub001/internal/constants"
)

// CloneDetectorConfig holds configuration for clone detection
type CloneDetectorConfig struct {
	ShingleSize         int
	Hashes              int
	Bands               int
	CandidateThreshold  float64
	AcceptanceThreshold float64
	MaxVerifyNodes      int
	VerifyTimeout       time.Duration
	IgnoreLeafLabels    bool
	Workers             int
}

// DefaultCloneDetectorConfig returns default clone detection configuration
func DefaultCloneDetectorConfig() *CloneDetectorConfig {
	return &CloneDetectorConfig{
		ShingleSize:         constants.DefaultShingleSize,
		Hashes:              constants.DefaultMinHashFunctions,
		Bands:               constants.DefaultLSHBands,
		CandidateThreshold:  constants.DefaultCandidateThreshold,
		AcceptanceThreshold: constants.DefaultAcceptanceThreshold,
		MaxVerifyNodes:      constants.DefaultMaxVerifyNodes,
		VerifyTimeout:       constants.DefaultVerifyTimeoutMillis * time.Millisecond,
	}
}

func (c *CloneDetectorConfig) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// CandidateStage produces scored candidate pairs from entities
type CandidateStage interface {
	Candidates(ctx context.Context, entities []domain.Entity) ([]CandidatePair, error)
}

// LSHCandidateStage signs entities with MinHash and buckets them with LSH banding
type LSHCandidateStage struct {
	hasher  *MinHasher
	bands   int
	rows    int
	workers int

	// Signed holds the IDs of entities that received a signature in the last call
	Signed []string
}

// NewLSHCandidateStage creates a candidate stage. bands * rows never exceeds hashes.
func NewLSHCandidateStage(shingleSize, hashes, bands, workers int) (*LSHCandidateStage, error) {
	if hashes <= 0 || bands <= 0 || bands > hashes {
		return nil, domain.NewConfigError(fmt.Sprintf("invalid LSH parameters: %d bands over %d hashes", bands, hashes), nil)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &LSHCandidateStage{
		hasher:  NewMinHasher(hashes, shingleSize),
		bands:   bands,
		rows:    hashes / bands,
		workers: workers,
	}, nil
}

// Candidates returns every LSH candidate pair with its MinHash estimate,
// ordered by (A, B). Entities without shingles or tokens are skipped.
func (s *LSHCandidateStage) Candidates(ctx context.Context, entities []domain.Entity) ([]CandidatePair, error) {
	signatures := make([]*MinHashSignature, len(entities))

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for i := range entities {
		if err := ctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e := &entities[i]
			signatures[i] = s.hasher.ComputeSignature(s.hasher.ShingleHashes(e.Shingles, e.Tokens))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	index := NewLSHIndex(LSHConfig{Bands: s.bands, Rows: s.rows})
	s.Signed = s.Signed[:0]
	for i := range entities {
		if signatures[i] == nil {
			continue
		}
		if err := index.AddFragment(entities[i].ID, signatures[i]); err != nil {
			return nil, err
		}
		s.Signed = append(s.Signed, entities[i].ID)
	}

	pairs := index.CandidatePairs()
	for i := range pairs {
		pairs[i].Estimate = s.hasher.EstimateJaccardSimilarity(
			index.GetSignature(pairs[i].A), index.GetSignature(pairs[i].B))
	}
	return pairs, nil
}

// CloneDetectionResult is the outcome of one clone detection pass
type CloneDetectionResult struct {
	// Pairs are the exposed pairs: verified and accepted, or truncated with
	// an estimate at or above the acceptance threshold
	Pairs []domain.ClonePair

	// Rejected are candidates dropped by the candidate threshold
	Rejected []CandidatePair

	// Participants are entities that received a signature
	Participants map[string]bool

	Statistics domain.CloneStatistics
}

// PartnerSimilarity returns the highest exposed similarity per entity
func (r *CloneDetectionResult) PartnerSimilarity() map[string]float64 {
	best := make(map[string]float64, len(r.Participants))
	for id := range r.Participants {
		best[id] = 0
	}
	for _, p := range r.Pairs {
		if p.Similarity > best[p.EntityA] {
			best[p.EntityA] = p.Similarity
		}
		if p.Similarity > best[p.EntityB] {
			best[p.EntityB] = p.Similarity
		}
	}
	return best
}

// CloneDetector detects near-duplicate entities
type CloneDetector struct {
	config *CloneDetectorConfig
	stage  CandidateStage
}

// NewCloneDetector creates a detector with the LSH candidate stage
func NewCloneDetector(config *CloneDetectorConfig) (*CloneDetector, error) {
	if config == nil {
		config = DefaultCloneDetectorConfig()
	}
	stage, err := NewLSHCandidateStage(config.ShingleSize, config.Hashes, config.Bands, config.workers())
	if err != nil {
		return nil, err
	}
	return &CloneDetector{config: config, stage: stage}, nil
}

// NewCloneDetectorWithStage creates a detector with a custom candidate stage
func NewCloneDetectorWithStage(config *CloneDetectorConfig, stage CandidateStage) *CloneDetector {
	if config == nil {
		config = DefaultCloneDetectorConfig()
	}
	return &CloneDetector{config: config, stage: stage}
}

// Detect runs the candidate and verification stages
func (d *CloneDetector) Detect(ctx context.Context, entities []domain.Entity) (*CloneDetectionResult, error) {
	result := &CloneDetectionResult{Participants: make(map[string]bool)}
	result.Statistics.Entities = len(entities)

	candidates, err := d.stage.Candidates(ctx, entities)
	if err != nil {
		return nil, err
	}

	for i := range entities {
		if entities[i].HasSimilarityInput() {
			result.Participants[entities[i].ID] = true
		}
	}
	if lsh, ok := d.stage.(*LSHCandidateStage); ok {
		result.Participants = make(map[string]bool, len(lsh.Signed))
		for _, id := range lsh.Signed {
			result.Participants[id] = true
		}
	}
	result.Statistics.Signed = len(result.Participants)
	result.Statistics.Candidates = len(candidates)

	var kept []CandidatePair
	for _, c := range candidates {
		if c.Estimate < d.config.CandidateThreshold {
			result.Rejected = append(result.Rejected, c)
			continue
		}
		kept = append(kept, c)
	}
	result.Statistics.Filtered = len(result.Rejected)

	verified, err := d.verifyAll(ctx, entities, kept)
	if err != nil {
		return nil, err
	}
	for _, p := range verified {
		d.tally(&result.Statistics, p)
		if d.accepted(p) {
			result.Pairs = append(result.Pairs, p)
		}
	}
	result.Statistics.Accepted = len(result.Pairs)
	return result, nil
}

// Refine verifies rejected candidates that touch a focus entity and whose
// estimate is within relaxation of the candidate threshold. The acceptance
// threshold is unchanged. Newly exposed pairs are merged into result and
// returned.
func (d *CloneDetector) Refine(ctx context.Context, entities []domain.Entity, result *CloneDetectionResult, focus map[string]bool, relaxation float64) ([]domain.ClonePair, error) {
	if result == nil || len(focus) == 0 {
		return nil, nil
	}
	floor := d.config.CandidateThreshold - relaxation

	var retry, remaining []CandidatePair
	for _, c := range result.Rejected {
		if (focus[c.A] || focus[c.B]) && c.Estimate >= floor {
			retry = append(retry, c)
			continue
		}
		remaining = append(remaining, c)
	}
	if len(retry) == 0 {
		return nil, nil
	}

	verified, err := d.verifyAll(ctx, entities, retry)
	if err != nil {
		return nil, err
	}
	result.Rejected = remaining
	result.Statistics.FeedbackChecked += len(retry)

	var added []domain.ClonePair
	for _, p := range verified {
		d.tally(&result.Statistics, p)
		if d.accepted(p) {
			added = append(added, p)
		}
	}
	result.Statistics.FeedbackAdded += len(added)
	result.Pairs = append(result.Pairs, added...)
	sortClonePairs(result.Pairs)
	result.Statistics.Accepted = len(result.Pairs)
	return added, nil
}

func (d *CloneDetector) accepted(p domain.ClonePair) bool {
	if p.Verified {
		return p.Similarity >= d.config.AcceptanceThreshold
	}
	return p.Truncated && p.EstimatedSimilarity >= d.config.AcceptanceThreshold
}

func (d *CloneDetector) tally(stats *domain.CloneStatistics, p domain.ClonePair) {
	if p.Verified {
		stats.Verified++
	}
	if p.Truncated {
		stats.Truncated++
	}
}

// verifyAll verifies candidates in parallel; output order follows input order
func (d *CloneDetector) verifyAll(ctx context.Context, entities []domain.Entity, candidates []CandidatePair) ([]domain.ClonePair, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	byID := make(map[string]*domain.Entity, len(entities))
	for i := range entities {
		byID[entities[i].ID] = &entities[i]
	}
	verifier := NewTreeVerifier(NewCostModel(d.config.IgnoreLeafLabels), d.config.MaxVerifyNodes, d.config.VerifyTimeout)
	for _, c := range candidates {
		verifier.Prepare(byID[c.A], byID[c.B])
	}

	out := make([]domain.ClonePair, len(candidates))
	g := new(errgroup.Group)
	g.SetLimit(d.config.workers())
	for i := range candidates {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = verifier.Verify(candidates[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func sortClonePairs(pairs []domain.ClonePair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].EntityA != pairs[j].EntityA {
			return pairs[i].EntityA < pairs[j].EntityA
		}
		return pairs[i].EntityB < pairs[j].EntityB
	})
}
