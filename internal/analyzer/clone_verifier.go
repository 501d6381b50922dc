package analyzer

import (
	"time"

	"github.com/sibyllinesoft/valknut-sub001/domain"
	"github.com/sibyllinesoft/valknut-sub001/internal/constants"
)

// Verifier turns a candidate pair into a verified or truncated clone pair
type Verifier interface {
	Verify(candidate CandidatePair) domain.ClonePair
}

// TreeVerifier verifies candidates with bounded tree edit distance.
// Trees must be prepared before Verify is called concurrently.
type TreeVerifier struct {
	analyzer *APTEDAnalyzer
	maxNodes int
	timeout  time.Duration
	trees    map[string]*PreparedTree
}

// NewTreeVerifier creates a verifier. maxNodes <= 0 disables the size cap and
// timeout <= 0 disables the per-pair deadline.
func NewTreeVerifier(costModel CostModel, maxNodes int, timeout time.Duration) *TreeVerifier {
	return &TreeVerifier{
		analyzer: NewAPTEDAnalyzer(costModel),
		maxNodes: maxNodes,
		timeout:  timeout,
		trees:    make(map[string]*PreparedTree),
	}
}

// Prepare builds the verification tree of each entity that is not yet known
func (v *TreeVerifier) Prepare(entities ...*domain.Entity) {
	for _, e := range entities {
		if e == nil {
			continue
		}
		if _, ok := v.trees[e.ID]; ok {
			continue
		}
		v.trees[e.ID] = PrepareTree(EntityTree(e))
	}
}

// Verify computes the exact structural similarity of a candidate pair.
// Pairs over the node cap, past the deadline, or without a tree keep the
// estimate and are marked truncated with no edit cost or node counts.
func (v *TreeVerifier) Verify(candidate CandidatePair) domain.ClonePair {
	ta, tb := v.trees[candidate.A], v.trees[candidate.B]
	pair := domain.ClonePair{
		EntityA:             candidate.A,
		EntityB:             candidate.B,
		EstimatedSimilarity: candidate.Estimate,
		Similarity:          candidate.Estimate,
		NodesA:              ta.Size(),
		NodesB:              tb.Size(),
	}

	if pair.NodesA == 0 || pair.NodesB == 0 {
		return truncate(pair, domain.TruncatedNoStructure)
	}
	if v.maxNodes > 0 && pair.NodesA+pair.NodesB > v.maxNodes {
		return truncate(pair, domain.TruncatedNodeCap)
	}

	var deadline time.Time
	if v.timeout > 0 {
		deadline = time.Now().Add(v.timeout)
	}
	result := v.analyzer.Compare(ta, tb, deadline)
	if !result.Completed {
		return truncate(pair, domain.TruncatedTimeout)
	}

	cost := result.Distance
	pair.EditCost = &cost
	pair.Similarity = result.Similarity
	pair.Verified = true
	pair.Type = ClassifyClone(result.Similarity)
	return pair
}

func truncate(pair domain.ClonePair, reason string) domain.ClonePair {
	pair.NodesA, pair.NodesB = 0, 0
	pair.Truncated = true
	pair.TruncationReason = reason
	pair.Type = domain.UnverifiedClone
	return pair
}

// ClassifyClone maps a verified similarity to a clone type
func ClassifyClone(similarity float64) domain.CloneType {
	switch {
	case similarity >= constants.DefaultType1CloneThreshold:
		return domain.Type1Clone
	case similarity >= constants.DefaultType2CloneThreshold:
		return domain.Type2Clone
	default:
		return domain.Type3Clone
	}
}
