package analyzer

import (
	"sort"

	"github.com/sibyllinesoft/valknut-sub001/domain"
	"github.com/sibyllinesoft/valknut-sub001/internal/constants"
)

// PriorityCuts are the lower bounds of the critical, high and medium tiers
type PriorityCuts struct {
	Critical float64
	High     float64
	Medium   float64
}

// DefaultPriorityCuts returns the default tier cut points
func DefaultPriorityCuts() PriorityCuts {
	return PriorityCuts{
		Critical: constants.DefaultCriticalCut,
		High:     constants.DefaultHighCut,
		Medium:   constants.DefaultMediumCut,
	}
}

// Classify maps a composite score to a tier
func (c PriorityCuts) Classify(score float64) domain.PriorityTier {
	switch {
	case score >= c.Critical:
		return domain.PriorityCritical
	case score >= c.High:
		return domain.PriorityHigh
	case score >= c.Medium:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// SortCandidates orders candidates by tier, score descending, raw complexity
// descending, file path and entity ID, then assigns 1-based ranks
func SortCandidates(candidates []domain.RefactoringCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := &candidates[i], &candidates[j]
		if a.Tier.Rank() != b.Tier.Rank() {
			return a.Tier.Rank() > b.Tier.Rank()
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.RawComplexity != b.RawComplexity {
			return a.RawComplexity > b.RawComplexity
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.EntityID < b.EntityID
	})
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
}

// FocusEntities returns the IDs of candidates at or above a tier
func FocusEntities(candidates []domain.RefactoringCandidate, tier domain.PriorityTier) map[string]bool {
	focus := make(map[string]bool)
	for _, c := range candidates {
		if c.Tier.AtLeast(tier) {
			focus[c.EntityID] = true
		}
	}
	return focus
}
