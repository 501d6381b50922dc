package analyzer

import (
	"fmt"
	"sort"

	"github.com/sibyllinesoft/valknut-sub001/domain"
	"github.com/sibyllinesoft/valknut-sub001/internal/constants"
)

// AggregatorConfig configures composite scoring and tiering
type AggregatorConfig struct {
	Weights                  map[domain.DetectorKind]float64
	Cuts                     PriorityCuts
	ClonePromotionSimilarity float64
	ConfidenceWeighting      bool
}

// DefaultAggregatorConfig returns default aggregation configuration
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Weights: map[domain.DetectorKind]float64{
			domain.DetectorKindComplexity: constants.DefaultComplexityWeight,
			domain.DetectorKindGraph:      constants.DefaultGraphWeight,
			domain.DetectorKindStructure:  constants.DefaultStructureWeight,
			domain.DetectorKindStyle:      constants.DefaultStyleWeight,
			domain.DetectorKindCoverage:   constants.DefaultCoverageWeight,
			domain.DetectorKindClone:      constants.DefaultCloneWeight,
		},
		Cuts:                     DefaultPriorityCuts(),
		ClonePromotionSimilarity: constants.DefaultClonePromotionSimilarity,
	}
}

// AggregationInput is everything the aggregator combines for one run
type AggregationInput struct {
	Entities   []domain.Entity
	Scores     []domain.NormalizedScore
	Graph      *domain.GraphResult
	ClonePairs []domain.ClonePair
}

// Aggregator combines normalized scores into ranked refactoring candidates
type Aggregator struct {
	config AggregatorConfig
}

// NewAggregator creates an aggregator
func NewAggregator(config AggregatorConfig) *Aggregator {
	return &Aggregator{config: config}
}

// Aggregate scores every entity. Entities with no weighted signal are
// excluded and reported as anomalies. The result is sorted and ranked.
func (a *Aggregator) Aggregate(in AggregationInput) ([]domain.RefactoringCandidate, []domain.Anomaly) {
	byEntity := make(map[string][]domain.NormalizedScore)
	for _, s := range in.Scores {
		byEntity[s.EntityID] = append(byEntity[s.EntityID], s)
	}
	pairsByEntity := make(map[string][]domain.ClonePair)
	for _, p := range in.ClonePairs {
		pairsByEntity[p.EntityA] = append(pairsByEntity[p.EntityA], p)
		pairsByEntity[p.EntityB] = append(pairsByEntity[p.EntityB], p)
	}

	var anomalies []domain.Anomaly
	candidates := make([]domain.RefactoringCandidate, 0, len(in.Entities))
	for i := range in.Entities {
		e := &in.Entities[i]
		scores := byEntity[e.ID]
		sort.Slice(scores, func(x, y int) bool { return scores[x].Detector < scores[y].Detector })

		candidate, ok := a.score(e, scores)
		if !ok {
			anomalies = append(anomalies, domain.Anomaly{
				EntityID: e.ID,
				Stage:    domain.StageAggregate,
				Message:  "no weighted signals present; entity excluded from ranking",
			})
			continue
		}

		if in.Graph != nil {
			if cr, found := in.Graph.Centrality[e.ID]; found {
				cr := cr
				candidate.Centrality = &cr
				if cr.InCycle {
					candidate.Reasons = append(candidate.Reasons, fmt.Sprintf("in dependency cycle of %d nodes", cr.CycleLength))
				}
			}
		}

		candidate.ClonePairs = pairsByEntity[e.ID]
		a.promote(&candidate)
		candidates = append(candidates, candidate)
	}

	SortCandidates(candidates)
	return candidates, anomalies
}

// score computes the composite score of one entity from its normalized scores
func (a *Aggregator) score(e *domain.Entity, scores []domain.NormalizedScore) (domain.RefactoringCandidate, bool) {
	candidate := domain.RefactoringCandidate{
		EntityID: e.ID,
		FilePath: e.FilePath,
		Lines:    e.Lines,
		Kind:     e.Kind,
		Language: e.Language,
		Scores:   scores,
	}

	type kindAcc struct {
		sum, conf float64
		n         int
	}
	acc := make(map[domain.DetectorKind]*kindAcc)
	for _, s := range scores {
		if s.Kind == domain.DetectorKindComplexity && s.Present {
			candidate.RawComplexity += s.Raw
		}
		if !s.Present {
			continue
		}
		k := acc[s.Kind]
		if k == nil {
			k = &kindAcc{}
			acc[s.Kind] = k
		}
		k.sum += s.Value
		k.conf += s.Confidence
		k.n++
	}

	totalWeight := 0.0
	for _, kind := range domain.AllDetectorKinds() {
		contribution := domain.KindContribution{Kind: kind, ConfiguredWeight: a.config.Weights[kind]}
		if k := acc[kind]; k != nil {
			contribution.Present = true
			contribution.Score = k.sum / float64(k.n)
			contribution.Confidence = k.conf / float64(k.n)
			contribution.EffectiveWeight = contribution.ConfiguredWeight
			if a.config.ConfidenceWeighting {
				contribution.EffectiveWeight *= contribution.Confidence
			}
			totalWeight += contribution.EffectiveWeight
		}
		candidate.Contributions = append(candidate.Contributions, contribution)
	}
	if totalWeight <= 0 {
		return candidate, false
	}

	for i := range candidate.Contributions {
		c := &candidate.Contributions[i]
		if !c.Present {
			continue
		}
		c.EffectiveWeight /= totalWeight
		c.Contribution = c.EffectiveWeight * c.Score
		candidate.Score += c.Contribution
		candidate.Confidence += c.EffectiveWeight * c.Confidence
	}
	candidate.Tier = a.config.Cuts.Classify(candidate.Score)
	candidate.Reasons = reasons(candidate.Contributions)
	return candidate, true
}

// promote lifts entities with a near-identical verified clone to at least high
func (a *Aggregator) promote(candidate *domain.RefactoringCandidate) {
	for _, p := range candidate.ClonePairs {
		if !p.Verified || p.Similarity < a.config.ClonePromotionSimilarity {
			continue
		}
		candidate.Reasons = append(candidate.Reasons,
			fmt.Sprintf("near-duplicate of %s (similarity %.2f)", p.Other(candidate.EntityID), p.Similarity))
		if !candidate.Tier.AtLeast(domain.PriorityHigh) {
			candidate.Tier = domain.PriorityHigh
			candidate.Promoted = true
		}
		return
	}
}

// reasons lists the kinds that push the score up, largest contribution first
func reasons(contributions []domain.KindContribution) []string {
	var positive []domain.KindContribution
	for _, c := range contributions {
		if c.Present && c.Contribution > 0 {
			positive = append(positive, c)
		}
	}
	sort.SliceStable(positive, func(i, j int) bool { return positive[i].Contribution > positive[j].Contribution })

	out := make([]string, 0, len(positive))
	for _, c := range positive {
		out = append(out, fmt.Sprintf("%s above baseline (%.2f)", c.Kind, c.Score))
	}
	return out
}
