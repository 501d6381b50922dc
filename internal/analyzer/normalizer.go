package analyzer

import (
	"fmt"
	"math"
	"sort"

	"github.com/sibyllinesoft/valknut-sub001/domain"
	"github.com/sibyllinesoft/valknut-sub001/internal/constants"
)

// DetectorSpec identifies one detector and how its raw values are oriented
type DetectorSpec struct {
	Name     string
	Kind     domain.DetectorKind
	Inverted bool
}

// Prior is a configured domain prior for a detector
type Prior struct {
	Mean   float64
	StdDev float64
}

// NormalizerConfig configures the Normalizer
type NormalizerConfig struct {
	// ForceBayesian uses shrinkage regardless of sample size
	ForceBayesian        bool
	MinSamples           int
	PriorStrength        float64
	OutlierIQRMultiplier float64
	Priors               map[string]Prior
}

// DefaultNormalizerConfig returns default normalization configuration
func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{
		MinSamples:           constants.DefaultMinSamples,
		PriorStrength:        constants.DefaultPriorStrength,
		OutlierIQRMultiplier: constants.DefaultOutlierIQRMultiplier,
	}
}

// KindPool is the pooled population of one detector kind, used as a
// fallback prior for small detectors
type KindPool struct {
	Size   int
	Mean   float64
	StdDev float64
}

// Normalizer turns raw detector outputs into comparable scores
type Normalizer struct {
	config NormalizerConfig
}

// NewNormalizer creates a normalizer
func NewNormalizer(config NormalizerConfig) *Normalizer {
	if config.MinSamples < 2 {
		config.MinSamples = constants.DefaultMinSamples
	}
	if config.PriorStrength <= 0 {
		config.PriorStrength = float64(config.MinSamples)
	}
	return &Normalizer{config: config}
}

// presentValues returns the oriented, finite raw values
func presentValues(spec DetectorSpec, raws []domain.DetectorScore) []float64 {
	values := make([]float64, 0, len(raws))
	for _, s := range raws {
		if s.IsMissing() {
			continue
		}
		values = append(values, orient(spec.Inverted, s.Raw))
	}
	return values
}

func orient(inverted bool, raw float64) float64 {
	if inverted {
		return -raw
	}
	return raw
}

// Pools computes the per-kind pooled populations across detectors
func (n *Normalizer) Pools(specs []DetectorSpec, scores map[string][]domain.DetectorScore) map[domain.DetectorKind]KindPool {
	byKind := make(map[domain.DetectorKind][]float64)
	for _, spec := range specs {
		byKind[spec.Kind] = append(byKind[spec.Kind], presentValues(spec, scores[spec.Name])...)
	}
	pools := make(map[domain.DetectorKind]KindPool, len(byKind))
	for kind, values := range byKind {
		mean, sd := meanStdDev(values)
		pools[kind] = KindPool{Size: len(values), Mean: mean, StdDev: sd}
	}
	return pools
}

// Fit computes the distribution statistics of one detector. pool may be nil.
func (n *Normalizer) Fit(spec DetectorSpec, raws []domain.DetectorScore, pool *KindPool) domain.DistributionStats {
	values := presentValues(spec, raws)
	size := len(values)
	stats := domain.DistributionStats{
		Detector:      spec.Name,
		Kind:          spec.Kind,
		Mode:          domain.NormalizationModeZScore,
		SampleSize:    size,
		Inverted:      spec.Inverted,
		MissingValues: len(raws) - size,
	}
	if size == 0 {
		return stats
	}

	stats.Q1, stats.Q3 = quartiles(values)
	stats.OutlierFence = n.config.OutlierIQRMultiplier * (stats.Q3 - stats.Q1)
	for _, x := range values {
		if outlierWeight(x, stats.Q1, stats.Q3, stats.OutlierFence) < 1 {
			stats.Outliers++
		}
	}
	// Outliers lower confidence in Apply but stay in the fit, so z-scores
	// keep zero mean and unit variance over the present values.
	stats.Mean, stats.StdDev = meanStdDev(values)

	if !n.config.ForceBayesian && size >= n.config.MinSamples {
		stats.PriorMean = stats.Mean
		stats.Scale = stats.StdDev
		stats.Shrinkage = 1
		stats.SizeFactor = float64(size) / float64(size+n.config.MinSamples)
		stats.Degenerate = stats.StdDev < constants.VarianceEpsilon
		return stats
	}

	stats.Mode = domain.NormalizationModeBayesian
	lambda := float64(size) / (float64(size) + n.config.PriorStrength)
	stats.Shrinkage = lambda
	stats.SizeFactor = lambda

	switch prior, ok := n.config.Priors[spec.Name]; {
	case ok:
		stats.PriorMean, stats.PriorStdDev = prior.Mean, prior.StdDev
		stats.PriorSource = domain.PriorSourceConfigured
	case pool != nil && pool.Size >= n.config.MinSamples && pool.Size > size:
		stats.PriorMean, stats.PriorStdDev = pool.Mean, pool.StdDev
		stats.PriorSource = domain.PriorSourcePooled
	default:
		stats.PriorMean, stats.PriorStdDev = stats.Mean, stats.StdDev
		stats.PriorSource = domain.PriorSourceEmpirical
	}

	s, s0 := stats.StdDev, stats.PriorStdDev
	switch {
	case s >= constants.VarianceEpsilon && s0 >= constants.VarianceEpsilon:
		stats.Scale = math.Sqrt(lambda*s*s + (1-lambda)*s0*s0)
	case s0 >= constants.VarianceEpsilon:
		stats.Scale = s0
	case s >= constants.VarianceEpsilon:
		stats.Scale = s
	}
	stats.Degenerate = stats.Scale < constants.VarianceEpsilon
	return stats
}

// Apply normalizes raw scores with previously fitted statistics. Missing raw
// values produce Present=false scores and anomalies. A detector with no
// present samples produces no scores.
func (n *Normalizer) Apply(stats domain.DistributionStats, raws []domain.DetectorScore) ([]domain.NormalizedScore, []domain.Anomaly) {
	var anomalies []domain.Anomaly
	for _, s := range raws {
		if s.IsMissing() {
			anomalies = append(anomalies, domain.Anomaly{
				EntityID: s.EntityID,
				Stage:    domain.StageNormalize,
				Message:  fmt.Sprintf("detector %s produced non-finite value %v", s.Detector, s.Raw),
			})
		}
	}
	if stats.SampleSize == 0 {
		return nil, anomalies
	}

	dispersion := 1.0
	if stats.Degenerate {
		dispersion = 0.5
	}
	bayesian := stats.Mode == domain.NormalizationModeBayesian

	out := make([]domain.NormalizedScore, 0, len(raws))
	for _, s := range raws {
		ns := domain.NormalizedScore{
			EntityID: s.EntityID,
			Detector: stats.Detector,
			Kind:     stats.Kind,
			Raw:      s.Raw,
			Mode:     stats.Mode,
		}
		if s.IsMissing() {
			out = append(out, ns)
			continue
		}

		x := orient(stats.Inverted, s.Raw)
		center := stats.Mean
		estimate := x
		if bayesian {
			center = stats.PriorMean
			estimate = stats.Shrinkage*x + (1-stats.Shrinkage)*stats.PriorMean
		}

		ns.Present = true
		ns.Estimate = estimate
		if stats.Scale < constants.VarianceEpsilon {
			ns.Value = estimate - center
		} else {
			ns.Value = (estimate - center) / stats.Scale
		}
		ns.Weight = outlierWeight(x, stats.Q1, stats.Q3, stats.OutlierFence)
		ns.Confidence = stats.SizeFactor * dispersion * ns.Weight
		out = append(out, ns)
	}
	return out, anomalies
}

// NormalizationOutput is the result of normalizing every detector of a run
type NormalizationOutput struct {
	Stats     []domain.DistributionStats
	Scores    []domain.NormalizedScore
	Anomalies []domain.Anomaly
}

// Normalize fits and applies every detector. Detectors are processed in
// name order so output is deterministic.
func (n *Normalizer) Normalize(specs []DetectorSpec, scores map[string][]domain.DetectorScore) *NormalizationOutput {
	stats := n.FitAll(specs, scores)
	return n.ApplyAll(stats, scores)
}

// FitAll fits every detector, sharing same-kind pools
func (n *Normalizer) FitAll(specs []DetectorSpec, scores map[string][]domain.DetectorScore) []domain.DistributionStats {
	sorted := make([]DetectorSpec, len(specs))
	copy(sorted, specs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	pools := n.Pools(sorted, scores)
	out := make([]domain.DistributionStats, 0, len(sorted))
	for _, spec := range sorted {
		pool := pools[spec.Kind]
		out = append(out, n.Fit(spec, scores[spec.Name], &pool))
	}
	return out
}

// ApplyAll applies fitted statistics to the matching raw scores
func (n *Normalizer) ApplyAll(stats []domain.DistributionStats, scores map[string][]domain.DetectorScore) *NormalizationOutput {
	out := &NormalizationOutput{Stats: stats}
	for _, st := range stats {
		normalized, anomalies := n.Apply(st, scores[st.Detector])
		out.Scores = append(out.Scores, normalized...)
		out.Anomalies = append(out.Anomalies, anomalies...)
	}
	return out
}
