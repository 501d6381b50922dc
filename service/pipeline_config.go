package service

import (
	"github.com/sibyllinesoft/valknut-sub001/domain"
	"github.com/sibyllinesoft/valknut-sub001/internal/analyzer"
	"github.com/sibyllinesoft/valknut-sub001/internal/config"
)

// The functions below translate the validated configuration into the
// analyzer's own configuration types.

func detectorSpecs(cfg *config.Config) map[string]analyzer.DetectorSpec {
	specs := make(map[string]analyzer.DetectorSpec, len(cfg.Detectors))
	for _, d := range cfg.Detectors {
		kind, err := domain.ParseDetectorKind(d.Kind)
		if err != nil {
			continue
		}
		specs[d.Feature] = analyzer.DetectorSpec{Name: d.Feature, Kind: kind, Inverted: d.Invert}
	}
	return specs
}

func normalizerConfig(cfg *config.Config) analyzer.NormalizerConfig {
	n := cfg.Normalization
	priors := make(map[string]analyzer.Prior, len(n.Priors))
	for name, p := range n.Priors {
		priors[name] = analyzer.Prior{Mean: p.Mean, StdDev: p.StdDev}
	}
	return analyzer.NormalizerConfig{
		ForceBayesian:        n.Mode == string(domain.NormalizationModeBayesian),
		MinSamples:           n.MinSamples,
		PriorStrength:        n.PriorStrength,
		OutlierIQRMultiplier: n.OutlierIQRMultiplier,
		Priors:               priors,
	}
}

func graphAnalyzerConfig(cfg *config.Config) analyzer.GraphAnalyzerConfig {
	g := cfg.Graph
	return analyzer.GraphAnalyzerConfig{
		Policy: analyzer.CentralityPolicy{
			Ceiling:    g.ExactNodeCeiling,
			SampleRate: g.SampleRate,
			MinSamples: g.MinSamples,
			Seed:       g.Seed,
			Weighted:   g.UseEdgeWeights,
			Workers:    cfg.Performance.MaxWorkers,
		},
		SelfLoopsAsCycles: g.SelfLoopsAsCycles,
	}
}

func cloneDetectorConfig(cfg *config.Config) *analyzer.CloneDetectorConfig {
	c := cfg.Clone
	return &analyzer.CloneDetectorConfig{
		ShingleSize:         c.ShingleSize,
		Hashes:              c.Hashes,
		Bands:               c.Bands,
		CandidateThreshold:  c.CandidateThreshold,
		AcceptanceThreshold: c.AcceptanceThreshold,
		MaxVerifyNodes:      c.MaxVerifyNodes,
		VerifyTimeout:       c.VerifyTimeout,
		IgnoreLeafLabels:    c.IgnoreLeafLabels,
		Workers:             cfg.Performance.MaxWorkers,
	}
}

func aggregatorConfig(cfg *config.Config) analyzer.AggregatorConfig {
	weights := make(map[domain.DetectorKind]float64)
	for _, kind := range domain.AllDetectorKinds() {
		weights[kind] = cfg.Weights.For(kind)
	}
	return analyzer.AggregatorConfig{
		Weights: weights,
		Cuts: analyzer.PriorityCuts{
			Critical: cfg.Priority.Critical,
			High:     cfg.Priority.High,
			Medium:   cfg.Priority.Medium,
		},
		ClonePromotionSimilarity: cfg.Priority.ClonePromotionSimilarity,
		ConfidenceWeighting:      cfg.Priority.ConfidenceWeighting,
	}
}
