package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sibyllinesoft/valknut-sub001/domain"
	"github.com/sibyllinesoft/valknut-sub001/internal/analyzer"
	"github.com/sibyllinesoft/valknut-sub001/internal/cache"
	"github.com/sibyllinesoft/valknut-sub001/internal/observability"
	"github.com/sibyllinesoft/valknut-sub001/internal/version"
)

// normalize fits feature and coverage detectors. Fitted statistics are
// cached under a fingerprint of the raw signals and normalization settings.
func (r *pipelineRun) normalize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := r.svc.config
	signals := analyzer.FeatureSignals(r.entities, detectorSpecs(cfg), r.coverage)
	normalizer := analyzer.NewNormalizer(normalizerConfig(cfg))

	key := ""
	if fp, err := cache.Fingerprint(signals.SpecList(), signals.Scores, cfg.Normalization); err == nil {
		key = cache.NormalizationKey(fp)
	} else {
		r.logger.Debug("normalization inputs not fingerprintable; cache bypassed", zap.Error(err))
	}

	var stats []domain.DistributionStats
	if key != "" && r.svc.cache.Load(key, &stats) {
		r.normHit = true
		observability.CacheLookups.WithLabelValues(domain.StageNormalize, "hit").Inc()
	} else {
		if key != "" && r.svc.cache != nil {
			observability.CacheLookups.WithLabelValues(domain.StageNormalize, "miss").Inc()
		}
		stats = normalizer.FitAll(signals.SpecList(), signals.Scores)
		if key != "" {
			r.svc.cache.Save(key, stats)
		}
	}
	r.features = normalizer.ApplyAll(stats, signals.Scores)
	return nil
}

// analyzeGraph builds the dependency graph and computes centrality and
// cycles. The result is cached under a fingerprint of nodes, edges and
// graph settings.
func (r *pipelineRun) analyzeGraph(ctx context.Context) error {
	cfg := r.svc.config
	g, anomalies := analyzer.NewDependencyGraph(entityIDs(r.entities), r.edges)
	r.graphAnoms = anomalies
	observability.GraphNodes.Set(float64(g.NodeCount()))
	observability.GraphEdges.Set(float64(g.EdgeCount()))

	key := ""
	if fp, err := cache.Fingerprint(g.Nodes(), r.edges, cfg.Graph); err == nil {
		key = cache.GraphKey(fp)
	} else {
		r.logger.Debug("graph inputs not fingerprintable; cache bypassed", zap.Error(err))
	}

	cached := &domain.GraphResult{}
	if key != "" && r.svc.cache.Load(key, cached) {
		if cached.Centrality == nil {
			cached.Centrality = map[string]domain.CentralityResult{}
		}
		r.graph = cached
		r.graphHit = true
		observability.CacheLookups.WithLabelValues(domain.StageGraph, "hit").Inc()
		return nil
	}
	if key != "" && r.svc.cache != nil {
		observability.CacheLookups.WithLabelValues(domain.StageGraph, "miss").Inc()
	}

	result, err := analyzer.NewGraphAnalyzer(graphAnalyzerConfig(cfg)).Analyze(ctx, g)
	if err != nil {
		return err
	}
	r.graph = result
	if key != "" {
		r.svc.cache.Save(key, result)
	}
	r.logger.Debug("graph analyzed",
		zap.Int("nodes", result.Summary.Nodes),
		zap.String("mode", string(result.Summary.Mode)),
		zap.Int("sources", result.Summary.Sources),
		zap.Int("cycles", result.Summary.Cycles))
	return nil
}

// detectClones runs the candidate and verification stages
func (r *pipelineRun) detectClones(ctx context.Context) error {
	detector, err := analyzer.NewCloneDetector(cloneDetectorConfig(r.svc.config))
	if err != nil {
		return err
	}
	result, err := detector.Detect(ctx, r.entities)
	if err != nil {
		return err
	}
	r.detector = detector
	r.clones = result
	r.logger.Debug("clones detected",
		zap.Int("signed", result.Statistics.Signed),
		zap.Int("candidates", result.Statistics.Candidates),
		zap.Int("accepted", result.Statistics.Accepted),
		zap.Int("truncated", result.Statistics.Truncated))
	return nil
}

// aggregation is the outcome of one aggregation pass
type aggregation struct {
	candidates []domain.RefactoringCandidate
	anomalies  []domain.Anomaly
	stats      []domain.DistributionStats
	feedback   bool
}

// aggregate normalizes graph and clone signals over this run's population
// and combines them with the feature scores
func (r *pipelineRun) aggregate() *aggregation {
	cfg := r.svc.config
	signals := analyzer.NewSignalSet()
	analyzer.GraphSignals(signals, r.entities, r.graph)
	analyzer.CloneSignals(signals, r.entities, r.clones)
	structural := analyzer.NewNormalizer(normalizerConfig(cfg)).Normalize(signals.SpecList(), signals.Scores)

	scores := make([]domain.NormalizedScore, 0, len(r.features.Scores)+len(structural.Scores))
	scores = append(scores, r.features.Scores...)
	scores = append(scores, structural.Scores...)

	candidates, anomalies := analyzer.NewAggregator(aggregatorConfig(cfg)).Aggregate(analyzer.AggregationInput{
		Entities:   r.entities,
		Scores:     scores,
		Graph:      r.graph,
		ClonePairs: r.clonePairs(),
	})

	out := &aggregation{candidates: candidates}
	out.stats = append(out.stats, r.features.Stats...)
	out.stats = append(out.stats, structural.Stats...)
	out.anomalies = append(out.anomalies, structural.Anomalies...)
	out.anomalies = append(out.anomalies, anomalies...)
	return out
}

// feedback re-verifies near-miss clone candidates of high priority entities
// and aggregates once more when new pairs are accepted
func (r *pipelineRun) feedback(ctx context.Context, agg *aggregation) error {
	cfg := r.svc.config
	if r.clones == nil || r.detector == nil || !cfg.Clone.PriorityFeedback {
		return nil
	}
	focus := analyzer.FocusEntities(agg.candidates, domain.PriorityHigh)
	added, err := r.detector.Refine(ctx, r.entities, r.clones, focus, cfg.Clone.FeedbackRelaxation)
	if err != nil {
		return stageError(ctx, domain.StageClone, err)
	}
	r.logger.Debug("priority feedback",
		zap.Int("focus", len(focus)),
		zap.Int("checked", r.clones.Statistics.FeedbackChecked),
		zap.Int("added", len(added)))
	if len(added) == 0 {
		return nil
	}
	*agg = *r.aggregate()
	agg.feedback = true
	return nil
}

func (r *pipelineRun) clonePairs() []domain.ClonePair {
	if r.clones == nil {
		return nil
	}
	return r.clones.Pairs
}

func (r *pipelineRun) result(agg *aggregation) *domain.AnalysisResult {
	cfg := r.svc.config
	pairs := r.clonePairs()
	groups := analyzer.GroupClones(pairs)

	anomalies := make([]domain.Anomaly, 0, len(r.anomalies)+len(r.features.Anomalies)+len(r.graphAnoms)+len(agg.anomalies))
	anomalies = append(anomalies, r.anomalies...)
	anomalies = append(anomalies, r.features.Anomalies...)
	anomalies = append(anomalies, r.graphAnoms...)
	anomalies = append(anomalies, agg.anomalies...)

	var cacheHits []string
	if r.normHit {
		cacheHits = append(cacheHits, domain.StageNormalize)
	}
	if r.graphHit {
		cacheHits = append(cacheHits, domain.StageGraph)
	}

	summary := domain.AnalysisSummary{
		Entities:    len(r.entities),
		Candidates:  len(agg.candidates),
		Excluded:    len(r.entities) - len(agg.candidates),
		TierCounts:  make(map[domain.PriorityTier]int),
		Detectors:   len(agg.stats),
		ClonePairs:  len(pairs),
		CloneGroups: len(groups),
		Anomalies:   len(anomalies),
		CacheHits:   cacheHits,
	}
	for _, c := range agg.candidates {
		summary.TierCounts[c.Tier]++
	}
	for _, st := range agg.stats {
		if st.Mode == domain.NormalizationModeBayesian {
			summary.BayesianDetectors++
		}
	}

	var cloneStats domain.CloneStatistics
	if r.clones != nil {
		cloneStats = r.clones.Statistics
	}

	fingerprint, err := cache.Fingerprint(cfg)
	if err != nil {
		r.logger.Debug("configuration not fingerprintable", zap.Error(err))
	}

	finished := r.svc.now()
	r.recordMetrics(summary, pairs, anomalies)
	return &domain.AnalysisResult{
		RunID:             r.runID,
		Version:           version.Short(),
		GeneratedAt:       finished.UTC(),
		DurationMs:        finished.Sub(r.started).Milliseconds(),
		ConfigFingerprint: fingerprint,
		Summary:           summary,
		Candidates:        agg.candidates,
		CloneGroups:       groups,
		CloneStatistics:   cloneStats,
		Graph:             r.graph.Summary,
		Normalization:     agg.stats,
		Anomalies:         anomalies,
	}
}

func (r *pipelineRun) recordMetrics(summary domain.AnalysisSummary, pairs []domain.ClonePair, anomalies []domain.Anomaly) {
	observability.EntitiesAnalyzed.Set(float64(summary.Entities))
	for _, tier := range []domain.PriorityTier{domain.PriorityCritical, domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow} {
		observability.CandidatesByTier.WithLabelValues(string(tier)).Set(float64(summary.TierCounts[tier]))
	}
	for _, p := range pairs {
		state := "verified"
		if p.Truncated {
			state = "truncated"
		}
		observability.ClonePairsTotal.WithLabelValues(state).Inc()
	}
	for _, a := range anomalies {
		observability.AnomaliesTotal.WithLabelValues(a.Stage).Inc()
	}
}
