package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "valknut_stage_seconds",
		Help:    "Time spent in a pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valknut_runs_total",
		Help: "Total number of pipeline runs by outcome.",
	}, []string{"outcome"})

	EntitiesAnalyzed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "valknut_entities",
		Help: "Number of entities in the last run.",
	})

	CandidatesByTier = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "valknut_candidates",
		Help: "Number of ranked candidates per tier in the last run.",
	}, []string{"tier"})

	ClonePairsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valknut_clone_pairs_total",
		Help: "Clone pairs by verification state.",
	}, []string{"state"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valknut_cache_lookups_total",
		Help: "Run cache lookups by stage and result.",
	}, []string{"stage", "result"})

	AnomaliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valknut_anomalies_total",
		Help: "Per-entity anomalies recorded by stage.",
	}, []string{"stage"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "valknut_graph_nodes",
		Help: "Number of nodes in the last dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "valknut_graph_edges",
		Help: "Number of edges in the last dependency graph.",
	})
)
