package constants

// Default detector kind weights. They need not sum to one; the aggregator
// renormalizes over the kinds present for each entity.
const (
	DefaultComplexityWeight = 0.30
	DefaultGraphWeight      = 0.15
	DefaultStructureWeight  = 0.15
	DefaultStyleWeight      = 0.05
	DefaultCoverageWeight   = 0.15
	DefaultCloneWeight      = 0.20
)

// Normalization defaults
const (
	DefaultMinSamples           = 10
	DefaultPriorStrength        = 10.0
	DefaultOutlierIQRMultiplier = 1.5

	// VarianceEpsilon is the stddev below which a distribution is degenerate.
	VarianceEpsilon = 1e-9
)

// Graph defaults
const (
	DefaultExactNodeCeiling = 2000
	DefaultSampleRate       = 0.1
	DefaultMinSampleSources = 32
	DefaultGraphSeed        = 42
)

// Priority cut points on the composite scale
const (
	DefaultCriticalCut              = 1.5
	DefaultHighCut                  = 0.75
	DefaultMediumCut                = 0.0
	DefaultClonePromotionSimilarity = 0.9
)

// Cache defaults
const (
	DefaultCacheBackend = "sqlite"
	DefaultCacheDSN     = ".valknut/cache.db"
	DefaultCacheTable   = "valknut_cache"

	// CacheSchemaVersion is bumped whenever cached payload layouts change.
	CacheSchemaVersion = 1
)
