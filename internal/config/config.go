package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sibyllinesoft/valknut-sub001/domain"
	"github.com/sibyllinesoft/valknut-sub001/internal/constants"
)

// keyDelimiter keeps dotted detector names ("complexity.cyclomatic") usable as map keys
const keyDelimiter = "::"

// EnvPrefix is the prefix of environment overrides, e.g. VALKNUT_CLONE_BANDS=16
const EnvPrefix = "VALKNUT"

// Config represents the main configuration structure
type Config struct {
	Weights       WeightsConfig       `mapstructure:"weights" yaml:"weights" json:"weights"`
	Detectors     []DetectorConfig    `mapstructure:"detectors" yaml:"detectors" json:"detectors"`
	Normalization NormalizationConfig `mapstructure:"normalization" yaml:"normalization" json:"normalization"`
	Graph         GraphConfig         `mapstructure:"graph" yaml:"graph" json:"graph"`
	Clone         CloneConfig         `mapstructure:"clone" yaml:"clone" json:"clone"`
	Priority      PriorityConfig      `mapstructure:"priority" yaml:"priority" json:"priority"`
	Cache         CacheConfig         `mapstructure:"cache" yaml:"cache" json:"cache"`
	Output        OutputConfig        `mapstructure:"output" yaml:"output" json:"output"`
	Performance   PerformanceConfig   `mapstructure:"performance" yaml:"performance" json:"performance"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging" json:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability" json:"observability"`
}

// WeightsConfig holds the relative weight of each detector kind.
// Weights are renormalized per entity over the kinds that are present.
type WeightsConfig struct {
	Complexity float64 `mapstructure:"complexity" yaml:"complexity" json:"complexity"`
	Graph      float64 `mapstructure:"graph" yaml:"graph" json:"graph"`
	Structure  float64 `mapstructure:"structure" yaml:"structure" json:"structure"`
	Style      float64 `mapstructure:"style" yaml:"style" json:"style"`
	Coverage   float64 `mapstructure:"coverage" yaml:"coverage" json:"coverage"`
	Clone      float64 `mapstructure:"clone" yaml:"clone" json:"clone"`
}

// For returns the configured weight of a detector kind
func (w WeightsConfig) For(kind domain.DetectorKind) float64 {
	switch kind {
	case domain.DetectorKindComplexity:
		return w.Complexity
	case domain.DetectorKindGraph:
		return w.Graph
	case domain.DetectorKindStructure:
		return w.Structure
	case domain.DetectorKindStyle:
		return w.Style
	case domain.DetectorKindCoverage:
		return w.Coverage
	case domain.DetectorKindClone:
		return w.Clone
	default:
		return 0
	}
}

// DetectorConfig maps an entity feature to a detector kind
type DetectorConfig struct {
	// Feature is the key in Entity.Features; it is also the detector name
	Feature string `mapstructure:"feature" yaml:"feature" json:"feature"`
	Kind    string `mapstructure:"kind" yaml:"kind" json:"kind"`

	// Invert negates raw values so that higher always means worse
	Invert bool `mapstructure:"invert" yaml:"invert,omitempty" json:"invert,omitempty"`
}

// PriorConfig is a domain prior for one detector
type PriorConfig struct {
	Mean   float64 `mapstructure:"mean" yaml:"mean" json:"mean"`
	StdDev float64 `mapstructure:"stddev" yaml:"stddev" json:"stddev"`
}

// NormalizationConfig configures the Normalizer
type NormalizationConfig struct {
	// Mode is "zscore" (Bayesian only below MinSamples) or "bayesian" (always)
	Mode                 string                 `mapstructure:"mode" yaml:"mode" json:"mode"`
	MinSamples           int                    `mapstructure:"min_samples" yaml:"min_samples" json:"min_samples"`
	PriorStrength        float64                `mapstructure:"prior_strength" yaml:"prior_strength" json:"prior_strength"`
	OutlierIQRMultiplier float64                `mapstructure:"outlier_iqr_multiplier" yaml:"outlier_iqr_multiplier" json:"outlier_iqr_multiplier"`
	Priors               map[string]PriorConfig `mapstructure:"priors" yaml:"priors,omitempty" json:"priors,omitempty"`
}

// GraphConfig configures the Graph Analyzer
type GraphConfig struct {
	Enabled           bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	ExactNodeCeiling  int     `mapstructure:"exact_node_ceiling" yaml:"exact_node_ceiling" json:"exact_node_ceiling"`
	SampleRate        float64 `mapstructure:"sample_rate" yaml:"sample_rate" json:"sample_rate"`
	MinSamples        int     `mapstructure:"min_samples" yaml:"min_samples" json:"min_samples"`
	Seed              int64   `mapstructure:"seed" yaml:"seed" json:"seed"`
	UseEdgeWeights    bool    `mapstructure:"use_edge_weights" yaml:"use_edge_weights" json:"use_edge_weights"`
	SelfLoopsAsCycles bool    `mapstructure:"self_loops_as_cycles" yaml:"self_loops_as_cycles" json:"self_loops_as_cycles"`
}

// CloneConfig configures the Clone Detector
type CloneConfig struct {
	Enabled             bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	ShingleSize         int           `mapstructure:"shingle_size" yaml:"shingle_size" json:"shingle_size"`
	Hashes              int           `mapstructure:"hashes" yaml:"hashes" json:"hashes"`
	Bands               int           `mapstructure:"bands" yaml:"bands" json:"bands"`
	CandidateThreshold  float64       `mapstructure:"candidate_threshold" yaml:"candidate_threshold" json:"candidate_threshold"`
	AcceptanceThreshold float64       `mapstructure:"acceptance_threshold" yaml:"acceptance_threshold" json:"acceptance_threshold"`
	MaxVerifyNodes      int           `mapstructure:"max_verify_nodes" yaml:"max_verify_nodes" json:"max_verify_nodes"`
	VerifyTimeout       time.Duration `mapstructure:"verify_timeout" yaml:"verify_timeout" json:"verify_timeout"`
	IgnoreLeafLabels    bool          `mapstructure:"ignore_leaf_labels" yaml:"ignore_leaf_labels" json:"ignore_leaf_labels"`
	PriorityFeedback    bool          `mapstructure:"priority_feedback" yaml:"priority_feedback" json:"priority_feedback"`
	FeedbackRelaxation  float64       `mapstructure:"feedback_relaxation" yaml:"feedback_relaxation" json:"feedback_relaxation"`
}

// Rows returns the number of signature rows per LSH band
func (c CloneConfig) Rows() int {
	if c.Bands <= 0 {
		return 0
	}
	return c.Hashes / c.Bands
}

// PriorityConfig holds tier cut points on the composite scale
type PriorityConfig struct {
	Critical                 float64 `mapstructure:"critical" yaml:"critical" json:"critical"`
	High                     float64 `mapstructure:"high" yaml:"high" json:"high"`
	Medium                   float64 `mapstructure:"medium" yaml:"medium" json:"medium"`
	ClonePromotionSimilarity float64 `mapstructure:"clone_promotion_similarity" yaml:"clone_promotion_similarity" json:"clone_promotion_similarity"`
	ConfidenceWeighting      bool    `mapstructure:"confidence_weighting" yaml:"confidence_weighting" json:"confidence_weighting"`
}

// CacheConfig selects the run cache backend
type CacheConfig struct {
	// Backend is one of none, memory, sqlite, mysql, postgres
	Backend string `mapstructure:"backend" yaml:"backend" json:"backend"`
	DSN     string `mapstructure:"dsn" yaml:"dsn" json:"dsn"`
	Table   string `mapstructure:"table" yaml:"table" json:"table"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	Format     string `mapstructure:"format" yaml:"format" json:"format"`
	Limit      int    `mapstructure:"limit" yaml:"limit" json:"limit"`
	MinTier    string `mapstructure:"min_tier" yaml:"min_tier" json:"min_tier"`
	ShowScores bool   `mapstructure:"show_scores" yaml:"show_scores" json:"show_scores"`
}

// PerformanceConfig bounds concurrency and run time
type PerformanceConfig struct {
	// MaxWorkers of 0 means GOMAXPROCS
	MaxWorkers int           `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level" json:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json" json:"json"`
}

// ObservabilityConfig enables the metrics endpoint and trace export
type ObservabilityConfig struct {
	MetricsAddr  string `mapstructure:"metrics_addr" yaml:"metrics_addr" json:"metrics_addr"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint" json:"otlp_endpoint"`
}

// DefaultDetectors returns the built-in feature to detector mapping
func DefaultDetectors() []DetectorConfig {
	return []DetectorConfig{
		{Feature: "cyclomatic", Kind: string(domain.DetectorKindComplexity)},
		{Feature: "cognitive", Kind: string(domain.DetectorKindComplexity)},
		{Feature: "max_nesting", Kind: string(domain.DetectorKindComplexity)},
		{Feature: "halstead_volume", Kind: string(domain.DetectorKindComplexity)},
		{Feature: "maintainability_index", Kind: string(domain.DetectorKindComplexity), Invert: true},
		{Feature: "lines_of_code", Kind: string(domain.DetectorKindStructure)},
		{Feature: "lcom", Kind: string(domain.DetectorKindStructure)},
		{Feature: "cbo", Kind: string(domain.DetectorKindStructure)},
		{Feature: "parameters", Kind: string(domain.DetectorKindStructure)},
		{Feature: "fan_out", Kind: string(domain.DetectorKindStructure)},
		{Feature: "style_violations", Kind: string(domain.DetectorKindStyle)},
		{Feature: "long_lines", Kind: string(domain.DetectorKindStyle)},
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Weights: WeightsConfig{
			Complexity: constants.DefaultComplexityWeight,
			Graph:      constants.DefaultGraphWeight,
			Structure:  constants.DefaultStructureWeight,
			Style:      constants.DefaultStyleWeight,
			Coverage:   constants.DefaultCoverageWeight,
			Clone:      constants.DefaultCloneWeight,
		},
		Detectors: DefaultDetectors(),
		Normalization: NormalizationConfig{
			Mode:                 string(domain.NormalizationModeZScore),
			MinSamples:           constants.DefaultMinSamples,
			PriorStrength:        constants.DefaultPriorStrength,
			OutlierIQRMultiplier: constants.DefaultOutlierIQRMultiplier,
		},
		Graph: GraphConfig{
			Enabled:          true,
			ExactNodeCeiling: constants.DefaultExactNodeCeiling,
			SampleRate:       constants.DefaultSampleRate,
			MinSamples:       constants.DefaultMinSampleSources,
			Seed:             constants.DefaultGraphSeed,
		},
		Clone: CloneConfig{
			Enabled:             true,
			ShingleSize:         constants.DefaultShingleSize,
			Hashes:              constants.DefaultMinHashFunctions,
			Bands:               constants.DefaultLSHBands,
			CandidateThreshold:  constants.DefaultCandidateThreshold,
			AcceptanceThreshold: constants.DefaultAcceptanceThreshold,
			MaxVerifyNodes:      constants.DefaultMaxVerifyNodes,
			VerifyTimeout:       constants.DefaultVerifyTimeoutMillis * time.Millisecond,
			FeedbackRelaxation:  constants.DefaultFeedbackRelaxation,
		},
		Priority: PriorityConfig{
			Critical:                 constants.DefaultCriticalCut,
			High:                     constants.DefaultHighCut,
			Medium:                   constants.DefaultMediumCut,
			ClonePromotionSimilarity: constants.DefaultClonePromotionSimilarity,
		},
		Cache: CacheConfig{
			Backend: constants.DefaultCacheBackend,
			DSN:     constants.DefaultCacheDSN,
			Table:   constants.DefaultCacheTable,
		},
		Output: OutputConfig{
			Format:  string(domain.OutputFormatText),
			MinTier: string(domain.PriorityLow),
		},
		Performance: PerformanceConfig{
			Timeout: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from file or returns default config.
// Environment variables prefixed with VALKNUT_ override file values.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = findDefaultConfig()
	}

	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))
	v.AutomaticEnv()

	defaults, err := settingsOf(DefaultConfig())
	if err != nil {
		return nil, domain.NewConfigError("failed to encode default configuration", err)
	}
	if err := v.MergeConfigMap(defaults); err != nil {
		return nil, domain.NewConfigError("failed to register default configuration", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, domain.NewConfigError(fmt.Sprintf("failed to read config file %s", configPath), err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, domain.NewConfigError("failed to unmarshal config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// findDefaultConfig looks for configuration files in the working directory,
// then for .valknut.toml in parent directories, then in the home directory
func findDefaultConfig() string {
	candidates := []string{
		"valknut.yaml",
		"valknut.yml",
		".valknut.yaml",
		".valknut.yml",
		"valknut.json",
		".valknut.json",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	if wd, err := os.Getwd(); err == nil {
		if path, err := FindTomlConfig(wd); err == nil {
			return path
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		for _, candidate := range candidates {
			path := filepath.Join(home, candidate)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	return ""
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if err := c.validateWeights(); err != nil {
		return err
	}
	if err := c.validateDetectors(); err != nil {
		return err
	}
	if err := c.validateNormalization(); err != nil {
		return err
	}
	if err := c.validateGraph(); err != nil {
		return err
	}
	if err := c.validateClone(); err != nil {
		return err
	}
	if err := c.validatePriority(); err != nil {
		return err
	}

	validBackends := map[string]bool{"none": true, "memory": true, "sqlite": true, "mysql": true, "postgres": true}
	if !validBackends[c.Cache.Backend] {
		return invalid("invalid cache.backend '%s', must be one of: none, memory, sqlite, mysql, postgres", c.Cache.Backend)
	}

	if !domain.OutputFormat(c.Output.Format).IsValid() {
		return invalid("invalid output.format '%s', must be one of: text, json, yaml, csv, parquet", c.Output.Format)
	}
	if c.Output.Limit < 0 {
		return invalid("output.limit must be >= 0, got %d", c.Output.Limit)
	}
	if c.Output.MinTier != "" {
		if _, err := domain.ParsePriorityTier(c.Output.MinTier); err != nil {
			return invalid("invalid output.min_tier '%s', must be one of: critical, high, medium, low", c.Output.MinTier)
		}
	}

	if c.Performance.MaxWorkers < 0 {
		return invalid("performance.max_workers must be >= 0, got %d", c.Performance.MaxWorkers)
	}
	if c.Performance.Timeout < 0 {
		return invalid("performance.timeout must be >= 0, got %s", c.Performance.Timeout)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return invalid("invalid logging.level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

func (c *Config) validateWeights() error {
	total := 0.0
	for _, kind := range domain.AllDetectorKinds() {
		w := c.Weights.For(kind)
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return invalid("weights.%s must be a finite value >= 0, got %v", kind, w)
		}
		total += w
	}
	if total == 0 {
		return invalid("at least one detector kind weight must be > 0")
	}
	return nil
}

func (c *Config) validateDetectors() error {
	seen := make(map[string]bool, len(c.Detectors))
	for i, d := range c.Detectors {
		if d.Feature == "" {
			return invalid("detectors[%d].feature cannot be empty", i)
		}
		if _, err := domain.ParseDetectorKind(d.Kind); err != nil {
			return invalid("detectors[%d] (%s) has unknown kind '%s'", i, d.Feature, d.Kind)
		}
		if seen[d.Feature] {
			return invalid("detector feature '%s' is configured more than once", d.Feature)
		}
		seen[d.Feature] = true
	}
	return nil
}

func (c *Config) validateNormalization() error {
	n := c.Normalization
	if n.Mode != string(domain.NormalizationModeZScore) && n.Mode != string(domain.NormalizationModeBayesian) {
		return invalid("invalid normalization.mode '%s', must be one of: zscore, bayesian", n.Mode)
	}
	if n.MinSamples < 2 {
		return invalid("normalization.min_samples must be >= 2, got %d", n.MinSamples)
	}
	if n.PriorStrength <= 0 {
		return invalid("normalization.prior_strength must be > 0, got %v", n.PriorStrength)
	}
	if n.OutlierIQRMultiplier < 0 {
		return invalid("normalization.outlier_iqr_multiplier must be >= 0, got %v", n.OutlierIQRMultiplier)
	}
	for name, prior := range n.Priors {
		if prior.StdDev < 0 || math.IsNaN(prior.Mean) || math.IsNaN(prior.StdDev) {
			return invalid("normalization.priors[%s] must have a finite mean and stddev >= 0", name)
		}
	}
	return nil
}

func (c *Config) validateGraph() error {
	g := c.Graph
	if g.ExactNodeCeiling < 1 {
		return invalid("graph.exact_node_ceiling must be >= 1, got %d", g.ExactNodeCeiling)
	}
	if g.SampleRate <= 0 || g.SampleRate > 1 {
		return invalid("graph.sample_rate must be in (0, 1], got %v", g.SampleRate)
	}
	if g.MinSamples < 1 {
		return invalid("graph.min_samples must be >= 1, got %d", g.MinSamples)
	}
	return nil
}

func (c *Config) validateClone() error {
	cl := c.Clone
	if cl.ShingleSize < 1 {
		return invalid("clone.shingle_size must be >= 1, got %d", cl.ShingleSize)
	}
	if cl.Hashes <= 0 {
		return invalid("clone.hashes must be > 0, got %d", cl.Hashes)
	}
	if cl.Bands <= 0 {
		return invalid("clone.bands must be > 0, got %d", cl.Bands)
	}
	if cl.Bands > cl.Hashes {
		return invalid("clone.bands (%d) cannot exceed clone.hashes (%d)", cl.Bands, cl.Hashes)
	}
	if !unitInterval(cl.CandidateThreshold) {
		return invalid("clone.candidate_threshold must be between 0.0 and 1.0, got %v", cl.CandidateThreshold)
	}
	if !unitInterval(cl.AcceptanceThreshold) {
		return invalid("clone.acceptance_threshold must be between 0.0 and 1.0, got %v", cl.AcceptanceThreshold)
	}
	if cl.AcceptanceThreshold < cl.CandidateThreshold {
		return invalid("clone.acceptance_threshold (%v) must be >= candidate_threshold (%v)",
			cl.AcceptanceThreshold, cl.CandidateThreshold)
	}
	if cl.MaxVerifyNodes < 0 {
		return invalid("clone.max_verify_nodes must be >= 0, got %d", cl.MaxVerifyNodes)
	}
	if cl.VerifyTimeout < 0 {
		return invalid("clone.verify_timeout must be >= 0, got %s", cl.VerifyTimeout)
	}
	if !unitInterval(cl.FeedbackRelaxation) {
		return invalid("clone.feedback_relaxation must be between 0.0 and 1.0, got %v", cl.FeedbackRelaxation)
	}
	return nil
}

func (c *Config) validatePriority() error {
	p := c.Priority
	if !(p.Critical > p.High && p.High > p.Medium) {
		return invalid("priority cut points must be strictly descending (critical %v > high %v > medium %v)",
			p.Critical, p.High, p.Medium)
	}
	if !unitInterval(p.ClonePromotionSimilarity) {
		return invalid("priority.clone_promotion_similarity must be between 0.0 and 1.0, got %v", p.ClonePromotionSimilarity)
	}
	return nil
}

func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}

func invalid(format string, args ...interface{}) error {
	return domain.NewConfigError(fmt.Sprintf(format, args...), nil)
}
