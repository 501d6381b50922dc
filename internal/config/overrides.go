package config

// Overrides carries command-line values that may replace file configuration
type Overrides struct {
	Format       string
	Limit        int
	MinTier      string
	Seed         int64
	NoCache      bool
	Workers      int
	LogLevel     string
	MetricsAddr  string
	OTLPEndpoint string
}

// Flag names recognised by ApplyOverrides
const (
	FlagFormat       = "format"
	FlagLimit        = "limit"
	FlagMinTier      = "min-tier"
	FlagSeed         = "seed"
	FlagNoCache      = "no-cache"
	FlagWorkers      = "workers"
	FlagLogLevel     = "log-level"
	FlagMetricsAddr  = "metrics-addr"
	FlagOTLPEndpoint = "otlp-endpoint"
)

// WasExplicitlySet checks if a flag was explicitly set by the user
func WasExplicitlySet(flags map[string]bool, flagName string) bool {
	if flags == nil {
		return false
	}
	return flags[flagName]
}

// merge returns override only if the flag was explicitly set
func merge[T any](base, override T, flagName string, flags map[string]bool) T {
	if WasExplicitlySet(flags, flagName) {
		return override
	}
	return base
}

// ApplyOverrides merges explicitly set flags into the configuration and
// re-validates it
func (c *Config) ApplyOverrides(o Overrides, flags map[string]bool) error {
	c.Output.Format = merge(c.Output.Format, o.Format, FlagFormat, flags)
	c.Output.Limit = merge(c.Output.Limit, o.Limit, FlagLimit, flags)
	c.Output.MinTier = merge(c.Output.MinTier, o.MinTier, FlagMinTier, flags)
	c.Graph.Seed = merge(c.Graph.Seed, o.Seed, FlagSeed, flags)
	c.Performance.MaxWorkers = merge(c.Performance.MaxWorkers, o.Workers, FlagWorkers, flags)
	c.Logging.Level = merge(c.Logging.Level, o.LogLevel, FlagLogLevel, flags)
	c.Observability.MetricsAddr = merge(c.Observability.MetricsAddr, o.MetricsAddr, FlagMetricsAddr, flags)
	c.Observability.OTLPEndpoint = merge(c.Observability.OTLPEndpoint, o.OTLPEndpoint, FlagOTLPEndpoint, flags)
	if WasExplicitlySet(flags, FlagNoCache) && o.NoCache {
		c.Cache.Backend = "none"
	}
	return c.Validate()
}
