package mcp

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sibyllinesoft/valknut-sub001/app"
	"github.com/sibyllinesoft/valknut-sub001/domain"
	"github.com/sibyllinesoft/valknut-sub001/internal/cache"
	"github.com/sibyllinesoft/valknut-sub001/internal/config"
	"github.com/sibyllinesoft/valknut-sub001/service"
)

// Dependencies aggregates the shared services required by MCP handlers.
type Dependencies struct {
	config     *config.Config
	configPath string
	logger     *zap.Logger

	cacheOnce sync.Once
	runCache  *cache.RunCache
}

// NewDependencies constructs the dependency set. A nil cfg is loaded from
// configPath (or discovered) on each call.
func NewDependencies(cfg *config.Config, configPath string, logger *zap.Logger) *Dependencies {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dependencies{
		config:     cfg,
		configPath: configPath,
		logger:     logger,
	}
}

// Config returns the configuration snapshot, loading it when none was given
func (d *Dependencies) Config() (*config.Config, error) {
	if d.config != nil {
		return d.config, nil
	}
	return config.LoadConfig(d.configPath)
}

// ConfigPath returns the configured config file path (may be empty to trigger discovery).
func (d *Dependencies) ConfigPath() string {
	return d.configPath
}

// RunCache returns the cache shared by all tool calls, opening it with the
// backend of cfg on first use
func (d *Dependencies) RunCache(cfg *config.Config) *cache.RunCache {
	d.cacheOnce.Do(func() {
		d.runCache = service.OpenRunCache(cfg, d.logger)
	})
	return d.runCache
}

// Close releases the shared cache
func (d *Dependencies) Close() error {
	return d.runCache.Close()
}

// BuildAnalyzeUseCase assembles a fresh AnalyzeUseCase for one tool call
func (d *Dependencies) BuildAnalyzeUseCase() (*app.AnalyzeUseCase, error) {
	cfg, err := d.Config()
	if err != nil {
		return nil, err
	}

	pipeline, err := service.NewPipelineService(cfg,
		service.WithLogger(d.logger),
		service.WithRunCache(d.RunCache(cfg)))
	if err != nil {
		return nil, err
	}

	return app.NewAnalyzeUseCaseBuilder().
		WithPipeline(pipeline).
		WithFeatureSource(func(paths []string) domain.FeatureProvider {
			return service.NewFeatureReader(paths, nil, d.logger)
		}).
		WithCoverageSource(func(path string) domain.CoverageProvider {
			return service.NewCoverageReader(path)
		}).
		WithLogger(d.logger).
		Build()
}
