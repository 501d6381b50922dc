package service

import (
	"go.uber.org/zap"

	"github.com/sibyllinesoft/valknut-sub001/internal/cache"
	"github.com/sibyllinesoft/valknut-sub001/internal/config"
)

// OpenRunCache opens the configured cache backend. The cache is advisory,
// so a backend that cannot be opened is logged and the run proceeds
// without it. The returned cache may be nil and is safe to use and close.
func OpenRunCache(cfg *config.Config, logger *zap.Logger) *cache.RunCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	backend, err := cache.ParseBackend(cfg.Cache.Backend)
	if err != nil {
		logger.Warn("cache disabled", zap.Error(err))
		return nil
	}
	if backend == cache.BackendNone {
		return nil
	}

	store, err := cache.NewStore(backend, cfg.Cache.DSN, cfg.Cache.Table)
	if err != nil {
		logger.Warn("cache unavailable; continuing without it",
			zap.String("backend", string(backend)),
			zap.Error(err))
		return nil
	}
	logger.Debug("cache opened", zap.String("backend", string(backend)))
	return cache.NewRunCache(store, logger)
}
