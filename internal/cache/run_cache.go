package cache

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/sibyllinesoft/valknut-sub001/domain"
	"github.com/sibyllinesoft/valknut-sub001/internal/constants"
)

// RunCache stores versioned JSON payloads in a CacheStore. It is advisory:
// every failure is logged at debug level and reported as a miss.
type RunCache struct {
	store   domain.CacheStore
	logger  *zap.Logger
	version int
	now     func() time.Time
}

// NewRunCache wraps a store. A nil store disables caching.
func NewRunCache(store domain.CacheStore, logger *zap.Logger) *RunCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunCache{store: store, logger: logger, version: constants.CacheSchemaVersion, now: time.Now}
}

// Load decodes the entry under key into out and reports whether it was a hit
func (c *RunCache) Load(key string, out any) bool {
	if c == nil || c.store == nil {
		return false
	}
	value, version, _, err := c.store.Get(key)
	if err != nil {
		c.logger.Debug("cache miss", zap.String("key", key), zap.Error(err))
		return false
	}
	if version != c.version {
		c.logger.Debug("cache version mismatch", zap.String("key", key), zap.Int("stored", version), zap.Int("expected", c.version))
		return false
	}
	if err := json.Unmarshal(value, out); err != nil {
		c.logger.Debug("cache entry undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Save encodes value and stores it under key
func (c *RunCache) Save(key string, value any) {
	if c == nil || c.store == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Debug("cache entry unencodable", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(key, data, c.version, c.now().Unix()); err != nil {
		c.logger.Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Close closes the underlying store
func (c *RunCache) Close() error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Close()
}
