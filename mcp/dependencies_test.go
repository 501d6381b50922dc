package mcp

import (
	"github.com/sibyllinesoft/valknut-sub001/internal/config"
)

// NewTestDependencies builds dependencies with caching disabled
func NewTestDependencies(cfg *config.Config, path string) *Dependencies {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.Cache.Backend = "none"
	return NewDependencies(cfg, path, nil)
}
