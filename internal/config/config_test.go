package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.30, cfg.Weights.Complexity)
	assert.Equal(t, 128, cfg.Clone.Hashes)
	assert.Equal(t, 32, cfg.Clone.Bands)
	assert.Equal(t, 4, cfg.Clone.Rows())
	assert.Equal(t, 2*time.Second, cfg.Clone.VerifyTimeout)
	assert.Equal(t, 10, cfg.Normalization.MinSamples)
	assert.Equal(t, 2000, cfg.Graph.ExactNodeCeiling)
	assert.False(t, cfg.Graph.SelfLoopsAsCycles)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bands exceed hashes", func(c *Config) { c.Clone.Bands = 200 }},
		{"zero bands", func(c *Config) { c.Clone.Bands = 0 }},
		{"zero hashes", func(c *Config) { c.Clone.Hashes = 0 }},
		{"all weights zero", func(c *Config) { c.Weights = WeightsConfig{} }},
		{"negative weight", func(c *Config) { c.Weights.Style = -0.1 }},
		{"shingle size zero", func(c *Config) { c.Clone.ShingleSize = 0 }},
		{"candidate threshold above one", func(c *Config) { c.Clone.CandidateThreshold = 1.2 }},
		{"acceptance below candidate", func(c *Config) { c.Clone.AcceptanceThreshold = 0.4 }},
		{"cut points not descending", func(c *Config) { c.Priority.High = 2.0 }},
		{"sample rate zero", func(c *Config) { c.Graph.SampleRate = 0 }},
		{"sample rate above one", func(c *Config) { c.Graph.SampleRate = 1.5 }},
		{"ceiling zero", func(c *Config) { c.Graph.ExactNodeCeiling = 0 }},
		{"min samples one", func(c *Config) { c.Normalization.MinSamples = 1 }},
		{"unknown mode", func(c *Config) { c.Normalization.Mode = "minmax" }},
		{"unknown format", func(c *Config) { c.Output.Format = "html" }},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "redis" }},
		{"unknown tier", func(c *Config) { c.Output.MinTier = "urgent" }},
		{"negative verify cap", func(c *Config) { c.Clone.MaxVerifyNodes = -1 }},
		{"unknown detector kind", func(c *Config) {
			c.Detectors = append(c.Detectors, DetectorConfig{Feature: "x", Kind: "vibes"})
		}},
		{"duplicate detector", func(c *Config) {
			c.Detectors = append(c.Detectors, DetectorConfig{Feature: "cyclomatic", Kind: "complexity"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, domain.HasErrorCode(err, domain.ErrCodeConfigError))
		})
	}
}

func TestConfigValidate_OneZeroWeightIsAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.Style = 0
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "valknut.yaml")
	content := `
clone:
  bands: 16
  verify_timeout: 500ms
normalization:
  priors:
    complexity.cyclomatic:
      mean: 4
      stddev: 2
output:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Clone.Bands)
	assert.Equal(t, 128, cfg.Clone.Hashes, "unset values keep defaults")
	assert.Equal(t, 500*time.Millisecond, cfg.Clone.VerifyTimeout)
	assert.Equal(t, "json", cfg.Output.Format)
	require.Contains(t, cfg.Normalization.Priors, "complexity.cyclomatic")
	assert.Equal(t, 4.0, cfg.Normalization.Priors["complexity.cyclomatic"].Mean)
}

func TestLoadConfig_RejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "valknut.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clone:\n  bands: 512\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.True(t, domain.HasErrorCode(err, domain.ErrCodeConfigError))
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "valknut.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clone:\n  bands: 16\n"), 0644))
	t.Setenv("VALKNUT_CLONE_BANDS", "8")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Clone.Bands)
}

func TestTomlRoundTrip(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	cfg := DefaultConfig()
	cfg.Graph.Seed = 7
	cfg.Clone.PriorityFeedback = true
	require.NoError(t, SaveTOML(cfg, filepath.Join(dir, TomlConfigName)))

	found, err := FindTomlConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, TomlConfigName), found)

	loaded, err := LoadTomlConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, int64(7), loaded.Graph.Seed)
	assert.True(t, loaded.Clone.PriorityFeedback)
	assert.Equal(t, cfg.Clone.VerifyTimeout, loaded.Clone.VerifyTimeout)
	assert.Equal(t, cfg.Detectors, loaded.Detectors)
}

func TestSaveConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valknut.yaml")
	cfg := DefaultConfig()
	cfg.Priority.ConfidenceWeighting = true
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, loaded.Priority.ConfidenceWeighting)
	assert.Equal(t, cfg.Weights, loaded.Weights)
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyOverrides(Overrides{
		Format:  "csv",
		Limit:   5,
		Seed:    99,
		NoCache: true,
	}, map[string]bool{FlagFormat: true, FlagNoCache: true, FlagLimit: true})
	require.NoError(t, err)

	assert.Equal(t, "csv", cfg.Output.Format)
	assert.Equal(t, 5, cfg.Output.Limit)
	assert.Equal(t, int64(42), cfg.Graph.Seed, "seed flag not set explicitly")
	assert.Equal(t, "none", cfg.Cache.Backend)

	err = cfg.ApplyOverrides(Overrides{MinTier: "urgent"}, map[string]bool{FlagMinTier: true})
	assert.Error(t, err)
}
