package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/sibyllinesoft/valknut-sub001/domain"
)

// TomlConfigName is the dedicated project configuration file
const TomlConfigName = ".valknut.toml"

// FindTomlConfig walks up from startDir looking for .valknut.toml
func FindTomlConfig(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		configPath := filepath.Join(dir, TomlConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// LoadTomlConfig loads .valknut.toml found from startDir, or defaults when none exists
func LoadTomlConfig(startDir string) (*Config, error) {
	path, err := FindTomlConfig(startDir)
	if err != nil {
		cfg := DefaultConfig()
		return cfg, cfg.Validate()
	}
	return LoadConfig(path)
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return domain.NewConfigError("failed to encode configuration", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return domain.NewConfigError("failed to write configuration to "+path, err)
	}
	return nil
}

// SaveTOML saves configuration to a TOML file
func SaveTOML(config *Config, path string) error {
	settings, err := settingsOf(config)
	if err != nil {
		return domain.NewConfigError("failed to encode configuration", err)
	}
	data, err := toml.Marshal(settings)
	if err != nil {
		return domain.NewConfigError("failed to encode configuration as TOML", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return domain.NewConfigError("failed to write configuration to "+path, err)
	}
	return nil
}

// settingsOf flattens a config into a generic settings tree keyed by yaml names.
// Durations come out as strings ("2s") that viper decodes back.
func settingsOf(config *Config) (map[string]interface{}, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, err
	}
	settings := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}
