package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sibyllinesoft/valknut-sub001/internal/config"
)

const defaultYAMLConfig = "valknut.yaml"

// InitCommand represents the init command
type InitCommand struct {
	force      bool
	toml       bool
	configPath string
}

// NewInitCommand creates a new init command
func NewInitCommand() *InitCommand {
	return &InitCommand{}
}

// CreateCobraCommand creates the cobra command for configuration initialization
func (i *InitCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default valknut configuration file",
		Long: `Write the built-in default configuration to a file in the current directory.

By default valknut.yaml is created. With --toml the file is .valknut.toml,
which valknut also discovers in parent directories.

Examples:
  # Create valknut.yaml
  valknut init

  # Create .valknut.toml
  valknut init --toml

  # Overwrite an existing file
  valknut init --force`,
		Args: cobra.NoArgs,
		RunE: i.runInit,
	}

	cmd.Flags().BoolVarP(&i.force, "force", "f", false, "Overwrite existing configuration file")
	cmd.Flags().BoolVar(&i.toml, "toml", false, "Write .valknut.toml instead of valknut.yaml")
	cmd.Flags().StringVarP(&i.configPath, "config", "c", "", "Configuration file path")

	return cmd
}

func (i *InitCommand) runInit(cmd *cobra.Command, args []string) error {
	target := i.configPath
	if target == "" {
		target = defaultYAMLConfig
		if i.toml {
			target = config.TomlConfigName
		}
	}

	configPath, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil && !i.force {
		return fmt.Errorf("configuration file already exists: %s\nUse --force to overwrite", configPath)
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", configDir, err)
	}

	cfg := config.DefaultConfig()
	if i.toml || filepath.Ext(configPath) == ".toml" {
		err = config.SaveTOML(cfg, configPath)
	} else {
		err = config.SaveConfig(cfg, configPath)
	}
	if err != nil {
		return err
	}

	relPath, err := filepath.Rel(".", configPath)
	if err != nil {
		relPath = configPath
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created: %s\n", relPath)
	fmt.Fprintf(cmd.OutOrStdout(), "\nTo customize valknut for your project:\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  1. Edit %s\n", relPath)
	fmt.Fprintf(cmd.OutOrStdout(), "  2. Adjust weights, detectors and tier cutoffs\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  3. Run 'valknut analyze features/' to use your configuration\n")

	return nil
}

// NewInitCmd creates and returns the init cobra command
func NewInitCmd() *cobra.Command {
	return NewInitCommand().CreateCobraCommand()
}
