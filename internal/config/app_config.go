// Package config loads rptree defaults from global and local YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/tyemirov/rptree/internal/utils"
)

// Permission policy names accepted in configuration files.
const (
	PermissionPolicySkip  = "skip"
	PermissionPolicyAbort = "abort"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds the defaults applied before command line flags.
// Nil fields were not set by any configuration source.
type ApplicationConfiguration struct {
	DirOnly          *bool              `mapstructure:"dir_only" yaml:"dir_only"`
	MaxDepth         *int               `mapstructure:"max_depth" yaml:"max_depth"`
	OutputFile       string             `mapstructure:"output_file" yaml:"output_file"`
	Compact          *bool              `mapstructure:"compact" yaml:"compact"`
	PermissionPolicy string             `mapstructure:"permission_policy" yaml:"permission_policy"`
	Copy             *bool              `mapstructure:"copy" yaml:"copy"`
	Tokens           TokenConfiguration `mapstructure:"tokens" yaml:"tokens"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled" yaml:"enabled"`
	Model   string `mapstructure:"model" yaml:"model"`
}

// LoadApplicationConfiguration loads the global configuration and overlays the local one.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath, false)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	localConfig, loadErr := loadConfigurationFromPath(localPath, options.ExplicitFilePath != "")
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	if validationErr := merged.Validate(); validationErr != nil {
		return ApplicationConfiguration{}, validationErr
	}
	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, utils.LocalConfigFileName)
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath
	}
	return filepath.Join(workingDirectory, explicitPath)
}

// loadConfigurationFromPath reads one YAML file. A missing file is an empty configuration
// unless required is set, as it is for a path given with --config.
func loadConfigurationFromPath(path string, required bool) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) && !required {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	config.PermissionPolicy = strings.ToLower(strings.TrimSpace(config.PermissionPolicy))
	return config, nil
}

// Validate rejects values no command could apply.
func (config ApplicationConfiguration) Validate() error {
	switch config.PermissionPolicy {
	case "", PermissionPolicySkip, PermissionPolicyAbort:
	default:
		return fmt.Errorf("unsupported permission_policy %q; expected %s or %s", config.PermissionPolicy, PermissionPolicySkip, PermissionPolicyAbort)
	}
	if config.MaxDepth != nil && *config.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", *config.MaxDepth)
	}
	return nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.DirOnly != nil {
		result.DirOnly = cloneBool(override.DirOnly)
	}
	if override.MaxDepth != nil {
		result.MaxDepth = cloneInt(override.MaxDepth)
	}
	if override.OutputFile != "" {
		result.OutputFile = override.OutputFile
	}
	if override.Compact != nil {
		result.Compact = cloneBool(override.Compact)
	}
	if override.PermissionPolicy != "" {
		result.PermissionPolicy = override.PermissionPolicy
	}
	if override.Copy != nil {
		result.Copy = cloneBool(override.Copy)
	}
	result.Tokens = result.Tokens.merge(override.Tokens)
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	if override.Enabled != nil {
		result.Enabled = cloneBool(override.Enabled)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

// BoolValue dereferences an optional setting, using fallback when it is unset.
func BoolValue(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
