package utils

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorConstant         = "_"
	configurationKeySeparatorConstant       = "."
	embeddedConfigurationErrorTemplate      = "unable to read embedded configuration: %w"
	configurationFileReadErrorTemplate      = "unable to read configuration file %s: %w"
	configurationFileMergeErrorTemplate     = "unable to merge configuration file %s: %w"
	configurationDecodeErrorTemplate        = "unable to decode configuration: %w"
	configurationFileMissingErrorTemplate   = "configuration file %s does not exist"
	configurationFileDirectoryErrorTemplate = "configuration path %s is a directory"
)

// ErrConfigurationTargetMissing indicates LoadConfiguration was called without a decode target.
var ErrConfigurationTargetMissing = errors.New("configuration target not provided")

// ConfigurationFileExtensions lists the file extensions searched in each search path, in priority order.
var ConfigurationFileExtensions = []string{"yaml", "yml", "toml", "json"}

// LoadedConfiguration describes where the effective configuration came from.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// ConfigurationLoader layers defaults, embedded content, a configuration file, and environment overrides.
type ConfigurationLoader struct {
	configurationName     string
	configurationType     string
	environmentPrefix     string
	searchPaths           []string
	embeddedConfiguration []byte
	embeddedType          string
}

// NewConfigurationLoader constructs a loader for files named configurationName in searchPaths.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName: configurationName,
		configurationType: configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       append([]string(nil), searchPaths...),
	}
}

// SetEmbeddedConfiguration registers content applied above the defaults map and below any file.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(content []byte, contentType string) {
	loader.embeddedConfiguration = append([]byte(nil), content...)
	loader.embeddedType = contentType
}

// SearchPaths returns the directories searched when no explicit file is provided.
func (loader *ConfigurationLoader) SearchPaths() []string {
	return append([]string(nil), loader.searchPaths...)
}

// LoadConfiguration decodes the layered configuration into target. Precedence from lowest to highest:
// defaults, embedded content, the explicit or discovered file, environment variables.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaults map[string]any, target any) (LoadedConfiguration, error) {
	if target == nil {
		return LoadedConfiguration{}, ErrConfigurationTargetMissing
	}

	instance := viper.New()
	for key, value := range defaults {
		instance.SetDefault(key, value)
	}

	if len(loader.embeddedConfiguration) > 0 {
		embeddedType := loader.embeddedType
		if len(embeddedType) == 0 {
			embeddedType = loader.configurationType
		}
		instance.SetConfigType(embeddedType)
		if readError := instance.ReadConfig(bytes.NewReader(loader.embeddedConfiguration)); readError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationErrorTemplate, readError)
		}
	}

	metadata := LoadedConfiguration{}
	filePath, locateError := loader.locateConfigurationFile(configurationFilePath)
	if locateError != nil {
		return LoadedConfiguration{}, locateError
	}
	if len(filePath) > 0 {
		fileInstance := viper.New()
		fileInstance.SetConfigFile(filePath)
		if len(filepath.Ext(filePath)) == 0 {
			fileInstance.SetConfigType(loader.configurationType)
		}
		if readError := fileInstance.ReadInConfig(); readError != nil {
			return LoadedConfiguration{}, fmt.Errorf(configurationFileReadErrorTemplate, filePath, readError)
		}
		if mergeError := instance.MergeConfigMap(fileInstance.AllSettings()); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(configurationFileMergeErrorTemplate, filePath, mergeError)
		}
		metadata.ConfigFileUsed = filePath
	}

	if len(loader.environmentPrefix) > 0 {
		instance.SetEnvPrefix(loader.environmentPrefix)
	}
	instance.SetEnvKeyReplacer(strings.NewReplacer(configurationKeySeparatorConstant, environmentKeySeparatorConstant))
	instance.AutomaticEnv()

	if decodeError := instance.Unmarshal(target); decodeError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationDecodeErrorTemplate, decodeError)
	}
	return metadata, nil
}

func (loader *ConfigurationLoader) locateConfigurationFile(explicitPath string) (string, error) {
	trimmedPath := strings.TrimSpace(explicitPath)
	if len(trimmedPath) > 0 {
		info, statError := os.Stat(trimmedPath)
		if statError != nil {
			if errors.Is(statError, os.ErrNotExist) {
				return "", fmt.Errorf(configurationFileMissingErrorTemplate, trimmedPath)
			}
			return "", statError
		}
		if info.IsDir() {
			return "", fmt.Errorf(configurationFileDirectoryErrorTemplate, trimmedPath)
		}
		return trimmedPath, nil
	}

	for _, searchPath := range loader.searchPaths {
		if len(strings.TrimSpace(searchPath)) == 0 {
			continue
		}
		for _, extension := range ConfigurationFileExtensions {
			candidate := filepath.Join(searchPath, loader.configurationName+"."+extension)
			if info, statError := os.Stat(candidate); statError == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", nil
}
