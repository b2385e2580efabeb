// Package roots locates the project directory that job commands run in.
package roots

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	// VersionControlMarker marks a repository root when no configuration file is found.
	VersionControlMarker = ".git"
)

// ErrStartDirectoryMissing indicates Discover was called without a starting directory.
var ErrStartDirectoryMissing = errors.New("start directory not provided")

// ConfigurationMarkers returns the file names that mark a project root for the given configuration name.
func ConfigurationMarkers(configurationName string, extensions []string) []string {
	markers := make([]string, 0, len(extensions))
	for _, extension := range extensions {
		markers = append(markers, configurationName+"."+extension)
	}
	return markers
}

// Discover walks upward from start and returns the first directory containing any configuration
// marker. When none is found the nearest directory holding VersionControlMarker is returned, and
// failing that the cleaned start directory itself.
func Discover(start string, markers []string) (string, error) {
	trimmedStart := strings.TrimSpace(start)
	if len(trimmedStart) == 0 {
		return "", ErrStartDirectoryMissing
	}
	absoluteStart, absoluteError := filepath.Abs(trimmedStart)
	if absoluteError != nil {
		return "", absoluteError
	}

	versionControlRoot := ""
	for directory := absoluteStart; ; {
		if containsAny(directory, markers) {
			return directory, nil
		}
		if len(versionControlRoot) == 0 && exists(filepath.Join(directory, VersionControlMarker)) {
			versionControlRoot = directory
		}
		parent := filepath.Dir(directory)
		if parent == directory {
			break
		}
		directory = parent
	}

	if len(versionControlRoot) > 0 {
		return versionControlRoot, nil
	}
	return absoluteStart, nil
}

// FromConfigurationFile returns the directory holding the configuration file, or fallback when the
// path is empty.
func FromConfigurationFile(configurationFilePath string, fallback string) (string, error) {
	trimmedPath := strings.TrimSpace(configurationFilePath)
	if len(trimmedPath) == 0 {
		return fallback, nil
	}
	absolutePath, absoluteError := filepath.Abs(trimmedPath)
	if absoluteError != nil {
		return "", absoluteError
	}
	return filepath.Dir(absolutePath), nil
}

func containsAny(directory string, markers []string) bool {
	for _, marker := range markers {
		candidate := filepath.Join(directory, marker)
		if info, statError := os.Stat(candidate); statError == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

func exists(path string) bool {
	_, statError := os.Stat(path)
	return statError == nil
}
