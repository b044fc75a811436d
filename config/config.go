package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds the engine tunables. The defaults match the behavior the
// supported sources are known to tolerate; the file under
// ~/.config/rodoku/settings.yaml overrides them.
type Settings struct {
	RetryDelayMS      int  `yaml:"retry_delay_ms"`     // fixed wait between rate-limit retries
	MaxAttempts       int  `yaml:"max_attempts"`       // attempts per unit of work, first included
	PageSize          int  `yaml:"page_size"`          // chapters per list page
	BatchSize         int  `yaml:"batch_size"`         // pages fetched concurrently per batch
	MaxPages          int  `yaml:"max_pages"`          // safety cap for unknown-total pagination
	PageDelayMS       int  `yaml:"page_delay_ms"`      // pacing between sequential page requests
	RetainPartial     bool `yaml:"retain_partial"`     // keep merged chapters when a batch exhausts retries
	DecodeConcurrency int  `yaml:"decode_concurrency"` // parallel per-chapter content decodes
}

// Defaults returns the observed-good engine settings.
func Defaults() Settings {
	return Settings{
		RetryDelayMS:      3500,
		MaxAttempts:       3,
		PageSize:          100,
		BatchSize:         5,
		MaxPages:          100,
		PageDelayMS:       750,
		RetainPartial:     false,
		DecodeConcurrency: 2,
	}
}

// RetryDelay returns the fixed backoff delay as a duration.
func (s Settings) RetryDelay() time.Duration {
	return time.Duration(s.RetryDelayMS) * time.Millisecond
}

// PageDelay returns the sequential-page pacing as a duration.
func (s Settings) PageDelay() time.Duration {
	return time.Duration(s.PageDelayMS) * time.Millisecond
}

// LoadSettings loads settings from the user config directory, creating a
// template file with the defaults on first run. Errors are logged, not
// fatal: the engine can always run on the defaults.
func LoadSettings() Settings {
	settingsFile, err := verifyConfigFiles()
	if err != nil {
		log.Printf("error verifying config files: %v", err)
		return Defaults()
	}

	byteValues, err := os.ReadFile(settingsFile)
	if err != nil {
		log.Printf("error reading settings file: %v", err)
		return Defaults()
	}

	settings := Defaults()
	if err := yaml.Unmarshal(byteValues, &settings); err != nil {
		log.Printf("error unmarshalling settings: %v", err)
		return Defaults()
	}

	return settings
}

// SaveSettings writes settings to ~/.config/rodoku/settings.yaml
func SaveSettings(settings Settings) error {
	configDir, err := verifyConfigDirectory()
	if err != nil {
		return fmt.Errorf("error verifying config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}

	settingsFile := filepath.Join(configDir, "settings.yaml")
	return os.WriteFile(settingsFile, yamlData, 0644)
}

// check config directory exists or create it
func verifyConfigDirectory() (string, error) {
	configDirectory, expandError := expandPath("~/.config/rodoku")
	if expandError != nil {
		return "", fmt.Errorf("cannot verify local configuration directory: %w", expandError)
	}

	_, err := os.Stat(configDirectory)

	if os.IsNotExist(err) {
		if err := os.MkdirAll(configDirectory, 0755); err != nil {
			return "", fmt.Errorf("error creating directory %s: %w", configDirectory, err)
		}
		log.Printf("Directory %s created successfully.\n", configDirectory)
	} else if err != nil {
		return "", fmt.Errorf("error checking directory %s: %w", configDirectory, err)
	}

	return configDirectory, nil
}

// check config files exist or create them
func verifyConfigFiles() (string, error) {
	configDir, err := verifyConfigDirectory()
	if err != nil {
		return "", err
	}

	settingsFile := filepath.Join(configDir, "settings.yaml")

	_, err = os.Stat(settingsFile)

	if os.IsNotExist(err) {
		// File does not exist, write out the defaults as a template
		log.Printf("Settings file not found, creating template at '%s'\n", settingsFile)

		if saveErr := SaveSettings(Defaults()); saveErr != nil {
			return "", fmt.Errorf("error creating settings file: %w", saveErr)
		}
	} else if err != nil {
		return "", fmt.Errorf("error checking file existence: %w", err)
	}

	return settingsFile, nil
}

// expandPath expands ~ to the user's home directory, or returns the path as-is
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, path[2:]), nil
	}
	return path, nil
}
