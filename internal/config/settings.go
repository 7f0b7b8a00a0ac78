package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
	"valplus/internal/constants"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Settings are the user-tunable knobs of the poll cycle.
type Settings struct {
	AutoRefresh       bool          `yaml:"auto_refresh" json:"auto_refresh"`
	PollInterval      time.Duration `yaml:"poll_interval" json:"poll_interval"`
	AuthRetryInterval time.Duration `yaml:"auth_retry_interval" json:"auth_retry_interval"`
}

func (s Settings) Validate() error {
	if s.PollInterval < constants.MinPollInterval {
		return fmt.Errorf("%w: poll_interval must be at least %s", ErrInvalidSettings, constants.MinPollInterval)
	}
	if s.AuthRetryInterval <= 0 {
		return fmt.Errorf("%w: auth_retry_interval must be positive", ErrInvalidSettings)
	}
	return nil
}

// SettingsStore keeps the current settings in memory and mirrors every
// change to a YAML file.
type SettingsStore struct {
	mu       sync.RWMutex
	path     string
	settings Settings
	logger   zerolog.Logger
}

func NewSettingsStore(cfg *Config, logger zerolog.Logger) (*SettingsStore, error) {
	defaults := Settings{
		AutoRefresh:       cfg.AutoRefresh,
		PollInterval:      cfg.PollInterval,
		AuthRetryInterval: cfg.AuthRetryInterval,
	}
	return LoadSettings(cfg.SettingsPath, defaults, logger)
}

// LoadSettings reads path over defaults. A missing file is not an error.
func LoadSettings(path string, defaults Settings, logger zerolog.Logger) (*SettingsStore, error) {
	s := &SettingsStore{path: path, settings: defaults, logger: logger}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug().Str("path", path).Msg("settings file not found, using defaults")
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	loaded := defaults
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings file %s: %w", path, err)
	}
	s.settings = loaded

	logger.Info().
		Str("path", path).
		Bool("auto_refresh", loaded.AutoRefresh).
		Dur("poll_interval", loaded.PollInterval).
		Msg("settings loaded")
	return s, nil
}

func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update validates and persists next.
func (s *SettingsStore) Update(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		data, err := yaml.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode settings: %w", err)
		}
		if err := os.WriteFile(s.path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write settings file: %w", err)
		}
	}
	s.settings = next

	s.logger.Info().
		Bool("auto_refresh", next.AutoRefresh).
		Dur("poll_interval", next.PollInterval).
		Dur("auth_retry_interval", next.AuthRetryInterval).
		Msg("settings updated")
	return nil
}
