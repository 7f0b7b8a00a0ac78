package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	"valplus/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath       string
	ServerPort   string
	LogLevel     string
	SettingsPath string

	GLZURL         string
	PDURL          string
	ClientPlatform string

	// Defaults for Settings when no settings file exists yet.
	PollInterval      time.Duration
	AuthRetryInterval time.Duration
	AutoRefresh       bool
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	pollInterval, err := getEnvDuration("POLL_INTERVAL", constants.DefaultPollInterval)
	if err != nil {
		return nil, err
	}
	authRetry, err := getEnvDuration("AUTH_RETRY_INTERVAL", constants.DefaultAuthRetryInterval)
	if err != nil {
		return nil, err
	}
	autoRefresh, err := strconv.ParseBool(getEnv("AUTO_REFRESH", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_REFRESH: %w", err)
	}

	cfg := &Config{
		DBPath:            getEnv("DB_PATH", "valplus.db"),
		ServerPort:        getEnv("SERVER_PORT", "7420"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		SettingsPath:      getEnv("SETTINGS_PATH", "valplus-settings.yaml"),
		GLZURL:            getEnv("RIOT_GLZ_URL", constants.DefaultGLZURL),
		PDURL:             getEnv("RIOT_PD_URL", constants.DefaultPDURL),
		ClientPlatform:    getEnv("RIOT_CLIENT_PLATFORM", constants.DefaultClientPlatform),
		PollInterval:      pollInterval,
		AuthRetryInterval: authRetry,
		AutoRefresh:       autoRefresh,
	}

	if cfg.PollInterval < constants.MinPollInterval {
		return nil, fmt.Errorf("POLL_INTERVAL must be at least %s", constants.MinPollInterval)
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("settings_path", cfg.SettingsPath).
		Dur("poll_interval", cfg.PollInterval).
		Dur("auth_retry_interval", cfg.AuthRetryInterval).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

var Module = fx.Provide(Load)
