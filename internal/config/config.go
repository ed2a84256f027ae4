// Package config loads twitchctl's configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	TwitchClientID     string `env:"TWITCH_CLIENT_ID"`
	TwitchClientSecret string `env:"TWITCH_CLIENT_SECRET"`
	TwitchAccessToken  string `env:"TWITCH_ACCESS_TOKEN"`
	TwitchRefreshToken string `env:"TWITCH_REFRESH_TOKEN"`
	TwitchRedirectURI  string `env:"TWITCH_REDIRECT_URI"`
	AppMode            bool   `env:"TWITCH_APP_MODE" default:"false"`
	RequestsPerMinute  int    `env:"TWITCH_REQUESTS_PER_MINUTE" default:"800"`
	LogLevel           string `env:"LOG_LEVEL" default:"info"`
	LogFormat          string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"TWITCH_CLIENT_ID":     cfg.TwitchClientID,
		"TWITCH_CLIENT_SECRET": cfg.TwitchClientSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if cfg.AppMode && cfg.TwitchAccessToken != "" {
		return errors.New("TWITCH_APP_MODE and TWITCH_ACCESS_TOKEN are mutually exclusive")
	}
	if !cfg.AppMode && cfg.TwitchAccessToken == "" {
		return errors.New("either TWITCH_APP_MODE or TWITCH_ACCESS_TOKEN must be set")
	}

	return nil
}
