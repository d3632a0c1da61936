package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

type Config struct {
	DataDir string        `mapstructure:"data_dir"`
	Logging LoggingConfig `mapstructure:"logging"`
	Setup   SetupConfig   `mapstructure:"setup"`
	Admin   AdminConfig   `mapstructure:"admin"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type SetupConfig struct {
	// HealthTimeoutSeconds bounds the final health wait.
	HealthTimeoutSeconds int `mapstructure:"health_timeout_seconds"`
}

// AdminConfig is the optional administrator credential pair handed to the
// backend container on first start. Sourced from config or, more commonly,
// from TRH_ADMIN_EMAIL / TRH_ADMIN_PASSWORD (a .env file is picked up
// automatically).
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

func Load() (*Config, error) {
	var cfg Config

	viper.SetDefault("data_dir", defaultDataDir())
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("setup.health_timeout_seconds", 180)

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if env := os.Getenv("TRH_ADMIN_EMAIL"); env != "" {
		cfg.Admin.Email = env
	}
	if env := os.Getenv("TRH_ADMIN_PASSWORD"); env != "" {
		cfg.Admin.Password = env
	}

	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
		log.Debug("Config had empty data_dir, using default", "data_dir", cfg.DataDir)
	}

	if err := ValidateCredentials(cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".trh-platform")
	}
	return ".trh-platform"
}
