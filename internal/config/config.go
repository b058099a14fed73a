// Package config discovers and loads project-level settings. Values come
// from STARFORGE_* environment variables, an optional starforge.yaml found
// in the working directory or the user's home, and built-in defaults, in
// that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds settings shared by the CLI commands.
type Config struct {
	SpecPath    string
	DatabaseURL string
	MaxRisk     string
	LLMModel    string
	SeedRows    int
	NoColor     bool
}

// LoadEnv loads .env from the working directory, then overlays .env.local
// on top of it. Missing files are not an error. Called once at startup,
// before any command reads its environment.
func LoadEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := os.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}
}

// Load resolves the project configuration. A missing starforge.yaml is
// fine; a malformed one is an error.
func Load() (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("starforge")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "starforge"))

	v.SetEnvPrefix("STARFORGE")
	v.AutomaticEnv()

	v.SetDefault("spec_path", "warehouse.yaml")
	v.SetDefault("max_risk", "medium")
	v.SetDefault("llm_model", "gpt-4o-mini")
	v.SetDefault("seed_rows", 25)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading starforge.yaml: %w", err)
		}
	}

	cfg := &Config{
		SpecPath:    v.GetString("spec_path"),
		DatabaseURL: v.GetString("db_url"),
		MaxRisk:     v.GetString("max_risk"),
		LLMModel:    v.GetString("llm_model"),
		SeedRows:    v.GetInt("seed_rows"),
		NoColor:     v.GetBool("no_color"),
	}

	// DATABASE_URL is the conventional unprefixed fallback.
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	return cfg, nil
}
