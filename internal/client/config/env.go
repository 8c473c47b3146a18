package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable name, e.g. FIELDMATE_API_KEY.
const EnvPrefix = "FIELDMATE"

// parseEnv loads .env (existing variables win) and overlays cfg with any
// FIELDMATE_* variables that are set. Unset variables leave cfg untouched.
func parseEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
