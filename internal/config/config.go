// Package config loads the shell's settings from environment variables.
// Everything has a working default; the variables exist for development and
// packaging overrides, not day-to-day play.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable of the shell process.
type Config struct {
	// ModulesDir is a local directory of level modules; checked before the
	// remote base URL.
	ModulesDir string `env:"CHRONO_MODULES_DIR"`
	// ModulesBaseURL serves level modules as <base>/<id>.js.
	ModulesBaseURL string `env:"CHRONO_MODULES_URL"`
	// RegistrationGrace bounds how long a fetched module gets to register
	// itself before the placeholder takes over.
	RegistrationGrace time.Duration `env:"CHRONO_REGISTRATION_GRACE" envDefault:"150ms"`
	// StartDelay separates a node click's load request from its start request.
	StartDelay time.Duration `env:"CHRONO_START_DELAY" envDefault:"400ms"`

	ScoresPort   int    `env:"CHRONO_SCORES_PORT" envDefault:"8091"`
	ScoresDBPath string `env:"CHRONO_SCORES_DB" envDefault:"chrono-arcade.db"`
	// AdminToken overrides the keychain-managed token when set.
	AdminToken string `env:"CHRONO_ADMIN_TOKEN"`

	LogLevel string `env:"CHRONO_LOG_LEVEL" envDefault:"info"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	return cfg, nil
}
