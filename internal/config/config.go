// Package config holds environment-driven application configuration.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config is parsed from the environment (optionally seeded from a .env
// file by the entrypoint).
type Config struct {
	// DataDir holds the document file, the blob database, and exports.
	DataDir string `env:"TIMETILL_DATA_DIR" envDefault:"."`

	// ManifestPath points at the static tool manifest; absence is non-fatal.
	ManifestPath string `env:"TIMETILL_MANIFEST" envDefault:"tools.json"`

	// SessionKey signs session tokens. Required.
	SessionKey string `env:"TIMETILL_SESSION_KEY"`

	// SessionTTL bounds how long a login stays valid.
	SessionTTL time.Duration `env:"TIMETILL_SESSION_TTL" envDefault:"12h"`

	// ApprovalRate is the simulated gateway's approval probability.
	ApprovalRate float64 `env:"TIMETILL_APPROVAL_RATE" envDefault:"0.85"`

	// GatewayDelay is the simulated settlement delay.
	GatewayDelay time.Duration `env:"TIMETILL_GATEWAY_DELAY" envDefault:"300ms"`

	// AdminUser/AdminPassword seed the bootstrap admin on first run.
	AdminUser     string `env:"TIMETILL_ADMIN_USER" envDefault:"admin"`
	AdminPassword string `env:"TIMETILL_ADMIN_PASSWORD" envDefault:"admin1234"`

	// Login rate limiting.
	LoginWindow   time.Duration `env:"TIMETILL_LOGIN_WINDOW" envDefault:"15m"`
	LoginMaxFails int           `env:"TIMETILL_LOGIN_MAX_FAILS" envDefault:"5"`
	LoginBlockFor time.Duration `env:"TIMETILL_LOGIN_BLOCK" envDefault:"15m"`
}

// Parse reads the configuration from the environment.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
