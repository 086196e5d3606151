// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Addr string `env:"ADDR" envDefault:":3000"`

	APIKey    string        `env:"COMET_API_KEY"`
	APIBase   string        `env:"COMET_API_BASE" envDefault:"https://api.cometapi.com/v1"`
	ModelID   string        `env:"MODEL_ID" envDefault:"grok-beta"`
	MaxTokens int           `env:"MAX_TOKENS" envDefault:"2000"`
	Timeout   time.Duration `env:"GENERATION_TIMEOUT" envDefault:"90s"`

	SavesDB string `env:"SAVES_DB" envDefault:"./saves.db"`
	AuditDB string `env:"AUDIT_DB" envDefault:"./audit.db"`

	Debug    bool   `env:"DEBUG"`
	DebugLog string `env:"DEBUG_LOG" envDefault:"debug.log"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
