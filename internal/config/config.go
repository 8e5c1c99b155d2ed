// /internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is the process configuration read from the environment.
type Config struct {
	DiscordToken string   `env:"DISCORD_TOKEN"`
	SettingsPath string   `env:"SETTINGS_PATH" envDefault:"configs/botCfg.json"`
	KeywordsPath string   `env:"KEYWORDS_PATH" envDefault:"configs/keywords.json"`
	HistoryPath  string   `env:"HISTORY_PATH" envDefault:"data/cmdlog.json"`
	OwnerIDs     []string `env:"OWNER_IDS" envSeparator:","`

	CommandMapSize int           `env:"COMMAND_MAP_SIZE" envDefault:"100"`
	PromptTimeout  time.Duration `env:"PROMPT_TIMEOUT" envDefault:"120s"`
	CommandRate    float64       `env:"COMMAND_RATE" envDefault:"0.5"`
	CommandBurst   int           `env:"COMMAND_BURST" envDefault:"3"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"10"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`

	// MetricsAddr is where /metrics is served, empty to disable.
	MetricsAddr string `env:"METRICS_ADDR"`
}

// New loads .env if present and parses the environment.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using system environment variables")
	}
	return Parse()
}

// Parse reads the environment without touching .env.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.CommandMapSize < 1 {
		return fmt.Errorf("COMMAND_MAP_SIZE must be at least 1, got %d", c.CommandMapSize)
	}
	if c.PromptTimeout <= 0 {
		return fmt.Errorf("PROMPT_TIMEOUT must be positive, got %s", c.PromptTimeout)
	}
	if c.CommandBurst < 1 {
		return fmt.Errorf("COMMAND_BURST must be at least 1, got %d", c.CommandBurst)
	}
	ids := c.OwnerIDs[:0]
	for _, id := range c.OwnerIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	c.OwnerIDs = ids
	return nil
}

// ResolveToken picks the bot token: the flag value, then DISCORD_TOKEN, then
// the token stored in the settings file.
func (c *Config) ResolveToken(flag, stored string) string {
	for _, t := range []string{flag, c.DiscordToken, stored} {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return ""
}
