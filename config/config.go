package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
)

// AIParams holds the parameters for one autoplayer profile.
type AIParams struct {
	Name               string `json:"name"`
	DelayMinMS         int    `json:"delay_min_ms"`
	DelayMaxMS         int    `json:"delay_max_ms"`
	UseKnownPairChance int    `json:"use_known_pair_chance"` // 0-100, probability to use a memorized pair when available
	ForgetChance       int    `json:"forget_chance"`         // 0-100, probability to forget a remembered card after each move
}

// Config holds all configurable game and server parameters.
type Config struct {
	GridSize         int `json:"grid_size"`
	MaxGridSize      int `json:"max_grid_size"`
	RevealDurationMS int `json:"reveal_duration_ms"`
	WSPort           int `json:"ws_port"`

	// MaxClicksPerSecond and ClickBurst bound how fast one connection may reveal cards.
	MaxClicksPerSecond int `json:"max_clicks_per_second"`
	ClickBurst         int `json:"click_burst"`

	// DatabaseURL selects the telemetry store: postgres://..., sqlite://path or empty for none.
	DatabaseURL string `json:"database_url"`
	// AuthBaseURL is the JWKS issuer used to attribute telemetry to a player. Optional.
	AuthBaseURL string `json:"auth_base_url"`
	// ContentPoolPath is a YAML content pool file; empty uses the built-in pool.
	ContentPoolPath string `json:"content_pool_path"`
	LogLevel        string `json:"log_level"`

	// AIProfiles lists the autoplayer profiles available to the simulate command.
	AIProfiles []AIParams `json:"ai_profiles"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		GridSize:           4,
		MaxGridSize:        8,
		RevealDurationMS:   1000,
		WSPort:             8080,
		MaxClicksPerSecond: 10,
		ClickBurst:         5,
		LogLevel:           "info",
		AIProfiles: []AIParams{
			{Name: "Mnemosyne", DelayMinMS: 1000, DelayMaxMS: 2500, UseKnownPairChance: 100, ForgetChance: 0},
			{Name: "Calliope", DelayMinMS: 500, DelayMaxMS: 1100, UseKnownPairChance: 80, ForgetChance: 15},
			{Name: "Thalia", DelayMinMS: 500, DelayMaxMS: 2000, UseKnownPairChance: 75, ForgetChance: 30},
			{Name: "Goldfish", DelayMinMS: 300, DelayMaxMS: 600, UseKnownPairChance: 0, ForgetChance: 100},
		},
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	return LoadFrom("config.json")
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) *Config {
	cfg := Defaults()

	if f, err := os.Open(path); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			slog.Warn("failed to parse config file", "tag", "config", "path", path, "err", err)
		}
	}

	// Environment variable overrides
	overrideInt(&cfg.GridSize, "GRID_SIZE")
	overrideInt(&cfg.MaxGridSize, "MAX_GRID_SIZE")
	overrideInt(&cfg.RevealDurationMS, "REVEAL_DURATION_MS")
	overrideInt(&cfg.WSPort, "WS_PORT")
	overrideInt(&cfg.MaxClicksPerSecond, "MAX_CLICKS_PER_SECOND")
	overrideInt(&cfg.ClickBurst, "CLICK_BURST")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")
	overrideString(&cfg.ContentPoolPath, "CONTENT_POOL_PATH")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")

	return cfg
}

// Profile returns the AI profile with the given name, or the first profile
// when name is empty. ok is false if no profile matches.
func (c *Config) Profile(name string) (AIParams, bool) {
	if len(c.AIProfiles) == 0 {
		return AIParams{}, false
	}
	if name == "" {
		return c.AIProfiles[0], true
	}
	for _, p := range c.AIProfiles {
		if p.Name == name {
			return p, true
		}
	}
	return AIParams{}, false
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			slog.Warn("invalid environment value", "tag", "config", "key", envKey, "value", val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
