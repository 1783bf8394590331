// Package config provides configuration loading and validation for the CLI
// and the HTTP server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults.
type Config struct {
	Oracle     OracleConfig     `json:"oracle" yaml:"oracle"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	Ranking    RankingConfig    `json:"ranking" yaml:"ranking"`
	Duplicates DuplicatesConfig `json:"duplicates" yaml:"duplicates"`
	Commits    CommitsConfig    `json:"commits" yaml:"commits"`
	Log        LogConfig        `json:"log" yaml:"log"`
	Server     ServerConfig     `json:"server" yaml:"server"`
}

// OracleConfig selects and configures the reasoning oracle.
type OracleConfig struct {
	Provider       string `json:"provider,omitempty" yaml:"provider,omitempty"` // gemini or openai
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty"` // OpenAI-compatible endpoint
	Model          string `json:"model,omitempty" yaml:"model,omitempty"`       // overrides every tier
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Backend       string `json:"backend,omitempty" yaml:"backend,omitempty"` // memory, postgres or mongo
	DatabaseURL   string `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	MongoURI      string `json:"mongo_uri,omitempty" yaml:"mongo_uri,omitempty"`
	MongoDatabase string `json:"mongo_database,omitempty" yaml:"mongo_database,omitempty"`
}

// CacheConfig configures the embedding cache. An empty RedisURL keeps vectors in memory.
type CacheConfig struct {
	RedisURL   string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
	TTLSeconds int    `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
}

// RankingConfig configures candidate ranking.
type RankingConfig struct {
	Mode          string  `json:"mode,omitempty" yaml:"mode,omitempty"` // profile or overlap
	TopN          int     `json:"top_n,omitempty" yaml:"top_n,omitempty"`
	MinSimilarity float64 `json:"min_similarity,omitempty" yaml:"min_similarity,omitempty"`
}

// DuplicatesConfig configures the prior-issue shortlist.
type DuplicatesConfig struct {
	MinSimilarity float64 `json:"min_similarity,omitempty" yaml:"min_similarity,omitempty"`
	TopK          int     `json:"top_k,omitempty" yaml:"top_k,omitempty"`
}

// CommitsConfig configures commit-to-task linking.
type CommitsConfig struct {
	MinSimilarity float64 `json:"min_similarity,omitempty" yaml:"min_similarity,omitempty"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // json or console
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `json:"port,omitempty" yaml:"port,omitempty"`
	// RateLimitPerMinute caps issue intake per client; commits get five times as much.
	RateLimitPerMinute int  `json:"rate_limit_per_minute,omitempty" yaml:"rate_limit_per_minute,omitempty"`
	DisableRateLimit   bool `json:"disable_rate_limit,omitempty" yaml:"disable_rate_limit,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Oracle:     OracleConfig{Provider: "gemini", TimeoutSeconds: 60},
		Store:      StoreConfig{Backend: "memory", MongoDatabase: "taskmatch"},
		Cache:      CacheConfig{TTLSeconds: 7 * 24 * 3600},
		Ranking:    RankingConfig{Mode: "profile", TopN: 5, MinSimilarity: 0.5},
		Duplicates: DuplicatesConfig{MinSimilarity: 0.7, TopK: 3},
		Commits:    CommitsConfig{MinSimilarity: 0.6},
		Log:        LogConfig{Level: "info", Format: "json"},
		Server:     ServerConfig{Port: 8080, RateLimitPerMinute: 60},
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables. lookup is usually
// os.LookupEnv; empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return strings.TrimSpace(v)
	}

	if v := get("ORACLE_PROVIDER"); v != "" {
		c.Oracle.Provider = v
	}
	// The key variable follows the provider.
	keyVar := "GEMINI_API_KEY"
	if strings.EqualFold(c.Oracle.Provider, "openai") {
		keyVar = "OPENAI_API_KEY"
	}
	if v := get(keyVar); v != "" {
		c.Oracle.APIKey = v
	}
	if v := get("ORACLE_BASE_URL"); v != "" {
		c.Oracle.BaseURL = v
	}
	if v := get("ORACLE_MODEL"); v != "" {
		c.Oracle.Model = v
	}
	if v := get("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := get("DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
	}
	if v := get("MONGO_URI"); v != "" {
		c.Store.MongoURI = v
	}
	if v := get("REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := get("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: PORT must be an integer: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	switch c.Oracle.Provider {
	case "", "gemini", "openai":
	default:
		return fmt.Errorf("config error: 'oracle.provider' must be gemini or openai, got %q", c.Oracle.Provider)
	}
	if c.Oracle.TimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'oracle.timeout_seconds' must be non-negative")
	}

	switch c.Store.Backend {
	case "", "memory":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("config error: 'store.database_url' is required for the postgres backend")
		}
	case "mongo":
		if c.Store.MongoURI == "" {
			return fmt.Errorf("config error: 'store.mongo_uri' is required for the mongo backend")
		}
	default:
		return fmt.Errorf("config error: 'store.backend' must be memory, postgres or mongo, got %q", c.Store.Backend)
	}

	switch c.Ranking.Mode {
	case "", "profile", "overlap":
	default:
		return fmt.Errorf("config error: 'ranking.mode' must be profile or overlap, got %q", c.Ranking.Mode)
	}
	if c.Ranking.TopN < 0 {
		return fmt.Errorf("config error: 'ranking.top_n' must be non-negative")
	}
	if c.Duplicates.TopK < 0 {
		return fmt.Errorf("config error: 'duplicates.top_k' must be non-negative")
	}
	for name, v := range map[string]float64{
		"ranking.min_similarity":    c.Ranking.MinSimilarity,
		"duplicates.min_similarity": c.Duplicates.MinSimilarity,
		"commits.min_similarity":    c.Commits.MinSimilarity,
	} {
		if v < -1 || v > 1 {
			return fmt.Errorf("config error: '%s' must be within [-1, 1]", name)
		}
	}

	switch c.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("config error: 'log.format' must be json or console, got %q", c.Log.Format)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'server.port' must be a valid TCP port")
	}
	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("config error: 'server.rate_limit_per_minute' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	orString(&result.Oracle.Provider, defaults.Oracle.Provider)
	orString(&result.Oracle.APIKey, defaults.Oracle.APIKey)
	orString(&result.Oracle.BaseURL, defaults.Oracle.BaseURL)
	orString(&result.Oracle.Model, defaults.Oracle.Model)
	orString(&result.Store.Backend, defaults.Store.Backend)
	orString(&result.Store.DatabaseURL, defaults.Store.DatabaseURL)
	orString(&result.Store.MongoURI, defaults.Store.MongoURI)
	orString(&result.Store.MongoDatabase, defaults.Store.MongoDatabase)
	orString(&result.Cache.RedisURL, defaults.Cache.RedisURL)
	orString(&result.Ranking.Mode, defaults.Ranking.Mode)
	orString(&result.Log.Level, defaults.Log.Level)
	orString(&result.Log.Format, defaults.Log.Format)

	// Int fields: use default if zero
	orInt(&result.Oracle.TimeoutSeconds, defaults.Oracle.TimeoutSeconds)
	orInt(&result.Cache.TTLSeconds, defaults.Cache.TTLSeconds)
	orInt(&result.Ranking.TopN, defaults.Ranking.TopN)
	orInt(&result.Duplicates.TopK, defaults.Duplicates.TopK)
	orInt(&result.Server.Port, defaults.Server.Port)
	orInt(&result.Server.RateLimitPerMinute, defaults.Server.RateLimitPerMinute)

	// Float fields
	orFloat(&result.Ranking.MinSimilarity, defaults.Ranking.MinSimilarity)
	orFloat(&result.Duplicates.MinSimilarity, defaults.Duplicates.MinSimilarity)
	orFloat(&result.Commits.MinSimilarity, defaults.Commits.MinSimilarity)

	return result
}

func orString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func orInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func orFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

// Load reads path (optional), applies environment overrides and defaults,
// and validates the result.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if lookup != nil {
		if err := cfg.ApplyEnv(lookup); err != nil {
			return nil, err
		}
	}
	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}
