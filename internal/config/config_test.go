package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"oracle": {"provider": "openai", "model": "llama3", "base_url": "http://localhost:11434/v1"},
		"store": {"backend": "postgres", "database_url": "postgres://localhost/taskmatch"},
		"ranking": {"mode": "overlap", "top_n": 8}
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Oracle.Provider)
	assert.Equal(t, "llama3", cfg.Oracle.Model)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "overlap", cfg.Ranking.Mode)
	assert.Equal(t, 8, cfg.Ranking.TopN)
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	content := `
store:
  backend: mongo
  mongo_uri: mongodb://localhost:27017
duplicates:
  min_similarity: 0.8
  top_k: 2
log:
  format: console
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "mongo", cfg.Store.Backend)
	assert.Equal(t, 0.8, cfg.Duplicates.MinSimilarity)
	assert.Equal(t, 2, cfg.Duplicates.TopK)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("store: [unclosed"), 0644))

	_, err := LoadConfig(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config YAML")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestApplyEnv(t *testing.T) {
	cfg := Config{}
	err := cfg.ApplyEnv(env(map[string]string{
		"ORACLE_PROVIDER": "openai",
		"OPENAI_API_KEY":  "sk-test",
		"GEMINI_API_KEY":  "ignored",
		"DATABASE_URL":    "postgres://db",
		"REDIS_URL":       "redis://cache:6379/0",
		"STORE_BACKEND":   "postgres",
		"PORT":            "9090",
		"ORACLE_MODEL":    "  ",
	}))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Oracle.Provider)
	assert.Equal(t, "sk-test", cfg.Oracle.APIKey)
	assert.Equal(t, "postgres://db", cfg.Store.DatabaseURL)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "redis://cache:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Empty(t, cfg.Oracle.Model)
}

func TestApplyEnv_BadPort(t *testing.T) {
	cfg := Config{}
	assert.Error(t, cfg.ApplyEnv(env(map[string]string{"PORT": "eighty"})))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad provider", mutate: func(c *Config) { c.Oracle.Provider = "claude" }, wantErr: "oracle.provider"},
		{name: "postgres without url", mutate: func(c *Config) { c.Store.Backend = "postgres" }, wantErr: "store.database_url"},
		{name: "mongo without uri", mutate: func(c *Config) { c.Store.Backend = "mongo" }, wantErr: "store.mongo_uri"},
		{name: "bad backend", mutate: func(c *Config) { c.Store.Backend = "sqlite" }, wantErr: "store.backend"},
		{name: "bad mode", mutate: func(c *Config) { c.Ranking.Mode = "random" }, wantErr: "ranking.mode"},
		{name: "negative top_n", mutate: func(c *Config) { c.Ranking.TopN = -1 }, wantErr: "ranking.top_n"},
		{name: "similarity out of range", mutate: func(c *Config) { c.Duplicates.MinSimilarity = 1.5 }, wantErr: "duplicates.min_similarity"},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{Ranking: RankingConfig{TopN: 10}, Store: StoreConfig{Backend: "mongo", MongoURI: "mongodb://x"}}

	merged := cfg.MergeWithDefaults(Defaults())

	assert.Equal(t, 10, merged.Ranking.TopN)
	assert.Equal(t, "profile", merged.Ranking.Mode)
	assert.Equal(t, 0.5, merged.Ranking.MinSimilarity)
	assert.Equal(t, "mongo", merged.Store.Backend)
	assert.Equal(t, "taskmatch", merged.Store.MongoDatabase)
	assert.Equal(t, 0.7, merged.Duplicates.MinSimilarity)
	assert.Equal(t, 3, merged.Duplicates.TopK)
	assert.Equal(t, 0.6, merged.Commits.MinSimilarity)
	assert.Equal(t, 60, merged.Oracle.TimeoutSeconds)
	assert.Equal(t, 8080, merged.Server.Port)
	assert.Equal(t, 0, cfg.Server.Port, "receiver is not modified")
}

func TestLoad(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"server": {"port": 7000}}`), 0644))

	cfg, err := Load(tmpFile, env(map[string]string{"PORT": "7100", "GEMINI_API_KEY": "g-key"}))
	require.NoError(t, err)
	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, "g-key", cfg.Oracle.APIKey)
	assert.Equal(t, "memory", cfg.Store.Backend)

	_, err = Load("", env(map[string]string{"STORE_BACKEND": "postgres"}))
	assert.Error(t, err)
}
