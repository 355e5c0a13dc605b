package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DocumentsConfig configures where the policy corpus is read from.
type DocumentsConfig struct {
	Dir       string `yaml:"dir"`
	Pattern   string `yaml:"pattern"`
	Watch     bool   `yaml:"watch"`
	DedupeIDs bool   `yaml:"dedupe_ids"`
}

// RetrievalConfig tunes ranking and answer construction.
type RetrievalConfig struct {
	TopK           int     `yaml:"top_k"`
	RelevanceFloor float64 `yaml:"relevance_floor"`
	ExcerptLength  int     `yaml:"excerpt_length"`
	MinConfidence  float64 `yaml:"min_confidence"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr             string  `yaml:"addr"`
	GRPCHealthAddr   string  `yaml:"grpc_health_addr"`
	ReadTimeoutSecs  int     `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int     `yaml:"write_timeout_secs"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps"`
	RateLimitBurst   int     `yaml:"rate_limit_burst"`
}

// CacheConfig configures the query response cache.
type CacheConfig struct {
	Enabled     bool `yaml:"enabled"`
	TTLSecs     int  `yaml:"ttl_secs"`
	CleanupSecs int  `yaml:"cleanup_secs"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// ClientConfig configures the remote agent connector.
type ClientConfig struct {
	URL         string `yaml:"url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
	AuthHeader  string `yaml:"auth_header"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Documents DocumentsConfig `yaml:"documents"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
	Client    ClientConfig    `yaml:"client"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	// Unmarshal over defaults so that booleans omitted from the file keep their default.
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/policyrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/policyrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := DefaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultUserConfigPath returns ~/.config/policyrag/config.yaml.
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "policyrag", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Documents: DocumentsConfig{Dir: "./documents", Pattern: "*.json"},
		Retrieval: RetrievalConfig{TopK: 5, RelevanceFloor: 1e-9, ExcerptLength: 200, MinConfidence: 0.65},
		Server: ServerConfig{
			Addr:             ":8080",
			ReadTimeoutSecs:  15,
			WriteTimeoutSecs: 30,
			RateLimitRPS:     20,
			RateLimitBurst:   40,
		},
		Cache:  CacheConfig{Enabled: true, TTLSecs: 300, CleanupSecs: 600},
		Log:    LogConfig{Level: "info"},
		Client: ClientConfig{URL: "http://localhost:8080/run", TimeoutSecs: 30, MaxRetries: 3},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	d := Default()
	if cfg.Documents.Dir == "" {
		cfg.Documents.Dir = d.Documents.Dir
	}
	if cfg.Documents.Pattern == "" {
		cfg.Documents.Pattern = d.Documents.Pattern
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = d.Retrieval.TopK
	}
	if cfg.Retrieval.ExcerptLength == 0 {
		cfg.Retrieval.ExcerptLength = d.Retrieval.ExcerptLength
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = d.Server.Addr
	}
	if cfg.Server.ReadTimeoutSecs == 0 {
		cfg.Server.ReadTimeoutSecs = d.Server.ReadTimeoutSecs
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = d.Server.WriteTimeoutSecs
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = d.Server.RateLimitBurst
	}
	if cfg.Cache.TTLSecs == 0 {
		cfg.Cache.TTLSecs = d.Cache.TTLSecs
	}
	if cfg.Cache.CleanupSecs == 0 {
		cfg.Cache.CleanupSecs = d.Cache.CleanupSecs
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
	if cfg.Client.URL == "" {
		cfg.Client.URL = d.Client.URL
	}
	if cfg.Client.TimeoutSecs == 0 {
		cfg.Client.TimeoutSecs = d.Client.TimeoutSecs
	}
}

// Validate rejects values the engine cannot work with.
func (c *AppConfig) Validate() error {
	switch {
	case c.Retrieval.TopK < 0:
		return fmt.Errorf("retrieval.top_k must not be negative, got %d", c.Retrieval.TopK)
	case c.Retrieval.RelevanceFloor < 0 || c.Retrieval.RelevanceFloor > 1:
		return fmt.Errorf("retrieval.relevance_floor must be in [0,1], got %v", c.Retrieval.RelevanceFloor)
	case c.Retrieval.MinConfidence < 0 || c.Retrieval.MinConfidence > 1:
		return fmt.Errorf("retrieval.min_confidence must be in [0,1], got %v", c.Retrieval.MinConfidence)
	case c.Retrieval.ExcerptLength < 0:
		return fmt.Errorf("retrieval.excerpt_length must not be negative, got %d", c.Retrieval.ExcerptLength)
	case c.Server.RateLimitRPS < 0:
		return fmt.Errorf("server.rate_limit_rps must not be negative, got %v", c.Server.RateLimitRPS)
	case c.Client.MaxRetries < 0:
		return fmt.Errorf("client.max_retries must not be negative, got %d", c.Client.MaxRetries)
	}
	return nil
}

func (c CacheConfig) TTL() time.Duration     { return time.Duration(c.TTLSecs) * time.Second }
func (c CacheConfig) Cleanup() time.Duration { return time.Duration(c.CleanupSecs) * time.Second }

func (c ServerConfig) ReadTimeout() time.Duration  { return time.Duration(c.ReadTimeoutSecs) * time.Second }
func (c ServerConfig) WriteTimeout() time.Duration { return time.Duration(c.WriteTimeoutSecs) * time.Second }

func (c ClientConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSecs) * time.Second }
