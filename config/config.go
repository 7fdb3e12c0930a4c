// Package config loads service configuration from a JSON file, a .env file and
// environment variables, in increasing order of precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultOpenAIModel    = "gpt-4"
	defaultDeepSeekModel  = "deepseek-coder"
	defaultDeepSeekBase   = "https://api.deepseek.com"
	defaultRequestTimeout = 120
)

// Config is the whole service configuration.
type Config struct {
	ServerAddr            string      `json:"server_addr,omitempty"`
	LogMode               string      `json:"log_mode,omitempty"`
	DefaultProvider       string      `json:"default_provider,omitempty"`
	RequestTimeoutSeconds int         `json:"request_timeout_seconds,omitempty"`
	SessionCacheSize      int         `json:"session_cache_size,omitempty"`
	OutputDir             string      `json:"output_dir,omitempty"`
	UseMockLLM            bool        `json:"use_mock_llm,omitempty"`
	OpenAI                LLMConfig   `json:"openai"`
	DeepSeek              LLMConfig   `json:"deepseek"`
	Audit                 AuditConfig `json:"audit"`
}

// LLMConfig holds one backend's settings. An empty APIKey leaves the backend unconfigured.
type LLMConfig struct {
	Model   string `json:"model,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

// AuditConfig controls where prompt/response records go.
type AuditConfig struct {
	Enabled    bool   `json:"enabled"`
	Dir        string `json:"dir,omitempty"`
	GlobalPath string `json:"global_path,omitempty"`
	DBPath     string `json:"db_path,omitempty"`
	QueueSize  int    `json:"queue_size,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		ServerAddr:            ":8080",
		LogMode:               "dev",
		DefaultProvider:       "deepseek",
		RequestTimeoutSeconds: defaultRequestTimeout,
		SessionCacheSize:      512,
		OutputDir:             "./data/simulations",
		OpenAI:                LLMConfig{Model: defaultOpenAIModel},
		DeepSeek:              LLMConfig{Model: defaultDeepSeekModel, BaseURL: defaultDeepSeekBase},
		Audit: AuditConfig{
			Enabled:   true,
			Dir:       "./data/logs/prompts",
			DBPath:    "./data/audit.db",
			QueueSize: 1000,
		},
	}
}

// Load reads path (if non-empty), then .env, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.ServerAddr = getEnv("SERVER_ADDR", cfg.ServerAddr)
	cfg.LogMode = getEnv("LOG_MODE", cfg.LogMode)
	cfg.DefaultProvider = getEnv("DEFAULT_PROVIDER", cfg.DefaultProvider)
	cfg.RequestTimeoutSeconds = getEnvInt("REQUEST_TIMEOUT_SECONDS", cfg.RequestTimeoutSeconds)
	cfg.SessionCacheSize = getEnvInt("SESSION_CACHE_SIZE", cfg.SessionCacheSize)
	cfg.OutputDir = getEnv("OUTPUT_DIR", cfg.OutputDir)
	cfg.UseMockLLM = getEnvBool("USE_MOCK_LLM", cfg.UseMockLLM)

	cfg.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.Model = getEnv("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.DeepSeek.APIKey = getEnv("DEEPSEEK_API_KEY", cfg.DeepSeek.APIKey)
	cfg.DeepSeek.Model = getEnv("DEEPSEEK_MODEL", cfg.DeepSeek.Model)
	cfg.DeepSeek.BaseURL = getEnv("DEEPSEEK_BASE_URL", cfg.DeepSeek.BaseURL)

	cfg.Audit.Enabled = getEnvBool("AUDIT_ENABLED", cfg.Audit.Enabled)
	cfg.Audit.Dir = getEnv("AUDIT_DIR", cfg.Audit.Dir)
	cfg.Audit.GlobalPath = getEnv("AUDIT_GLOBAL_PATH", cfg.Audit.GlobalPath)
	cfg.Audit.DBPath = getEnv("AUDIT_DB_PATH", cfg.Audit.DBPath)
	cfg.Audit.QueueSize = getEnvInt("AUDIT_QUEUE_SIZE", cfg.Audit.QueueSize)
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.ServerAddr == "" {
		return errors.New("server_addr cannot be empty")
	}
	switch strings.ToLower(c.DefaultProvider) {
	case "openai", "deepseek":
	default:
		return fmt.Errorf("default_provider %q not supported", c.DefaultProvider)
	}
	if c.RequestTimeoutSeconds < 0 {
		return errors.New("request_timeout_seconds must be >= 0")
	}
	if c.SessionCacheSize <= 0 {
		return errors.New("session_cache_size must be > 0")
	}
	if !c.UseMockLLM && c.OpenAI.APIKey == "" && c.DeepSeek.APIKey == "" {
		return errors.New("no llm credentials: set OPENAI_API_KEY and/or DEEPSEEK_API_KEY, or use_mock_llm")
	}
	if c.OpenAI.APIKey != "" && c.OpenAI.Model == "" {
		return errors.New("openai.model is required")
	}
	if c.DeepSeek.APIKey != "" && c.DeepSeek.Model == "" {
		return errors.New("deepseek.model is required")
	}
	if c.Audit.Enabled {
		if c.Audit.Dir == "" && c.Audit.DBPath == "" {
			return errors.New("audit enabled but neither audit.dir nor audit.db_path is set")
		}
		if c.Audit.QueueSize <= 0 {
			return errors.New("audit.queue_size must be > 0")
		}
	}
	return nil
}

// RequestTimeout is the per-call bound for backend requests. Zero disables it.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
