package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// maxConfigSize bounds the YAML file we are willing to parse
const maxConfigSize = 1 << 20

// Config represents the service configuration
type Config struct {
	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	Server      ServerConfig      `yaml:"server"`
	Auth        AuthConfig        `yaml:"auth"`
	LLM         LLMConfig         `yaml:"llm"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Suggestions SuggestionsConfig `yaml:"suggestions"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// MaxBodyBytes caps JSON request bodies
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// AuthConfig holds token settings
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LLMConfig selects and configures the completion provider
type LLMConfig struct {
	// Provider is one of anthropic, openai, gemini, bedrock
	Provider string `yaml:"provider"`
	// Model defaults per provider when empty
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Region    string        `yaml:"region"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// RetrievalConfig configures the knowledge-source searchers
type RetrievalConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	DocsURL       string        `yaml:"docs_url"`
	DocsSite      string        `yaml:"docs_site"`
	ForumURL      string        `yaml:"forum_url"`
	TemplatesURL  string        `yaml:"templates_url"`
	ImportBaseURL string        `yaml:"import_base_url"`
	UserAgent     string        `yaml:"user_agent"`
	// EnrichSummaries fetches template pages for a short description
	EnrichSummaries bool `yaml:"enrich_summaries"`
	// AllowPrivateNetworks lets searchers reach loopback and private
	// addresses, e.g. a local mirror of the docs
	AllowPrivateNetworks bool `yaml:"allow_private_networks"`
}

// SuggestionsConfig selects the suggestion store
type SuggestionsConfig struct {
	// Backend is memory or redis
	Backend    string        `yaml:"backend"`
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// RateLimitConfig bounds protected-route traffic per licence
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 150 * time.Second,
			MaxBodyBytes: 2 << 20,
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret",
		},
		LLM: LLMConfig{
			Provider:  "anthropic",
			MaxTokens: 1024,
			Timeout:   120 * time.Second,
		},
		Retrieval: RetrievalConfig{
			Timeout:         5 * time.Second,
			DocsURL:         "https://duckduckgo.com/html/",
			DocsSite:        "docs.n8n.io",
			ForumURL:        "https://community.n8n.io",
			TemplatesURL:    "https://n8n.io/workflows/",
			ImportBaseURL:   "https://automation.whitelabel.lat",
			UserAgent:       "Mozilla/5.0",
			EnrichSummaries: true,
		},
		Suggestions: SuggestionsConfig{
			Backend:    "memory",
			MaxEntries: 10000,
			Redis: RedisConfig{
				Prefix: "askai:suggestion:",
			},
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults and
// then applies environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if info.Size() > maxConfigSize {
			return nil, fmt.Errorf("config file too large: %d bytes", info.Size())
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.LogLevel, "LOG_LEVEL")
	setInt(&c.Server.Port, "PORT")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.Region, "AWS_REGION")
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = providerKeyFromEnv(c.LLM.Provider)
	}
	switch c.LLM.Provider {
	case "anthropic":
		setString(&c.LLM.Model, "ANTHROPIC_MODEL")
	case "openai":
		setString(&c.LLM.Model, "OPENAI_MODEL")
	case "gemini":
		setString(&c.LLM.Model, "GEMINI_MODEL")
	case "bedrock":
		setString(&c.LLM.Model, "BEDROCK_MODEL_ID")
	}

	setString(&c.Retrieval.ImportBaseURL, "IMPORT_BASE_URL")

	setString(&c.Suggestions.Backend, "SUGGESTION_STORE")
	setString(&c.Suggestions.Redis.Addr, "REDIS_ADDR")
	setString(&c.Suggestions.Redis.Password, "REDIS_PASSWORD")
}

// providerKeyFromEnv returns the credential conventionally used by provider.
func providerKeyFromEnv(provider string) string {
	switch provider {
	case "anthropic":
		if key := os.Getenv("N8N_AI_ANTHROPIC_KEY"); key != "" {
			return key
		}
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	switch c.LLM.Provider {
	case "anthropic", "openai", "gemini", "bedrock":
	default:
		return fmt.Errorf("unsupported llm.provider: %q", c.LLM.Provider)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if c.Retrieval.Timeout <= 0 {
		return fmt.Errorf("retrieval.timeout must be positive")
	}

	switch c.Suggestions.Backend {
	case "memory":
	case "redis":
		if c.Suggestions.Redis.Addr == "" {
			return fmt.Errorf("suggestions.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unsupported suggestions.backend: %q", c.Suggestions.Backend)
	}
	if c.Suggestions.MaxEntries < 0 || c.Suggestions.TTL < 0 {
		return fmt.Errorf("suggestions limits must not be negative")
	}

	return nil
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			*dst = i
		}
	}
}
