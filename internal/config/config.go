package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/bytes"
	"gopkg.in/yaml.v3"
)

// Providers of the external vision capability.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderStub   = "stub"
)

// ValidProviders lists all supported providers.
var ValidProviders = []string{ProviderOpenAI, ProviderGemini, ProviderStub}

// Config holds the relay and client configuration. Credentials for the
// external capability are deliberately absent: the relay reads them from the
// environment on every call.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Model  ModelConfig  `yaml:"model"`
	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures the relay HTTP server.
type ServerConfig struct {
	Port            string `yaml:"port"`
	BodyLimit       string `yaml:"body_limit"`
	UpstreamTimeout string `yaml:"upstream_timeout"`
	JWTSecret       string `yaml:"jwt_secret"`
}

// ModelConfig selects and tunes the external capability.
type ModelConfig struct {
	Provider string `yaml:"provider"` // openai, gemini, stub
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base_url"`
}

// ClientConfig configures front-ends talking to the relay.
type ClientConfig struct {
	RelayURL   string `yaml:"relay_url"`
	RelayToken string `yaml:"relay_token"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8787",
			BodyLimit:       "15M",
			UpstreamTimeout: "60s",
		},
		Model: ModelConfig{
			Provider: ProviderOpenAI,
		},
		Client: ClientConfig{
			RelayURL: "http://localhost:8787",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadEnvFiles loads .env.local then .env. Missing files are ignored and
// variables already set in the process win.
func LoadEnvFiles() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
}

// Load builds the configuration from defaults, the optional YAML file at path
// and environment overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	// API_PORT is honored for parity with the dev proxy setup.
	if port := os.Getenv("API_PORT"); port != "" {
		c.Server.Port = port
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if limit := os.Getenv("PALM_BODY_LIMIT"); limit != "" {
		c.Server.BodyLimit = limit
	}
	if timeout := os.Getenv("PALM_UPSTREAM_TIMEOUT"); timeout != "" {
		c.Server.UpstreamTimeout = timeout
	}
	if secret := os.Getenv("PALM_JWT_SECRET"); secret != "" {
		c.Server.JWTSecret = secret
	}

	if provider := os.Getenv("PALM_PROVIDER"); provider != "" {
		c.Model.Provider = strings.ToLower(provider)
	}
	if model := os.Getenv("PALM_MODEL"); model != "" {
		c.Model.Name = model
	}
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		c.Model.BaseURL = url
	}

	if url := os.Getenv("PALM_RELAY_URL"); url != "" {
		c.Client.RelayURL = url
	}
	if token := os.Getenv("PALM_RELAY_TOKEN"); token != "" {
		c.Client.RelayToken = token
	}

	if level := os.Getenv("PALM_LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.Model.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid provider: %s (valid: %v)", c.Model.Provider, ValidProviders)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("port must not be empty")
	}

	if _, err := c.BodyLimitBytes(); err != nil {
		return err
	}

	timeout, err := time.ParseDuration(c.Server.UpstreamTimeout)
	if err != nil {
		return fmt.Errorf("invalid upstream timeout %q: %w", c.Server.UpstreamTimeout, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %s", timeout)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	return nil
}

// BodyLimitBytes parses the body limit, e.g. "15M".
func (c *Config) BodyLimitBytes() (int64, error) {
	limit, err := bytes.Parse(c.Server.BodyLimit)
	if err != nil {
		return 0, fmt.Errorf("invalid body limit %q: %w", c.Server.BodyLimit, err)
	}
	if limit <= 0 {
		return 0, fmt.Errorf("body limit must be positive, got %q", c.Server.BodyLimit)
	}
	return limit, nil
}

// GetUpstreamTimeout returns the upstream timeout as a duration.
func (c *Config) GetUpstreamTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.UpstreamTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// CredentialEnv names the environment variable holding the credential for the
// configured provider. The stub provider needs none but still checks one so
// the relay behaves the same in every mode.
func (c *Config) CredentialEnv() string {
	switch c.Model.Provider {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderStub:
		return "PALM_STUB_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}
