package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"culturegateway/pkg/logger"
)

// Config represents the root configuration structure
type Config struct {
	Server                ServerConfig              `yaml:"server"`
	RequestTimeoutSeconds int                       `yaml:"request_timeout_seconds"`
	Providers             map[string]ProviderConfig `yaml:"providers"`
	Chains                map[string][]ChainEntry   `yaml:"chains"`
	Routing               RoutingConfig             `yaml:"routing"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// ProviderConfig configures a specific upstream provider. Credentials left
// empty here can be supplied through the environment instead.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ChainEntry is one step of a fallback chain: which provider to try, and the
// model to request from it.
type ChainEntry struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// RoutingConfig holds optional expression rules that pick a named chain for a
// request before the static per-operation default applies.
type RoutingConfig struct {
	Rules []RouteRule `yaml:"rules"`
}

// RouteRule maps a boolean expression over request attributes to a chain name.
type RouteRule struct {
	Condition string `yaml:"condition"`
	Chain     string `yaml:"chain"`
}

// RequestTimeout returns the outbound call budget, defaulting to 60s so a hung
// upstream can never stall the fallback chain indefinitely.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds > 0 {
		return time.Duration(c.RequestTimeoutSeconds) * time.Second
	}
	return 60 * time.Second
}

const DefaultConfigTemplate = `server:
  port: 8080
  host: "127.0.0.1"
request_timeout_seconds: 60
providers:
  ollama:
    api_key: ""   # or set OLLAMA_API_KEY
    base_url: "https://api.ollama.cloud"
  gemini:
    api_key: ""   # or set GEMINI_API_KEY
  openai:
    api_key: ""   # or set OPENAI_API_KEY
chains:
  chat:
    - { provider: ollama, model: "kimi-k2:1t-cloud" }
    - { provider: ollama, model: "qwen-coder:480b-cloud" }
    - { provider: gemini, model: "gemini-2.0-flash-exp" }
    - { provider: openai, model: "gpt-4o" }
  vision:
    - { provider: gemini, model: "gemini-2.0-flash-exp" }
    - { provider: openai, model: "gpt-4o" }
    - { provider: ollama, model: "llava:34b" }
  search:
    - { provider: gemini, model: "gemini-2.0-flash-exp" }
    - { provider: ollama, model: "kimi-k2:1t-cloud" }
    - { provider: openai, model: "gpt-4o" }
routing:
  rules: []
`

// Load reads configuration from CULTUREGW_CONFIG_PATH or
// ~/.config/culturegateway/config.yaml, generating a template on first run,
// then applies environment credential overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("CULTUREGW_CONFIG_PATH")
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "culturegateway", "config.yaml")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		logger.Printf("Config file missing at %s, creating default template...", configPath)
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate), 0644); err != nil {
			return nil, fmt.Errorf("failed to write default config template: %w", err)
		}
		logger.Printf("Generated default config at %s", configPath)
	}

	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var conf Config
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("failed to parse yaml config: %w", err)
	}

	conf.applyEnvOverrides()
	return &conf, nil
}

// applyEnvOverrides lets environment variables win over the yaml file for
// credentials and the Ollama base URL. A provider absent from the file is
// created when its environment credential is present.
func (c *Config) applyEnvOverrides() {
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}

	set := func(name, key, baseURL string) {
		p := c.Providers[name]
		if key != "" {
			p.APIKey = key
		}
		if baseURL != "" {
			p.BaseURL = baseURL
		}
		c.Providers[name] = p
	}

	set("ollama", os.Getenv("OLLAMA_API_KEY"), os.Getenv("OLLAMA_API_URL"))
	set("gemini", os.Getenv("GEMINI_API_KEY"), "")
	set("openai", os.Getenv("OPENAI_API_KEY"), "")
}
