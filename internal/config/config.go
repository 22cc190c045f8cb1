// Package config handles yakbot configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./yakbot.yaml, ~/.config/yakbot/config.yaml, /etc/yakbot/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"yakbot.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "yakbot", "config.yaml"))
	}

	paths = append(paths, "/etc/yakbot/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all yakbot configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Linear    LinearConfig    `yaml:"linear"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Agent     AgentConfig     `yaml:"agent"`
	Digest    DigestConfig    `yaml:"digest"`
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
}

// ListenConfig defines the webhook HTTP server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// TelegramConfig defines the chat transport settings.
type TelegramConfig struct {
	// BotToken authenticates outbound Bot API calls.
	BotToken string `yaml:"bot_token"`
	// WebhookSecret is compared against the
	// X-Telegram-Bot-Api-Secret-Token header on inbound updates.
	WebhookSecret string `yaml:"webhook_secret"`
	// ChatID is the only chat the bot serves. Updates from any other
	// chat are acknowledged and dropped.
	ChatID int64 `yaml:"chat_id"`
}

// LinearConfig defines the project tracker connection.
type LinearConfig struct {
	APIKey string `yaml:"api_key"`
	// Endpoint overrides the GraphQL endpoint, for tests. Empty means
	// the public Linear API.
	Endpoint string `yaml:"endpoint"`
}

// AnthropicConfig defines the reasoning model settings.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// AgentConfig bounds the tool-calling loop and conversation memory.
type AgentConfig struct {
	// MaxIterations is the hard ceiling on model round-trips per turn.
	MaxIterations int `yaml:"max_iterations"`
	// MaxHistoryPairs is how many user/assistant exchange pairs are
	// retained across turns.
	MaxHistoryPairs int `yaml:"max_history_pairs"`
}

// DigestConfig controls the daily summary path.
type DigestConfig struct {
	// Hour is the local hour (0-23) at which the serve-mode scheduler
	// fires the digest.
	Hour int `yaml:"hour"`
	// StaleThreshold is how many consecutive unchanged runs trigger the
	// stale escalation message.
	StaleThreshold int `yaml:"stale_threshold"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a configuration with sane defaults for everything
// that has one. Credentials have no defaults.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8090},
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
		Agent: AgentConfig{
			MaxIterations:   8,
			MaxHistoryPairs: 10,
		},
		Digest: DigestConfig{
			Hour:           9,
			StaleThreshold: 3,
		},
		DataDir: ".",
	}
}

// Validate checks that required credentials are present for serve mode.
func (c *Config) Validate() error {
	if c.Linear.APIKey == "" {
		return fmt.Errorf("linear.api_key is required")
	}
	if c.Anthropic.APIKey == "" {
		return fmt.Errorf("anthropic.api_key is required")
	}
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be at least 1")
	}
	if c.Agent.MaxHistoryPairs < 1 {
		return fmt.Errorf("agent.max_history_pairs must be at least 1")
	}
	if c.Digest.Hour < 0 || c.Digest.Hour > 23 {
		return fmt.Errorf("digest.hour must be between 0 and 23")
	}
	return nil
}
