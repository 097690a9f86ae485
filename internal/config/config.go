package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	return Load("")
}

// Load reads the configuration from path, or from the default search paths
// when path is empty
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/llm-mailbot/")
		v.AddConfigPath("$HOME/.llm-mailbot")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("MAILBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.provider", "bedrock")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Classification defaults
	v.SetDefault("classifier.categories", []string{})
	v.SetDefault("classifier.default_bucket", "INBOX")
	v.SetDefault("classifier.instructions", "")
	v.SetDefault("classifier.memory_size", 100)

	// Rule mirror defaults
	v.SetDefault("rules.backend", "sqlite")
	v.SetDefault("rules.sqlite_path", "/data/mail_rules.db")
	v.SetDefault("rules.mysql_dsn", "user:password@tcp(localhost:3306)/mailbot")

	// Mailbox defaults
	v.SetDefault("imap.address", "localhost:993")
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.tls", true)
	v.SetDefault("imap.dial_timeout", "30s")
	v.SetDefault("imap.preview_bytes", 2048)
	v.SetDefault("imap.preview_chars", 300)

	// Outbound mail defaults
	v.SetDefault("smtp.address", "localhost:587")
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.from_name", "")
	v.SetDefault("smtp.security", "starttls")

	// Session defaults
	v.SetDefault("drafts.ttl", "30m")
	v.SetDefault("drafts.sent_grace", "2m")
	v.SetDefault("drafts.signature", "")
	v.SetDefault("disambiguation.ttl", "5m")
	v.SetDefault("sessions.sweep_frequency", "1m")

	// Contact defaults
	v.SetDefault("contacts.entries", []string{})
	v.SetDefault("contacts.recent_bucket", "INBOX")
	v.SetDefault("contacts.recent_limit", 200)

	// Channel defaults
	v.SetDefault("channel.type", "http")
	v.SetDefault("channel.listen_address", "0.0.0.0:8025")
	v.SetDefault("channel.api_key", "")
	v.SetDefault("channel.callback_url", "")
	v.SetDefault("channel.allowed_initiators", []string{})
	v.SetDefault("channel.default_initiator", "local")

	// Chat command defaults
	v.SetDefault("chat.list_limit", 10)
	v.SetDefault("chat.classify_limit", 50)
	v.SetDefault("chat.search_bucket", "INBOX")
	v.SetDefault("chat.search_limit", 200)

	// Poller defaults
	v.SetDefault("poller.enabled", false)
	v.SetDefault("poller.interval", "5m")
	v.SetDefault("poller.bucket", "INBOX")
	v.SetDefault("poller.limit", 50)
	v.SetDefault("poller.notify_initiator", "")

	// Keyring defaults
	v.SetDefault("keyring.service", "llm-mailbot")
	v.SetDefault("keyring.file_dir", "~/.config/llm-mailbot/credentials")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Set overrides a configuration value
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
