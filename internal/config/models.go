package config

import (
	"time"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// ClassifierConfig holds the category vocabulary and fallback bucket
type ClassifierConfig struct {
	Categories    []string
	DefaultBucket string
	Instructions  string
	MemorySize    int
}

// RulesConfig selects the durable rule mirror
type RulesConfig struct {
	Backend    string
	SQLitePath string
	MySQLDSN   string
}

// IMAPConfig represents the mailbox connection
type IMAPConfig struct {
	Address      string
	Username     string
	Password     string
	TLS          bool
	DialTimeout  time.Duration
	PreviewBytes int
	PreviewChars int
}

// SMTPConfig represents the outbound mail connection
type SMTPConfig struct {
	Address  string
	Username string
	Password string
	From     string
	FromName string
	Security string
}

// SessionConfig holds the lifetimes of per-initiator state
type SessionConfig struct {
	DraftTTL          time.Duration
	SentGrace         time.Duration
	Signature         string
	DisambiguationTTL time.Duration
	SweepFrequency    time.Duration
}

// ContactsConfig represents the address book
type ContactsConfig struct {
	Entries      []string
	RecentBucket string
	RecentLimit  int
}

// ChannelConfig represents the chat channel
type ChannelConfig struct {
	Type              string
	ListenAddress     string
	APIKey            string
	CallbackURL       string
	AllowedInitiators []string
	DefaultInitiator  string
}

// ChatConfig holds the limits used when answering chat commands
type ChatConfig struct {
	ListLimit     int
	ClassifyLimit int
	SearchBucket  string
	SearchLimit   int
}

// PollerConfig represents the periodic inbox filing
type PollerConfig struct {
	Enabled         bool
	Interval        time.Duration
	Bucket          string
	Limit           int
	NotifyInitiator string
}

// KeyringConfig represents the secret store
type KeyringConfig struct {
	Service string
	FileDir string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetClassifier returns the classification configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		Categories:    c.GetStringSlice("classifier.categories"),
		DefaultBucket: c.GetString("classifier.default_bucket"),
		Instructions:  c.GetString("classifier.instructions"),
		MemorySize:    c.GetInt("classifier.memory_size"),
	}
}

// GetRules returns the rule mirror configuration
func (c *Config) GetRules() RulesConfig {
	return RulesConfig{
		Backend:    c.GetString("rules.backend"),
		SQLitePath: c.GetString("rules.sqlite_path"),
		MySQLDSN:   c.GetString("rules.mysql_dsn"),
	}
}

// GetIMAP returns the mailbox configuration
func (c *Config) GetIMAP() (IMAPConfig, error) {
	timeout, err := c.GetDuration("imap.dial_timeout")
	if err != nil {
		return IMAPConfig{}, err
	}
	return IMAPConfig{
		Address:      c.GetString("imap.address"),
		Username:     c.GetString("imap.username"),
		Password:     c.GetString("imap.password"),
		TLS:          c.GetBool("imap.tls"),
		DialTimeout:  timeout,
		PreviewBytes: c.GetInt("imap.preview_bytes"),
		PreviewChars: c.GetInt("imap.preview_chars"),
	}, nil
}

// GetSMTP returns the outbound mail configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Address:  c.GetString("smtp.address"),
		Username: c.GetString("smtp.username"),
		Password: c.GetString("smtp.password"),
		From:     c.GetString("smtp.from"),
		FromName: c.GetString("smtp.from_name"),
		Security: c.GetString("smtp.security"),
	}
}

// GetSessions returns draft and disambiguation lifetimes
func (c *Config) GetSessions() (SessionConfig, error) {
	var (
		cfg SessionConfig
		err error
	)
	if cfg.DraftTTL, err = c.GetDuration("drafts.ttl"); err != nil {
		return SessionConfig{}, err
	}
	if cfg.SentGrace, err = c.GetDuration("drafts.sent_grace"); err != nil {
		return SessionConfig{}, err
	}
	if cfg.DisambiguationTTL, err = c.GetDuration("disambiguation.ttl"); err != nil {
		return SessionConfig{}, err
	}
	if cfg.SweepFrequency, err = c.GetDuration("sessions.sweep_frequency"); err != nil {
		return SessionConfig{}, err
	}
	cfg.Signature = c.GetString("drafts.signature")
	return cfg, nil
}

// GetContacts returns the address book configuration
func (c *Config) GetContacts() ContactsConfig {
	return ContactsConfig{
		Entries:      c.GetStringSlice("contacts.entries"),
		RecentBucket: c.GetString("contacts.recent_bucket"),
		RecentLimit:  c.GetInt("contacts.recent_limit"),
	}
}

// GetChannel returns the chat channel configuration
func (c *Config) GetChannel() ChannelConfig {
	return ChannelConfig{
		Type:              c.GetString("channel.type"),
		ListenAddress:     c.GetString("channel.listen_address"),
		APIKey:            c.GetString("channel.api_key"),
		CallbackURL:       c.GetString("channel.callback_url"),
		AllowedInitiators: c.GetStringSlice("channel.allowed_initiators"),
		DefaultInitiator:  c.GetString("channel.default_initiator"),
	}
}

// GetChat returns the chat command limits
func (c *Config) GetChat() ChatConfig {
	return ChatConfig{
		ListLimit:     c.GetInt("chat.list_limit"),
		ClassifyLimit: c.GetInt("chat.classify_limit"),
		SearchBucket:  c.GetString("chat.search_bucket"),
		SearchLimit:   c.GetInt("chat.search_limit"),
	}
}

// GetPoller returns the inbox poller configuration
func (c *Config) GetPoller() (PollerConfig, error) {
	interval, err := c.GetDuration("poller.interval")
	if err != nil {
		return PollerConfig{}, err
	}
	return PollerConfig{
		Enabled:         c.GetBool("poller.enabled"),
		Interval:        interval,
		Bucket:          c.GetString("poller.bucket"),
		Limit:           c.GetInt("poller.limit"),
		NotifyInitiator: c.GetString("poller.notify_initiator"),
	}, nil
}

// GetKeyring returns the secret store configuration
func (c *Config) GetKeyring() KeyringConfig {
	return KeyringConfig{
		Service: c.GetString("keyring.service"),
		FileDir: c.GetString("keyring.file_dir"),
	}
}
