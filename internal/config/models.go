package config

import "time"

// ServerConfig represents the configuration for the HTTP relay API
type ServerConfig struct {
	ListenAddress      string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxBodyBytes       int64
	CORSAllowedOrigins []string
}

// SMTPConfig represents the configuration for the SMTP ingress
type SMTPConfig struct {
	Enabled         bool
	ListenAddress   string
	Domain          string
	AcceptedDomains []string
	MaxMessageBytes int64
	MaxRecipients   int
}

// StoreConfig represents the configuration for the mailbox store
type StoreConfig struct {
	Type         string
	SQLitePath   string
	MySQLDSN     string
	PostgresDSN  string
	MaxOpenConns int
}

// EncryptionConfig represents the configuration for the encryption gateway
type EncryptionConfig struct {
	MaxPlaintextSize int
}

// ClassifierConfig represents the configuration for intent classification
type ClassifierConfig struct {
	Timeout               time.Duration
	CacheEnabled          bool
	CacheTTL              time.Duration
	CacheCleanupFrequency time.Duration
}

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
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	cfg := ServerConfig{
		ListenAddress:      c.GetString("server.listen_address"),
		MaxBodyBytes:       int64(c.GetInt("server.max_body_bytes")),
		CORSAllowedOrigins: c.GetStringSlice("server.cors_allowed_origins"),
	}
	var err error
	if cfg.ReadTimeout, err = c.GetDuration("server.read_timeout"); err != nil {
		return cfg, err
	}
	if cfg.WriteTimeout, err = c.GetDuration("server.write_timeout"); err != nil {
		return cfg, err
	}
	if cfg.RequestTimeout, err = c.GetDuration("server.request_timeout"); err != nil {
		return cfg, err
	}
	if cfg.ShutdownTimeout, err = c.GetDuration("server.shutdown_timeout"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// GetSMTP returns the SMTP ingress configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Enabled:         c.GetBool("smtp.enabled"),
		ListenAddress:   c.GetString("smtp.listen_address"),
		Domain:          c.GetString("smtp.domain"),
		AcceptedDomains: c.GetStringSlice("smtp.accepted_domains"),
		MaxMessageBytes: int64(c.GetInt("smtp.max_message_bytes")),
		MaxRecipients:   c.GetInt("smtp.max_recipients"),
	}
}

// GetStore returns the store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:         c.GetString("store.type"),
		SQLitePath:   c.GetString("store.sqlite_path"),
		MySQLDSN:     c.GetString("store.mysql_dsn"),
		PostgresDSN:  c.GetString("store.postgres_dsn"),
		MaxOpenConns: c.GetInt("store.max_open_conns"),
	}
}

// GetEncryption returns the encryption configuration
func (c *Config) GetEncryption() EncryptionConfig {
	return EncryptionConfig{
		MaxPlaintextSize: c.GetInt("encryption.max_plaintext_size"),
	}
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() (ClassifierConfig, error) {
	cfg := ClassifierConfig{
		CacheEnabled: c.GetBool("classifier.cache_enabled"),
	}
	var err error
	if cfg.Timeout, err = c.GetDuration("classifier.timeout"); err != nil {
		return cfg, err
	}
	if cfg.CacheTTL, err = c.GetDuration("classifier.cache_ttl"); err != nil {
		return cfg, err
	}
	if cfg.CacheCleanupFrequency, err = c.GetDuration("classifier.cache_cleanup_frequency"); err != nil {
		return cfg, err
	}
	return cfg, nil
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
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}
