package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config represents the entire application configuration
type Config struct {
	Env        string           `json:"env"`
	Port       int              `json:"port"`
	AppName    string           `json:"app_name"`
	MongoDB    MongoDBConfig    `json:"mongodb"`
	Redis      RedisConfig      `json:"redis"`
	RabbitMQ   RabbitMQConfig   `json:"rabbitmq"`
	Storage    StorageConfig    `json:"storage"`
	LLM        LLMConfig        `json:"llm"`
	Processing ProcessingConfig `json:"processing"`
	Logging    LoggingConfig    `json:"logging"`
	CORS       CORSConfig       `json:"cors"`
}

// MongoDBConfig contains MongoDB connection details
type MongoDBConfig struct {
	URI      string `json:"uri"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       string `json:"db"`
}

type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
	// StatusTTLSeconds bounds how stale a cached status snapshot may be
	StatusTTLSeconds int `json:"status_ttl_seconds"`
}

// RabbitMQConfig contains the broker connection and topology settings
type RabbitMQConfig struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	VHost         string `json:"vhost"`
	ExchangeName  string `json:"exchange_name"`
	QueueName     string `json:"queue_name"`
	RetryQueue    string `json:"retry_queue"`
	PrefetchCount int    `json:"prefetch_count"`
}

// StorageConfig contains the S3 document store settings
type StorageConfig struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	KeyPrefix string `json:"key_prefix"`
}

// LLMConfig contains the reasoning service settings. The endpoint is any
// OpenAI-compatible API (OpenRouter included via base_url).
type LLMConfig struct {
	APIKey      string  `json:"api_key"`
	BaseURL     string  `json:"base_url,omitempty"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
}

// ProcessingConfig tunes the worker pool and retry policy
type ProcessingConfig struct {
	Workers              int `json:"workers"`
	MaxAttempts          int `json:"max_attempts"`
	RetryBaseSeconds     int `json:"retry_base_seconds"`
	RetryCapSeconds      int `json:"retry_cap_seconds"`
	AttemptTimeoutSecs   int `json:"attempt_timeout_seconds"`
	LeaseSeconds         int `json:"lease_seconds"`
	ReclaimIntervalSecs  int `json:"reclaim_interval_seconds"`
	ChunkTokenThreshold  int `json:"chunk_token_threshold"`
	MaxUploadSizeBytes   int `json:"max_upload_size_bytes"`
	StoredTextLimitChars int `json:"stored_text_limit_chars"`
}

// LoggingConfig contains logging-related configurations
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age,omitempty"`
}

// LoadConfig reads configuration from the specified file path
func LoadConfig(filePath string) (*Config, error) {
	configData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(configData, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.Processing.applyDefaults()

	return &config, nil
}

func (p *ProcessingConfig) applyDefaults() {
	if p.Workers <= 0 {
		p.Workers = 4
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.RetryBaseSeconds <= 0 {
		p.RetryBaseSeconds = 10
	}
	if p.RetryCapSeconds <= 0 {
		p.RetryCapSeconds = 300
	}
	if p.AttemptTimeoutSecs <= 0 {
		p.AttemptTimeoutSecs = 540
	}
	if p.LeaseSeconds <= 0 {
		p.LeaseSeconds = 600
	}
	if p.ReclaimIntervalSecs <= 0 {
		p.ReclaimIntervalSecs = 60
	}
	if p.ChunkTokenThreshold <= 0 {
		p.ChunkTokenThreshold = 12000
	}
	if p.MaxUploadSizeBytes <= 0 {
		p.MaxUploadSizeBytes = 50 << 20
	}
	if p.StoredTextLimitChars <= 0 {
		p.StoredTextLimitChars = 5000
	}
}

// RetryBase returns the backoff base delay as a duration
func (p ProcessingConfig) RetryBase() time.Duration {
	return time.Duration(p.RetryBaseSeconds) * time.Second
}

// RetryCap returns the backoff delay ceiling as a duration
func (p ProcessingConfig) RetryCap() time.Duration {
	return time.Duration(p.RetryCapSeconds) * time.Second
}

// AttemptTimeout returns the per-attempt processing deadline
func (p ProcessingConfig) AttemptTimeout() time.Duration {
	return time.Duration(p.AttemptTimeoutSecs) * time.Second
}

// Lease returns the worker ownership lease duration
func (p ProcessingConfig) Lease() time.Duration {
	return time.Duration(p.LeaseSeconds) * time.Second
}

// ReclaimInterval returns how often expired leases are swept
func (p ProcessingConfig) ReclaimInterval() time.Duration {
	return time.Duration(p.ReclaimIntervalSecs) * time.Second
}
