// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port          int           `yaml:"port"`
	APIKey        string        `yaml:"api_key"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

type TranscriptionConfig struct {
	BinaryPath    string        `yaml:"binary_path"` // whisper-cli compatible executable
	ModelDir      string        `yaml:"model_dir"`
	DefaultModel  string        `yaml:"default_model"` // whisper-tiny .. whisper-large
	Language      string        `yaml:"language"`      // "auto" enables detection
	ThreadCount   int           `yaml:"thread_count"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
}

type EnhancementConfig struct {
	GeminiKey       string        `yaml:"gemini_key"`
	GeminiURL       string        `yaml:"gemini_url"`
	OpenAIKey       string        `yaml:"openai_key"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"`
	DefaultProvider string        `yaml:"default_provider"` // gemini-pro|gemini-flash|local-llm
	DefaultModel    string        `yaml:"default_model"`
	MaxConcurrent   int           `yaml:"max_concurrent"`
	ProviderLimit   int           `yaml:"provider_limit"` // hard cap on simultaneous upstream calls
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
}

type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	TTL      time.Duration `yaml:"ttl"`
	MaxBytes int64         `yaml:"max_bytes"`
}

type Config struct {
	Log           LogConfig           `yaml:"log"`
	Admin         AdminConfig         `yaml:"admin"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Enhancement   EnhancementConfig   `yaml:"enhancement"`
	Cache         CacheConfig         `yaml:"cache"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 8090
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.Transcription.DefaultModel == "" {
		cfg.Transcription.DefaultModel = "whisper-base"
	}
	if cfg.Transcription.Language == "" {
		cfg.Transcription.Language = "auto"
	}
	if cfg.Transcription.MaxConcurrent <= 0 {
		cfg.Transcription.MaxConcurrent = 2
	}
	if cfg.Transcription.Timeout <= 0 {
		cfg.Transcription.Timeout = 30 * time.Second
	}
	if cfg.Transcription.MaxRetries < 0 {
		cfg.Transcription.MaxRetries = 0
	} else if cfg.Transcription.MaxRetries == 0 {
		cfg.Transcription.MaxRetries = 3
	}
	if cfg.Enhancement.DefaultProvider == "" {
		cfg.Enhancement.DefaultProvider = "gemini-flash"
	}
	if cfg.Enhancement.MaxConcurrent <= 0 {
		cfg.Enhancement.MaxConcurrent = 3
	}
	if cfg.Enhancement.Timeout <= 0 {
		cfg.Enhancement.Timeout = 10 * time.Second
	}
	if cfg.Enhancement.MaxRetries == 0 {
		cfg.Enhancement.MaxRetries = 2
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = 24 * time.Hour
	}
	if cfg.Cache.MaxBytes <= 0 {
		cfg.Cache.MaxBytes = 50 * 1024 * 1024
	}

	// Minimal validation
	if cfg.Transcription.ModelDir == "" {
		return nil, errors.New("transcription.model_dir is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
