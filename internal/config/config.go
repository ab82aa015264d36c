package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string `mapstructure:"port"`

	// Auth
	APIKey string `mapstructure:"api_key"`

	// Claude extraction
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	AnthropicModel  string        `mapstructure:"anthropic_model"`
	LLMAttempts     uint          `mapstructure:"llm_attempts"`
	LLMRetryDelay   time.Duration `mapstructure:"llm_retry_delay"`

	// Worker pool
	WorkerCount  int `mapstructure:"worker_count"`
	MaxQueueSize int `mapstructure:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `mapstructure:"job_ttl"`

	// Splitting
	FamiliesDir string `mapstructure:"families_dir"`
	OutputDir   string `mapstructure:"output_dir"`
	Separator   string `mapstructure:"separator"`

	LogLevel string `mapstructure:"log_level"`
}

// envNames maps config keys to the environment variables that set them.
var envNames = map[string]string{
	"port":              "PORT",
	"api_key":           "DOCSPLIT_API_KEY",
	"anthropic_api_key": "ANTHROPIC_API_KEY",
	"anthropic_model":   "ANTHROPIC_MODEL",
	"llm_attempts":      "LLM_ATTEMPTS",
	"llm_retry_delay":   "LLM_RETRY_DELAY",
	"worker_count":      "WORKER_COUNT",
	"max_queue_size":    "MAX_QUEUE_SIZE",
	"max_upload_bytes":  "MAX_UPLOAD_BYTES",
	"job_ttl":           "JOB_TTL",
	"families_dir":      "FAMILIES_DIR",
	"output_dir":        "OUTPUT_DIR",
	"separator":         "SPLIT_SEPARATOR",
	"log_level":         "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8090")
	v.SetDefault("anthropic_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm_attempts", 4)
	v.SetDefault("llm_retry_delay", 2*time.Second)
	v.SetDefault("worker_count", 4)
	v.SetDefault("max_queue_size", 100)
	v.SetDefault("max_upload_bytes", 52428800) // 50MB
	v.SetDefault("job_ttl", time.Hour)
	v.SetDefault("separator", "-")
	v.SetDefault("log_level", "info")
}

// Load reads defaults, then the YAML file at path (if path is non-empty),
// then environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envNames {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, err
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks settings shared by the server and the CLI.
func (c Config) Validate() error {
	if c.WorkerCount <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("MAX_QUEUE_SIZE must be positive, got %d", c.MaxQueueSize)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.JobTTL <= 0 {
		return fmt.Errorf("JOB_TTL must be positive, got %s", c.JobTTL)
	}
	if c.LLMAttempts == 0 {
		return fmt.Errorf("LLM_ATTEMPTS must be at least 1")
	}
	if c.Separator == "" {
		return fmt.Errorf("SPLIT_SEPARATOR must not be empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// ValidateServer additionally requires the settings only the HTTP server
// needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("DOCSPLIT_API_KEY is required")
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}
