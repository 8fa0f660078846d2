package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/macross/internal/core"
	"github.com/spf13/viper"
)

const dateLayout = "2006-01-02"

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Source   SourceConfig   `mapstructure:"source"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	LLM      LLMConfig      `mapstructure:"llm"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// BacktestConfig holds the default run parameters
type BacktestConfig struct {
	Symbol         string `mapstructure:"symbol"`
	Start          string `mapstructure:"start"` // YYYY-MM-DD
	End            string `mapstructure:"end"`   // YYYY-MM-DD, exclusive
	FastWindow     int    `mapstructure:"fast_window"`
	SlowWindow     int    `mapstructure:"slow_window"`
	PeriodsPerYear int    `mapstructure:"periods_per_year"`
	PreviewRows    int    `mapstructure:"preview_rows"`
}

// Range parses the configured start and end dates
func (b BacktestConfig) Range() (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, b.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date (expected YYYY-MM-DD): %w", err)
	}
	end, err := time.Parse(dateLayout, b.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date (expected YYYY-MM-DD): %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date must be after start date")
	}
	return start, end, nil
}

// SourceConfig selects where price bars come from
type SourceConfig struct {
	Provider string        `mapstructure:"provider"` // "yahoo" or "csv"
	File     string        `mapstructure:"file"`     // For csv
	Timeout  time.Duration `mapstructure:"timeout"`
	Proxy    string        `mapstructure:"proxy"`
	BaseURL  string        `mapstructure:"base_url"`
}

// CacheConfig controls the raw download cache
type CacheConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
	APIKey      string `mapstructure:"api_key"` // Empty disables auth
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"` // Optional, for proxies
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"` // Optional, any OpenAI-compatible endpoint
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.SetEnvPrefix("MACROSS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Backtest: BacktestConfig{
			Symbol:         "SPY",
			Start:          "2015-01-01",
			End:            "2024-01-01",
			FastWindow:     20,
			SlowWindow:     50,
			PeriodsPerYear: 252,
			PreviewRows:    10,
		},
		Source: SourceConfig{
			Provider: "yahoo",
			Timeout:  10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			Type:    "localfs",
			Path:    "data",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Backtest validation
	if c.Backtest.FastWindow <= 0 || c.Backtest.SlowWindow <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("windows must be positive, got %d/%d", c.Backtest.FastWindow, c.Backtest.SlowWindow))
	}
	if c.Backtest.PeriodsPerYear <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("periods_per_year must be positive, got %d", c.Backtest.PeriodsPerYear))
	}
	if _, _, err := c.Backtest.Range(); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}

	// Source validation
	switch c.Source.Provider {
	case "yahoo":
	case "csv":
		if c.Source.File == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("source file required when provider is csv"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown source provider: %s", c.Source.Provider))
	}

	// Cache validation
	if c.Cache.Enabled {
		switch c.Cache.Type {
		case "localfs":
			if c.Cache.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("cache path required when type is localfs"))
			}
		case "s3":
			if c.Cache.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("s3 bucket required when cache type is s3"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown cache type: %s", c.Cache.Type))
		}
	}

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm provider: %s", c.LLM.Provider))
		}
	}

	return nil
}
