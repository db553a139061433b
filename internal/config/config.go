// Package config loads anzen settings from an optional YAML file, a .env
// file and ANZEN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/efebarandurmaz/anzen/internal/llm"
)

// Config holds all application configuration.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Store     StoreConfig     `mapstructure:"store"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Server    ServerConfig    `mapstructure:"server"`
	Search    SearchConfig    `mapstructure:"search"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Media     MediaConfig     `mapstructure:"media"`
	Report    ReportConfig    `mapstructure:"report"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type LLMConfig struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	VideoModel        string        `mapstructure:"video_model"`
	ImageModel        string        `mapstructure:"image_model"`
}

// EmbeddingConfig selects the embedding backend. Empty fields inherit from
// the llm section.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

// ProviderConfig returns the generation backend settings.
func (c LLMConfig) ProviderConfig() llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider:   c.Provider,
		APIKey:     c.APIKey,
		Model:      c.Model,
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
		MaxRetries: c.MaxRetries,
		RetryDelay: time.Second,
	}
}

// Resolve returns the embedding backend settings with unset fields
// inherited from base.
func (e EmbeddingConfig) Resolve(base LLMConfig) llm.ProviderConfig {
	pc := base.ProviderConfig()
	if e.Provider != "" && e.Provider != base.Provider {
		pc.Provider = e.Provider
		pc.APIKey, pc.BaseURL = "", ""
	}
	if e.APIKey != "" {
		pc.APIKey = e.APIKey
	}
	if e.BaseURL != "" {
		pc.BaseURL = e.BaseURL
	}
	pc.EmbedModel = e.Model
	pc.EmbedDims = e.Dimensions
	return pc
}

// StoreConfig selects the document store: "memory" or "postgres".
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type VectorConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// CacheConfig configures the query-embedding cache. An empty Addr selects
// the in-process cache.
type CacheConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	Prefix     string        `mapstructure:"prefix"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SearchConfig struct {
	RecentCases int `mapstructure:"recent_cases"`
	Suggestions int `mapstructure:"suggestions"`
}

type CatalogConfig struct {
	RequestedNames int `mapstructure:"requested_names"`
	Concurrency    int `mapstructure:"concurrency"`
}

type MediaConfig struct {
	MinBytes     int64         `mapstructure:"min_bytes"`
	Concurrency  int           `mapstructure:"concurrency"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	Dir          string        `mapstructure:"dir"`
	BaseURL      string        `mapstructure:"base_url"`
}

// ReportConfig configures report rendering. An empty RendererURL delivers
// HTML instead of PDF.
type ReportConfig struct {
	RendererURL string `mapstructure:"renderer_url"`
	Pictograms  bool   `mapstructure:"pictograms"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.timeout", 2*time.Minute)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.requests_per_minute", 60)
	v.SetDefault("embedding.model", "gemini-embedding-001")
	v.SetDefault("embedding.dimensions", 3072)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "anzen_categories")
	v.SetDefault("temporal.host", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "anzen-pipeline")
	v.SetDefault("cache.prefix", "anzen:")
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("search.recent_cases", 50)
	v.SetDefault("search.suggestions", 10)
	v.SetDefault("catalog.requested_names", 50)
	v.SetDefault("catalog.concurrency", 8)
	v.SetDefault("media.min_bytes", 51200)
	v.SetDefault("media.concurrency", 8)
	v.SetDefault("media.probe_timeout", 10*time.Second)
	v.SetDefault("media.dir", "public")
	v.SetDefault("media.base_url", "http://localhost:8080/files")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("tracing.service_name", "anzen")
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.sample_rate", 1.0)
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.LLM.Provider != "" && c.LLM.Provider != "none" && c.LLM.APIKey == "" && c.LLM.Provider != "ollama" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but api_key is empty", c.LLM.Provider))
	}
	if c.LLM.MaxRetries < 0 {
		warnings = append(warnings, fmt.Sprintf("LLM max_retries %d is negative", c.LLM.MaxRetries))
	}
	if c.Embedding.Dimensions <= 0 {
		warnings = append(warnings, fmt.Sprintf("embedding dimensions %d must be positive", c.Embedding.Dimensions))
	}

	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Store.DSN == "" {
			warnings = append(warnings, "store driver 'postgres' requires store.dsn")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown store driver '%s'", c.Store.Driver))
	}

	if c.Graph.URI != "" && c.Graph.Username == "" {
		warnings = append(warnings, "graph uri is set but username is empty")
	}
	if c.Search.Suggestions <= 0 || c.Search.RecentCases <= 0 {
		warnings = append(warnings, "search recent_cases and suggestions must be positive")
	}
	if c.Catalog.RequestedNames <= 0 {
		warnings = append(warnings, fmt.Sprintf("catalog requested_names %d must be positive", c.Catalog.RequestedNames))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0, 1]", c.Tracing.SampleRate))
	}
	return warnings
}

// Load reads configuration from path (optional), a .env file in the working
// directory and the environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ANZEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
