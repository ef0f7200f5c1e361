package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the agent system
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains generation model settings
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SourcesConfig groups per-upstream adapter settings
type SourcesConfig struct {
	News      NewsSourceConfig      `mapstructure:"news"`
	Forum     ForumSourceConfig     `mapstructure:"forum"`
	LinkAgg   LinkAggSourceConfig   `mapstructure:"link_aggregator"`
	Reference ReferenceSourceConfig `mapstructure:"reference"`

	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	UserAgent  string        `mapstructure:"user_agent"`
}

// NewsSourceConfig configures the Google News RSS adapter
type NewsSourceConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	Language   string `mapstructure:"language"`
	MaxResults int    `mapstructure:"max_results"`
}

// ForumSourceConfig configures the Reddit search adapter
type ForumSourceConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	TimeWindow string `mapstructure:"time_window"`
	MaxResults int    `mapstructure:"max_results"`
}

// LinkAggSourceConfig configures the Hacker News (Algolia) adapter
type LinkAggSourceConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	MaxResults int    `mapstructure:"max_results"`
}

// ReferenceSourceConfig configures the Wikipedia search adapter
type ReferenceSourceConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	MaxResults int    `mapstructure:"max_results"`
}

// AggregatorConfig tunes dedup, ranking and truncation
type AggregatorConfig struct {
	Deadline        time.Duration `mapstructure:"deadline"`
	MaxItems        int           `mapstructure:"max_items"`
	NativeWeight    float64       `mapstructure:"native_weight"`
	RecencyWeight   float64       `mapstructure:"recency_weight"`
	TopicWeight     float64       `mapstructure:"topic_weight"`
	RecencyHalfLife time.Duration `mapstructure:"recency_half_life"`
}

// Normalize rescales the ranking weights so they sum to one. Zero or negative
// weight sets fall back to the defaults.
func (a AggregatorConfig) Normalize() AggregatorConfig {
	sum := a.NativeWeight + a.RecencyWeight + a.TopicWeight
	if sum <= 0 {
		a.NativeWeight, a.RecencyWeight, a.TopicWeight = 0.4, 0.35, 0.25
		return a
	}
	a.NativeWeight /= sum
	a.RecencyWeight /= sum
	a.TopicWeight /= sum
	return a
}

// CacheConfig configures the advisory response cache
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// TelemetryConfig contains metrics settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func (t TelemetryConfig) Validate() error { return nil }

// Validate rejects aggregator settings the pipeline cannot work with.
func (a AggregatorConfig) Validate() error {
	if a.MaxItems <= 0 {
		return fmt.Errorf("aggregator.max_items must be > 0")
	}
	if a.RecencyHalfLife <= 0 {
		return fmt.Errorf("aggregator.recency_half_life must be > 0")
	}
	return nil
}

// LoadConfig reads configuration from file and environment. Missing config
// files are tolerated; defaults plus PULSE_* env vars are enough to run.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	setDefaults()

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("PULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	config.Aggregator = config.Aggregator.Normalize()

	if err := config.Aggregator.Validate(); err != nil {
		panic(err)
	}
	if config.LLM.APIKey == "" {
		config.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return &config
}

func setDefaults() {
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.request_timeout", 45*time.Second)

	viper.SetDefault("server.address", ":8080")

	viper.SetDefault("llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.4)
	viper.SetDefault("llm.max_tokens", 1800)
	viper.SetDefault("llm.timeout", 60*time.Second)

	viper.SetDefault("sources.timeout", 8*time.Second)
	viper.SetDefault("sources.max_retries", 1)
	viper.SetDefault("sources.user_agent", "signal-pulse/1.0 (content intelligence agent)")
	viper.SetDefault("sources.news.endpoint", "https://news.google.com/rss/search")
	viper.SetDefault("sources.news.language", "en-US")
	viper.SetDefault("sources.news.max_results", 10)
	viper.SetDefault("sources.forum.endpoint", "https://www.reddit.com/search.json")
	viper.SetDefault("sources.forum.time_window", "week")
	viper.SetDefault("sources.forum.max_results", 10)
	viper.SetDefault("sources.link_aggregator.endpoint", "https://hn.algolia.com/api/v1/search")
	viper.SetDefault("sources.link_aggregator.max_results", 10)
	viper.SetDefault("sources.reference.endpoint", "https://en.wikipedia.org/w/api.php")
	viper.SetDefault("sources.reference.max_results", 5)

	viper.SetDefault("aggregator.deadline", 12*time.Second)
	viper.SetDefault("aggregator.max_items", 24)
	viper.SetDefault("aggregator.native_weight", 0.4)
	viper.SetDefault("aggregator.recency_weight", 0.35)
	viper.SetDefault("aggregator.topic_weight", 0.25)
	viper.SetDefault("aggregator.recency_half_life", 72*time.Hour)

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.addr", "localhost:6379")
	viper.SetDefault("cache.db", 0)
	viper.SetDefault("cache.ttl", 10*time.Minute)

	viper.SetDefault("telemetry.enabled", true)
}
