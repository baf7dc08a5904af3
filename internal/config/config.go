// Package config loads service settings from defaults, an optional YAML file
// and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingNewsAPIKey = errors.New("NEWS_API_KEY is required when ARTICLE_SOURCE=newsapi")
	ErrMissingLLMKey     = errors.New("GEMINI_API_KEY or OPENAI_API_KEY is required")
	ErrMissingDatabase   = errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres")
)

type Config struct {
	// Article source settings
	ArticleSource    string   `yaml:"article_source"` // newsapi | rss
	NewsAPIKey       string   `yaml:"news_api_key"`
	NewsAPIURL       string   `yaml:"news_api_url"`
	NewsQuery        string   `yaml:"news_query"`
	NewsSources      []string `yaml:"news_sources"`
	NewsPageSize     int      `yaml:"news_page_size"`
	FetchWindowHours int      `yaml:"fetch_window_hours"`
	FeedsConfigPath  string   `yaml:"feeds_config_path"`

	// LLM settings
	GeminiAPIKey    string        `yaml:"gemini_api_key"`
	GeminiModel     string        `yaml:"gemini_model"` // empty = detect
	OpenAIAPIKey    string        `yaml:"openai_api_key"`
	OpenAIModel     string        `yaml:"openai_model"`
	MaxLLMRequests  int           `yaml:"max_llm_requests"` // per day, 0 = unlimited
	SummaryCacheTTL time.Duration `yaml:"summary_cache_ttl"`

	// Storage settings
	StorageDriver     string `yaml:"storage_driver"` // postgres | sqlite
	DatabaseURL       string `yaml:"database_url"`
	SQLitePath        string `yaml:"sqlite_path"`
	RecentTrendsHours int    `yaml:"recent_trends_hours"`

	// Trend engine settings
	ThresholdsFile    string `yaml:"thresholds_file"`
	MaxTopicsPerCycle int    `yaml:"max_topics_per_cycle"`

	// Scheduler & HTTP
	CycleInterval time.Duration `yaml:"cycle_interval"`
	HTTPAddr      string        `yaml:"http_addr"`

	// Telegram settings (optional)
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`

	// Scraper settings
	ScrapeConcurrency int `yaml:"scrape_concurrency"` // parallel fetches for full article extraction
	ScrapeMaxArticles int `yaml:"scrape_max_articles"`

	// App settings
	Debug          bool          `yaml:"debug"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		ArticleSource:     "newsapi",
		NewsAPIURL:        "https://newsapi.org",
		NewsQuery:         "world OR politics OR economy",
		NewsPageSize:      100,
		FetchWindowHours:  24,
		FeedsConfigPath:   "configs/feeds.yaml",
		OpenAIModel:       "gpt-4o-mini",
		MaxLLMRequests:    50,
		SummaryCacheTTL:   6 * time.Hour,
		StorageDriver:     "sqlite",
		SQLitePath:        "trendpulse.db",
		RecentTrendsHours: 24,
		MaxTopicsPerCycle: 3,
		CycleInterval:     time.Hour,
		HTTPAddr:          ":8080",
		ScrapeConcurrency: 8,
		ScrapeMaxArticles: 10,
		RequestTimeout:    30 * time.Second,
		RetryAttempts:     3,
		RetryDelay:        5 * time.Second,
	}
}

// Load reads .env (if present), then TRENDPULSE_CONFIG (if set), then the
// environment, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("TRENDPULSE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ArticleSource = getEnvOrDefault("ARTICLE_SOURCE", c.ArticleSource)
	c.NewsAPIKey = getEnvOrDefault("NEWS_API_KEY", c.NewsAPIKey)
	c.NewsAPIURL = getEnvOrDefault("NEWS_API_URL", c.NewsAPIURL)
	c.NewsQuery = getEnvOrDefault("NEWS_QUERY", c.NewsQuery)
	if v := os.Getenv("NEWS_SOURCES"); v != "" {
		c.NewsSources = splitList(v)
	}
	c.NewsPageSize = getEnvIntOrDefault("NEWS_PAGE_SIZE", c.NewsPageSize)
	c.FetchWindowHours = getEnvIntOrDefault("FETCH_WINDOW_HOURS", c.FetchWindowHours)
	c.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", c.FeedsConfigPath)

	c.GeminiAPIKey = getEnvOrDefault("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = getEnvOrDefault("GEMINI_MODEL", c.GeminiModel)
	c.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", c.OpenAIModel)
	c.MaxLLMRequests = getEnvIntOrDefault("MAX_LLM_REQUESTS", c.MaxLLMRequests)
	c.SummaryCacheTTL = getEnvDurationOrDefault("SUMMARY_CACHE_TTL", c.SummaryCacheTTL)

	c.StorageDriver = getEnvOrDefault("STORAGE_DRIVER", c.StorageDriver)
	c.DatabaseURL = getEnvOrDefault("DATABASE_URL", c.DatabaseURL)
	c.SQLitePath = getEnvOrDefault("SQLITE_PATH", c.SQLitePath)
	c.RecentTrendsHours = getEnvIntOrDefault("RECENT_TRENDS_HOURS", c.RecentTrendsHours)

	c.ThresholdsFile = getEnvOrDefault("THRESHOLDS_FILE", c.ThresholdsFile)
	c.MaxTopicsPerCycle = getEnvIntOrDefault("MAX_TOPICS_PER_CYCLE", c.MaxTopicsPerCycle)

	c.CycleInterval = getEnvDurationOrDefault("CYCLE_INTERVAL", c.CycleInterval)
	c.HTTPAddr = getEnvOrDefault("HTTP_ADDR", c.HTTPAddr)

	c.TelegramToken = getEnvOrDefault("TELEGRAM_TOKEN", c.TelegramToken)
	c.TelegramChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", c.TelegramChatID)

	if v := getEnvIntOrDefault("SCRAPE_CONCURRENCY", 0); v > 0 {
		c.ScrapeConcurrency = v
	}
	if v := getEnvIntOrDefault("SCRAPE_MAX_ARTICLES", 0); v > 0 {
		c.ScrapeMaxArticles = v
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		c.Debug = true
	}
	c.RequestTimeout = getEnvDurationOrDefault("REQUEST_TIMEOUT", c.RequestTimeout)
	c.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", c.RetryAttempts)
	c.RetryDelay = getEnvDurationOrDefault("RETRY_DELAY", c.RetryDelay)
}

// TelegramEnabled reports whether both Telegram settings are present.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("90s") or bare seconds ("90").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.ArticleSource {
	case "newsapi":
		if c.NewsAPIKey == "" {
			return ErrMissingNewsAPIKey
		}
	case "rss":
		if c.FeedsConfigPath == "" {
			return fmt.Errorf("FEEDS_CONFIG_PATH is required when ARTICLE_SOURCE=rss")
		}
	default:
		return fmt.Errorf("ARTICLE_SOURCE must be 'newsapi' or 'rss', got %q", c.ArticleSource)
	}
	if c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" {
		return ErrMissingLLMKey
	}
	switch c.StorageDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return ErrMissingDatabase
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORAGE_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be 'postgres' or 'sqlite', got %q", c.StorageDriver)
	}
	if c.NewsPageSize < 1 || c.NewsPageSize > 100 {
		return fmt.Errorf("NEWS_PAGE_SIZE must be between 1 and 100")
	}
	if c.RecentTrendsHours < 1 {
		return fmt.Errorf("RECENT_TRENDS_HOURS must be positive")
	}
	if c.MaxTopicsPerCycle < 1 {
		return fmt.Errorf("MAX_TOPICS_PER_CYCLE must be positive")
	}
	if c.CycleInterval <= 0 {
		return fmt.Errorf("CYCLE_INTERVAL must be positive")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	return nil
}
