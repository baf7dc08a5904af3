package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ARTICLE_SOURCE", "newsapi")
	t.Setenv("NEWS_API_KEY", "k")
	t.Setenv("GEMINI_API_KEY", "g")
	t.Setenv("NEWS_SOURCES", "reuters, bbc-news ,,")
	t.Setenv("CYCLE_INTERVAL", "15m")
	t.Setenv("RETRY_DELAY", "2")
	t.Setenv("SCRAPE_CONCURRENCY", "-1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.NewsSources) != 2 || cfg.NewsSources[1] != "bbc-news" {
		t.Fatalf("NewsSources = %v", cfg.NewsSources)
	}
	if cfg.CycleInterval != 15*time.Minute || cfg.RetryDelay != 2*time.Second {
		t.Fatalf("durations = %v / %v", cfg.CycleInterval, cfg.RetryDelay)
	}
	if cfg.ScrapeConcurrency != 8 {
		t.Fatalf("ScrapeConcurrency = %d, want default 8", cfg.ScrapeConcurrency)
	}
	if cfg.TelegramEnabled() {
		t.Fatal("telegram must be disabled without token")
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trendpulse.yaml")
	data := "article_source: rss\nfeeds_config_path: feeds.yaml\nopenai_api_key: o\nmax_topics_per_cycle: 5\ncycle_interval: 30m\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRENDPULSE_CONFIG", path)
	t.Setenv("MAX_TOPICS_PER_CYCLE", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ArticleSource != "rss" || cfg.OpenAIAPIKey != "o" || cfg.CycleInterval != 30*time.Minute {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.MaxTopicsPerCycle != 2 {
		t.Fatalf("env must override yaml, got %d", cfg.MaxTopicsPerCycle)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.NewsAPIKey = "k"
		c.GeminiAPIKey = "g"
		return c
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "missing news key", mutate: func(c *Config) { c.NewsAPIKey = "" }, wantErr: ErrMissingNewsAPIKey},
		{name: "missing llm key", mutate: func(c *Config) { c.GeminiAPIKey = "" }, wantErr: ErrMissingLLMKey},
		{name: "postgres without url", mutate: func(c *Config) { c.StorageDriver = "postgres" }, wantErr: ErrMissingDatabase},
		{name: "bad driver", mutate: func(c *Config) { c.StorageDriver = "mongo" }},
		{name: "bad page size", mutate: func(c *Config) { c.NewsPageSize = 500 }},
		{name: "bad source", mutate: func(c *Config) { c.ArticleSource = "twitter" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			switch {
			case tt.name == "ok":
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
				}
			default:
				if err == nil {
					t.Fatal("expected error")
				}
			}
		})
	}
}
