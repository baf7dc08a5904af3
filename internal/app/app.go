// Package app builds the service from configuration and guards its cycles
// against overlapping runs.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/deusflow/trendpulse/internal/cache"
	"github.com/deusflow/trendpulse/internal/config"
	"github.com/deusflow/trendpulse/internal/gemini"
	"github.com/deusflow/trendpulse/internal/gpt"
	"github.com/deusflow/trendpulse/internal/logger"
	"github.com/deusflow/trendpulse/internal/metrics"
	"github.com/deusflow/trendpulse/internal/ratelimit"
	"github.com/deusflow/trendpulse/internal/retry"
	"github.com/deusflow/trendpulse/internal/scraper"
	"github.com/deusflow/trendpulse/internal/source"
	"github.com/deusflow/trendpulse/internal/storage"
	"github.com/deusflow/trendpulse/internal/summary"
	"github.com/deusflow/trendpulse/internal/telegram"
	"github.com/deusflow/trendpulse/internal/trends"
	"github.com/deusflow/trendpulse/internal/workflow"
)

// recordRetention is how long published records are kept.
const recordRetention = 30 * 24 * time.Hour

// ErrBusy is returned when a cycle is requested while another one runs.
var ErrBusy = errors.New("a cycle is already running")

// Runner is the part of the workflow the app drives.
type Runner interface {
	RunOnce(ctx context.Context) (workflow.Result, error)
	RunAutonomous(ctx context.Context) ([]workflow.Result, error)
	Preview(ctx context.Context) (workflow.Preview, error)
}

// App owns every long-lived component of the service.
type App struct {
	runner  Runner
	store   *storage.Store
	budget  *ratelimit.Budget
	metrics *metrics.Metrics

	summaries *cache.Cache[summary.Summary]
	closers   []func()

	running sync.Mutex
	log     *slog.Logger
}

// New wires the service described by cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.With("app")
	rc := retry.RetryConfig{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: true}

	engineCfg := trends.DefaultConfig()
	if cfg.ThresholdsFile != "" {
		if err := trends.LoadThresholdFile(cfg.ThresholdsFile, engineCfg); err != nil {
			return nil, err
		}
		log.Info("threshold overrides loaded", "path", cfg.ThresholdsFile, "entries", engineCfg.Thresholds.Len())
	}
	engine, err := trends.New(engineCfg, trends.WithRejectionHook(workflow.RejectionLogger(metrics.Global)))
	if err != nil {
		return nil, err
	}

	src, err := newSource(cfg, rc)
	if err != nil {
		return nil, err
	}

	dsn := cfg.SQLitePath
	if cfg.StorageDriver == storage.DriverPostgres {
		dsn = cfg.DatabaseURL
	}
	store, err := storage.Open(ctx, cfg.StorageDriver, dsn)
	if err != nil {
		return nil, err
	}

	a := &App{
		store:     store,
		metrics:   metrics.Global,
		summaries: cache.New[summary.Summary](cfg.SummaryCacheTTL),
		log:       log,
	}
	a.closers = append(a.closers, func() { store.Close() })

	var providers []summary.Provider
	limits := map[string]int{}
	if cfg.GeminiAPIKey != "" {
		g, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, g.Close)
		providers = append(providers, g)
		limits[g.Name()] = cfg.MaxLLMRequests
	}
	if cfg.OpenAIAPIKey != "" {
		o := gpt.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, "")
		providers = append(providers, o)
		limits[o.Name()] = cfg.MaxLLMRequests
	}
	a.budget = ratelimit.NewBudget(limits, cfg.MaxLLMRequests)
	chain := summary.NewChain(a.budget, a.summaries, rc, providers...)

	opts := []workflow.Option{
		workflow.WithMetrics(a.metrics),
		workflow.WithEnricher(scraper.New(cfg.RequestTimeout, cfg.ScrapeConcurrency, cfg.ScrapeMaxArticles)),
	}
	if cfg.TelegramEnabled() {
		opts = append(opts, workflow.WithNotifier(telegram.NewClient(cfg.TelegramToken, cfg.TelegramChatID, rc)))
		log.Info("telegram notifications enabled", "chat", cfg.TelegramChatID)
	}

	a.runner = workflow.New(src, engine, store, chain, workflow.Options{
		Query:       cfg.NewsQuery,
		Sources:     cfg.NewsSources,
		PageSize:    cfg.NewsPageSize,
		FetchWindow: time.Duration(cfg.FetchWindowHours) * time.Hour,
		RecentHours: cfg.RecentTrendsHours,
		MaxTopics:   cfg.MaxTopicsPerCycle,
	}, opts...)

	log.Info("service configured",
		"source", cfg.ArticleSource,
		"storage", cfg.StorageDriver,
		"providers", len(providers),
		"max_topics", cfg.MaxTopicsPerCycle,
	)
	return a, nil
}

func newSource(cfg *config.Config, rc retry.RetryConfig) (source.Source, error) {
	switch cfg.ArticleSource {
	case "rss":
		feeds, err := source.LoadFeeds(cfg.FeedsConfigPath)
		if err != nil {
			return nil, err
		}
		return source.NewRSS(feeds), nil
	case "newsapi":
		return source.NewNewsAPI(cfg.NewsAPIKey, cfg.NewsAPIURL, cfg.RequestTimeout, rc), nil
	default:
		return nil, fmt.Errorf("unknown article source %q", cfg.ArticleSource)
	}
}

// RunOnce runs a single-topic cycle unless one is already in progress.
func (a *App) RunOnce(ctx context.Context) (workflow.Result, error) {
	if !a.running.TryLock() {
		return workflow.Result{}, ErrBusy
	}
	defer a.running.Unlock()
	return a.runner.RunOnce(ctx)
}

// RunAutonomous runs a multi-topic cycle unless one is already in progress.
func (a *App) RunAutonomous(ctx context.Context) ([]workflow.Result, error) {
	if !a.running.TryLock() {
		return nil, ErrBusy
	}
	defer a.running.Unlock()
	return a.runner.RunAutonomous(ctx)
}

func (a *App) Preview(ctx context.Context) (workflow.Preview, error) {
	return a.runner.Preview(ctx)
}

// Background starts housekeeping loops that live as long as ctx: summary
// cache eviction and pruning of stored records past the retention window.
func (a *App) Background(ctx context.Context) {
	go a.summaries.Run(ctx, time.Hour)
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := a.store.Cleanup(ctx, recordRetention); err != nil {
					a.log.Warn("record cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Stats merges storage and budget numbers for the metrics endpoint.
func (a *App) Stats(ctx context.Context) map[string]interface{} {
	out := map[string]interface{}{}
	if a.budget != nil {
		out["llm_budget"] = a.budget.Stats()
	}
	if a.store != nil {
		if s, err := a.store.Stats(ctx); err == nil {
			out["storage"] = s
		} else {
			a.log.Warn("storage stats failed", "error", err)
		}
	}
	if a.summaries != nil {
		out["summary_cache_entries"] = a.summaries.Len()
	}
	return out
}

// Article loads a stored record by id.
func (a *App) Article(ctx context.Context, id string) (storage.Record, error) {
	if a.store == nil {
		return storage.Record{}, storage.ErrNotFound
	}
	return a.store.GetArticle(ctx, id)
}

// Close releases clients and the database connection.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
