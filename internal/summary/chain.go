package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/trendpulse/internal/cache"
	"github.com/deusflow/trendpulse/internal/logger"
	"github.com/deusflow/trendpulse/internal/ratelimit"
	"github.com/deusflow/trendpulse/internal/retry"
)

// Provider is a text-generation backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Chain tries providers in order until one yields a valid summary.
type Chain struct {
	providers []Provider
	budget    *ratelimit.Budget
	cache     *cache.Cache[Summary]
	retry     retry.RetryConfig
	now       func() time.Time
	log       *slog.Logger
}

// NewChain builds a chain. budget and c may be nil.
func NewChain(budget *ratelimit.Budget, c *cache.Cache[Summary], rc retry.RetryConfig, providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		budget:    budget,
		cache:     c,
		retry:     rc,
		now:       time.Now,
		log:       logger.With("summary"),
	}
}

// Summarize returns a validated summary with PublishedAt and ImageURL filled
// in from the request.
func (c *Chain) Summarize(ctx context.Context, req Request) (*Summary, error) {
	key := requestKey(req)
	if c.cache != nil {
		if s, ok := c.cache.Get(key); ok {
			if c.budget != nil {
				c.budget.RecordCacheHit()
			}
			c.log.Debug("summary cache hit", "topic", req.Topic)
			return &s, nil
		}
	}

	prompt := BuildPrompt(req)
	var errs []error
	attempted := 0

	for _, p := range c.providers {
		if c.budget != nil && !c.budget.CanUse(p.Name()) {
			c.log.Warn("provider skipped, budget exhausted", "provider", p.Name())
			continue
		}
		attempted++

		s, err := c.generate(ctx, p, prompt)
		if err != nil {
			c.log.Warn("provider failed", "provider", p.Name(), "topic", req.Topic, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		s.PublishedAt = c.now().UTC()
		s.ImageURL = req.ImageURL
		s.Provider = p.Name()
		if c.cache != nil {
			c.cache.Set(key, *s)
		}
		c.log.Info("summary generated", "provider", p.Name(), "topic", req.Topic, "credibility", s.CredibilityScore)
		return s, nil
	}

	if attempted == 0 {
		return nil, ErrBudgetExhausted
	}
	return nil, fmt.Errorf("all providers failed: %w", errors.Join(errs...))
}

// generate retries transport failures; malformed output is not retried. Every
// call to the provider, retries included, is charged to the budget.
func (c *Chain) generate(ctx context.Context, p Provider, prompt string) (*Summary, error) {
	var out *Summary
	err := retry.WithRetry(ctx, c.retry, func() error {
		if c.budget != nil {
			if err := c.budget.Use(p.Name()); err != nil {
				return retry.Permanent(err)
			}
		}
		raw, err := p.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		s, err := Parse(raw)
		if err != nil {
			return retry.Permanent(err)
		}
		out = s
		return nil
	})
	return out, err
}

func requestKey(req Request) string {
	parts := make([]string, 0, len(req.Articles)+1)
	parts = append(parts, req.Topic)
	for _, a := range req.Articles {
		parts = append(parts, a.URL)
	}
	return cache.Key(parts...)
}
