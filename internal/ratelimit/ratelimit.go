package ratelimit

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/deusflow/trendpulse/internal/logger"
)

// ErrExhausted is returned by Use when a provider or the total cap is spent.
var ErrExhausted = errors.New("request budget exhausted")

// Budget caps LLM requests per provider and in total, resetting daily.
// A limit of 0 means unlimited.
type Budget struct {
	mu          sync.Mutex
	counts      map[string]int
	limits      map[string]int
	totalCount  int
	maxTotal    int
	resetTime   time.Time
	cacheHits   int
	cacheMisses int
	now         func() time.Time
	log         *slog.Logger
}

// NewBudget creates a budget with per-provider limits and a total cap.
func NewBudget(limits map[string]int, maxTotal int) *Budget {
	l := make(map[string]int, len(limits))
	for k, v := range limits {
		l[k] = v
	}
	b := &Budget{
		counts:   make(map[string]int),
		limits:   l,
		maxTotal: maxTotal,
		now:      time.Now,
		log:      logger.With("ratelimit"),
	}
	b.resetTime = b.now().Add(24 * time.Hour)
	return b
}

// CanUse checks if provider has budget left without consuming it.
func (b *Budget) CanUse(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	return b.available(provider) == nil
}

// Use consumes one request for provider.
func (b *Budget) Use(provider string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	if err := b.available(provider); err != nil {
		return err
	}

	b.counts[provider]++
	b.totalCount++
	b.cacheMisses++

	b.log.Debug("llm usage", "provider", provider, "used", b.counts[provider], "limit", b.limits[provider], "total", b.totalCount, "total_limit", b.maxTotal)
	return nil
}

func (b *Budget) available(provider string) error {
	if max := b.limits[provider]; max > 0 && b.counts[provider] >= max {
		b.log.Warn("provider rate limit reached", "provider", provider, "used", b.counts[provider], "limit", max)
		return fmt.Errorf("%s: %w", provider, ErrExhausted)
	}
	if b.maxTotal > 0 && b.totalCount >= b.maxTotal {
		b.log.Warn("total llm rate limit reached", "used", b.totalCount, "limit", b.maxTotal)
		return fmt.Errorf("total: %w", ErrExhausted)
	}
	return nil
}

// RecordCacheHit records a request answered from cache.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

func (b *Budget) cacheHitRate() float64 {
	total := b.cacheHits + b.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(b.cacheHits) / float64(total) * 100
}

// Stats returns current usage per provider plus totals.
func (b *Budget) Stats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":     b.totalCount,
		"total_limit":    b.maxTotal,
		"cache_hits":     b.cacheHits,
		"cache_misses":   b.cacheMisses,
		"cache_hit_rate": b.cacheHitRate(),
		"reset_time":     b.resetTime.Format(time.RFC3339),
	}
	for _, p := range b.providers() {
		stats[p+"_used"] = b.counts[p]
		stats[p+"_limit"] = b.limits[p]
	}
	return stats
}

func (b *Budget) providers() []string {
	seen := make(map[string]struct{})
	for p := range b.limits {
		seen[p] = struct{}{}
	}
	for p := range b.counts {
		seen[p] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// checkReset resets counters if reset time has passed
func (b *Budget) checkReset() {
	if b.now().After(b.resetTime) {
		b.log.Info("resetting llm budget", "total_used", b.totalCount, "cache_hits", b.cacheHits)

		b.counts = make(map[string]int)
		b.totalCount = 0
		b.cacheHits = 0
		b.cacheMisses = 0
		b.resetTime = b.now().Add(24 * time.Hour)
	}
}
