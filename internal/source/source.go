// Package source fetches news articles from NewsAPI-compatible endpoints or
// RSS feeds and normalizes them into trends.Article values.
package source

import (
	"context"
	"strings"
	"time"

	"github.com/deusflow/trendpulse/internal/trends"
)

// FetchOptions narrows a fetch. Zero values mean "provider default".
type FetchOptions struct {
	PageSize int
	Sources  []string
	SortBy   string
	From     time.Time
}

// Source is anything that can return a batch of articles for a query.
type Source interface {
	FetchArticles(ctx context.Context, query string, opts FetchOptions) ([]trends.Article, error)
}

// Clean drops articles missing a title, description, URL or publication time
// and removes repeated URLs, keeping the first occurrence.
func Clean(articles []trends.Article) []trends.Article {
	out := make([]trends.Article, 0, len(articles))
	seen := make(map[string]struct{}, len(articles))
	for _, a := range articles {
		a.Title = strings.TrimSpace(a.Title)
		a.Description = strings.TrimSpace(a.Description)
		a.URL = strings.TrimSpace(a.URL)
		if a.Title == "" || a.Description == "" || a.URL == "" || a.PublishedAt.IsZero() {
			continue
		}
		if a.Title == "[Removed]" {
			continue
		}
		if _, dup := seen[a.URL]; dup {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
	}
	return out
}
