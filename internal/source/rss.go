package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/trendpulse/internal/logger"
	"github.com/deusflow/trendpulse/internal/trends"
)

// FeedsConfig is YAML config structure
// feeds:
//   - https://...
type FeedsConfig struct {
	Feeds []string `yaml:"feeds"`
}

// LoadFeeds reads RSS feeds list from YAML file
func LoadFeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feeds config: %w", err)
	}
	defer f.Close()

	var cfg FeedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode feeds config: %w", err)
	}
	return cfg.Feeds, nil
}

// RSS reads a fixed list of feeds and filters their items by query terms.
type RSS struct {
	feeds  []string
	parser *gofeed.Parser
	log    *slog.Logger
}

func NewRSS(feeds []string) *RSS {
	return &RSS{
		feeds:  feeds,
		parser: gofeed.NewParser(),
		log:    logger.With("rss"),
	}
}

// FetchArticles implements Source. A feed that fails to parse is logged and
// skipped; the call only fails when every feed fails.
func (r *RSS) FetchArticles(ctx context.Context, query string, opts FetchOptions) ([]trends.Article, error) {
	terms := queryTerms(query)
	var articles []trends.Article
	successCount := 0

	for _, u := range r.feeds {
		feed, err := r.parser.ParseURLWithContext(u, ctx)
		if err != nil {
			r.log.Warn("error parsing feed", "url", u, "error", err)
			continue
		}
		successCount++

		name := strings.TrimSpace(feed.Title)
		if name == "" {
			name = u
		}
		kept := 0
		for _, item := range feed.Items {
			a, ok := itemToArticle(item, name)
			if !ok {
				continue
			}
			if !opts.From.IsZero() && a.PublishedAt.Before(opts.From) {
				continue
			}
			if !matchesAny(a, terms) {
				continue
			}
			articles = append(articles, a)
			kept++
		}
		r.log.Debug("loaded feed", "url", u, "items", len(feed.Items), "kept", kept)
	}

	r.log.Info("processed rss feeds", "ok", successCount, "total", len(r.feeds), "articles", len(articles))
	if successCount == 0 && len(r.feeds) > 0 {
		return nil, fmt.Errorf("all %d feeds failed", len(r.feeds))
	}
	if opts.PageSize > 0 && len(articles) > opts.PageSize {
		articles = articles[:opts.PageSize]
	}
	return articles, nil
}

func itemToArticle(item *gofeed.Item, source string) (trends.Article, bool) {
	if item == nil {
		return trends.Article{}, false
	}
	a := trends.Article{
		Title:       item.Title,
		Description: item.Description,
		URL:         item.Link,
		URLToImage:  itemImage(item),
		Source:      source,
	}
	switch {
	case item.PublishedParsed != nil:
		a.PublishedAt = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		a.PublishedAt = *item.UpdatedParsed
	}
	return a, true
}

// itemImage prefers the item image, then an image enclosure, then media:content.
func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	if media, ok := item.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	return ""
}

// queryTerms splits a NewsAPI-style query ("a OR b") into lower-cased terms.
func queryTerms(query string) []string {
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		if f == "or" || f == "and" {
			continue
		}
		f = strings.Trim(f, `"()`)
		if f != "" {
			terms = append(terms, f)
		}
	}
	return terms
}

func matchesAny(a trends.Article, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	text := strings.ToLower(a.Title + " " + a.Description)
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
