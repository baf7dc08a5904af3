package trends

import (
	"fmt"
	"strings"
)

// TopicMatcher decides whether an article is about a topic. The default
// implementation is a case-insensitive substring search; an indexed matcher
// can be swapped in without touching selection.
type TopicMatcher interface {
	ContainsTopic(a Article, topic string) bool
}

// SubstringMatcher matches when title or description contains the topic,
// ignoring case.
type SubstringMatcher struct{}

// ContainsTopic implements TopicMatcher.
func (SubstringMatcher) ContainsTopic(a Article, topic string) bool {
	topic = strings.ToLower(topic)
	if topic == "" {
		return false
	}
	return strings.Contains(strings.ToLower(a.Title), topic) ||
		strings.Contains(strings.ToLower(a.Description), topic)
}

// RejectionHook receives every candidate the selector turns down.
type RejectionHook func(Rejection)

// Engine runs keyword ranking, topic selection and image scoring against an
// immutable Config.
type Engine struct {
	cfg     *Config
	matcher TopicMatcher
	onRej   RejectionHook
}

// Option customises an Engine.
type Option func(*Engine)

// WithMatcher replaces the topic matcher.
func WithMatcher(m TopicMatcher) Option {
	return func(e *Engine) {
		if m != nil {
			e.matcher = m
		}
	}
}

// WithRejectionHook registers a callback for rejected candidates.
func WithRejectionHook(h RejectionHook) Option {
	return func(e *Engine) {
		e.onRej = h
	}
}

// New validates cfg and builds an Engine.
func New(cfg *Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new trend engine: %w", err)
	}
	e := &Engine{cfg: cfg, matcher: SubstringMatcher{}}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Silent returns a copy of e that reports no rejections, for dry runs.
func (e *Engine) Silent() *Engine {
	c := *e
	c.onRej = nil
	return &c
}

// Config exposes the engine configuration. Callers must not modify it.
func (e *Engine) Config() *Config {
	return e.cfg
}

// AnalyzeTrends ranks candidates and selects the first qualifying topic.
// It returns nil when the batch is empty or nothing qualifies.
func (e *Engine) AnalyzeTrends(articles []Article, recentTrends []string) *SelectedTrend {
	candidates := e.ComputeTrendingKeywords(articles, e.cfg.DefaultLimit)
	if len(candidates) == 0 {
		return nil
	}
	keyword, ok := e.SelectTrendingTopic(candidates, recentTrends, articles)
	if !ok {
		return nil
	}

	count := 0
	for _, c := range candidates {
		if c.Text == keyword {
			count = c.Count
			break
		}
	}
	return &SelectedTrend{Keyword: keyword, Count: count, AllTrends: candidates}
}

// ArticlesForTopic returns the articles that mention topic.
func (e *Engine) ArticlesForTopic(articles []Article, topic string) []Article {
	var out []Article
	for _, a := range articles {
		if e.matcher.ContainsTopic(a, topic) {
			out = append(out, a)
		}
	}
	return out
}

// UniqueSources counts distinct Source values among articles mentioning
// topic. Values are compared as given; an empty Source names no publisher and
// is not counted.
func (e *Engine) UniqueSources(articles []Article, topic string) int {
	seen := make(map[string]struct{})
	for _, a := range articles {
		if a.Source == "" {
			continue
		}
		if e.matcher.ContainsTopic(a, topic) {
			seen[a.Source] = struct{}{}
		}
	}
	return len(seen)
}
