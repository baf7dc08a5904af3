// Package workflow runs one detection cycle end to end: fetch articles, pick
// a trending topic, summarize it, store the result and announce it.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/trendpulse/internal/logger"
	"github.com/deusflow/trendpulse/internal/metrics"
	"github.com/deusflow/trendpulse/internal/ratelimit"
	"github.com/deusflow/trendpulse/internal/scraper"
	"github.com/deusflow/trendpulse/internal/source"
	"github.com/deusflow/trendpulse/internal/storage"
	"github.com/deusflow/trendpulse/internal/summary"
	"github.com/deusflow/trendpulse/internal/trends"
)

// Outcome describes how a cycle ended when it did not fail.
type Outcome string

const (
	OutcomePublished       Outcome = "published"
	OutcomeNoArticles      Outcome = "no_articles"
	OutcomeNoTrend         Outcome = "no_trend"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeBudgetExhausted Outcome = "budget_exhausted"
)

// Result is the outcome of processing one topic.
type Result struct {
	Outcome    Outcome `json:"outcome"`
	Topic      string  `json:"topic,omitempty"`
	DocumentID string  `json:"document_id,omitempty"`
	ImageURL   string  `json:"image_url,omitempty"`
	Provider   string  `json:"provider,omitempty"`
}

// Store is the persistence the workflow needs.
type Store interface {
	RecentTopics(ctx context.Context, hours int) ([]string, error)
	CheckDuplicate(ctx context.Context, rec storage.Record) (bool, error)
	WriteArticle(ctx context.Context, rec storage.Record) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, req summary.Request) (*summary.Summary, error)
}

type Enricher interface {
	EnrichArticles(ctx context.Context, urls []string) map[string]*scraper.ArticleContent
}

type Notifier interface {
	Publish(ctx context.Context, rec storage.Record) error
}

// Options are the per-cycle knobs taken from configuration.
type Options struct {
	Query       string
	Sources     []string
	PageSize    int
	FetchWindow time.Duration
	RecentHours int
	MaxTopics   int
}

// Workflow wires the article source, the trend engine and the downstream
// collaborators together. Scraper and notifier are optional.
type Workflow struct {
	source     source.Source
	engine     *trends.Engine
	store      Store
	summarizer Summarizer
	enricher   Enricher
	notifier   Notifier
	metrics    *metrics.Metrics
	opts       Options
	now        func() time.Time
	log        *slog.Logger
}

type Option func(*Workflow)

func WithEnricher(e Enricher) Option {
	return func(w *Workflow) { w.enricher = e }
}

func WithNotifier(n Notifier) Option {
	return func(w *Workflow) { w.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

func New(src source.Source, engine *trends.Engine, store Store, summarizer Summarizer, opts Options, options ...Option) *Workflow {
	if opts.MaxTopics < 1 {
		opts.MaxTopics = 1
	}
	w := &Workflow{
		source:     src,
		engine:     engine,
		store:      store,
		summarizer: summarizer,
		metrics:    metrics.Global,
		opts:       opts,
		now:        time.Now,
		log:        logger.With("workflow"),
	}
	for _, o := range options {
		o(w)
	}
	return w
}

// RejectionLogger returns a hook that logs every rejected candidate at debug
// level and counts it.
func RejectionLogger(m *metrics.Metrics) trends.RejectionHook {
	log := logger.With("trends")
	return func(r trends.Rejection) {
		if m != nil {
			m.IncrementCandidatesRejected()
		}
		log.Debug("candidate rejected",
			"candidate", r.Candidate.Text,
			"count", r.Candidate.Count,
			"reason", r.Reason,
			"required", r.Required,
			"sources", r.ActualSources,
			"required_sources", r.RequiredSources,
			"category", r.Category,
		)
	}
}

// RunOnce selects at most one topic and publishes it.
func (w *Workflow) RunOnce(ctx context.Context) (Result, error) {
	start := w.now()
	res, err := w.runOnce(ctx)
	w.finish(start, err)
	return res, err
}

func (w *Workflow) runOnce(ctx context.Context) (Result, error) {
	articles, recent, err := w.collect(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(articles) == 0 {
		w.log.Info("no usable articles in this cycle")
		return Result{Outcome: OutcomeNoArticles}, nil
	}

	trend := w.engine.AnalyzeTrends(articles, recent)
	if trend == nil {
		w.metrics.IncrementNoTrend()
		w.log.Info("no trending topic qualified", "articles", len(articles))
		return Result{Outcome: OutcomeNoTrend}, nil
	}
	w.metrics.IncrementTrendsSelected(trend.Keyword)
	w.log.Info("trend selected", "topic", trend.Keyword, "count", trend.Count, "candidates", len(trend.AllTrends))

	return w.processTopic(ctx, articles, trend.Keyword)
}

// RunAutonomous publishes every qualifying topic of the batch, most
// significant first, up to the configured maximum. A failing topic is logged
// and does not stop the others.
func (w *Workflow) RunAutonomous(ctx context.Context) ([]Result, error) {
	start := w.now()
	results, err := w.runAutonomous(ctx)
	w.finish(start, err)
	return results, err
}

func (w *Workflow) runAutonomous(ctx context.Context) ([]Result, error) {
	articles, recent, err := w.collect(ctx)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return []Result{{Outcome: OutcomeNoArticles}}, nil
	}

	candidates := w.engine.ComputeTrendingKeywords(articles, 0)
	topics := trends.RankBySignificance(w.engine.QualifyingTopics(candidates, recent, articles), w.opts.MaxTopics)
	if len(topics) == 0 {
		w.metrics.IncrementNoTrend()
		w.log.Info("no trending topic qualified", "articles", len(articles))
		return []Result{{Outcome: OutcomeNoTrend}}, nil
	}

	results := make([]Result, 0, len(topics))
	var errs []error
	for _, t := range topics {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		w.metrics.IncrementTrendsSelected(t.Keyword)
		w.log.Info("processing topic", "topic", t.Keyword, "significance", fmt.Sprintf("%.2f", t.Significance), "sources", t.UniqueSources)

		res, err := w.processTopic(ctx, articles, t.Keyword)
		if err != nil {
			w.log.Error("topic failed", "topic", t.Keyword, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", t.Keyword, err))
			continue
		}
		results = append(results, res)
	}
	if len(results) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return results, nil
}

// Preview is what the engine would do with the current batch.
type Preview struct {
	Articles   int                   `json:"articles"`
	Recent     []string              `json:"recent_trends"`
	Candidates []trends.Candidate    `json:"candidates"`
	Selected   *trends.SelectedTrend `json:"selected"`
	Qualifying []trends.ScoredTopic  `json:"qualifying"`
	ImageURL   string                `json:"image_url,omitempty"`
}

// Preview fetches a batch and runs trend selection over it. Nothing is
// summarized or stored, and cycle metrics and rejection hooks are left alone.
func (w *Workflow) Preview(ctx context.Context) (Preview, error) {
	articles, recent, err := w.fetch(ctx)
	if err != nil {
		return Preview{}, err
	}
	engine := w.engine.Silent()
	candidates := engine.ComputeTrendingKeywords(articles, 0)
	p := Preview{
		Articles:   len(articles),
		Recent:     recent,
		Candidates: candidates,
		Selected:   engine.AnalyzeTrends(articles, recent),
		Qualifying: trends.RankBySignificance(engine.QualifyingTopics(candidates, recent, articles), w.opts.MaxTopics),
	}
	if p.Selected != nil {
		p.ImageURL = engine.PrepareTrendData(engine.ArticlesForTopic(articles, p.Selected.Keyword), p.Selected.Keyword).ImageURL
	}
	return p, nil
}

// collect is fetch for a real cycle: the batch size is counted.
func (w *Workflow) collect(ctx context.Context) ([]trends.Article, []string, error) {
	articles, recent, err := w.fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	w.metrics.AddArticlesFetched(len(articles))
	return articles, recent, nil
}

func (w *Workflow) fetch(ctx context.Context) ([]trends.Article, []string, error) {
	opts := source.FetchOptions{
		PageSize: w.opts.PageSize,
		Sources:  w.opts.Sources,
	}
	if w.opts.FetchWindow > 0 {
		opts.From = w.now().Add(-w.opts.FetchWindow)
	}

	raw, err := w.source.FetchArticles(ctx, w.opts.Query, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch articles: %w", err)
	}
	articles := source.Clean(raw)
	w.log.Info("articles fetched", "raw", len(raw), "clean", len(articles))

	recent, err := w.store.RecentTopics(ctx, w.opts.RecentHours)
	if err != nil {
		return nil, nil, fmt.Errorf("load recent trends: %w", err)
	}
	return articles, recent, nil
}

func (w *Workflow) processTopic(ctx context.Context, articles []trends.Article, topic string) (Result, error) {
	data := w.engine.PrepareTrendData(w.engine.ArticlesForTopic(articles, topic), topic)
	req := summary.Request{
		Topic:    data.Trend,
		Articles: data.Articles,
		ImageURL: data.ImageURL,
	}
	w.enrich(ctx, &req)

	sum, err := w.summarizer.Summarize(ctx, req)
	if err != nil {
		w.metrics.IncrementSummaries(false)
		if errors.Is(err, summary.ErrBudgetExhausted) || errors.Is(err, ratelimit.ErrExhausted) {
			w.log.Warn("skipping topic, llm budget exhausted", "topic", topic)
			return Result{Outcome: OutcomeBudgetExhausted, Topic: topic}, nil
		}
		return Result{}, fmt.Errorf("summarize %q: %w", topic, err)
	}
	w.metrics.IncrementSummaries(true)

	rec := storage.Record{
		Topic:            topic,
		TitlePL:          sum.TitlePL,
		DescriptionPL:    sum.DescriptionPL,
		TitleEN:          sum.TitleEN,
		DescriptionEN:    sum.DescriptionEN,
		CredibilityScore: sum.CredibilityScore,
		PublishedAt:      sum.PublishedAt,
		ImageURL:         sum.ImageURL,
		SourceURLs:       articleURLs(data.Articles),
	}

	dup, err := w.store.CheckDuplicate(ctx, rec)
	if err != nil {
		return Result{}, fmt.Errorf("check duplicate: %w", err)
	}
	if dup {
		w.metrics.IncrementDuplicatesSkipped()
		w.log.Info("duplicate summary skipped", "topic", topic, "title", rec.TitleEN)
		return Result{Outcome: OutcomeDuplicate, Topic: topic}, nil
	}

	id, err := w.store.WriteArticle(ctx, rec)
	if err != nil {
		return Result{}, fmt.Errorf("store summary: %w", err)
	}
	w.metrics.IncrementArticlesStored()
	w.log.Info("summary stored", "id", id, "topic", topic, "provider", sum.Provider)

	if w.notifier != nil {
		rec.ID = id
		if err := w.notifier.Publish(ctx, rec); err != nil {
			w.log.Warn("notification failed", "id", id, "error", err)
		} else {
			w.metrics.IncrementNotificationsSent()
		}
	}

	return Result{
		Outcome:    OutcomePublished,
		Topic:      topic,
		DocumentID: id,
		ImageURL:   rec.ImageURL,
		Provider:   sum.Provider,
	}, nil
}

// enrich adds scraped article bodies to req and, when no feed image
// survived scoring, falls back to the first acceptable page preview image.
func (w *Workflow) enrich(ctx context.Context, req *summary.Request) {
	if w.enricher == nil || len(req.Articles) == 0 {
		return
	}
	urls := articleURLs(req.Articles)
	pages := w.enricher.EnrichArticles(ctx, urls)
	if len(pages) == 0 {
		return
	}

	req.FullText = make(map[string]string, len(pages))
	for _, u := range urls {
		page, ok := pages[u]
		if !ok {
			continue
		}
		if page.Content != "" {
			req.FullText[u] = page.Content
		}
		if req.ImageURL == "" && trends.ValidImageURL(page.ImageURL) {
			if c := w.engine.ScoreImage(page.ImageURL); !c.Rejected {
				req.ImageURL = c.URL
				w.log.Debug("using page preview image", "url", c.URL)
			}
		}
	}
}

func (w *Workflow) finish(start time.Time, err error) {
	if err != nil {
		w.metrics.SetError(err.Error())
		return
	}
	w.metrics.RecordCycle(w.now().Sub(start))
}

func articleURLs(articles []trends.Article) []string {
	urls := make([]string, 0, len(articles))
	for _, a := range articles {
		urls = append(urls, a.URL)
	}
	return urls
}
