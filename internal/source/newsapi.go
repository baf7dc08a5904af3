package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/deusflow/trendpulse/internal/logger"
	"github.com/deusflow/trendpulse/internal/retry"
	"github.com/deusflow/trendpulse/internal/trends"
)

// NewsAPI queries a NewsAPI-compatible /v2/everything endpoint.
type NewsAPI struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	retry   retry.RetryConfig
	log     *slog.Logger
}

type newsAPIResponse struct {
	Status       string           `json:"status"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	TotalResults int              `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	URLToImage  string    `json:"urlToImage"`
	PublishedAt time.Time `json:"publishedAt"`
}

// NewNewsAPI creates a client. baseURL defaults to https://newsapi.org.
func NewNewsAPI(apiKey, baseURL string, timeout time.Duration, rc retry.RetryConfig) *NewsAPI {
	if baseURL == "" {
		baseURL = "https://newsapi.org"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NewsAPI{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		retry:   rc,
		log:     logger.With("newsapi"),
	}
}

// FetchArticles implements Source.
func (n *NewsAPI) FetchArticles(ctx context.Context, query string, opts FetchOptions) ([]trends.Article, error) {
	endpoint := n.baseURL + "/v2/everything?" + n.params(query, opts).Encode()

	var body newsAPIResponse
	err := retry.WithRetry(ctx, n.retry, func() error {
		var err error
		body, err = n.get(ctx, endpoint)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("newsapi fetch %q: %w", query, err)
	}

	articles := make([]trends.Article, 0, len(body.Articles))
	for _, a := range body.Articles {
		articles = append(articles, trends.Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			URLToImage:  a.URLToImage,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	n.log.Info("fetched articles", "query", query, "count", len(articles), "total", body.TotalResults)
	return articles, nil
}

func (n *NewsAPI) params(query string, opts FetchOptions) url.Values {
	v := url.Values{}
	v.Set("q", query)
	v.Set("language", "en")
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = "publishedAt"
	}
	v.Set("sortBy", sortBy)
	if opts.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if len(opts.Sources) > 0 {
		v.Set("sources", strings.Join(opts.Sources, ","))
	}
	if !opts.From.IsZero() {
		v.Set("from", opts.From.UTC().Format(time.RFC3339))
	}
	return v
}

// get performs one rate-limited request. 4xx other than 429 is permanent.
func (n *NewsAPI) get(ctx context.Context, endpoint string) (newsAPIResponse, error) {
	var out newsAPIResponse
	if err := n.limiter.Wait(ctx); err != nil {
		return out, retry.Permanent(fmt.Errorf("rate limiter wait: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return out, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("X-Api-Key", n.apiKey)
	req.Header.Set("User-Agent", "trendpulse/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return out, retry.Permanent(ctx.Err())
		}
		return out, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return out, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return out, fmt.Errorf("newsapi status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		_ = json.Unmarshal(raw, &out)
		return out, retry.Permanent(fmt.Errorf("newsapi status %d: %s %s", resp.StatusCode, out.Code, out.Message))
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	if out.Status != "" && out.Status != "ok" {
		return out, retry.Permanent(fmt.Errorf("newsapi error %s: %s", out.Code, out.Message))
	}
	return out, nil
}
