package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/trendpulse/internal/logger"
)

// ArticleContent is full article content
type ArticleContent struct {
	Title    string
	Content  string
	URL      string
	ImageURL string
}

// Scraper fetches article pages and extracts body text and a lead image.
type Scraper struct {
	client      *http.Client
	concurrency int
	maxArticles int
	log         *slog.Logger
}

func New(timeout time.Duration, concurrency, maxArticles int) *Scraper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scraper{
		client:      &http.Client{Timeout: timeout},
		concurrency: concurrency,
		maxArticles: maxArticles,
		log:         logger.With("scraper"),
	}
}

// ExtractFullArticle gets full text of article by URL
func (s *Scraper) ExtractFullArticle(ctx context.Context, url string) (*ArticleContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; trendpulse/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	article := &ArticleContent{
		Title:    extractTitle(doc),
		Content:  cleanContent(extractGenericContent(doc)),
		URL:      url,
		ImageURL: extractImage(doc),
	}
	if article.Content == "" && article.ImageURL == "" {
		return nil, fmt.Errorf("can't get content")
	}
	return article, nil
}

// EnrichArticles extracts up to maxArticles pages concurrently. Failures are
// logged and skipped; the returned map only holds successful extractions.
func (s *Scraper) EnrichArticles(ctx context.Context, urls []string) map[string]*ArticleContent {
	if s.maxArticles > 0 && len(urls) > s.maxArticles {
		urls = urls[:s.maxArticles]
	}

	var mu sync.Mutex
	result := make(map[string]*ArticleContent, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, u := range urls {
		u := u
		g.Go(func() error {
			article, err := s.ExtractFullArticle(gctx, u)
			if err != nil {
				s.log.Warn("can't get content", "url", u, "error", err)
				return nil
			}
			mu.Lock()
			result[u] = article
			mu.Unlock()
			s.log.Debug("got content", "url", u, "chars", len(article.Content))
			return nil
		})
	}
	_ = g.Wait()

	return result
}

// extractImage reads the page's social preview image.
func extractImage(doc *goquery.Document) string {
	selectors := []string{
		`meta[property="og:image"]`,
		`meta[property="og:image:url"]`,
		`meta[name="twitter:image"]`,
		`meta[name="twitter:image:src"]`,
	}
	for _, selector := range selectors {
		if v, ok := doc.Find(selector).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// extractGenericContent is universal parser for any site
func extractGenericContent(doc *goquery.Document) string {
	var paragraphs []string

	// Try most popular selectors
	selectors := []string{
		"article p",
		".article-body p",
		".article p",
		".content p",
		".post-content p",
		".entry-content p",
		"main p",
		"#content p",
		"p",
	}

	for _, selector := range selectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= 3 { // three paragraphs is enough for a summary
			break
		}
	}

	return strings.Join(paragraphs, "\n\n")
}

// extractTitle gets article title
func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"h1",
		`meta[property="og:title"]`,
		"title",
		".article-title",
		".headline",
	}

	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		title := sel.Text()
		if v, ok := sel.Attr("content"); ok {
			title = v
		}
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}

	return ""
}

var junkIndicators = []string{
	"cookie", "gdpr", "subscribe", "newsletter", "sign up", "read more",
	"click here", "follow us", "share this", "advertisement", "all rights reserved",
}

// cleanContent drops junk lines, merges sentence fragments into paragraphs and
// caps the text near 1800 characters on a paragraph boundary.
func cleanContent(content string) string {
	if content == "" {
		return ""
	}

	lines := strings.Split(content, "\n")
	var cleanLines []string
	var currentParagraph strings.Builder

	flush := func() {
		paragraph := strings.TrimSpace(currentParagraph.String())
		if len(paragraph) > 30 {
			cleanLines = append(cleanLines, paragraph)
		}
		currentParagraph.Reset()
	}

	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")

		// Skip empty and very short lines
		if len(line) < 8 {
			if currentParagraph.Len() > 0 {
				flush()
			}
			continue
		}

		if isJunk(line) {
			continue
		}

		if currentParagraph.Len() > 0 {
			currentParagraph.WriteString(" ")
		}
		currentParagraph.WriteString(line)

		if strings.HasSuffix(line, ".") || strings.HasSuffix(line, "!") || strings.HasSuffix(line, "?") {
			flush()
		}
	}
	if currentParagraph.Len() > 0 {
		flush()
	}

	resultText := strings.TrimSpace(strings.Join(cleanLines, "\n\n"))

	// Limit length, keep full paragraphs
	if len(resultText) > 1800 {
		var selected []string
		totalLength := 0
		for _, paragraph := range cleanLines {
			if totalLength+len(paragraph) >= 1600 {
				break
			}
			selected = append(selected, paragraph)
			totalLength += len(paragraph) + 2
		}
		if len(selected) > 0 {
			resultText = strings.Join(selected, "\n\n")
		}
	}

	return resultText
}

func isJunk(line string) bool {
	lower := strings.ToLower(line)
	for _, indicator := range junkIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}
