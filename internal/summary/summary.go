// Package summary turns a trending topic and its articles into a bilingual
// (Polish and English) news item using one or more LLM providers.
package summary

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/trendpulse/internal/trends"
)

var (
	// ErrMalformedOutput means the model answered but not with usable JSON.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrBudgetExhausted means no provider had request budget left.
	ErrBudgetExhausted = errors.New("llm request budget exhausted")
)

// Request is the input to a summarization.
type Request struct {
	Topic    string
	Articles []trends.Article
	ImageURL string
	// FullText holds scraped article bodies keyed by article URL.
	FullText map[string]string
}

// Summary is a publishable news item.
type Summary struct {
	TitlePL          string    `json:"title_pl"`
	DescriptionPL    string    `json:"description_pl"`
	TitleEN          string    `json:"title_en"`
	DescriptionEN    string    `json:"description_en"`
	CredibilityScore int       `json:"credibility_score"`
	PublishedAt      time.Time `json:"published_at"`
	ImageURL         string    `json:"image_url"`
	Provider         string    `json:"provider,omitempty"`
}

const (
	maxPromptArticles = 10
	maxArticleChars   = 1500
)

// BuildPrompt renders the instruction and article digest sent to the model.
func BuildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a news editor. Several outlets are reporting on the trending topic %q.
Using ONLY the articles below, write one neutral news item about this topic.

Rules:
- Do not invent facts that are not in the articles.
- Keep names of people, organisations and brands untranslated.
- Titles up to 120 characters, descriptions 3 to 6 sentences.
- credibility_score is 0-100: how consistently independent sources confirm the story.

Answer with a single JSON object and nothing else:
{"title_pl": "...", "description_pl": "...", "title_en": "...", "description_en": "...", "credibility_score": 0}

ARTICLES:
`, req.Topic)

	for i, a := range req.Articles {
		if i >= maxPromptArticles {
			break
		}
		body := a.Description
		if full := req.FullText[a.URL]; full != "" {
			body = full
		}
		fmt.Fprintf(&b, "\n[%d] %s (%s)\n%s\n", i+1, strings.TrimSpace(a.Title), a.Source, truncate(body, maxArticleChars))
	}
	return b.String()
}

// truncate cuts s to max runes, preferring the end of a sentence.
func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	trimmed := string(runes[:max])
	if idx := strings.LastIndex(trimmed, ". "); idx > max/3 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed + " [TRUNCATED]"
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Parse decodes a model response that is either bare JSON or JSON wrapped in
// a Markdown code fence, possibly surrounded by prose.
func Parse(raw string) (*Summary, error) {
	text := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	} else {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrMalformedOutput)
	}

	var s Summary
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	s.TitlePL = strings.TrimSpace(s.TitlePL)
	s.DescriptionPL = strings.TrimSpace(s.DescriptionPL)
	s.TitleEN = strings.TrimSpace(s.TitleEN)
	s.DescriptionEN = strings.TrimSpace(s.DescriptionEN)

	if s.TitlePL == "" || s.DescriptionPL == "" || s.TitleEN == "" || s.DescriptionEN == "" {
		return nil, fmt.Errorf("%w: missing required fields (title_pl=%t description_pl=%t title_en=%t description_en=%t)",
			ErrMalformedOutput, s.TitlePL != "", s.DescriptionPL != "", s.TitleEN != "", s.DescriptionEN != "")
	}
	if s.CredibilityScore < 0 || s.CredibilityScore > 100 {
		return nil, fmt.Errorf("%w: credibility_score %d out of range", ErrMalformedOutput, s.CredibilityScore)
	}
	return &s, nil
}
