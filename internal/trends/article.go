// Package trends turns a batch of news articles into one trending topic
// selection and picks an illustrative image for it.
//
// Everything in this package is pure computation over in-memory data: no I/O,
// no goroutines, no shared mutable state. An Engine is built once from a
// Config and can be used from any number of goroutines.
package trends

import (
	"strings"
	"time"
)

// Article is a single upstream news item. The engine assumes it has already
// been cleaned by the article source.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	URLToImage  string    `json:"urlToImage"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Candidate is a keyword or space-joined phrase with its occurrence count.
type Candidate struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// MultiWord reports whether the candidate is a phrase rather than a single word.
func (c Candidate) MultiWord() bool {
	return strings.Contains(c.Text, " ")
}

// SelectedTrend is the result of one analysis call.
type SelectedTrend struct {
	Keyword   string      `json:"keyword"`
	Count     int         `json:"count"`
	AllTrends []Candidate `json:"allTrends"`
}

// TrendData is what the summarizer receives for the selected topic.
type TrendData struct {
	Trend    string    `json:"trend"`
	Articles []Article `json:"articles"`
	ImageURL string    `json:"image_url"`
}

// ScoredTopic is a qualifying topic ranked within an autonomous cycle.
type ScoredTopic struct {
	Keyword       string  `json:"keyword"`
	Count         int     `json:"count"`
	UniqueSources int     `json:"uniqueSources"`
	Significance  float64 `json:"significance"`
}
