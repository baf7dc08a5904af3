package trends

import (
	"errors"
	"fmt"
	"strings"
)

// Config is the immutable configuration of an Engine. Build it with
// DefaultConfig and adjust fields before passing it to New; the engine never
// writes to it afterwards.
type Config struct {
	StopWords       WordSet
	TopicKeywords   WordSet // single words allowed to become a topic
	GenericKeywords WordSet // overused single words, only used as a backfill

	Thresholds       ThresholdTable
	HotTopics        WordSet
	HotThreshold     int
	RegularThreshold int

	DefaultLimit    int
	MultiWordShare  float64
	SingleWordShare float64
	MinResults      int
	MaxPhraseWords  int
	MinTokenLength  int // tokens of this length or shorter are dropped

	WatermarkIndicators []string
	TrustedImageHosts   []string
	OverlayIndicators   []string
}

// WordSet is a read-only set of lower-cased words.
type WordSet map[string]struct{}

// NewWordSet builds a set from words, lower-casing each entry.
func NewWordSet(words ...string) WordSet {
	s := make(WordSet, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			s[w] = struct{}{}
		}
	}
	return s
}

// Has reports membership.
func (s WordSet) Has(word string) bool {
	_, ok := s[word]
	return ok
}

// DefaultConfig returns the production calibration. Every call returns fresh
// maps, so callers may tweak the result freely.
func DefaultConfig() *Config {
	return &Config{
		StopWords:       NewWordSet(defaultStopWords()...),
		TopicKeywords:   NewWordSet(defaultTopicKeywords()...),
		GenericKeywords: NewWordSet(defaultGenericKeywords()...),

		Thresholds:       DefaultThresholdTable(),
		HotTopics:        NewWordSet(defaultHotTopics()...),
		HotThreshold:     12,
		RegularThreshold: 7,

		DefaultLimit:    20,
		MultiWordShare:  0.7,
		SingleWordShare: 0.3,
		MinResults:      2,
		MaxPhraseWords:  4,
		MinTokenLength:  2,

		WatermarkIndicators: []string{
			"watermark", "logo", "brand", "copyright", "©",
			"getty", "shutterstock", "istock", "alamy", "fotolia", "depositphotos",
		},
		TrustedImageHosts: []string{"imgur.com", "flickr.com", "unsplash.com", "pexels.com"},
		OverlayIndicators: []string{"text", "overlay", "caption", "label"},
	}
}

// Validate fails fast on configurations that would silently produce wrong
// selections.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("trends config is nil")
	}
	if c.StopWords == nil || c.TopicKeywords == nil || c.GenericKeywords == nil || c.HotTopics == nil {
		return errors.New("trends config: word sets must not be nil")
	}
	if c.Thresholds.entries == nil {
		return errors.New("trends config: threshold table is not initialised")
	}
	if c.HotThreshold < 1 || c.RegularThreshold < 1 {
		return fmt.Errorf("trends config: fallback thresholds must be positive (hot=%d, regular=%d)", c.HotThreshold, c.RegularThreshold)
	}
	if c.DefaultLimit < 1 {
		return fmt.Errorf("trends config: default limit must be positive, got %d", c.DefaultLimit)
	}
	if c.MultiWordShare < 0 || c.MultiWordShare > 1 || c.SingleWordShare < 0 || c.SingleWordShare > 1 {
		return fmt.Errorf("trends config: slot shares must be within [0,1] (multi=%.2f, single=%.2f)", c.MultiWordShare, c.SingleWordShare)
	}
	if c.MaxPhraseWords < 1 {
		return fmt.Errorf("trends config: max phrase words must be positive, got %d", c.MaxPhraseWords)
	}
	if c.MinResults < 0 || c.MinTokenLength < 0 {
		return errors.New("trends config: min results and min token length must not be negative")
	}
	return nil
}

func defaultStopWords() []string {
	return []string{
		"the", "and", "for", "are", "but", "not", "you", "all", "any", "can",
		"had", "her", "was", "one", "our", "out", "has", "have", "been", "from",
		"this", "that", "with", "they", "will", "would", "there", "their", "what", "about",
		"which", "when", "make", "like", "into", "than", "them", "these", "some", "could",
		"other", "then", "its", "over", "also", "after", "said", "says", "more", "most",
		"just", "only", "very", "who", "how", "why", "where", "while", "were", "his",
		"she", "him", "may", "per", "should", "being", "because", "does", "did",
		"a", "an", "of", "to", "in", "on", "at", "by", "is", "it", "as", "or", "be",
	}
}

func defaultGenericKeywords() []string {
	return []string{
		"president", "trump", "biden", "war", "conflict", "election",
		"russia", "ukraine", "china", "israel", "palestine", "nato",
		"economy", "market", "trade", "tariff", "inflation",
	}
}

// defaultHotTopics are recurring geopolitical names with no entry in the
// default threshold table; table entries always take precedence.
func defaultHotTopics() []string {
	return []string{
		"kyiv", "moscow", "beijing", "tehran", "jerusalem", "washington",
		"brussels", "warsaw", "congress", "senate", "brexit",
	}
}

func defaultTopicKeywords() []string {
	words := defaultGenericKeywords()
	return append(words,
		// geopolitics
		"gaza", "iran", "taiwan", "syria", "lebanon", "yemen", "venezuela", "korea",
		"putin", "zelensky", "netanyahu", "macron", "scholz", "merz", "starmer",
		"tusk", "nawrocki", "duda", "orban", "erdogan", "modi", "hamas", "hezbollah",
		"houthis", "sanctions", "ceasefire", "invasion", "annexation", "referendum",
		"parliament", "senate", "congress", "impeachment", "coalition", "summit",
		"poland", "warsaw", "germany", "france", "britain", "brexit", "europe", "brussels",
		"kyiv", "moscow", "beijing", "tehran", "jerusalem", "washington",
		// security
		"missile", "drone", "drones", "nuclear", "hostage", "hostages", "cyberattack",
		"shooting", "explosion", "terror", "terrorist", "airstrike", "airstrikes", "mobilization",
		// disasters and health
		"earthquake", "hurricane", "typhoon", "flood", "floods", "wildfire", "wildfires",
		"heatwave", "drought", "pandemic", "epidemic", "outbreak", "vaccine", "measles",
		// economy
		"recession", "stocks", "bitcoin", "crypto", "interest", "rates", "layoffs",
		"strike", "strikes", "protest", "protests", "budget", "debt", "bankruptcy",
		// technology
		"openai", "chatgpt", "nvidia", "tesla", "apple", "google", "microsoft", "spacex",
		"semiconductor", "chips", "antitrust", "outage",
	)
}
