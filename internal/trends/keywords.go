package trends

import (
	"regexp"
	"sort"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize flattens title and description of every article into lower-case
// alphanumeric tokens longer than MinTokenLength.
func (e *Engine) Normalize(articles []Article) []string {
	return normalize(articles, e.cfg.MinTokenLength)
}

func normalize(articles []Article, minLen int) []string {
	if len(articles) == 0 {
		return nil
	}
	var b strings.Builder
	for _, a := range articles {
		b.WriteString(a.Title)
		b.WriteByte(' ')
		b.WriteString(a.Description)
		b.WriteByte(' ')
	}
	corpus := nonAlnum.ReplaceAllString(strings.ToLower(b.String()), " ")

	fields := strings.Fields(corpus)
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > minLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// CountPhrases counts unigrams and 2..MaxPhraseWords word windows. A window
// is counted only when both edges are non-stop-words and at least half of its
// words are non-stop-words.
func (e *Engine) CountPhrases(tokens []string) map[string]int {
	counts := make(map[string]int)
	stop := e.cfg.StopWords

	for _, t := range tokens {
		if !stop.Has(t) {
			counts[t]++
		}
	}

	for n := 2; n <= e.cfg.MaxPhraseWords; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			window := tokens[i : i+n]
			if stop.Has(window[0]) || stop.Has(window[n-1]) {
				continue
			}
			nonStop := 0
			for _, w := range window {
				if !stop.Has(w) {
					nonStop++
				}
			}
			if float64(nonStop) < float64(n)*0.5 {
				continue
			}
			counts[strings.Join(window, " ")]++
		}
	}
	return counts
}

// ComputeTrendingKeywords ranks keyword and phrase candidates for a batch of
// articles. Multi-word phrases get most of the slots; overused single words
// only fill in when too few candidates remain. A non-positive limit selects
// the configured default. Empty input yields an empty, non-nil slice.
func (e *Engine) ComputeTrendingKeywords(articles []Article, limit int) []Candidate {
	if len(articles) == 0 {
		return []Candidate{}
	}
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	return e.rank(e.CountPhrases(e.Normalize(articles)), limit)
}

func (e *Engine) rank(counts map[string]int, limit int) []Candidate {
	pool := make([]Candidate, 0, len(counts))
	for text, n := range counts {
		pool = append(pool, Candidate{Text: text, Count: n})
	}
	sort.Slice(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.MultiWord() != b.MultiWord() {
			return a.MultiWord()
		}
		return a.Text < b.Text
	})
	if len(pool) > 2*limit {
		pool = pool[:2*limit]
	}

	multiSlots := int(float64(limit) * e.cfg.MultiWordShare)
	singleSlots := int(float64(limit) * e.cfg.SingleWordShare)

	result := make([]Candidate, 0, limit)
	taken := make(map[string]bool)

	multi := 0
	for _, c := range pool {
		if multi >= multiSlots {
			break
		}
		if c.MultiWord() {
			result = append(result, c)
			taken[c.Text] = true
			multi++
		}
	}

	single := 0
	for _, c := range pool {
		if single >= singleSlots {
			break
		}
		if !c.MultiWord() && e.cfg.TopicKeywords.Has(c.Text) && !e.cfg.GenericKeywords.Has(c.Text) {
			result = append(result, c)
			taken[c.Text] = true
			single++
		}
	}

	for _, c := range pool {
		if len(result) >= e.cfg.MinResults {
			break
		}
		if taken[c.Text] || c.MultiWord() {
			continue
		}
		if e.cfg.TopicKeywords.Has(c.Text) && e.cfg.GenericKeywords.Has(c.Text) {
			result = append(result, c)
			taken[c.Text] = true
		}
	}

	// Phrases were appended first, so the stable sort keeps them ahead of
	// single words with the same count.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
