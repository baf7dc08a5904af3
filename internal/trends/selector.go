package trends

import (
	"sort"
	"strings"
)

// RejectReason tags why a candidate did not qualify.
type RejectReason string

const (
	ReasonNotNovel        RejectReason = "not_novel"
	ReasonBelowMinCount   RejectReason = "below_min_count"
	ReasonBelowMinSources RejectReason = "below_min_sources"
	ReasonBelowHot        RejectReason = "below_hot_threshold"
	ReasonBelowRegular    RejectReason = "below_regular_threshold"
)

// Rejection describes one failed qualification with enough context to tune
// thresholds afterwards.
type Rejection struct {
	Candidate       Candidate
	Reason          RejectReason
	Required        int
	Actual          int
	RequiredSources int
	ActualSources   int
	Category        string
}

type evaluation struct {
	qualified     bool
	uniqueSources int
	rejection     Rejection
}

// SelectTrendingTopic scans candidates in ranked order and returns the first
// one that meets its threshold, has enough source diversity and is not among
// recentTrends. The boolean is false when every candidate fails.
func (e *Engine) SelectTrendingTopic(candidates []Candidate, recentTrends []string, articles []Article) (string, bool) {
	recent := recentSet(recentTrends)
	for _, c := range stableByTier(candidates) {
		ev := e.evaluate(c, recent, articles)
		if ev.qualified {
			return c.Text, true
		}
		e.reject(ev.rejection)
	}
	return "", false
}

// QualifyingTopics evaluates every candidate and returns all that qualify,
// each with its significance. Order follows the ranked input.
func (e *Engine) QualifyingTopics(candidates []Candidate, recentTrends []string, articles []Article) []ScoredTopic {
	recent := recentSet(recentTrends)
	var out []ScoredTopic
	for _, c := range stableByTier(candidates) {
		ev := e.evaluate(c, recent, articles)
		if !ev.qualified {
			e.reject(ev.rejection)
			continue
		}
		out = append(out, ScoredTopic{
			Keyword:       c.Text,
			Count:         c.Count,
			UniqueSources: ev.uniqueSources,
			Significance:  Significance(c.Count, len(articles), ev.uniqueSources),
		})
	}
	return out
}

func (e *Engine) evaluate(c Candidate, recent map[string]struct{}, articles []Article) evaluation {
	text := strings.ToLower(strings.TrimSpace(c.Text))
	sources := e.UniqueSources(articles, text)
	rej := Rejection{Candidate: c, Actual: c.Count, ActualSources: sources}

	if entry, ok := e.cfg.Thresholds.Lookup(text); ok {
		rej.Required = entry.MinCount
		rej.RequiredSources = entry.MinSources
		rej.Category = entry.Category
		switch {
		case c.Count < entry.MinCount:
			rej.Reason = ReasonBelowMinCount
		case sources < entry.MinSources:
			rej.Reason = ReasonBelowMinSources
		}
	} else {
		required, reason := e.cfg.RegularThreshold, ReasonBelowRegular
		if e.cfg.HotTopics.Has(text) {
			required, reason = e.cfg.HotThreshold, ReasonBelowHot
		}
		rej.Required = required
		if c.Count < required {
			rej.Reason = reason
		}
	}

	if rej.Reason == "" {
		if _, seen := recent[text]; seen {
			rej.Reason = ReasonNotNovel
		}
	}
	return evaluation{qualified: rej.Reason == "", uniqueSources: sources, rejection: rej}
}

func (e *Engine) reject(r Rejection) {
	if e.onRej != nil {
		e.onRej(r)
	}
}

func recentSet(recent []string) map[string]struct{} {
	s := make(map[string]struct{}, len(recent))
	for _, r := range recent {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" {
			s[r] = struct{}{}
		}
	}
	return s
}

// stableByTier keeps the given order but, within each run of equal counts,
// moves phrases ahead of single words without reordering either group.
func stableByTier(candidates []Candidate) []Candidate {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	for start := 0; start < len(out); {
		end := start + 1
		for end < len(out) && out[end].Count == out[start].Count {
			end++
		}
		run := out[start:end]
		sort.SliceStable(run, func(i, j int) bool {
			return run[i].MultiWord() && !run[j].MultiWord()
		})
		start = end
	}
	return out
}
