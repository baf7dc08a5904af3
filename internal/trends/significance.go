package trends

import (
	"math"
	"sort"
)

const (
	frequencyWeight = 0.4
	diversityWeight = 0.4
	recencyWeight   = 0.2
	// recencyFactor stays fixed until a real recency signal is defined.
	recencyFactor = 1.0
	// diversitySaturation is the source count at which diversity maxes out.
	diversitySaturation = 10.0
)

// Significance combines frequency share, source diversity and a constant
// recency term into a 0..1 score.
func Significance(count, totalArticles, uniqueSources int) float64 {
	freq := 0.0
	if totalArticles > 0 {
		freq = float64(count) / float64(totalArticles)
	}
	diversity := math.Min(float64(uniqueSources)/diversitySaturation, 1)
	return frequencyWeight*freq + diversityWeight*diversity + recencyWeight*recencyFactor
}

// RankBySignificance orders topics by significance, keeping ranked order on
// ties, and caps the result at max (max <= 0 means no cap).
func RankBySignificance(topics []ScoredTopic, max int) []ScoredTopic {
	out := make([]ScoredTopic, len(topics))
	copy(out, topics)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Significance > out[j].Significance
	})
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
