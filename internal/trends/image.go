package trends

import (
	"net/url"
	"strings"
)

// ImageCandidate is an article image with its heuristic score.
type ImageCandidate struct {
	URL      string
	Score    float64
	Rejected bool
}

// ValidImageURL reports whether u looks like a usable absolute image link.
func ValidImageURL(u string) bool {
	return strings.HasPrefix(u, "http") && len(u) > 10 && !strings.Contains(u, "example.com")
}

// ScoreImage scores one image URL. Stock-photo and watermark indicators mark
// it rejected; size hints, trusted hosts and text overlays adjust the score.
func (e *Engine) ScoreImage(raw string) ImageCandidate {
	c := ImageCandidate{URL: raw}
	lower := strings.ToLower(raw)

	if containsAnyOf(lower, e.cfg.WatermarkIndicators) {
		c.Rejected = true
		return c
	}

	if containsAnyOf(lower, []string{"large", "high", "hd"}) {
		c.Score += 3
	}
	if strings.Contains(lower, "medium") {
		c.Score += 2
	}
	if containsAnyOf(lower, []string{"small", "thumb"}) {
		c.Score++
	}
	if trustedHost(lower, e.cfg.TrustedImageHosts) {
		c.Score += 2
	}
	if containsAnyOf(lower, e.cfg.OverlayIndicators) {
		c.Score -= 0.5
	}
	return c
}

// PrepareTrendData picks the best image among the topic's articles. The
// highest positive score wins, first seen on ties; otherwise the first valid
// non-rejected image is used; otherwise the image is empty.
func (e *Engine) PrepareTrendData(articles []Article, trend string) TrendData {
	var best, fallback string
	bestScore := 0.0

	for _, a := range articles {
		if !ValidImageURL(a.URLToImage) {
			continue
		}
		c := e.ScoreImage(a.URLToImage)
		if c.Rejected {
			continue
		}
		if fallback == "" {
			fallback = c.URL
		}
		if c.Score > bestScore {
			best, bestScore = c.URL, c.Score
		}
	}

	image := best
	if image == "" {
		image = fallback
	}
	return TrendData{Trend: trend, Articles: articles, ImageURL: image}
}

func trustedHost(lowerURL string, hosts []string) bool {
	u, err := url.Parse(lowerURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := u.Hostname()
	for _, h := range hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func containsAnyOf(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}
