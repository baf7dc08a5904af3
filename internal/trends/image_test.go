package trends

import "testing"

func articlesWithImages(urls ...string) []Article {
	out := make([]Article, 0, len(urls))
	for _, u := range urls {
		out = append(out, Article{Title: "t", URLToImage: u})
	}
	return out
}

func TestPrepareTrendData(t *testing.T) {
	tests := []struct {
		name   string
		images []string
		want   string
	}{
		{
			name:   "size hint beats smaller hint and stock photo is excluded",
			images: []string{"https://a.com/large.jpg", "https://shutterstock.com/x.jpg", "https://a.com/small.jpg"},
			want:   "https://a.com/large.jpg",
		},
		{
			name:   "trusted host outranks small hint",
			images: []string{"https://a.com/thumb.jpg", "https://i.imgur.com/abc.jpg"},
			want:   "https://i.imgur.com/abc.jpg",
		},
		{
			name:   "first seen wins ties",
			images: []string{"https://a.com/medium-1.jpg", "https://b.com/medium-2.jpg"},
			want:   "https://a.com/medium-1.jpg",
		},
		{
			name:   "fallback to first valid when nothing scores",
			images: []string{"", "ftp://a.com/x.jpg", "https://a.com/photo1.jpg", "https://b.com/photo2.jpg"},
			want:   "https://a.com/photo1.jpg",
		},
		{
			name:   "negative score still usable as fallback",
			images: []string{"https://a.com/overlay.jpg"},
			want:   "https://a.com/overlay.jpg",
		},
		{
			name:   "invalid and placeholder urls ignored",
			images: []string{"http://x", "https://example.com/large.jpg", "/relative/large.jpg"},
			want:   "",
		},
		{
			name:   "watermarked images never chosen",
			images: []string{"https://a.com/LOGO-large.png", "https://media.gettyimages.com/hd.jpg"},
			want:   "",
		},
		{
			name: "no images",
			want: "",
		},
	}

	e := testEngine(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			articles := articlesWithImages(tt.images...)
			got := e.PrepareTrendData(articles, "floods")
			if got.ImageURL != tt.want {
				t.Fatalf("ImageURL = %q, want %q", got.ImageURL, tt.want)
			}
			if got.Trend != "floods" || len(got.Articles) != len(articles) {
				t.Fatalf("unexpected trend data %+v", got)
			}
		})
	}
}

func TestPrepareTrendDataIdempotent(t *testing.T) {
	e := testEngine(t, nil)
	articles := articlesWithImages(
		"https://a.com/medium.jpg",
		"https://cdn.pexels.com/photos/1/small.jpg",
		"https://a.com/hd-caption.jpg",
	)
	first := e.PrepareTrendData(articles, "x").ImageURL
	for i := 0; i < 5; i++ {
		if got := e.PrepareTrendData(articles, "x").ImageURL; got != first {
			t.Fatalf("run %d picked %q, first run picked %q", i, got, first)
		}
	}
}

func TestScoreImage(t *testing.T) {
	e := testEngine(t, nil)
	tests := []struct {
		url      string
		score    float64
		rejected bool
	}{
		{"https://a.com/large.jpg", 3, false},
		{"https://a.com/medium.jpg", 2, false},
		{"https://a.com/thumb.jpg", 1, false},
		{"https://a.com/large-thumb.jpg", 4, false},
		{"https://unsplash.com/p/1.jpg", 2, false},
		{"https://notunsplash.com/p/1.jpg", 0, false},
		{"https://a.com/label.jpg", -0.5, false},
		{"https://a.com/iStock-123.jpg", 0, true},
		{"https://a.com/©2024.jpg", 0, true},
	}
	for _, tt := range tests {
		got := e.ScoreImage(tt.url)
		if got.Score != tt.score || got.Rejected != tt.rejected {
			t.Errorf("ScoreImage(%q) = %+v, want score %v rejected %v", tt.url, got, tt.score, tt.rejected)
		}
	}
}
