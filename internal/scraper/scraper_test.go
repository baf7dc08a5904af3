package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articlePage = `<html><head>
<title>Site | Floods</title>
<meta property="og:image" content="https://cdn.test/floods-large.jpg">
</head><body>
<h1>Floods sweep through Valencia</h1>
<article>
<p>Torrential rain caused flash floods across the region on Tuesday night.</p>
<p>Emergency services said hundreds of people were rescued from their cars.</p>
<p>Subscribe to our newsletter for more updates every morning.</p>
<p>The regional government declared three days of mourning for the victims.</p>
</article>
</body></html>`

func TestExtractFullArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage)
	}))
	defer srv.Close()

	got, err := New(5*time.Second, 2, 5).ExtractFullArticle(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ExtractFullArticle: %v", err)
	}
	if got.Title != "Floods sweep through Valencia" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.ImageURL != "https://cdn.test/floods-large.jpg" {
		t.Errorf("ImageURL = %q", got.ImageURL)
	}
	if strings.Contains(got.Content, "newsletter") {
		t.Errorf("junk line kept: %q", got.Content)
	}
	if n := strings.Count(got.Content, "\n\n"); n != 2 {
		t.Errorf("paragraphs = %d, want 3: %q", n+1, got.Content)
	}
}

func TestExtractFullArticleHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	if _, err := New(time.Second, 1, 1).ExtractFullArticle(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestEnrichArticlesSkipsFailuresAndCaps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, articlePage)
	}))
	defer srv.Close()

	s := New(5*time.Second, 2, 3)
	urls := []string{srv.URL + "/a", srv.URL + "/bad", srv.URL + "/b", srv.URL + "/c"}
	got := s.EnrichArticles(context.Background(), urls)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (cap 3 minus one failure)", len(got))
	}
	if _, ok := got[srv.URL+"/c"]; ok {
		t.Fatal("article beyond the cap was fetched")
	}
}

func TestCleanContentCapsLength(t *testing.T) {
	para := strings.Repeat("word ", 80) + "end."
	in := strings.Repeat(para+"\n", 10)
	out := cleanContent(in)
	if len(out) > 1800 || out == "" {
		t.Fatalf("len(out) = %d", len(out))
	}
	if !strings.HasSuffix(out, "end.") {
		t.Fatal("cap must keep whole paragraphs")
	}
}
