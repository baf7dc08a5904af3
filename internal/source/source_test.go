package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/deusflow/trendpulse/internal/retry"
	"github.com/deusflow/trendpulse/internal/trends"
)

func TestClean(t *testing.T) {
	now := time.Now()
	in := []trends.Article{
		{Title: "A", Description: "d", URL: "https://a/1", PublishedAt: now},
		{Title: "A again", Description: "d", URL: "https://a/1", PublishedAt: now},
		{Title: "", Description: "d", URL: "https://a/2", PublishedAt: now},
		{Title: "B", Description: " ", URL: "https://a/3", PublishedAt: now},
		{Title: "C", Description: "d", URL: "https://a/4"},
		{Title: "[Removed]", Description: "d", URL: "https://a/5", PublishedAt: now},
		{Title: " D ", Description: "d", URL: "https://a/6", PublishedAt: now},
	}
	got := Clean(in)
	if len(got) != 2 || got[0].Title != "A" || got[1].Title != "D" {
		t.Fatalf("Clean() = %+v", got)
	}
}

func newTestNewsAPI(url string) *NewsAPI {
	n := NewNewsAPI("secret", url, 5*time.Second, retry.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond})
	n.limiter = rate.NewLimiter(rate.Inf, 1)
	return n
}

const newsAPIBody = `{
  "status": "ok",
  "totalResults": 2,
  "articles": [
    {"source": {"id": "reuters", "name": "Reuters"}, "title": "Floods hit Valencia", "description": "Rain", "url": "https://r/1", "urlToImage": "https://r/1.jpg", "publishedAt": "2024-10-30T10:00:00Z"},
    {"source": {"id": null, "name": "BBC News"}, "title": "Valencia floods", "description": "More rain", "url": "https://b/2", "urlToImage": null, "publishedAt": "2024-10-30T11:00:00Z"}
  ]
}`

func TestNewsAPIFetchArticles(t *testing.T) {
	var gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/everything" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, newsAPIBody)
	}))
	defer srv.Close()

	from := time.Date(2024, 10, 29, 0, 0, 0, 0, time.UTC)
	got, err := newTestNewsAPI(srv.URL).FetchArticles(context.Background(), "floods", FetchOptions{PageSize: 50, Sources: []string{"reuters", "bbc-news"}, From: from})
	if err != nil {
		t.Fatalf("FetchArticles: %v", err)
	}
	if len(got) != 2 || got[0].Source != "Reuters" || got[1].Source != "BBC News" || got[0].URLToImage != "https://r/1.jpg" {
		t.Fatalf("articles = %+v", got)
	}
	if got[1].PublishedAt.Hour() != 11 {
		t.Fatalf("PublishedAt = %v", got[1].PublishedAt)
	}
	if gotKey != "secret" {
		t.Fatalf("api key header = %q", gotKey)
	}
	for _, want := range []string{"q=floods", "pageSize=50", "sources=reuters%2Cbbc-news", "sortBy=publishedAt", "from=2024-10-29T00%3A00%3A00Z"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestNewsAPIRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, newsAPIBody)
	}))
	defer srv.Close()

	got, err := newTestNewsAPI(srv.URL).FetchArticles(context.Background(), "x", FetchOptions{})
	if err != nil || len(got) != 2 {
		t.Fatalf("got %d articles, err %v", len(got), err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestNewsAPIClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":"error","code":"apiKeyInvalid","message":"bad key"}`)
	}))
	defer srv.Close()

	_, err := newTestNewsAPI(srv.URL).FetchArticles(context.Background(), "x", FetchOptions{})
	if err == nil || !strings.Contains(err.Error(), "apiKeyInvalid") {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
  <title>Test Wire</title>
  <item>
    <title>Floods in Spain</title>
    <description>Heavy rain</description>
    <link>https://wire/1</link>
    <pubDate>Wed, 30 Oct 2024 10:00:00 GMT</pubDate>
    <media:content url="https://wire/1-large.jpg" medium="image"/>
  </item>
  <item>
    <title>Old floods story</title>
    <description>Archive</description>
    <link>https://wire/2</link>
    <pubDate>Mon, 01 Jan 2024 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Stock markets</title>
    <description>Prices</description>
    <link>https://wire/3</link>
    <pubDate>Wed, 30 Oct 2024 11:00:00 GMT</pubDate>
    <enclosure url="https://wire/3.jpg" type="image/jpeg" length="1"/>
  </item>
</channel>
</rss>`

func TestRSSFetchArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody)
	}))
	defer srv.Close()

	r := NewRSS([]string{srv.URL, srv.URL + "/broken"})
	from := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	got, err := r.FetchArticles(context.Background(), "floods OR markets", FetchOptions{From: from})
	if err != nil {
		t.Fatalf("FetchArticles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0].Source != "Test Wire" || got[0].URLToImage != "https://wire/1-large.jpg" {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].URLToImage != "https://wire/3.jpg" {
		t.Fatalf("enclosure image = %q", got[1].URLToImage)
	}
}

func TestRSSAllFeedsFail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err := NewRSS([]string{srv.URL}).FetchArticles(context.Background(), "", FetchOptions{})
	if err == nil {
		t.Fatal("expected error when every feed fails")
	}
}

func TestLoadFeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	if err := os.WriteFile(path, []byte("feeds:\n  - https://a/rss\n  - https://b/rss\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	feeds, err := LoadFeeds(path)
	if err != nil || len(feeds) != 2 {
		t.Fatalf("LoadFeeds = %v, %v", feeds, err)
	}
	if _, err := LoadFeeds(filepath.Join(t.TempDir(), "none.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file err = %v", err)
	}
}
