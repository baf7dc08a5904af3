package summary

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/deusflow/trendpulse/internal/cache"
	"github.com/deusflow/trendpulse/internal/ratelimit"
	"github.com/deusflow/trendpulse/internal/retry"
	"github.com/deusflow/trendpulse/internal/trends"
)

const goodJSON = `{"title_pl": "Powodzie w Walencji", "description_pl": "Ulewy zalały region.", "title_en": "Floods in Valencia", "description_en": "Downpours flooded the region.", "credibility_score": 87}`

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "bare json", raw: goodJSON},
		{name: "fenced json", raw: "Here you go:\n```json\n" + goodJSON + "\n```\nThanks"},
		{name: "fence without language", raw: "```\n" + goodJSON + "\n```"},
		{name: "prose around json", raw: "Sure! " + goodJSON + " Hope it helps."},
		{name: "no json", raw: "I cannot help with that.", wantErr: true},
		{name: "broken json", raw: `{"title_pl": "x",`, wantErr: true},
		{name: "missing field", raw: `{"title_pl": "a", "description_pl": "b", "title_en": "c", "credibility_score": 5}`, wantErr: true},
		{name: "score out of range", raw: strings.Replace(goodJSON, "87", "140", 1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedOutput) {
					t.Fatalf("err = %v, want ErrMalformedOutput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if s.TitleEN != "Floods in Valencia" || s.CredibilityScore != 87 {
				t.Fatalf("Parse() = %+v", s)
			}
		})
	}
}

func TestBuildPromptUsesFullText(t *testing.T) {
	req := Request{
		Topic: "floods",
		Articles: []trends.Article{
			{Title: "Floods", Description: "short", URL: "https://a/1", Source: "Reuters"},
			{Title: "More floods", Description: "teaser", URL: "https://a/2", Source: "BBC"},
		},
		FullText: map[string]string{"https://a/2": "The full body of the second article."},
	}
	p := BuildPrompt(req)
	for _, want := range []string{`"floods"`, "[1] Floods (Reuters)", "short", "The full body of the second article.", "title_pl"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(p, "teaser") {
		t.Error("description used although full text was available")
	}
}

func TestTruncate(t *testing.T) {
	s := strings.Repeat("Sentence one is here. ", 20)
	got := truncate(s, 100)
	if !strings.HasSuffix(got, ". [TRUNCATED]") {
		t.Fatalf("truncate() = %q", got)
	}
	if truncate("short", 100) != "short" {
		t.Fatal("short text must be unchanged")
	}
}

type fakeProvider struct {
	name  string
	out   string
	err   error
	calls int
	// failures makes the first calls fail with a transport error.
	failures int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("503 service unavailable")
	}
	return f.out, f.err
}

var testRetry = retry.RetryConfig{MaxAttempts: 2, Delay: time.Millisecond}

func testRequest() Request {
	return Request{
		Topic:    "floods",
		ImageURL: "https://img/large.jpg",
		Articles: []trends.Article{{Title: "Floods", URL: "https://a/1"}},
	}
}

func TestChainFallsBackToNextProvider(t *testing.T) {
	broken := &fakeProvider{name: "gemini", out: "not json"}
	good := &fakeProvider{name: "openai", out: goodJSON}
	c := NewChain(nil, nil, testRetry, broken, good)
	fixed := time.Date(2024, 10, 30, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	s, err := c.Summarize(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Provider != "openai" || s.ImageURL != "https://img/large.jpg" || !s.PublishedAt.Equal(fixed) {
		t.Fatalf("summary = %+v", s)
	}
	if broken.calls != 1 {
		t.Fatalf("malformed output retried %d times", broken.calls)
	}
}

func TestChainRetriesTransportErrors(t *testing.T) {
	flaky := &fakeProvider{name: "gemini", err: errors.New("503")}
	c := NewChain(nil, nil, testRetry, flaky)
	_, err := c.Summarize(context.Background(), testRequest())
	if err == nil || flaky.calls != 2 {
		t.Fatalf("err = %v, calls = %d", err, flaky.calls)
	}
}

func TestChainBudgetAndCache(t *testing.T) {
	budget := ratelimit.NewBudget(map[string]int{"gemini": 1}, 0)
	p := &fakeProvider{name: "gemini", out: goodJSON}
	c := NewChain(budget, cache.New[Summary](time.Hour), testRetry, p)

	if _, err := c.Summarize(context.Background(), testRequest()); err != nil {
		t.Fatal(err)
	}
	// Same topic and URLs: served from cache without spending budget.
	if _, err := c.Summarize(context.Background(), testRequest()); err != nil {
		t.Fatalf("cached Summarize: %v", err)
	}
	if p.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", p.calls)
	}

	other := testRequest()
	other.Topic = "earthquake"
	if _, err := c.Summarize(context.Background(), other); !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("err = %v, want ErrBudgetExhausted", err)
	}
}

func TestChainChargesEveryRetry(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantErr   bool
		wantCalls int
		wantUsed  int
	}{
		{name: "budget covers all attempts", limit: 3, wantCalls: 3, wantUsed: 3},
		{name: "budget runs out mid retry", limit: 1, wantErr: true, wantCalls: 1, wantUsed: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			budget := ratelimit.NewBudget(map[string]int{"gemini": tt.limit}, 0)
			p := &fakeProvider{name: "gemini", out: goodJSON, failures: 2}
			c := NewChain(budget, nil, retry.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}, p)

			_, err := c.Summarize(context.Background(), testRequest())
			if tt.wantErr {
				if !errors.Is(err, ratelimit.ErrExhausted) {
					t.Fatalf("err = %v, want ErrExhausted", err)
				}
			} else if err != nil {
				t.Fatalf("Summarize: %v", err)
			}
			if p.calls != tt.wantCalls {
				t.Fatalf("provider calls = %d, want %d", p.calls, tt.wantCalls)
			}
			if used := budget.Stats()["gemini_used"]; used != tt.wantUsed {
				t.Fatalf("gemini_used = %v, want %d", used, tt.wantUsed)
			}
		})
	}
}
