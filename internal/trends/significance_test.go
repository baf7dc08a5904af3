package trends

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestSignificance(t *testing.T) {
	tests := []struct {
		name                  string
		count, total, sources int
		want                  float64
	}{
		{"half share five sources", 10, 20, 5, 0.6},
		{"diversity saturates", 10, 20, 25, 0.8},
		{"no articles", 3, 0, 0, 0.2},
		{"full share", 8, 8, 10, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Significance(tt.count, tt.total, tt.sources)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Significance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankBySignificance(t *testing.T) {
	topics := []ScoredTopic{
		{Keyword: "a", Significance: 0.3},
		{Keyword: "b", Significance: 0.7},
		{Keyword: "c", Significance: 0.3},
		{Keyword: "d", Significance: 0.9},
	}
	got := RankBySignificance(topics, 3)
	if len(got) != 3 || got[0].Keyword != "d" || got[1].Keyword != "b" || got[2].Keyword != "a" {
		t.Fatalf("RankBySignificance() = %+v", got)
	}
	if all := RankBySignificance(topics, 0); len(all) != 4 || all[3].Keyword != "c" {
		t.Fatalf("uncapped ranking = %+v", all)
	}
}

func TestThresholdLookupIgnoresCase(t *testing.T) {
	table := DefaultThresholdTable()
	e, ok := table.Lookup("  Peace   TALKS ")
	if !ok || e.Category != "conflict-phrase" {
		t.Fatalf("Lookup() = %+v, %v", e, ok)
	}
	if _, ok := table.Lookup("unknown topic"); ok {
		t.Fatal("unexpected entry for unknown topic")
	}
	if table.Len() < 100 {
		t.Fatalf("default table has %d entries, expected a few hundred", table.Len())
	}
}

func TestLoadThresholdFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	data := `
hot_threshold: 20
regular_threshold: 9
hot_topics: [Gaza, Iran]
thresholds:
  "Bird Flu":
    min_count: 4
    min_sources: 2
    category: health
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := LoadThresholdFile(path, cfg); err != nil {
		t.Fatalf("LoadThresholdFile: %v", err)
	}
	if cfg.HotThreshold != 20 || cfg.RegularThreshold != 9 {
		t.Fatalf("fallback thresholds = %d/%d", cfg.HotThreshold, cfg.RegularThreshold)
	}
	if !cfg.HotTopics.Has("gaza") || cfg.HotTopics.Has("trump") {
		t.Fatalf("hot topics not replaced: %v", cfg.HotTopics)
	}
	if cfg.Thresholds.Len() != 1 {
		t.Fatalf("table len = %d, want 1", cfg.Thresholds.Len())
	}
	if e, ok := cfg.Thresholds.Lookup("bird flu"); !ok || e.MinCount != 4 || e.MinSources != 2 {
		t.Fatalf("bird flu entry = %+v, %v", e, ok)
	}
}

func TestLoadThresholdFileRejectsInvalidEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("thresholds:\n  war:\n    min_count: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadThresholdFile(path, DefaultConfig()); err == nil {
		t.Fatal("expected error for zero min_count")
	}
	if err := LoadThresholdFile(filepath.Join(t.TempDir(), "missing.yaml"), DefaultConfig()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
