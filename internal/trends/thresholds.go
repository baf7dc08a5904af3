package trends

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ThresholdEntry is a per-keyword override of the generic qualification bar.
type ThresholdEntry struct {
	MinCount   int    `yaml:"min_count" json:"minCount"`
	MinSources int    `yaml:"min_sources" json:"minSources"`
	Category   string `yaml:"category" json:"category"`
}

// ThresholdTable maps lower-cased keywords and phrases to their special
// thresholds. The zero value is not usable; build one with NewThresholdTable.
type ThresholdTable struct {
	entries map[string]ThresholdEntry
}

// NewThresholdTable copies entries into a new table keyed by lower-cased text.
func NewThresholdTable(entries map[string]ThresholdEntry) ThresholdTable {
	t := ThresholdTable{entries: make(map[string]ThresholdEntry, len(entries))}
	for k, v := range entries {
		t.entries[normalizeKey(k)] = v
	}
	return t
}

// Lookup performs a case-insensitive exact match.
func (t ThresholdTable) Lookup(text string) (ThresholdEntry, bool) {
	e, ok := t.entries[normalizeKey(text)]
	return e, ok
}

// Len returns the number of special entries.
func (t ThresholdTable) Len() int {
	return len(t.entries)
}

func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// thresholdGroup assigns one threshold pair to a list of keys.
type thresholdGroup struct {
	category   string
	minCount   int
	minSources int
	keys       []string
}

// DefaultThresholdTable returns the conservative production calibration.
func DefaultThresholdTable() ThresholdTable {
	entries := make(map[string]ThresholdEntry)
	for _, g := range defaultThresholdGroups() {
		for _, k := range g.keys {
			entries[k] = ThresholdEntry{MinCount: g.minCount, MinSources: g.minSources, Category: g.category}
		}
	}
	return NewThresholdTable(entries)
}

func defaultThresholdGroups() []thresholdGroup {
	return []thresholdGroup{
		{category: "leader", minCount: 15, minSources: 4, keys: []string{
			"trump", "donald trump", "president trump", "biden", "joe biden", "harris", "kamala harris",
			"putin", "vladimir putin", "zelensky", "volodymyr zelensky", "netanyahu", "benjamin netanyahu",
			"xi jinping", "macron", "emmanuel macron", "scholz", "olaf scholz", "merz", "friedrich merz",
			"starmer", "keir starmer", "tusk", "donald tusk", "nawrocki", "karol nawrocki", "duda", "andrzej duda",
			"orban", "viktor orban", "erdogan", "modi", "narendra modi", "vance", "musk", "elon musk",
		}},
		{category: "country", minCount: 15, minSources: 5, keys: []string{
			"russia", "ukraine", "china", "israel", "palestine", "iran", "gaza", "taiwan",
			"syria", "lebanon", "yemen", "venezuela", "north korea", "south korea", "poland",
			"germany", "france", "britain", "united states", "united kingdom", "india", "turkey",
			"hungary", "belarus", "moldova", "georgia", "serbia", "kosovo",
		}},
		{category: "organization", minCount: 10, minSources: 3, keys: []string{
			"nato", "european union", "united nations", "european commission", "european parliament",
			"white house", "kremlin", "pentagon", "federal reserve", "european central bank",
			"world health organization", "imf", "world bank", "opec", "hamas", "hezbollah", "houthis",
			"supreme court", "security council", "g20", "brics", "idf",
		}},
		{category: "conflict", minCount: 10, minSources: 3, keys: []string{
			"war", "conflict", "invasion", "ceasefire", "airstrike", "airstrikes", "missile", "drone",
			"drones", "hostages", "sanctions", "mobilization", "offensive", "counteroffensive",
		}},
		{category: "conflict-phrase", minCount: 8, minSources: 3, keys: []string{
			"ukraine war", "russian invasion", "russian attack", "russian drones", "drone attack",
			"missile attack", "missile strike", "ceasefire deal", "ceasefire talks", "peace talks",
			"peace deal", "peace plan", "hostage deal", "gaza strip", "west bank", "humanitarian aid",
			"nuclear weapons", "nuclear deal", "nuclear talks", "military aid", "air defense",
			"border crossing", "prisoner exchange", "prisoner swap", "eastern front", "front line",
			"russian forces", "ukrainian forces", "israeli forces", "military exercise", "troop deployment",
		}},
		{category: "politics", minCount: 10, minSources: 3, keys: []string{
			"election", "elections", "presidential election", "parliamentary election", "referendum",
			"impeachment", "government shutdown", "coalition talks", "vote of confidence", "snap election",
			"state of emergency", "martial law", "constitutional court",
		}},
		{category: "economy", minCount: 10, minSources: 3, keys: []string{
			"economy", "market", "trade", "tariff", "tariffs", "inflation", "recession", "interest rates",
			"rate cut", "rate hike", "trade war", "stock market", "oil prices", "gas prices", "energy prices",
			"unemployment", "gdp", "bitcoin", "cryptocurrency", "bankruptcy", "layoffs",
		}},
		{category: "disaster", minCount: 8, minSources: 2, keys: []string{
			"earthquake", "hurricane", "typhoon", "tsunami", "flood", "floods", "flooding", "wildfire",
			"wildfires", "heatwave", "drought", "volcano", "eruption", "landslide", "tornado", "plane crash",
			"train crash", "explosion",
		}},
		{category: "health", minCount: 8, minSources: 2, keys: []string{
			"pandemic", "epidemic", "outbreak", "bird flu", "measles", "covid", "vaccine", "mpox",
		}},
		{category: "technology", minCount: 10, minSources: 3, keys: []string{
			"artificial intelligence", "openai", "chatgpt", "nvidia", "tesla", "apple", "google",
			"microsoft", "meta", "spacex", "cyberattack", "data breach", "outage", "semiconductor",
			"antitrust",
		}},
	}
}

// thresholdFile is the on-disk YAML layout accepted by LoadThresholdFile.
type thresholdFile struct {
	HotThreshold     int                       `yaml:"hot_threshold"`
	RegularThreshold int                       `yaml:"regular_threshold"`
	HotTopics        []string                  `yaml:"hot_topics"`
	Thresholds       map[string]ThresholdEntry `yaml:"thresholds"`
}

// LoadThresholdFile overlays a YAML calibration onto cfg. Non-zero scalar
// fields replace the defaults; a non-empty thresholds map replaces the table.
func LoadThresholdFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read threshold file %s: %w", path, err)
	}
	var f thresholdFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse threshold file %s: %w", path, err)
	}
	for k, e := range f.Thresholds {
		if e.MinCount < 1 || e.MinSources < 0 {
			return fmt.Errorf("threshold file %s: invalid entry %q (min_count=%d, min_sources=%d)", path, k, e.MinCount, e.MinSources)
		}
	}

	if f.HotThreshold > 0 {
		cfg.HotThreshold = f.HotThreshold
	}
	if f.RegularThreshold > 0 {
		cfg.RegularThreshold = f.RegularThreshold
	}
	if len(f.HotTopics) > 0 {
		cfg.HotTopics = NewWordSet(f.HotTopics...)
	}
	if len(f.Thresholds) > 0 {
		cfg.Thresholds = NewThresholdTable(f.Thresholds)
	}
	return nil
}
