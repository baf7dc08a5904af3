package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCountersAndHealth(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddArticlesFetched(3)
			m.IncrementSummaries(true)
		}()
	}
	wg.Wait()
	m.IncrementSummaries(false)
	m.IncrementTrendsSelected("gaza")

	stats := m.GetStats()
	if stats["articles_fetched"].(int64) != 30 || stats["summaries_ok"].(int64) != 10 || stats["summaries_failed"].(int64) != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
	if stats["last_topic"] != "gaza" {
		t.Fatalf("last_topic = %v", stats["last_topic"])
	}

	m.SetError("fetch failed")
	if m.Healthy() {
		t.Fatal("expected unhealthy after SetError")
	}
	m.RecordCycle(2 * time.Second)
	m.RecordCycle(4 * time.Second)
	if !m.Healthy() || m.AverageCycleTime != 3*time.Second || m.CyclesRun != 2 {
		t.Fatalf("after cycles: healthy=%v avg=%v runs=%d", m.Healthy(), m.AverageCycleTime, m.CyclesRun)
	}
}
