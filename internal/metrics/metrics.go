package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ArticlesFetched    int64
	CyclesRun          int64
	TrendsSelected     int64
	NoTrendCycles      int64
	DuplicatesSkipped  int64
	SummariesOK        int64
	SummariesFailed    int64
	ArticlesStored     int64
	NotificationsSent  int64
	CandidatesRejected int64

	// Timings
	LastCycleTime    time.Duration
	AverageCycleTime time.Duration
	TotalCycleTime   time.Duration

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	LastTopic     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) AddArticlesFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesFetched += int64(n)
}

func (m *Metrics) IncrementTrendsSelected(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TrendsSelected++
	m.LastTopic = topic
}

func (m *Metrics) IncrementNoTrend() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NoTrendCycles++
}

func (m *Metrics) IncrementDuplicatesSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesSkipped++
}

func (m *Metrics) IncrementSummaries(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.SummariesOK++
	} else {
		m.SummariesFailed++
	}
}

func (m *Metrics) IncrementArticlesStored() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesStored++
}

func (m *Metrics) IncrementNotificationsSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotificationsSent++
}

func (m *Metrics) IncrementCandidatesRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandidatesRejected++
}

// RecordCycle stores the duration of a finished cycle and marks the service healthy.
func (m *Metrics) RecordCycle(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CyclesRun++
	m.LastCycleTime = duration
	m.TotalCycleTime += duration
	m.AverageCycleTime = m.TotalCycleTime / time.Duration(m.CyclesRun)
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"articles_fetched":      m.ArticlesFetched,
		"cycles_run":            m.CyclesRun,
		"trends_selected":       m.TrendsSelected,
		"no_trend_cycles":       m.NoTrendCycles,
		"duplicates_skipped":    m.DuplicatesSkipped,
		"summaries_ok":          m.SummariesOK,
		"summaries_failed":      m.SummariesFailed,
		"articles_stored":       m.ArticlesStored,
		"notifications_sent":    m.NotificationsSent,
		"candidates_rejected":   m.CandidatesRejected,
		"last_cycle_time_ms":    m.LastCycleTime.Milliseconds(),
		"average_cycle_time_ms": m.AverageCycleTime.Milliseconds(),
		"last_run_time":         m.LastRunTime.Format(time.RFC3339),
		"last_error_time":       m.LastErrorTime.Format(time.RFC3339),
		"last_error":            m.LastError,
		"last_topic":            m.LastTopic,
		"is_healthy":            m.IsHealthy,
	}
}
