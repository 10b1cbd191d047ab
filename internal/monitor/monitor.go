// Package monitor records performance metrics from the classified event
// stream: response times, per-tool durations, error counts and cost.
package monitor

import (
	"sort"
	"sync"

	"github.com/user/claudeterm/internal/stream"
)

const defaultWindowSize = 100

// ToolStats aggregates durations for one tool name.
type ToolStats struct {
	Count         int     `json:"count"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	MaxDurationMS float64 `json:"max_duration_ms"`
}

// Snapshot is a point-in-time view of the recorded metrics.
type Snapshot struct {
	TotalRequests     int                  `json:"total_requests"`
	TotalCostUSD      float64              `json:"total_cost_usd"`
	ErrorRate         float64              `json:"error_rate"`
	ErrorsByType      map[string]int       `json:"errors_by_type"`
	AvgResponseTimeMS float64              `json:"avg_response_time_ms,omitempty"`
	MinResponseTimeMS float64              `json:"min_response_time_ms,omitempty"`
	MaxResponseTimeMS float64              `json:"max_response_time_ms,omitempty"`
	P50ResponseTimeMS float64              `json:"p50_response_time_ms,omitempty"`
	P95ResponseTimeMS float64              `json:"p95_response_time_ms,omitempty"`
	P99ResponseTimeMS float64              `json:"p99_response_time_ms,omitempty"`
	Tools             map[string]ToolStats `json:"tools"`
}

// Metrics keeps sliding windows of recent measurements. Safe for
// concurrent use by multiple session controllers.
type Metrics struct {
	mu            sync.Mutex
	windowSize    int
	responseTimes []float64
	toolDurations map[string][]float64
	errorCounts   map[string]int
	totalRequests int
	totalCostUSD  float64
}

func New(windowSize int) *Metrics {
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}
	return &Metrics{
		windowSize:    windowSize,
		toolDurations: make(map[string][]float64),
		errorCounts:   make(map[string]int),
	}
}

// Record folds one classified event into the metrics.
func (m *Metrics) Record(ev stream.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Kind {
	case stream.KindToolResult:
		if ev.DurationMS != nil {
			m.toolDurations[ev.ToolName] = appendWindow(
				m.toolDurations[ev.ToolName], *ev.DurationMS, m.windowSize)
		}
		if ev.IsError {
			m.errorCounts["tool_error"]++
		}
	case stream.KindCompletion:
		m.totalRequests++
		m.totalCostUSD += ev.TotalCostUSD
		if ev.TotalDurationMS != nil {
			m.responseTimes = appendWindow(
				m.responseTimes, *ev.TotalDurationMS, m.windowSize)
		}
		if ev.IsError {
			m.errorCounts["completion_error"]++
		}
	case stream.KindError:
		m.errorCounts["stream_error"]++
	}
}

// RecordError counts an out-of-band failure (spawn, decode, I/O).
func (m *Metrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCounts[kind]++
}

// Snapshot returns the current statistics.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		TotalRequests: m.totalRequests,
		TotalCostUSD:  m.totalCostUSD,
		ErrorsByType:  make(map[string]int, len(m.errorCounts)),
		Tools:         make(map[string]ToolStats, len(m.toolDurations)),
	}

	totalErrors := 0
	for k, v := range m.errorCounts {
		snap.ErrorsByType[k] = v
		totalErrors += v
	}
	if m.totalRequests > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(m.totalRequests)
	} else if totalErrors > 0 {
		snap.ErrorRate = 1
	}

	if len(m.responseTimes) > 0 {
		snap.AvgResponseTimeMS = mean(m.responseTimes)
		snap.MinResponseTimeMS = minOf(m.responseTimes)
		snap.MaxResponseTimeMS = maxOf(m.responseTimes)
		snap.P50ResponseTimeMS = percentile(m.responseTimes, 50)
		snap.P95ResponseTimeMS = percentile(m.responseTimes, 95)
		snap.P99ResponseTimeMS = percentile(m.responseTimes, 99)
	}

	for name, durations := range m.toolDurations {
		if len(durations) == 0 {
			continue
		}
		snap.Tools[name] = ToolStats{
			Count:         len(durations),
			AvgDurationMS: mean(durations),
			MaxDurationMS: maxOf(durations),
		}
	}

	return snap
}

func appendWindow(window []float64, v float64, size int) []float64 {
	window = append(window, v)
	if len(window) > size {
		window = window[len(window)-size:]
	}
	return window
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
