package checkpoint

import (
	"time"
)

// advanceRecord holds timing data for one checkpoint advance.
type advanceRecord struct {
	Height     uint64
	AdvancedAt time.Time
}

// Metrics holds checkpoint throughput data.
type Metrics struct {
	BlocksPerSecond float64    `json:"blocks_per_second"`
	LastHeight      uint64     `json:"last_height"`
	LastAdvanceAt   *time.Time `json:"last_advance_at,omitempty"`
}

// MetricsCollector tracks checkpoint advances over time.
type MetricsCollector struct {
	windowSize int             // number of advances to track
	records    []advanceRecord // ring buffer of advances
}

// NewMetricsCollector creates a collector keeping the last windowSize advances.
func NewMetricsCollector(windowSize int) *MetricsCollector {
	if windowSize < 2 {
		windowSize = 2
	}
	return &MetricsCollector{
		windowSize: windowSize,
		records:    make([]advanceRecord, 0, windowSize),
	}
}

// RecordAdvance records one advance.
func (mc *MetricsCollector) RecordAdvance(height uint64, at time.Time) {
	record := advanceRecord{Height: height, AdvancedAt: at}

	if len(mc.records) >= mc.windowSize {
		// Shift elements left, drop oldest
		copy(mc.records, mc.records[1:])
		mc.records[len(mc.records)-1] = record
	} else {
		mc.records = append(mc.records, record)
	}
}

// GetMetrics returns current metrics.
func (mc *MetricsCollector) GetMetrics() Metrics {
	var m Metrics
	if len(mc.records) == 0 {
		return m
	}

	last := mc.records[len(mc.records)-1]
	m.LastHeight = last.Height
	at := last.AdvancedAt
	m.LastAdvanceAt = &at

	if len(mc.records) >= 2 {
		first := mc.records[0]
		duration := last.AdvancedAt.Sub(first.AdvancedAt)
		if duration > 0 && last.Height > first.Height {
			m.BlocksPerSecond = float64(last.Height-first.Height) / duration.Seconds()
		}
	}
	return m
}

// Reset clears all collected metrics.
func (mc *MetricsCollector) Reset() {
	mc.records = mc.records[:0]
}
