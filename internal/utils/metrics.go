package utils

import (
	"sync"
	"time"
)

// Tracks performance metrics across the system
type MetricsCollector struct {
	mu            sync.RWMutex
	requestCount  uint64
	errorCount    uint64
	conflictCount uint64 // optimistic-concurrency retries observed

	// Maps operation name to list of latencies in nanoseconds
	operationTimes map[string][]int64

	systemStartTime time.Time
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		operationTimes:  make(map[string][]int64),
		systemStartTime: time.Now(),
	}
}

func (mc *MetricsCollector) IncrementRequests() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.requestCount++
}

func (mc *MetricsCollector) IncrementErrors() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.errorCount++
}

func (mc *MetricsCollector) IncrementConflicts() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.conflictCount++
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, exists := mc.operationTimes[operationName]; !exists {
		mc.operationTimes[operationName] = make([]int64, 0)
	}
	mc.operationTimes[operationName] = append(
		mc.operationTimes[operationName],
		duration.Nanoseconds(),
	)
}

// Snapshot is a point-in-time view of the collected metrics.
type MetricsSnapshot struct {
	Requests  uint64        `json:"requests"`
	Errors    uint64        `json:"errors"`
	Conflicts uint64        `json:"conflicts"`
	Uptime    time.Duration `json:"uptime"`
}

func (mc *MetricsCollector) Snapshot() MetricsSnapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return MetricsSnapshot{
		Requests:  mc.requestCount,
		Errors:    mc.errorCount,
		Conflicts: mc.conflictCount,
		Uptime:    time.Since(mc.systemStartTime),
	}
}
