package observability

import (
	"runtime"
	"sync"
	"time"
)

// ProcessStats is the latest sample of the relay process.
type ProcessStats struct {
	PID        int32     `json:"pid"`
	RSSBytes   uint64    `json:"rss_bytes"`
	CPUPercent float64   `json:"cpu_percent"`
	Goroutines int       `json:"goroutines"`
	AllocMemMb uint64    `json:"alloc_mem_mb"`
	NumGC      uint32    `json:"num_gc"`
	SampledAt  time.Time `json:"sampled_at"`
}

// MonitoringManager keeps the most recent process sample for readers
// such as the admin endpoint.
type MonitoringManager struct {
	mu          sync.RWMutex
	latestStats ProcessStats
}

func NewMonitoringManager() *MonitoringManager {
	return &MonitoringManager{}
}

// Record stores a sample completed with Go runtime figures.
func (mm *MonitoringManager) Record(stats ProcessStats) ProcessStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.AllocMemMb = m.Alloc / 1024 / 1024
	stats.NumGC = m.NumGC
	stats.Goroutines = runtime.NumGoroutine()
	if stats.SampledAt.IsZero() {
		stats.SampledAt = time.Now().UTC()
	}

	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.latestStats = stats
	return stats
}

func (mm *MonitoringManager) GetLatest() ProcessStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latestStats
}
