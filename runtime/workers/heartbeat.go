package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

const defaultMetricInterval = 30 * time.Second

// HeartbeatWorker samples the relay process on every tick, publishes the
// sample to the monitoring manager and the RSS gauge, and logs a heartbeat.
type HeartbeatWorker struct {
	log        *slog.Logger
	interval   time.Duration
	monitoring *observability.MonitoringManager
	metrics    *observability.Metrics
	sessions   func() int
	pool       *DispatchPool
}

func NewHeartbeatWorker(
	log *slog.Logger,
	interval time.Duration,
	monitoring *observability.MonitoringManager,
	metrics *observability.Metrics,
	sessions func() int,
	pool *DispatchPool,
) *HeartbeatWorker {
	if interval <= 0 {
		interval = defaultMetricInterval
	}
	return &HeartbeatWorker{
		log:        log,
		interval:   interval,
		monitoring: monitoring,
		metrics:    metrics,
		sessions:   sessions,
		pool:       pool,
	}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sample(p)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sample(p)
		}
	}
}

func (w *HeartbeatWorker) sample(p *process.Process) {
	rss, cpu, err := selfStats(p)
	if err != nil {
		w.log.Error("Failed to collect self stats", "err", err)
		return
	}
	stats := w.monitoring.Record(observability.ProcessStats{
		PID:        p.Pid,
		RSSBytes:   rss,
		CPUPercent: cpu,
	})
	w.metrics.SetProcessRSS(rss)

	attrs := []any{
		"rss_bytes", stats.RSSBytes,
		"cpu_percent", stats.CPUPercent,
		"goroutines", stats.Goroutines,
	}
	if w.sessions != nil {
		attrs = append(attrs, "sessions", w.sessions())
	}
	if w.pool != nil {
		pool := w.pool.Stats()
		attrs = append(attrs, "pool_workers", pool.Workers, "pool_queued", pool.Queued)
	}
	w.log.Info("Heartbeat", attrs...)
}

func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
