package workers

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var _ contract.Dispatcher = (*DispatchPool)(nil)

type PoolConfig struct {
	CoreWorkers int
	MaxWorkers  int
	QueueSize   int
	KeepAlive   time.Duration
}

// PoolStats is a point-in-time view of the pool.
type PoolStats struct {
	Workers int `json:"workers"`
	Queued  int `json:"queued"`
}

// DispatchPool runs tasks with bounded concurrency.
//
// A submitted task goes, in order of preference, to an idle worker, to a new
// worker while fewer than MaxWorkers are alive, to the bounded backlog, and
// finally runs inline on the submitting goroutine. Nothing is ever rejected
// while the pool is running.
//
// CoreWorkers are started up front and never retire; workers above that count
// exit after KeepAlive without work.
type DispatchPool struct {
	log       *slog.Logger
	metrics   *observability.Metrics
	core      int
	max       int
	queueSize int
	keepAlive time.Duration

	// tasks holds work reserved for idle workers plus the backlog.
	tasks chan func()
	quit  chan struct{}

	mu      sync.Mutex
	running int
	idle    int
	queued  int
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatchPool(log *slog.Logger, metrics *observability.Metrics, config PoolConfig) *DispatchPool {
	if config.CoreWorkers < 1 {
		config.CoreWorkers = 1
	}
	if config.MaxWorkers < config.CoreWorkers {
		config.MaxWorkers = config.CoreWorkers
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}
	if config.KeepAlive <= 0 {
		config.KeepAlive = time.Minute
	}
	p := &DispatchPool{
		log:       log,
		metrics:   metrics,
		core:      config.CoreWorkers,
		max:       config.MaxWorkers,
		queueSize: config.QueueSize,
		keepAlive: config.KeepAlive,
		tasks:     make(chan func(), config.MaxWorkers+config.QueueSize),
		quit:      make(chan struct{}),
	}
	p.mu.Lock()
	for i := 0; i < p.core; i++ {
		p.spawnLocked(nil)
	}
	p.mu.Unlock()
	log.Info("Dispatch pool started",
		"core", p.core, "max", p.max, "queue", p.queueSize, "keep_alive", p.keepAlive)
	return p
}

// Submit schedules task. It only fails once the pool is stopped.
func (p *DispatchPool) Submit(task func()) error {
	if task == nil {
		return nil
	}
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return errors.ErrPoolStopped
	}
	// queued never exceeds idle+queueSize, so the send below cannot block.
	if p.idle > p.queued || p.queued-p.idle < p.queueSize && !p.canSpawnLocked() {
		p.queued++
		p.tasks <- task
		p.mu.Unlock()
		return nil
	}
	if p.spawnLocked(task) {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	// Saturated: the submitter pays for the work itself.
	p.log.Warn("Dispatch pool saturated, running task on caller", "workers", p.max)
	p.metrics.CallerRan()
	p.run(task)
	return nil
}

// Stop refuses new tasks. Tasks already queued still run.
func (p *DispatchPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.quit)
}

// Wait blocks until every worker has exited or ctx is done.
func (p *DispatchPool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatch pool drain: %w", ctx.Err())
	}
}

func (p *DispatchPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{Workers: p.running, Queued: max(p.queued-p.idle, 0)}
}

func (p *DispatchPool) canSpawnLocked() bool {
	return !p.stopped && p.running < p.max
}

// spawnLocked starts a worker if the ceiling allows it. p.mu must be held.
// A worker started without a task counts as idle right away.
func (p *DispatchPool) spawnLocked(first func()) bool {
	if !p.canSpawnLocked() {
		return false
	}
	p.running++
	if first == nil {
		p.idle++
	}
	p.metrics.SetPoolWorkers(p.running)
	p.wg.Add(1)
	go p.work(first)
	return true
}

func (p *DispatchPool) work(first func()) {
	defer p.wg.Done()
	if first != nil {
		p.run(first)
		p.markIdle()
	}
	idle := time.NewTimer(p.keepAlive)
	defer idle.Stop()
	for {
		select {
		case task := <-p.tasks:
			p.markBusy()
			p.run(task)
			p.markIdle()
		case <-p.quit:
			p.drain()
			p.exit()
			return
		case <-idle.C:
			if p.retire() {
				return
			}
		}
		idle.Reset(p.keepAlive)
	}
}

// drain runs whatever was queued before Stop.
func (p *DispatchPool) drain() {
	for {
		select {
		case task := <-p.tasks:
			p.markBusy()
			p.run(task)
			p.markIdle()
		default:
			return
		}
	}
}

func (p *DispatchPool) markBusy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle--
	p.queued--
}

func (p *DispatchPool) markIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle++
}

// retire lets a worker above the core count exit after an idle period,
// unless its idleness is already promised to a queued task.
func (p *DispatchPool) retire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running <= p.core || p.idle <= p.queued {
		return false
	}
	p.idle--
	p.running--
	p.metrics.SetPoolWorkers(p.running)
	return true
}

func (p *DispatchPool) exit() {
	p.mu.Lock()
	p.idle--
	p.running--
	p.metrics.SetPoolWorkers(p.running)
	p.mu.Unlock()
}

func (p *DispatchPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Dispatch task panicked", "err", errors.ErrWorkerPanic, "panic", r)
		}
	}()
	task()
}
