package worker

import (
	"log/slog"
	"sync"

	"github.com/baharkarakas/tappay-backend/internal/metrics"
)

const queueSize = 1024

// Pool runs submitted jobs on a fixed set of goroutines. Payment flows are
// submitted here so a burst of checkouts cannot spawn unbounded goroutines.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan func()

	mu     sync.RWMutex
	closed bool
}

func NewPool(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{jobs: make(chan func(), queueSize)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
				run(job)
			}
		}()
	}
	return p
}

func run(job func()) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("worker job panicked", "err", rec)
		}
	}()
	job()
}

// Submit queues f. After Stop, f runs on its own goroutine so late callers
// are not lost.
func (p *Pool) Submit(f func()) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		go run(f)
		return
	}
	p.jobs <- f
	metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
}

// Stop waits for queued jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
