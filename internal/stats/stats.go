package stats

import (
	"sync"
	"time"
)

// Pool is the shared collection of per-call durations. Every worker
// appends to it concurrently; reads happen after the run has joined.
type Pool struct {
	mu      sync.Mutex
	samples []time.Duration
}

func NewPool() *Pool {
	return &Pool{}
}

func (p *Pool) Record(d time.Duration) {
	p.mu.Lock()
	p.samples = append(p.samples, d)
	p.mu.Unlock()
}

func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.samples)
}

// Mean returns the average of all recorded samples, or 0 when the pool
// is empty.
func (p *Pool) Mean() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range p.samples {
		sum += d
	}
	return sum / time.Duration(len(p.samples))
}

// Summary is the aggregate report printed once after all workers finish.
type Summary struct {
	TotalRequests int
	Elapsed       time.Duration
	AvgLatency    time.Duration
	Recorded      int
}

// Summarize computes the run summary. TotalRequests is the fixed
// arithmetic product workers*iterations*3, not the observed call count:
// a worker that aborted early still contributes its full share to the
// reported total, while Recorded reflects only completed calls.
func Summarize(p *Pool, workers, iterations int, elapsed time.Duration) Summary {
	return Summary{
		TotalRequests: workers * iterations * 3,
		Elapsed:       elapsed,
		AvgLatency:    p.Mean(),
		Recorded:      p.Count(),
	}
}
