package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolConcurrentRecord(t *testing.T) {
	p := NewPool()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Record(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5000, p.Count())
	assert.Equal(t, time.Millisecond, p.Mean())
}

func TestMeanEmptyPool(t *testing.T) {
	p := NewPool()
	assert.Equal(t, time.Duration(0), p.Mean())
}

func TestSummarizeReportsFixedTotal(t *testing.T) {
	p := NewPool()
	p.Record(10 * time.Millisecond)

	// Far fewer samples than the product: the total still reports the
	// full workload.
	s := Summarize(p, 4, 5, 2*time.Second)
	assert.Equal(t, 60, s.TotalRequests)
	assert.Equal(t, 1, s.Recorded)
	assert.Equal(t, 10*time.Millisecond, s.AvgLatency)
	assert.Equal(t, 2*time.Second, s.Elapsed)
}

func TestSummarizeZeroWorkload(t *testing.T) {
	p := NewPool()

	s := Summarize(p, 0, 10, time.Second)
	assert.Equal(t, 0, s.TotalRequests)
	assert.Equal(t, time.Duration(0), s.AvgLatency)
}

func TestMeanAveragesSamples(t *testing.T) {
	p := NewPool()
	p.Record(10 * time.Millisecond)
	p.Record(20 * time.Millisecond)
	p.Record(30 * time.Millisecond)

	assert.Equal(t, 20*time.Millisecond, p.Mean())
}
