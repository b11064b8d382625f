// Package profiling accumulates timing samples per named stage.
package profiling

import (
	"fmt"
	gomath "math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/maps-capture/internal/logger"
)

// Timer measures the time since it was started.
type Timer struct {
	start time.Time
}

// StartTimer starts a new timer.
func StartTimer() Timer {
	return Timer{start: time.Now()}
}

// Elapsed returns the time since the timer started.
func (t Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Counter accumulates samples in seconds. It is safe for concurrent use.
type Counter struct {
	mu    sync.Mutex
	count int
	sum   float64
	sumSq float64
}

// Add records one sample.
func (c *Counter) Add(d time.Duration) {
	c.AddSeconds(d.Seconds())
}

// AddSeconds records one sample given in seconds.
func (c *Counter) AddSeconds(v float64) {
	c.mu.Lock()
	c.count++
	c.sum += v
	c.sumSq += v * v
	c.mu.Unlock()
}

// Since records the time elapsed on t.
func (c *Counter) Since(t Timer) {
	c.Add(t.Elapsed())
}

// Count returns the number of samples.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Average returns the mean sample in seconds, 0 without samples.
func (c *Counter) Average() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.average()
}

func (c *Counter) average() float64 {
	if c.count == 0 {
		return 0
	}
	return c.sum / float64(c.count)
}

// StdDev returns the population standard deviation in seconds.
func (c *Counter) StdDev() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stddev()
}

func (c *Counter) stddev() float64 {
	if c.count == 0 {
		return 0
	}
	avg := c.average()
	return gomath.Sqrt(gomath.Max(0, c.sumSq/float64(c.count)-avg*avg))
}

// Reset drops all samples.
func (c *Counter) Reset() {
	c.mu.Lock()
	c.count, c.sum, c.sumSq = 0, 0, 0
	c.mu.Unlock()
}

// Summary formats the counter as "12.3ms (±1.2ms, 10 samples)".
func (c *Counter) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%.3gms (±%.3gms, %d samples)", c.average()*1000, c.stddev()*1000, c.count)
}

// Counters is a set of counters created on first use.
type Counters struct {
	mu       sync.Mutex
	counters map[string]*Counter
}

// NewCounters returns an empty set.
func NewCounters() *Counters {
	return &Counters{counters: make(map[string]*Counter)}
}

// Get returns the counter with the given name, creating it if needed.
func (cs *Counters) Get(name string) *Counter {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	c, ok := cs.counters[name]
	if !ok {
		c = &Counter{}
		cs.counters[name] = c
	}
	return c
}

// Names returns the counter names in sorted order.
func (cs *Counters) Names() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	names := make([]string, 0, len(cs.counters))
	for name := range cs.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Log writes one debug line per counter.
func (cs *Counters) Log() {
	for _, name := range cs.Names() {
		logger.Debug("profiling",
			zap.String("counter", name),
			zap.String("summary", cs.Get(name).Summary()))
	}
}
