package profiling

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCounter_Empty(t *testing.T) {
	var c Counter
	assert.Equal(t, 0, c.Count())
	assert.Equal(t, 0.0, c.Average())
	assert.Equal(t, 0.0, c.StdDev())
	assert.Equal(t, "0ms (±0ms, 0 samples)", c.Summary())
}

func TestCounter_Stats(t *testing.T) {
	var c Counter
	c.AddSeconds(0.010)
	c.AddSeconds(0.030)

	assert.Equal(t, 2, c.Count())
	assert.InDelta(t, 0.020, c.Average(), 1e-12)
	assert.InDelta(t, 0.010, c.StdDev(), 1e-9)
	assert.Equal(t, "20ms (±10ms, 2 samples)", c.Summary())

	c.Reset()
	assert.Equal(t, 0, c.Count())
}

func TestCounter_Durations(t *testing.T) {
	var c Counter
	c.Add(1500 * time.Millisecond)
	assert.InDelta(t, 1.5, c.Average(), 1e-12)

	timer := StartTimer()
	c.Since(timer)
	assert.Equal(t, 2, c.Count())
}

func TestCounters_Concurrent(t *testing.T) {
	cs := NewCounters()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cs.Get("decode").AddSeconds(0.001)
			}
		}()
	}
	wg.Wait()
	cs.Get("host")

	assert.Equal(t, 800, cs.Get("decode").Count())
	assert.Equal(t, []string{"decode", "host"}, cs.Names())
	cs.Log()
}
