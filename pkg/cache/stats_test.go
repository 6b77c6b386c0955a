package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsCollector(t *testing.T) {
	c := NewStatsCollector()

	c.RecordHit()
	c.RecordHit()
	c.RecordHit()
	c.RecordMiss()
	c.RecordEviction()
	c.UpdateSize(2048)

	stats := c.GetStats()
	assert.EqualValues(t, 3, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.EqualValues(t, 1, stats.Evictions)
	assert.EqualValues(t, 2048, stats.Size)
	assert.False(t, stats.LastUpdated.IsZero())
	assert.InDelta(t, 0.75, c.HitRate(), 1e-9)
}

func TestStatsCollector_HitRateEmpty(t *testing.T) {
	assert.Zero(t, NewStatsCollector().HitRate())
}

func TestStatsCollector_Concurrent(t *testing.T) {
	c := NewStatsCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RecordHit()
				c.RecordMiss()
			}
		}()
	}
	wg.Wait()

	stats := c.GetStats()
	assert.EqualValues(t, 1000, stats.Hits)
	assert.EqualValues(t, 1000, stats.Misses)
}
