package tracker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerCounts(t *testing.T) {
	tr := New()

	tr.TrackRequest("overpass")
	tr.TrackRequest("overpass")
	tr.TrackFailure("overpass")
	tr.TrackCacheHit("overpass")
	tr.TrackCacheMiss("ipgeo")

	snap := tr.Snapshot()
	assert.Equal(t, int64(2), snap["overpass"].Requests)
	assert.Equal(t, int64(1), snap["overpass"].Failures)
	assert.Equal(t, int64(1), snap["overpass"].CacheHits)
	assert.Equal(t, int64(1), snap["ipgeo"].CacheMisses)
}

func TestTrackerConcurrent(t *testing.T) {
	tr := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.TrackRequest("overpass")
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), tr.Snapshot()["overpass"].Requests)
}
