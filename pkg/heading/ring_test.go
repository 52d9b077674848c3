package heading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(12)

	for i := 0; i < 13; i++ {
		r.Push(float64(i))
	}

	vals := r.Values()
	assert.Len(t, vals, 12)
	assert.Equal(t, float64(1), vals[0], "oldest sample should be evicted")
	assert.Equal(t, float64(12), vals[11])
}

func TestRingPartialFill(t *testing.T) {
	r := NewRing(12)
	r.Push(350)
	r.Push(10)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []float64{350, 10}, r.Values())
}

func TestRingReset(t *testing.T) {
	r := NewRing(3)
	r.Push(1)
	r.Push(2)
	r.Push(3)
	r.Push(4)
	r.Reset()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Values())
}
