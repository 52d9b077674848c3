package heading

// Ring is a fixed-capacity ring buffer of raw heading samples. The oldest
// sample is evicted when a push exceeds capacity.
type Ring struct {
	data []float64
	pos  int
	full bool
}

// NewRing creates a Ring with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{data: make([]float64, capacity)}
}

// Push adds a sample, evicting the oldest if the ring is full.
func (r *Ring) Push(v float64) {
	r.data[r.pos] = v
	r.pos++
	if r.pos >= len(r.data) {
		r.pos = 0
		r.full = true
	}
}

// Len returns the number of samples held.
func (r *Ring) Len() int {
	if r.full {
		return len(r.data)
	}
	return r.pos
}

// Values returns the held samples in insertion order.
func (r *Ring) Values() []float64 {
	n := r.Len()
	out := make([]float64, n)
	if r.full {
		copy(out, r.data[r.pos:])
		copy(out[len(r.data)-r.pos:], r.data[:r.pos])
	} else {
		copy(out, r.data[:r.pos])
	}
	return out
}

// Reset discards all samples.
func (r *Ring) Reset() {
	r.pos = 0
	r.full = false
}
