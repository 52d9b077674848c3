package sensor

import (
	"context"
	"math"
	"sync"
	"time"
)

// MockSource generates a smooth sweeping heading for tests and -mock runs.
type MockSource struct {
	mu       sync.Mutex
	interval time.Duration
	rate     float64 // degrees per second
	start    float64
	cancel   context.CancelFunc
}

// NewMockSource creates a mock source sweeping at rate degrees per second,
// emitting a sample every interval.
func NewMockSource(start, rate float64, interval time.Duration) *MockSource {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &MockSource{interval: interval, rate: rate, start: start}
}

func (m *MockSource) Start(ctx context.Context) (<-chan Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, m.cancel = context.WithCancel(ctx)
	out := make(chan Sample, 1)

	go func() {
		defer close(out)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		began := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				deg := math.Mod(m.start+m.rate*now.Sub(began).Seconds(), 360)
				if deg < 0 {
					deg += 360
				}
				select {
				case out <- Sample{Degrees: deg, At: now}:
				default:
					// Consumer is behind, drop the sample.
				}
			}
		}
	}()

	return out, nil
}

func (m *MockSource) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}
