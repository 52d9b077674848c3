// Package heading turns a noisy, irregular stream of raw compass readings
// into a temporally stable smoothed heading.
package heading

import (
	"context"
	"math"
	"sync"
	"time"

	"windrose/pkg/sensor"
)

// State represents the estimator lifecycle.
type State string

const (
	// StateIdle indicates no resampling loop is running.
	StateIdle State = "idle"
	// StateListening indicates samples are being consumed and resampled.
	StateListening State = "listening"
)

// Defaults.
const (
	DefaultHistorySize      = 12
	DefaultResampleInterval = 16 * time.Millisecond // ~60 Hz
)

// Config holds estimator tuning.
type Config struct {
	HistorySize      int
	ResampleInterval time.Duration
}

// Estimator maintains a bounded history of raw samples and recomputes the
// circular mean on a fixed-rate loop, decoupled from sample arrival cadence.
type Estimator struct {
	mu      sync.Mutex
	src     sensor.Source
	history *Ring

	raw    float64
	hasRaw bool

	smoothed    float64
	hasSmoothed bool

	state  State
	err    error
	cancel context.CancelFunc
	done   chan struct{}

	interval time.Duration
	size     int
}

// New creates an Estimator reading from src. A nil src is allowed; samples
// are then expected via IngestRaw.
func New(src sensor.Source, cfg Config) *Estimator {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if cfg.ResampleInterval <= 0 {
		cfg.ResampleInterval = DefaultResampleInterval
	}
	return &Estimator{
		src:      src,
		history:  NewRing(cfg.HistorySize),
		state:    StateIdle,
		interval: cfg.ResampleInterval,
		size:     cfg.HistorySize,
	}
}

// Start transitions Idle -> Listening, clearing any previous history.
// A source that reports unsupported/denied leaves the estimator Idle with the
// error retrievable via Err; a later successful Start clears it.
func (e *Estimator) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateListening {
		e.mu.Unlock()
		return nil
	}

	var samples <-chan sensor.Sample
	if e.src != nil {
		var err error
		samples, err = e.src.Start(ctx)
		if err != nil {
			e.err = err
			e.mu.Unlock()
			return err
		}
	}

	e.err = nil
	e.history.Reset()
	e.hasRaw = false
	e.hasSmoothed = false
	e.state = StateListening

	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	done := e.done
	e.mu.Unlock()

	go e.run(ctx, samples, done)
	return nil
}

// IngestRaw records the latest raw heading sample. It never triggers a
// recomputation; the fixed-rate loop picks the value up on its next tick.
func (e *Estimator) IngestRaw(deg float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.raw = math.Mod(math.Mod(deg, 360)+360, 360)
	e.hasRaw = true
}

// Smoothed returns the current smoothed heading in [0,360). ok is false until
// the first tick after the first raw sample has arrived.
func (e *Estimator) Smoothed() (deg float64, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.smoothed, e.hasSmoothed
}

// State returns the current lifecycle state.
func (e *Estimator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the sticky sensor error, if any.
func (e *Estimator) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Stop cancels the resampling loop and discards the history. The next Start
// begins empty. Safe to call on every exit path, including when Idle.
func (e *Estimator) Stop() {
	e.mu.Lock()
	// A nil cancel while Listening means another Stop is already draining
	// the loop; it will finish the teardown.
	if e.state != StateListening || e.cancel == nil {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	done := e.done
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	cancel()
	<-done

	if e.src != nil {
		e.src.Stop()
	}

	e.mu.Lock()
	e.state = StateIdle
	e.history.Reset()
	e.hasRaw = false
	e.hasSmoothed = false
	e.mu.Unlock()
}

func (e *Estimator) run(ctx context.Context, samples <-chan sensor.Sample, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-samples:
			if !ok {
				samples = nil
				continue
			}
			e.IngestRaw(s.Degrees)
		case <-ticker.C:
			e.resample()
		}
	}
}

// resample pushes the latest raw value onto the history and recomputes the
// smoothed heading. A no-op until the first raw sample arrives.
func (e *Estimator) resample() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasRaw {
		return
	}
	e.history.Push(e.raw)
	e.smoothed = CircularMean(e.history.Values())
	e.hasSmoothed = true
}

// CircularMean averages angles in degrees via their sine/cosine components,
// so that e.g. mean(350, 10) is 0 rather than 180. Result is in [0,360).
func CircularMean(degs []float64) float64 {
	if len(degs) == 0 {
		return 0
	}
	var sinSum, cosSum float64
	for _, d := range degs {
		rad := d * (math.Pi / 180.0)
		sinSum += math.Sin(rad)
		cosSum += math.Cos(rad)
	}
	n := float64(len(degs))
	mean := math.Atan2(sinSum/n, cosSum/n) * (180.0 / math.Pi)
	return math.Mod(mean+360, 360)
}
