package heading

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"windrose/pkg/sensor"
)

func TestCircularMean(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{name: "Wraparound", in: []float64{350, 10}, want: 0},
		{name: "Simple", in: []float64{80, 100}, want: 90},
		{name: "Single", in: []float64{123}, want: 123},
		{name: "Wraparound skewed", in: []float64{355, 355, 5}, want: 358.33},
		{name: "South cluster", in: []float64{170, 190}, want: 180},
		{name: "Empty", in: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CircularMean(tt.in)
			assert.InDelta(t, tt.want, got, 0.01)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.Less(t, got, 360.0)
		})
	}
}

func TestEstimatorSmoothedNilUntilFirstSample(t *testing.T) {
	e := New(nil, Config{ResampleInterval: 2 * time.Millisecond})
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	time.Sleep(20 * time.Millisecond)
	_, ok := e.Smoothed()
	assert.False(t, ok, "no raw sample yet, smoothed must be unset")

	e.IngestRaw(42)
	assert.Eventually(t, func() bool {
		deg, ok := e.Smoothed()
		return ok && math.Abs(deg-42) < 0.01
	}, time.Second, 2*time.Millisecond)
}

func TestEstimatorWraparoundSmoothing(t *testing.T) {
	// Resampling repeatedly pushes the latest raw value, so alternate the raw
	// value across ticks to fill the history with both sides of north.
	e := New(nil, Config{ResampleInterval: 2 * time.Millisecond, HistorySize: 12})
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	deadline := time.Now().Add(time.Second)
	flip := false
	for time.Now().Before(deadline) {
		if flip {
			e.IngestRaw(350)
		} else {
			e.IngestRaw(10)
		}
		flip = !flip
		time.Sleep(3 * time.Millisecond)

		if deg, ok := e.Smoothed(); ok {
			// Smoothed value must stay near north, never near 180.
			d := math.Min(deg, 360-deg)
			assert.Less(t, d, 15.0, "smoothed heading drifted to %v", deg)
		}
	}
}

func TestEstimatorStopClearsHistory(t *testing.T) {
	e := New(nil, Config{ResampleInterval: 2 * time.Millisecond})
	require.NoError(t, e.Start(context.Background()))

	e.IngestRaw(90)
	assert.Eventually(t, func() bool {
		_, ok := e.Smoothed()
		return ok
	}, time.Second, 2*time.Millisecond)

	e.Stop()
	assert.Equal(t, StateIdle, e.State())
	_, ok := e.Smoothed()
	assert.False(t, ok, "stop must discard the smoothed value")

	// Restart begins empty.
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()
	_, ok = e.Smoothed()
	assert.False(t, ok)
}

func TestEstimatorConsentDeniedStaysIdle(t *testing.T) {
	src := sensor.NewRemoteSource()
	src.SetConsent(false)

	e := New(src, Config{ResampleInterval: 2 * time.Millisecond})
	err := e.Start(context.Background())
	require.ErrorIs(t, err, sensor.ErrPermissionDenied)
	assert.Equal(t, StateIdle, e.State())
	assert.ErrorIs(t, e.Err(), sensor.ErrPermissionDenied)

	// Consent granted later clears the error without a full restart.
	src.SetConsent(true)
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()
	assert.Equal(t, StateListening, e.State())
	assert.NoError(t, e.Err())
}

func TestEstimatorUnsupportedSensor(t *testing.T) {
	src := sensor.NewRemoteSource()
	src.SetUnsupported()

	e := New(src, Config{})
	err := e.Start(context.Background())
	require.ErrorIs(t, err, sensor.ErrUnsupported)
	assert.Equal(t, StateIdle, e.State())
}

func TestEstimatorConsumesSourceSamples(t *testing.T) {
	src := sensor.NewRemoteSource()
	src.SetConsent(true)

	e := New(src, Config{ResampleInterval: 2 * time.Millisecond})
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	src.Push(270)
	assert.Eventually(t, func() bool {
		deg, ok := e.Smoothed()
		return ok && math.Abs(deg-270) < 0.01
	}, time.Second, 2*time.Millisecond)
}

func TestEstimatorWithSweepingSource(t *testing.T) {
	src := sensor.NewMockSource(10, 30, time.Millisecond)

	e := New(src, Config{HistorySize: 4, ResampleInterval: 2 * time.Millisecond})
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	// The sweep moves ~30°/s, so within a second the smoothed heading
	// should settle in a narrow band past the start value.
	assert.Eventually(t, func() bool {
		deg, ok := e.Smoothed()
		return ok && deg > 10 && deg < 60
	}, time.Second, 5*time.Millisecond)
}

func TestEstimatorConcurrentStop(t *testing.T) {
	// A disconnect teardown can race a server-wide shutdown; both call Stop.
	for i := 0; i < 200; i++ {
		src := sensor.NewRemoteSource()
		src.SetConsent(true)

		e := New(src, Config{ResampleInterval: time.Millisecond})
		require.NoError(t, e.Start(context.Background()))

		var wg sync.WaitGroup
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				e.Stop()
			}()
		}
		wg.Wait()
		assert.Equal(t, StateIdle, e.State())
	}
}
