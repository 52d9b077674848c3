// Package sensor abstracts the platform orientation sensor.
package sensor

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnsupported is returned when the platform has no orientation sensor.
	ErrUnsupported = errors.New("orientation sensor not supported")
	// ErrPermissionDenied is returned when the user declined the orientation consent prompt.
	ErrPermissionDenied = errors.New("orientation permission denied")
)

// Sample is a single raw heading reading in degrees [0,360).
type Sample struct {
	Degrees float64
	At      time.Time
}

// Source delivers raw heading samples at a platform-driven, irregular cadence.
type Source interface {
	// Start begins sample delivery. It returns ErrUnsupported or
	// ErrPermissionDenied when no samples will ever arrive.
	Start(ctx context.Context) (<-chan Sample, error)
	// Stop ends delivery and releases the sample channel.
	Stop()
}
