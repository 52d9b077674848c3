package sensor

import (
	"context"
	"sync"
	"time"
)

// RemoteSource is fed by a connected client relaying its platform orientation
// events. The client reports the consent/capability outcome before any
// samples flow.
type RemoteSource struct {
	mu          sync.Mutex
	granted     bool
	reported    bool
	unsupported bool
	out         chan Sample
	started     bool
}

// NewRemoteSource creates a RemoteSource awaiting a consent report.
func NewRemoteSource() *RemoteSource {
	return &RemoteSource{}
}

// SetConsent records the client's consent prompt outcome.
func (r *RemoteSource) SetConsent(granted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reported = true
	r.granted = granted
	r.unsupported = false
}

// SetUnsupported records that the client has no orientation sensor.
func (r *RemoteSource) SetUnsupported() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reported = true
	r.unsupported = true
}

func (r *RemoteSource) Start(ctx context.Context) (<-chan Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unsupported {
		return nil, ErrUnsupported
	}
	if !r.reported || !r.granted {
		return nil, ErrPermissionDenied
	}

	r.out = make(chan Sample, 8)
	r.started = true
	return r.out, nil
}

// Push delivers a raw sample from the client. Samples arriving while the
// source is not started are dropped.
func (r *RemoteSource) Push(degrees float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	select {
	case r.out <- Sample{Degrees: degrees, At: time.Now()}:
	default:
	}
}

func (r *RemoteSource) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = false
}
