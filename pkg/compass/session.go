// Package compass owns the per-view session: one heading estimator, the
// resolved origin, the fetched building list, and the recoverable error
// flags, combined into per-frame snapshots.
package compass

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"windrose/pkg/geo"
	"windrose/pkg/heading"
	"windrose/pkg/layout"
	"windrose/pkg/model"
	"windrose/pkg/sensor"
)

// Session is the state of one connected compass view. Each view gets its own
// estimator so independent views (and tests) can coexist.
type Session struct {
	mu sync.Mutex

	id  string
	est *heading.Estimator
	eng *layout.Engine

	origin         geo.Point
	originSet      bool
	originFallback bool
	locationReason string

	buildings []model.Building
	fetchErr  error
}

// NewSession creates a Session around the given estimator and layout engine.
func NewSession(est *heading.Estimator, eng *layout.Engine) *Session {
	return &Session{
		id:  uuid.NewString(),
		est: est,
		eng: eng,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// StartHeading begins orientation tracking. Consent/capability failures leave
// the estimator idle; the failure is surfaced as a frame notice, and
// location-based search continues regardless.
func (s *Session) StartHeading(ctx context.Context) error {
	return s.est.Start(ctx)
}

// IngestHeading records a raw heading sample from the client.
func (s *Session) IngestHeading(deg float64) {
	s.est.IngestRaw(deg)
}

// SetOrigin records the resolved user coordinate. fallback marks a coordinate
// substituted after a geolocation failure; a later real fix clears the flag.
func (s *Session) SetOrigin(p geo.Point, fallback bool, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.origin = p
	s.originSet = true
	s.originFallback = fallback
	s.locationReason = reason
	if !fallback {
		s.locationReason = ""
	}
}

// SetBuildings stores a successful fetch result and clears any fetch error.
func (s *Session) SetBuildings(list []model.Building) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buildings = list
	s.fetchErr = nil
}

// SetFetchError records an upstream fetch failure. The previous building list
// is kept; the failure is surfaced as a frame notice.
func (s *Session) SetFetchError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr = err
}

// Buildings returns the current building list.
func (s *Session) Buildings() []model.Building {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildings
}

// Origin returns the current origin, if one has been set.
func (s *Session) Origin() (geo.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.origin, s.originSet
}

// Frame builds the current snapshot. It is a pure function of current state:
// without a smoothed heading yet, layout is computed as if facing north and
// flagged invalid so the view can suppress heading-relative UI.
func (s *Session) Frame() model.Frame {
	headingDeg, headingOK := s.est.Smoothed()
	if !headingOK {
		headingDeg = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f := model.Frame{
		HeadingDeg:   headingDeg,
		HeadingValid: headingOK,
		OriginLat:    s.origin.Lat,
		OriginLon:    s.origin.Lon,
		OriginValid:  s.originSet,
		Cardinals:    s.eng.Cardinals(headingDeg),
	}

	if s.originSet {
		f.Buildings = s.eng.Compute(s.origin, headingDeg, s.buildings)
	} else {
		f.Buildings = []model.LayoutEntry{}
	}

	f.Notices = s.notices()
	return f
}

// notices assembles the non-fatal advisories. Caller holds s.mu.
func (s *Session) notices() []model.Notice {
	var out []model.Notice

	switch err := s.est.Err(); {
	case err == nil:
	case errors.Is(err, sensor.ErrUnsupported):
		out = append(out, model.Notice{Kind: model.NoticeSensorUnsupported, Message: err.Error()})
	case errors.Is(err, sensor.ErrPermissionDenied):
		out = append(out, model.Notice{Kind: model.NoticeConsentDenied, Message: err.Error()})
	default:
		out = append(out, model.Notice{Kind: model.NoticeSensorUnsupported, Message: err.Error()})
	}

	if s.originFallback {
		out = append(out, model.Notice{Kind: model.NoticeLocationFallback, Message: s.locationReason})
	}
	if s.fetchErr != nil {
		out = append(out, model.Notice{Kind: model.NoticeFetchFailed, Message: s.fetchErr.Error()})
	}
	return out
}

// Close stops orientation tracking. Safe on every exit path.
func (s *Session) Close() {
	s.est.Stop()
}
