// Package model holds the shared data types exchanged between the core
// engines and the API layer.
package model

// Building represents a single building returned by the upstream spatial query.
// It is produced at the fetch boundary and read-only everywhere else.
type Building struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Category string  `json:"category"`
	Address  string  `json:"address,omitempty"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lng"`
}

// LayoutEntry is the screen placement computed for one building.
type LayoutEntry struct {
	Building        Building `json:"building"`
	BearingDeg      float64  `json:"bearing_deg"`
	DistanceMeters  float64  `json:"distance_m"`
	RelativeAngle   float64  `json:"relative_angle"`
	ScreenXFraction float64  `json:"screen_x_fraction"`
	VerticalRank    int      `json:"vertical_rank"`
	ScreenYOffset   float64  `json:"screen_y_offset"`
	Near            bool     `json:"near"`
}

// CardinalEntry is the screen placement for one fixed compass marker.
type CardinalEntry struct {
	Label           string  `json:"label"`
	BearingDeg      float64 `json:"bearing_deg"`
	RelativeAngle   float64 `json:"relative_angle"`
	ScreenXFraction float64 `json:"screen_x_fraction"`
}

// Frame is the per-tick snapshot streamed to a connected view.
type Frame struct {
	HeadingDeg   float64         `json:"heading_deg"`
	HeadingValid bool            `json:"heading_valid"`
	OriginLat    float64         `json:"origin_lat"`
	OriginLon    float64         `json:"origin_lng"`
	OriginValid  bool            `json:"origin_valid"`
	Buildings    []LayoutEntry   `json:"buildings"`
	Cardinals    []CardinalEntry `json:"cardinals"`
	Notices      []Notice        `json:"notices,omitempty"`
}

// Notice is a non-fatal advisory surfaced to the view (sensor unavailable,
// location fallback in effect, fetch failure).
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Notice kinds.
const (
	NoticeSensorUnsupported = "sensor_unsupported"
	NoticeConsentDenied     = "consent_denied"
	NoticeLocationFallback  = "location_fallback"
	NoticeFetchFailed       = "fetch_failed"
)
