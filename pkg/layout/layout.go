// Package layout projects real-world bearings into a deconflicted horizontal
// compass display.
package layout

import (
	"math"
	"sort"

	"windrose/pkg/geo"
	"windrose/pkg/model"
)

const (
	// NearDistanceMeters is the proximity threshold for visual emphasis.
	NearDistanceMeters = 100.0

	// rankCycle bounds vertical stacking; ranks wrap back to the top.
	rankCycle = 20

	// DefaultMarkerSpacing is the vertical distance between stacked markers.
	DefaultMarkerSpacing = 28.0
)

// cardinals are the eight fixed compass markers.
var cardinals = []struct {
	label   string
	bearing float64
}{
	{"N", 0}, {"NE", 45}, {"E", 90}, {"SE", 135},
	{"S", 180}, {"SW", 225}, {"W", 270}, {"NW", 315},
}

// RelativeAngle returns the signed shortest angular offset of bearing from
// heading, in (-180,180]. The +540 keeps the mod operand non-negative for
// all inputs in [0,360).
func RelativeAngle(bearing, heading float64) float64 {
	r := math.Mod(bearing-heading+540, 360) - 180
	if r == -180 {
		r = 180
	}
	return r
}

// ScreenXFraction maps a relative angle to a horizontal offset from the
// center of a view spanning the full ±180° field.
func ScreenXFraction(relativeAngle float64) float64 {
	return relativeAngle / 180 * 0.5
}

// Engine computes screen placements for buildings and cardinal markers.
type Engine struct {
	spacing      float64
	placeholders map[string]struct{}
}

// New creates an Engine. Buildings whose label matches one of
// placeholderLabels are hidden from the marker set (display-only filter; the
// underlying building data is untouched).
func New(spacing float64, placeholderLabels []string) *Engine {
	if spacing <= 0 {
		spacing = DefaultMarkerSpacing
	}
	e := &Engine{
		spacing:      spacing,
		placeholders: make(map[string]struct{}, len(placeholderLabels)),
	}
	for _, l := range placeholderLabels {
		e.placeholders[l] = struct{}{}
	}
	return e
}

// Compute returns one LayoutEntry per visible building. VerticalRank is the
// building's index in ascending-absolute-bearing order, so it is stable as
// the heading changes. An empty building list yields an empty layout.
func (e *Engine) Compute(origin geo.Point, headingDeg float64, buildings []model.Building) []model.LayoutEntry {
	entries := make([]model.LayoutEntry, 0, len(buildings))
	for _, b := range buildings {
		if _, hidden := e.placeholders[b.Label]; hidden {
			continue
		}
		target := geo.Point{Lat: b.Lat, Lon: b.Lon}
		brng := geo.Bearing(origin, target)
		dist := geo.Distance(origin, target)
		rel := RelativeAngle(brng, headingDeg)
		entries = append(entries, model.LayoutEntry{
			Building:        b,
			BearingDeg:      brng,
			DistanceMeters:  dist,
			RelativeAngle:   rel,
			ScreenXFraction: ScreenXFraction(rel),
			Near:            dist <= NearDistanceMeters,
		})
	}

	e.assignRanks(entries)
	return entries
}

// assignRanks orders entries by absolute bearing and assigns each its index
// as the vertical deconfliction rank. Ties break on input order, so two
// near-identical bearings still receive distinct ranks.
func (e *Engine) assignRanks(entries []model.LayoutEntry) {
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return entries[order[a]].BearingDeg < entries[order[b]].BearingDeg
	})

	for rank, idx := range order {
		entries[idx].VerticalRank = rank
		entries[idx].ScreenYOffset = float64(rank%rankCycle)*e.spacing - e.spacing*rankCycle/2
	}
}

// Cardinals returns the screen placement of the eight fixed compass markers
// for the given heading.
func (e *Engine) Cardinals(headingDeg float64) []model.CardinalEntry {
	out := make([]model.CardinalEntry, 0, len(cardinals))
	for _, c := range cardinals {
		rel := RelativeAngle(c.bearing, headingDeg)
		out = append(out, model.CardinalEntry{
			Label:           c.label,
			BearingDeg:      c.bearing,
			RelativeAngle:   rel,
			ScreenXFraction: ScreenXFraction(rel),
		})
	}
	return out
}
