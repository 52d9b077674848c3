// Package buildings fetches nearby buildings from the upstream spatial query
// service and shapes them into the core's building list.
package buildings

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	h3 "github.com/uber/h3-go/v4"

	"windrose/pkg/geo"
	"windrose/pkg/model"
	"windrose/pkg/request"
)

// PlaceholderLabel is assigned to unnamed features so the radial view can
// hide them while the list view still shows them.
const PlaceholderLabel = "Building"

// DefaultRadiusMeters is used when a query does not specify a radius.
const DefaultRadiusMeters = 400.0

// Provider queries the upstream service.
type Provider struct {
	client  *request.Client
	baseURL string
}

// New creates a Provider against the given endpoint. The endpoint is expected
// to answer GET {base}?lat&lng&radius with a GeoJSON FeatureCollection.
func New(client *request.Client, baseURL string) *Provider {
	return &Provider{client: client, baseURL: baseURL}
}

// Search returns the buildings within radiusMeters of origin, nearest first.
// Responses are reused across nearby origins via an H3-cell cache key; the
// reuse is purely in-memory request coalescing.
func (p *Provider) Search(ctx context.Context, origin geo.Point, radiusMeters float64) ([]model.Building, error) {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.6f", origin.Lat))
	q.Set("lng", fmt.Sprintf("%.6f", origin.Lon))
	q.Set("radius", fmt.Sprintf("%.0f", radiusMeters))
	u := p.baseURL + "?" + q.Encode()

	body, err := p.client.Get(ctx, u, cacheKey(origin, radiusMeters))
	if err != nil {
		return nil, fmt.Errorf("building fetch failed: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse building response: %w", err)
	}

	buildings := make([]model.Building, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		center, _ := planar.CentroidArea(f.Geometry)

		b := model.Building{
			ID:       featureID(f, i),
			Label:    stringProp(f.Properties, "name"),
			Category: stringProp(f.Properties, "category"),
			Address:  stringProp(f.Properties, "address"),
			Lat:      center[1],
			Lon:      center[0],
		}
		if b.Label == "" {
			b.Label = PlaceholderLabel
		}
		if b.Category == "" {
			b.Category = "building"
		}

		if geo.Distance(origin, geo.Point{Lat: b.Lat, Lon: b.Lon}) > radiusMeters {
			continue
		}
		buildings = append(buildings, b)
	}

	sort.SliceStable(buildings, func(a, b int) bool {
		da := geo.Distance(origin, geo.Point{Lat: buildings[a].Lat, Lon: buildings[a].Lon})
		db := geo.Distance(origin, geo.Point{Lat: buildings[b].Lat, Lon: buildings[b].Lon})
		return da < db
	})

	return buildings, nil
}

// cacheKey buckets the origin into an H3 cell sized to the query radius, so
// repeated queries while the user drifts within a cell share one response.
func cacheKey(origin geo.Point, radiusMeters float64) string {
	res := 7
	switch {
	case radiusMeters <= 500:
		res = 9
	case radiusMeters <= 2000:
		res = 8
	}

	cell, err := h3.LatLngToCell(h3.NewLatLng(origin.Lat, origin.Lon), res)
	if err != nil {
		// Degrade to a rounded-coordinate key rather than skip caching.
		return fmt.Sprintf("bld_%.3f_%.3f_%.0f", origin.Lat, origin.Lon, radiusMeters)
	}
	return fmt.Sprintf("bld_%s_%.0f", cell.String(), radiusMeters)
}

func featureID(f *geojson.Feature, idx int) string {
	switch id := f.ID.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return fmt.Sprintf("%.0f", id)
	}
	if s := stringProp(f.Properties, "id"); s != "" {
		return s
	}
	return fmt.Sprintf("f%d", idx)
}

// stringProp safely extracts a string property from GeoJSON properties.
func stringProp(props geojson.Properties, key string) string {
	if val, ok := props[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}
