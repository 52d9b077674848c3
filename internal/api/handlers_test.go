package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"windrose/pkg/compass"
	"windrose/pkg/geo"
	"windrose/pkg/layout"
	"windrose/pkg/model"
	"windrose/pkg/tracker"
)

type fakeSearcher struct {
	buildings  []model.Building
	err        error
	lastOrigin geo.Point
	lastRadius float64
}

func (f *fakeSearcher) Search(_ context.Context, origin geo.Point, radius float64) ([]model.Building, error) {
	f.lastOrigin = origin
	f.lastRadius = radius
	return f.buildings, f.err
}

var testBuildings = []model.Building{
	{ID: "a", Label: "Office", Category: "office", Lat: 35.6580, Lon: 139.7041},
	{ID: "b", Label: "Cafe", Category: "cafe", Lat: 35.6575, Lon: 139.7037},
}

func TestBuildingsHandler(t *testing.T) {
	fake := &fakeSearcher{buildings: testBuildings}
	h := NewBuildingsHandler(fake, 400)

	req := httptest.NewRequest(http.MethodGet, "/api/buildings?lat=35.6570&lng=139.7031", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp BuildingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Buildings, 2)
	assert.InDelta(t, 400, resp.Radius, 1e-9)
	assert.InDelta(t, 35.6570, fake.lastOrigin.Lat, 1e-9)
	assert.InDelta(t, 400, fake.lastRadius, 1e-9)
}

func TestBuildingsHandlerCustomRadius(t *testing.T) {
	fake := &fakeSearcher{}
	h := NewBuildingsHandler(fake, 400)

	req := httptest.NewRequest(http.MethodGet, "/api/buildings?lat=1&lng=2&radius=750", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 750, fake.lastRadius, 1e-9)
}

func TestBuildingsHandlerBadParams(t *testing.T) {
	h := NewBuildingsHandler(&fakeSearcher{}, 400)

	for _, target := range []string{
		"/api/buildings",
		"/api/buildings?lat=abc&lng=1",
		"/api/buildings?lat=1&lng=2&radius=-5",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		h.Handle(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestBuildingsHandlerUpstreamFailure(t *testing.T) {
	h := NewBuildingsHandler(&fakeSearcher{err: errors.New("boom")}, 400)

	req := httptest.NewRequest(http.MethodGet, "/api/buildings?lat=1&lng=2", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestLayoutHandler(t *testing.T) {
	fake := &fakeSearcher{buildings: testBuildings}
	h := NewLayoutHandler(fake, layout.New(0, nil), 400)

	req := httptest.NewRequest(http.MethodGet, "/api/layout?lat=35.6570&lng=139.7031&heading=90", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp LayoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 90, resp.HeadingDeg, 1e-9)
	require.Len(t, resp.Buildings, 2)
	assert.Len(t, resp.Cardinals, 8)

	// Heading 90 puts the ~39° building to the left of center.
	for _, e := range resp.Buildings {
		if e.Building.ID == "a" {
			assert.Less(t, e.RelativeAngle, 0.0)
		}
	}
}

func TestLayoutHandlerDefaultsHeadingNorth(t *testing.T) {
	h := NewLayoutHandler(&fakeSearcher{buildings: testBuildings}, layout.New(0, nil), 400)

	req := httptest.NewRequest(http.MethodGet, "/api/layout?lat=35.6570&lng=139.7031", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp LayoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.HeadingDeg)
}

func TestStatsHandler(t *testing.T) {
	tr := tracker.New()
	tr.TrackRequest("overpass")

	h := NewStatsHandler(tr, compass.NewManager())

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Sessions)
	assert.Equal(t, int64(1), resp.Providers["overpass"].Requests)
}
