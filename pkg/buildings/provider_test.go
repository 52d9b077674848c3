package buildings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"windrose/pkg/cache"
	"windrose/pkg/geo"
	"windrose/pkg/request"
)

const fixtureFC = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "way/111",
      "properties": {"name": "Shibuya Stream", "category": "office"},
      "geometry": {"type": "Point", "coordinates": [139.7032, 35.6571]}
    },
    {
      "type": "Feature",
      "properties": {},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[
          [139.7033, 35.6573], [139.7035, 35.6573],
          [139.7035, 35.6575], [139.7033, 35.6575],
          [139.7033, 35.6573]
        ]]
      }
    },
    {
      "type": "Feature",
      "id": "way/333",
      "properties": {"name": "Tokyo Tower", "category": "tower"},
      "geometry": {"type": "Point", "coordinates": [139.7454, 35.6586]}
    }
  ]
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*Provider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := request.New(request.ClientConfig{Timeout: time.Second}, nil, nil)
	return New(client, srv.URL), srv
}

func TestSearchShapesFeatures(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("lat"))
		assert.NotEmpty(t, r.URL.Query().Get("lng"))
		assert.Equal(t, "400", r.URL.Query().Get("radius"))
		w.Write([]byte(fixtureFC))
	})

	origin := geo.Point{Lat: 35.6570, Lon: 139.7031}
	got, err := p.Search(context.Background(), origin, 400)
	require.NoError(t, err)

	// Tokyo Tower (~3.8km away) is outside the radius.
	require.Len(t, got, 2)

	assert.Equal(t, "way/111", got[0].ID)
	assert.Equal(t, "Shibuya Stream", got[0].Label)
	assert.Equal(t, "office", got[0].Category)

	// The unnamed polygon gets the placeholder label and its centroid.
	assert.Equal(t, PlaceholderLabel, got[1].Label)
	assert.Equal(t, "building", got[1].Category)
	assert.InDelta(t, 35.6574, got[1].Lat, 0.0001)
	assert.InDelta(t, 139.7034, got[1].Lon, 0.0001)

	// Nearest first.
	d0 := geo.Distance(origin, geo.Point{Lat: got[0].Lat, Lon: got[0].Lon})
	d1 := geo.Distance(origin, geo.Point{Lat: got[1].Lat, Lon: got[1].Lon})
	assert.LessOrEqual(t, d0, d1)
}

func TestSearchUpstreamError(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := p.Search(context.Background(), geo.Point{Lat: 35.6570, Lon: 139.7031}, 400)
	assert.Error(t, err)
}

func TestSearchMalformedResponse(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not geojson"))
	})

	_, err := p.Search(context.Background(), geo.Point{Lat: 35.6570, Lon: 139.7031}, 400)
	assert.Error(t, err)
}

func TestSearchCachesByCell(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(fixtureFC))
	}))
	t.Cleanup(srv.Close)

	client := request.New(request.ClientConfig{Timeout: time.Second}, cache.NewMemory(time.Minute), nil)
	p := New(client, srv.URL)

	origin := geo.Point{Lat: 35.6570, Lon: 139.7031}
	_, err := p.Search(context.Background(), origin, 400)
	require.NoError(t, err)
	_, err = p.Search(context.Background(), origin, 400)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "same cell and radius must hit the cache")
}

func TestCacheKey(t *testing.T) {
	origin := geo.Point{Lat: 35.6570, Lon: 139.7031}

	assert.Equal(t, cacheKey(origin, 400), cacheKey(origin, 400))
	assert.NotEqual(t, cacheKey(origin, 400), cacheKey(origin, 1500), "radius is part of the key")

	far := geo.Point{Lat: 48.8566, Lon: 2.3522}
	assert.NotEqual(t, cacheKey(origin, 400), cacheKey(far, 400))
}
