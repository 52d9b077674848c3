package api

import (
	"context"
	"net/http"
	"strconv"

	"windrose/pkg/geo"
	"windrose/pkg/model"
)

// BuildingSearcher matches the building provider's Search method.
type BuildingSearcher interface {
	Search(ctx context.Context, origin geo.Point, radiusMeters float64) ([]model.Building, error)
}

// BuildingsHandler proxies the upstream spatial query service.
type BuildingsHandler struct {
	provider      BuildingSearcher
	defaultRadius float64
}

func NewBuildingsHandler(provider BuildingSearcher, defaultRadius float64) *BuildingsHandler {
	return &BuildingsHandler{provider: provider, defaultRadius: defaultRadius}
}

// BuildingsResponse is the API response structure.
type BuildingsResponse struct {
	Buildings []model.Building `json:"buildings"`
	Radius    float64          `json:"radius"`
}

func (h *BuildingsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	lat, lng, ok := parseLatLng(r)
	if !ok {
		http.Error(w, "Invalid lat/lng", http.StatusBadRequest)
		return
	}

	radius := h.defaultRadius
	if s := r.URL.Query().Get("radius"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			http.Error(w, "Invalid radius", http.StatusBadRequest)
			return
		}
		radius = v
	}

	buildings, err := h.provider.Search(r.Context(), geo.Point{Lat: lat, Lon: lng}, radius)
	if err != nil {
		http.Error(w, "Upstream query failed", http.StatusBadGateway)
		return
	}
	if buildings == nil {
		buildings = []model.Building{}
	}

	writeJSON(w, BuildingsResponse{Buildings: buildings, Radius: radius})
}

func parseLatLng(r *http.Request) (lat, lng float64, ok bool) {
	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")

	lat, err1 := strconv.ParseFloat(latStr, 64)
	lng, err2 := strconv.ParseFloat(lngStr, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lng, true
}
