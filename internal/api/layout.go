package api

import (
	"net/http"
	"strconv"

	"windrose/pkg/geo"
	"windrose/pkg/layout"
	"windrose/pkg/model"
)

// LayoutHandler computes a one-shot radial layout for a given origin and
// heading, fetching the building list on demand.
type LayoutHandler struct {
	provider      BuildingSearcher
	engine        *layout.Engine
	defaultRadius float64
}

func NewLayoutHandler(provider BuildingSearcher, engine *layout.Engine, defaultRadius float64) *LayoutHandler {
	return &LayoutHandler{provider: provider, engine: engine, defaultRadius: defaultRadius}
}

// LayoutResponse is the API response structure.
type LayoutResponse struct {
	HeadingDeg float64               `json:"heading_deg"`
	Buildings  []model.LayoutEntry   `json:"buildings"`
	Cardinals  []model.CardinalEntry `json:"cardinals"`
}

func (h *LayoutHandler) Handle(w http.ResponseWriter, r *http.Request) {
	lat, lng, ok := parseLatLng(r)
	if !ok {
		http.Error(w, "Invalid lat/lng", http.StatusBadRequest)
		return
	}

	headingDeg := 0.0
	if s := r.URL.Query().Get("heading"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			http.Error(w, "Invalid heading", http.StatusBadRequest)
			return
		}
		headingDeg = geo.NormalizeAngle(v)
		if headingDeg < 0 {
			headingDeg += 360
		}
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

	origin := geo.Point{Lat: lat, Lon: lng}
	buildings, err := h.provider.Search(r.Context(), origin, radius)
	if err != nil {
		http.Error(w, "Upstream query failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, LayoutResponse{
		HeadingDeg: headingDeg,
		Buildings:  h.engine.Compute(origin, headingDeg, buildings),
		Cardinals:  h.engine.Cardinals(headingDeg),
	})
}
