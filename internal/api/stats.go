package api

import (
	"net/http"

	"windrose/pkg/compass"
	"windrose/pkg/tracker"
	"windrose/pkg/version"
)

// StatsHandler exposes request counters and session counts.
type StatsHandler struct {
	tracker *tracker.Tracker
	mgr     *compass.Manager
}

func NewStatsHandler(t *tracker.Tracker, mgr *compass.Manager) *StatsHandler {
	return &StatsHandler{tracker: t, mgr: mgr}
}

// StatsResponse is the API response structure.
type StatsResponse struct {
	Version   string                           `json:"version"`
	Sessions  int                              `json:"sessions"`
	Providers map[string]tracker.ProviderStats `json:"providers"`
}

func (h *StatsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StatsResponse{
		Version:   version.Version,
		Sessions:  h.mgr.Count(),
		Providers: h.tracker.Snapshot(),
	})
}
