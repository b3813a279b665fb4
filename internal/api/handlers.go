package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chromasky/internal/metrics"
	"chromasky/internal/models"
)

type pointResponse struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"location"`
	Event          models.Event        `json:"event"`
	Instant        time.Time           `json:"instant"`
	Score          float64             `json:"chromasky_score"`
	Breakdown      models.FactorScores `json:"breakdown"`
	Recommendation string              `json:"recommendation"`
}

// handlePointQuery computes the index for a single location, the
// pointwise path that bypasses full-grid scoring.
func (s *Server) handlePointQuery(w http.ResponseWriter, r *http.Request) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "lat and lon query parameters required", http.StatusBadRequest)
		return
	}
	event := models.EventTodaySunset
	if ev := r.URL.Query().Get("event"); ev != "" {
		parsed, err := models.ParseEvent(ev)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		event = parsed
	}

	instants, err := s.windows.Resolve(event, time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// Middle of the window is the nominal event minute.
	instant := instants[len(instants)/2]

	snap, err := s.source.Snapshot(event, instant)
	if err != nil {
		metrics.PointQueriesTotal.WithLabelValues(string(event), "no_data").Inc()
		http.Error(w, "forecast data not available yet", http.StatusServiceUnavailable)
		return
	}

	fs, err := s.scorer.ScorePoint(snap, lat, lon, instant)
	if err != nil {
		metrics.PointQueriesTotal.WithLabelValues(string(event), "error").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	metrics.PointQueriesTotal.WithLabelValues(string(event), "ok").Inc()

	if err := s.store.RecordPointQuery(event, lat, lon, fs); err != nil {
		log.Printf("api: record point query: %v", err)
	}

	var resp pointResponse
	resp.Location.Lat = lat
	resp.Location.Lon = lon
	resp.Event = event
	resp.Instant = instant
	resp.Score = fs.Index
	resp.Breakdown = fs
	resp.Recommendation = s.narrative.Recommend(r.Context(), event, fs)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleMapField serves the latest post-processed score field as JSON.
func (s *Server) handleMapField(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/v1/map/")
	event, err := models.ParseEvent(strings.TrimSuffix(name, ".json"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	data, ok := s.cache.Field(event)
	if !ok {
		http.Error(w, "no composite computed yet for "+string(event), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(data)
}

// handleMapImage serves the latest rendered heatmap PNG.
func (s *Server) handleMapImage(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/maps/")
	event, err := models.ParseEvent(strings.TrimSuffix(name, ".png"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	data, ok := s.cache.Image(event)
	if !ok {
		http.Error(w, "no map rendered yet for "+string(event), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	if run, err := s.store.LatestRun("gfs"); err == nil && run != nil {
		status["latest_run"] = run.RunKey
		status["fetched_at"] = run.FetchedAt
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
