package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/zone-monitor/internal/engine"
	"github.com/afroash/zone-monitor/internal/models"
)

// APIHandler serves the dashboard's JSON endpoints
type APIHandler struct {
	store     ReadingStore
	refresher *Refresher
	history   HistoricalStore // nil when durable history is disabled
	logger    zerolog.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(store ReadingStore, refresher *Refresher, history HistoricalStore, logger zerolog.Logger) *APIHandler {
	return &APIHandler{
		store:     store,
		refresher: refresher,
		history:   history,
		logger:    logger,
	}
}

// HandleAnalysis returns the full latest analysis result
func (api *APIHandler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	result := api.refresher.Latest()
	if result == nil {
		http.Error(w, "Analysis not ready", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, result)
}

// ZoneSummary is the per-zone slice of the dashboard's zone list
type ZoneSummary struct {
	ZoneID          string                `json:"zone_id"`
	Coverage        engine.CoverageStatus `json:"coverage"`
	CurrentTempF    *float64              `json:"current_temp_f,omitempty"`
	CurrentHumidity *float64              `json:"current_humidity,omitempty"`
	Trend           engine.TrendDirection `json:"trend,omitempty"`
	Status          engine.Level          `json:"status"`
}

// HandleZones returns a compact summary per zone
func (api *APIHandler) HandleZones(w http.ResponseWriter, r *http.Request) {
	result := api.refresher.Latest()
	if result == nil {
		http.Error(w, "Analysis not ready", http.StatusServiceUnavailable)
		return
	}

	summaries := make([]ZoneSummary, 0, len(result.Zones))
	for id, za := range result.Zones {
		summary := ZoneSummary{
			ZoneID:          id,
			Coverage:        za.Coverage,
			CurrentTempF:    za.CurrentTempF,
			CurrentHumidity: za.CurrentHumidity,
			Status:          engine.WorstLevel(zoneAnomalies(result.Anomalies, id)),
		}
		if za.Rate != nil {
			summary.Trend = za.Rate.Direction
		}
		summaries = append(summaries, summary)
	}
	sortSummaries(summaries)
	writeJSON(w, summaries)
}

// HandleZoneSeries returns the bucketed temperature series for one zone
func (api *APIHandler) HandleZoneSeries(w http.ResponseWriter, r *http.Request) {
	zoneID := r.URL.Query().Get("zone_id")
	if zoneID == "" {
		http.Error(w, "zone_id is required", http.StatusBadRequest)
		return
	}

	hours := 1
	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		if parsed, err := strconv.Atoi(hoursStr); err == nil && parsed > 0 && parsed <= 48 {
			hours = parsed
		}
	}

	series, ok := api.refresher.ZoneSeries(zoneID, time.Duration(hours)*time.Hour, time.Now())
	if !ok {
		http.Error(w, "Unknown zone", http.StatusNotFound)
		return
	}
	writeJSON(w, series)
}

// HandleAnomalies returns active anomalies, optionally filtered by level
func (api *APIHandler) HandleAnomalies(w http.ResponseWriter, r *http.Request) {
	result := api.refresher.Latest()
	if result == nil {
		http.Error(w, "Analysis not ready", http.StatusServiceUnavailable)
		return
	}

	anomalies := result.Anomalies
	if minStr := r.URL.Query().Get("min_level"); minStr != "" {
		anomalies = engine.FilterByLevel(anomalies, engine.ParseLevel(minStr))
	}
	if anomalies == nil {
		anomalies = []engine.Anomaly{}
	}
	writeJSON(w, anomalies)
}

// HandleHistory returns persisted readings for a sensor within a range
func (api *APIHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if api.history == nil {
		http.Error(w, "History storage disabled", http.StatusNotFound)
		return
	}

	sensorID := r.URL.Query().Get("sensor_id")
	hours := 24
	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		if parsed, err := strconv.Atoi(hoursStr); err == nil && parsed > 0 {
			hours = parsed
		}
	}
	limit := 1000
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 10000 {
			limit = parsed
		}
	}

	end := time.Now()
	start := end.Add(-time.Duration(hours) * time.Hour)
	readings, err := api.history.GetReadingsInRange(sensorID, start, end, limit)
	if err != nil {
		api.logger.Error().Err(err).Msg("History query failed")
		http.Error(w, "History query failed", http.StatusInternalServerError)
		return
	}
	if readings == nil {
		readings = []*models.Reading{}
	}
	writeJSON(w, readings)
}

// HandleDailyStats returns aggregated per-day statistics from history
func (api *APIHandler) HandleDailyStats(w http.ResponseWriter, r *http.Request) {
	if api.history == nil {
		http.Error(w, "History storage disabled", http.StatusNotFound)
		return
	}

	days := 7
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		if parsed, err := strconv.Atoi(daysStr); err == nil && parsed > 0 && parsed <= 90 {
			days = parsed
		}
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days)
	stats, err := api.history.GetDailyStats(r.URL.Query().Get("sensor_id"), start, end)
	if err != nil {
		api.logger.Error().Err(err).Msg("Daily stats query failed")
		http.Error(w, "Daily stats query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

// HandleStats returns ingest store statistics
func (api *APIHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, api.store.Stats())
}

// HealthStatus is the /health response body
type HealthStatus struct {
	Status      string    `json:"status"`
	GeneratedAt time.Time `json:"generated_at,omitempty"`
	Sensors     int       `json:"sensors"`
}

// HandleHealth reports liveness and the freshness of the last analysis
func (api *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:  "ok",
		Sensors: len(api.store.GetSensorIDs()),
	}
	if result := api.refresher.Latest(); result != nil {
		status.GeneratedAt = result.GeneratedAt
	}
	writeJSON(w, status)
}

func zoneAnomalies(anomalies []engine.Anomaly, zoneID string) []engine.Anomaly {
	var out []engine.Anomaly
	for _, a := range anomalies {
		if a.ZoneID == zoneID {
			out = append(out, a)
		}
	}
	return out
}

func sortSummaries(summaries []ZoneSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ZoneID < summaries[j].ZoneID
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
