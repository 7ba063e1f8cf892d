package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReadingsReceived counts readings accepted over the ingest stream
	ReadingsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zonemonitor_readings_received_total",
			Help: "Total number of sensor readings accepted",
		},
		[]string{"sensor_id"},
	)

	// ReadingsDropped counts readings rejected during hydration
	ReadingsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zonemonitor_readings_dropped_total",
			Help: "Total number of sensor readings rejected as invalid",
		},
	)

	// ConnectedProbes tracks currently open probe connections
	ConnectedProbes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "zonemonitor_connected_probes",
			Help: "Number of currently connected probes",
		},
	)

	// AnalysisDuration measures one full analysis cycle
	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zonemonitor_analysis_duration_seconds",
			Help:    "Duration of one zone analysis cycle in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// ZoneTempF exports the latest mean temperature per zone
	ZoneTempF = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "zonemonitor_zone_temp_fahrenheit",
			Help: "Current mean temperature per zone in Fahrenheit",
		},
		[]string{"zone_id"},
	)

	// ZoneRatePerHour exports the latest temperature trend per zone
	ZoneRatePerHour = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "zonemonitor_zone_rate_fahrenheit_per_hour",
			Help: "Current temperature rate of change per zone",
		},
		[]string{"zone_id"},
	)

	// ActiveAnomalies exports the anomaly count per severity level
	ActiveAnomalies = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "zonemonitor_active_anomalies",
			Help: "Number of active anomalies by severity level",
		},
		[]string{"level"},
	)

	// OverallStatus exports the house status as an ordinal (0=ok .. 3=danger)
	OverallStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "zonemonitor_overall_status",
			Help: "Overall house status: 0=ok, 1=info, 2=warning, 3=danger",
		},
	)
)
