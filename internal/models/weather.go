package models

import (
	"fmt"
	"math"
	"time"
)

// WeatherSnapshot is the most recent outdoor observation. Only the outdoor
// temperature is required; everything else depends on what the weather
// source reports.
type WeatherSnapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	OutdoorTempF    float64   `json:"outdoor_temp_f"`
	OutdoorHumidity *float64  `json:"outdoor_humidity,omitempty"`
	WindSpeedMph    *float64  `json:"wind_speed_mph,omitempty"`
	WindDirection   *float64  `json:"wind_direction,omitempty"`
	GustSpeedMph    *float64  `json:"gust_speed_mph,omitempty"`
	BarometricPa    *float64  `json:"barometric_pressure_pa,omitempty"`
	DewpointF       *float64  `json:"dewpoint_f,omitempty"`
	CloudCoverPct   *float64  `json:"cloud_cover_pct,omitempty"`
	PrecipitationIn *float64  `json:"precipitation_in,omitempty"`
}

// NewWeatherSnapshot constructs a WeatherSnapshot with the required fields.
// Same construction rule as Reading: the temperature must be finite.
func NewWeatherSnapshot(ts time.Time, outdoorTempF float64) (*WeatherSnapshot, error) {
	if math.IsNaN(outdoorTempF) || math.IsInf(outdoorTempF, 0) {
		return nil, fmt.Errorf("weather snapshot: outdoor temperature must be finite, got %v", outdoorTempF)
	}
	return &WeatherSnapshot{
		Timestamp:    ts,
		OutdoorTempF: outdoorTempF,
	}, nil
}

// Copy returns a deep copy of the snapshot
func (w *WeatherSnapshot) Copy() *WeatherSnapshot {
	if w == nil {
		return nil
	}
	cp := *w
	cp.OutdoorHumidity = Float64Copy(w.OutdoorHumidity)
	cp.WindSpeedMph = Float64Copy(w.WindSpeedMph)
	cp.WindDirection = Float64Copy(w.WindDirection)
	cp.GustSpeedMph = Float64Copy(w.GustSpeedMph)
	cp.BarometricPa = Float64Copy(w.BarometricPa)
	cp.DewpointF = Float64Copy(w.DewpointF)
	cp.CloudCoverPct = Float64Copy(w.CloudCoverPct)
	cp.PrecipitationIn = Float64Copy(w.PrecipitationIn)
	return &cp
}

// Float64Copy returns a copy of an optional numeric field, nil for nil
func Float64Copy(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v. Convenience for the optional numeric fields.
func Float(v float64) *float64 {
	return &v
}
