package models

import (
	"fmt"
	"math"
	"time"
)

// Reading is a single measurement reported by one sensor. Humidity and
// battery are optional: nil means the probe did not report them.
type Reading struct {
	SensorID  string    `json:"sensor_id"`
	Timestamp time.Time `json:"timestamp"`
	TempF     float64   `json:"temp_f"`
	Humidity  *float64  `json:"humidity,omitempty"`
	Battery   *float64  `json:"battery,omitempty"`
}

// NewReading constructs a Reading. Temperature must be a finite number;
// out-of-range values are a concern for anomaly detection, not construction.
func NewReading(sensorID string, ts time.Time, tempF float64, humidity, battery *float64) (*Reading, error) {
	if math.IsNaN(tempF) || math.IsInf(tempF, 0) {
		return nil, fmt.Errorf("reading for %q: temperature must be finite, got %v", sensorID, tempF)
	}
	return &Reading{
		SensorID:  sensorID,
		Timestamp: ts,
		TempF:     tempF,
		Humidity:  humidity,
		Battery:   battery,
	}, nil
}

// String returns the reading in a log-friendly form
func (r *Reading) String() string {
	s := fmt.Sprintf("SensorID: %s, Timestamp: %s, Temperature: %.1f°F",
		r.SensorID,
		r.Timestamp.Format(time.RFC3339),
		r.TempF)
	if r.Humidity != nil {
		s += fmt.Sprintf(", Humidity: %.1f%%", *r.Humidity)
	}
	if r.Battery != nil {
		s += fmt.Sprintf(", Battery: %.0f%%", *r.Battery)
	}
	return s
}

// Copy returns a deep copy of the Reading
func (r *Reading) Copy() *Reading {
	if r == nil {
		return nil
	}
	cp := &Reading{
		SensorID:  r.SensorID,
		Timestamp: r.Timestamp,
		TempF:     r.TempF,
	}
	if r.Humidity != nil {
		h := *r.Humidity
		cp.Humidity = &h
	}
	if r.Battery != nil {
		b := *r.Battery
		cp.Battery = &b
	}
	return cp
}

// Wire returns the reading in its transport form
func (r *Reading) Wire() ReadingMessage {
	return ReadingMessage{
		SensorID:  r.SensorID,
		Timestamp: r.Timestamp,
		TempF:     r.TempF,
		Humidity:  Float64Copy(r.Humidity),
		Battery:   Float64Copy(r.Battery),
	}
}

// HydrateReadings converts raw reading records into Readings. Records that
// fail construction (non-finite temperature) are dropped individually rather
// than aborting the batch. Returns the hydrated readings and the dropped count.
func HydrateReadings(raw []ReadingMessage) ([]*Reading, int) {
	readings := make([]*Reading, 0, len(raw))
	dropped := 0
	for _, rec := range raw {
		reading, err := NewReading(rec.SensorID, rec.Timestamp, rec.TempF, rec.Humidity, rec.Battery)
		if err != nil {
			dropped++
			continue
		}
		readings = append(readings, reading)
	}
	return readings, dropped
}
