package engine

import (
	"sort"
	"time"

	"github.com/afroash/zone-monitor/internal/models"
)

// DefaultStaleAfter is how old the latest reading may be before a sensor is
// considered stale.
const DefaultStaleAfter = 15 * time.Minute

// dedupeWindow collapses readings reported within one second of each other.
// Probes occasionally re-send a reading after a reconnect; anything closer
// than the poll jitter is the same measurement.
const dedupeWindow = time.Second

// SensorStatus describes whether a sensor is reporting live data
type SensorStatus string

const (
	SensorOnline  SensorStatus = "online"
	SensorStale   SensorStatus = "stale"
	SensorOffline SensorStatus = "offline"
)

// Sensor owns the reading history for one physical device. The history is
// kept sorted ascending by timestamp and deduplicated; it is cleared and
// fully re-ingested on every refresh cycle.
type Sensor struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	DeviceID string `json:"device_id,omitempty"`

	// StaleAfter overrides DefaultStaleAfter when positive.
	StaleAfter time.Duration `json:"-"`

	readings []*models.Reading
}

// NewSensor creates a sensor with an empty history
func NewSensor(id, label, deviceID string) *Sensor {
	return &Sensor{
		ID:       id,
		Label:    label,
		DeviceID: deviceID,
	}
}

// IngestReadings appends every reading in the batch that belongs to this
// sensor, then re-sorts and deduplicates the history.
func (s *Sensor) IngestReadings(batch []*models.Reading) {
	for _, r := range batch {
		if r != nil && r.SensorID == s.ID {
			s.readings = append(s.readings, r)
		}
	}
	sort.SliceStable(s.readings, func(i, j int) bool {
		return s.readings[i].Timestamp.Before(s.readings[j].Timestamp)
	})

	// Keep the first reading of any run closer together than the dedupe
	// window.
	deduped := s.readings[:0]
	var lastKept time.Time
	for i, r := range s.readings {
		if i > 0 && r.Timestamp.Sub(lastKept) < dedupeWindow {
			continue
		}
		deduped = append(deduped, r)
		lastKept = r.Timestamp
	}
	for i := len(deduped); i < len(s.readings); i++ {
		s.readings[i] = nil
	}
	s.readings = deduped
}

// ClearReadings resets the history to empty, ahead of a full re-ingest
func (s *Sensor) ClearReadings() {
	s.readings = nil
}

// Readings returns a copy of the full history, oldest first
func (s *Sensor) Readings() []*models.Reading {
	out := make([]*models.Reading, len(s.readings))
	copy(out, s.readings)
	return out
}

// ReadingsInWindow returns the readings with timestamp at or after
// referenceTime minus the window, oldest first.
func (s *Sensor) ReadingsInWindow(window time.Duration, referenceTime time.Time) []*models.Reading {
	cutoff := referenceTime.Add(-window)
	start := sort.Search(len(s.readings), func(i int) bool {
		return !s.readings[i].Timestamp.Before(cutoff)
	})
	out := make([]*models.Reading, len(s.readings)-start)
	copy(out, s.readings[start:])
	return out
}

// LatestReading returns the most recent reading, or nil if the history is empty
func (s *Sensor) LatestReading() *models.Reading {
	if len(s.readings) == 0 {
		return nil
	}
	return s.readings[len(s.readings)-1]
}

// Status derives the sensor's liveness from the latest reading's age
func (s *Sensor) Status(now time.Time) SensorStatus {
	latest := s.LatestReading()
	if latest == nil {
		return SensorOffline
	}
	if now.Sub(latest.Timestamp) > s.staleAfter() {
		return SensorStale
	}
	return SensorOnline
}

func (s *Sensor) staleAfter() time.Duration {
	if s.StaleAfter > 0 {
		return s.StaleAfter
	}
	return DefaultStaleAfter
}

// CurrentTempF returns the latest temperature, or nil if the sensor is not
// online.
func (s *Sensor) CurrentTempF(now time.Time) *float64 {
	if s.Status(now) != SensorOnline {
		return nil
	}
	t := s.LatestReading().TempF
	return &t
}

// CurrentHumidity returns the latest humidity, or nil if the sensor is not
// online or the latest reading carries none.
func (s *Sensor) CurrentHumidity(now time.Time) *float64 {
	if s.Status(now) != SensorOnline {
		return nil
	}
	return models.Float64Copy(s.LatestReading().Humidity)
}

// CurrentBattery returns the latest battery level, or nil if the sensor is
// not online or the latest reading carries none.
func (s *Sensor) CurrentBattery(now time.Time) *float64 {
	if s.Status(now) != SensorOnline {
		return nil
	}
	return models.Float64Copy(s.LatestReading().Battery)
}
