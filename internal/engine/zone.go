package engine

import (
	"sort"
	"time"
)

// DefaultBucketWidth matches the probes' poll cadence, so a healthy
// single-sensor zone lands one reading per bucket.
const DefaultBucketWidth = 5 * time.Minute

// CoverageStatus describes how much of a zone is reporting live data
type CoverageStatus string

const (
	CoverageUncovered CoverageStatus = "uncovered"
	CoveragePartial   CoverageStatus = "partial"
	CoverageCovered   CoverageStatus = "covered"
)

// Zone is a logical room or HVAC area aggregating zero or more sensors.
// Adjacency is declared by configuration, not inferred; the engine dedupes
// pair output but does not enforce symmetric declarations.
type Zone struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	HVACZone string `json:"hvac_zone,omitempty"`

	AdjacentZoneIDs []string `json:"adjacent_zone_ids,omitempty"`

	sensors map[string]*Sensor
}

// NewZone creates a zone with no sensors
func NewZone(id, name string) *Zone {
	return &Zone{
		ID:      id,
		Name:    name,
		sensors: make(map[string]*Sensor),
	}
}

// AddSensor adds a sensor to the zone, replacing any sensor with the same ID
func (z *Zone) AddSensor(s *Sensor) {
	if s == nil {
		return
	}
	z.sensors[s.ID] = s
}

// RemoveSensor removes a sensor by ID. Removing an unknown ID is a no-op.
func (z *Zone) RemoveSensor(sensorID string) {
	delete(z.sensors, sensorID)
}

// Sensor returns the sensor with the given ID, or nil
func (z *Zone) Sensor(sensorID string) *Sensor {
	return z.sensors[sensorID]
}

// Sensors returns the zone's sensors sorted by ID
func (z *Zone) Sensors() []*Sensor {
	out := make([]*Sensor, 0, len(z.sensors))
	for _, s := range z.sensors {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SensorCount returns the number of sensors in the zone
func (z *Zone) SensorCount() int {
	return len(z.sensors)
}

func (z *Zone) onlineSensors(now time.Time) []*Sensor {
	var online []*Sensor
	for _, s := range z.Sensors() {
		if s.Status(now) == SensorOnline {
			online = append(online, s)
		}
	}
	return online
}

// CoverageStatus reports whether all, some, or none of the zone's sensors
// are online. A zone whose sensors are all offline looks the same as a zone
// with no sensors; anomaly detection separates the two via SensorCount.
func (z *Zone) CoverageStatus(now time.Time) CoverageStatus {
	if len(z.sensors) == 0 {
		return CoverageUncovered
	}
	online := len(z.onlineSensors(now))
	switch {
	case online == 0:
		return CoverageUncovered
	case online < len(z.sensors):
		return CoveragePartial
	default:
		return CoverageCovered
	}
}

// CurrentTempF is the mean temperature over online sensors, nil if none
func (z *Zone) CurrentTempF(now time.Time) *float64 {
	var sum float64
	var n int
	for _, s := range z.onlineSensors(now) {
		if t := s.CurrentTempF(now); t != nil {
			sum += *t
			n++
		}
	}
	if n == 0 {
		return nil
	}
	v := round1(sum / float64(n))
	return &v
}

// CurrentHumidity is the mean humidity over online sensors that report one,
// nil if none do.
func (z *Zone) CurrentHumidity(now time.Time) *float64 {
	var sum float64
	var n int
	for _, s := range z.onlineSensors(now) {
		if h := s.CurrentHumidity(now); h != nil {
			sum += *h
			n++
		}
	}
	if n == 0 {
		return nil
	}
	v := round1(sum / float64(n))
	return &v
}

// MinTempF is the lowest current temperature across online sensors, nil if none
func (z *Zone) MinTempF(now time.Time) *float64 {
	min, _, ok := z.tempRange(now)
	if !ok {
		return nil
	}
	v := round1(min)
	return &v
}

// MaxTempF is the highest current temperature across online sensors, nil if none
func (z *Zone) MaxTempF(now time.Time) *float64 {
	_, max, ok := z.tempRange(now)
	if !ok {
		return nil
	}
	v := round1(max)
	return &v
}

// TempSpreadF is the max minus min current temperature, nil if no sensor
// reports.
func (z *Zone) TempSpreadF(now time.Time) *float64 {
	min, max, ok := z.tempRange(now)
	if !ok {
		return nil
	}
	v := round1(max - min)
	return &v
}

func (z *Zone) tempRange(now time.Time) (min, max float64, ok bool) {
	for _, s := range z.onlineSensors(now) {
		t := s.CurrentTempF(now)
		if t == nil {
			continue
		}
		if !ok {
			min, max, ok = *t, *t, true
			continue
		}
		if *t < min {
			min = *t
		}
		if *t > max {
			max = *t
		}
	}
	return min, max, ok
}

// SeriesPoint is one bucket of a zone's aggregated temperature series
type SeriesPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	TempF       float64   `json:"temp_f"`
	SensorCount int       `json:"sensor_count"`
}

// TimeSeries buckets every in-window reading across the zone's sensors into
// fixed-width buckets and averages each bucket. Sensors poll independently,
// so joining raw timestamps would give a sparse, noisy series; bucket
// averaging trades a little temporal resolution for a smooth zone-level
// curve that works for 0, 1, or N sensors alike.
func (z *Zone) TimeSeries(window, bucket time.Duration, referenceTime time.Time) []SeriesPoint {
	if bucket <= 0 {
		bucket = DefaultBucketWidth
	}

	type acc struct {
		sum     float64
		count   int
		sensors map[string]struct{}
	}
	buckets := make(map[int64]*acc)
	for _, s := range z.Sensors() {
		for _, r := range s.ReadingsInWindow(window, referenceTime) {
			key := r.Timestamp.UnixNano() / int64(bucket)
			a := buckets[key]
			if a == nil {
				a = &acc{sensors: make(map[string]struct{})}
				buckets[key] = a
			}
			a.sum += r.TempF
			a.count++
			a.sensors[r.SensorID] = struct{}{}
		}
	}

	points := make([]SeriesPoint, 0, len(buckets))
	for key, a := range buckets {
		midpoint := time.Unix(0, key*int64(bucket)+int64(bucket)/2).UTC()
		points = append(points, SeriesPoint{
			Timestamp:   midpoint,
			TempF:       round1(a.sum / float64(a.count)),
			SensorCount: len(a.sensors),
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	return points
}
