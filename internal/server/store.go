package server

import (
	"sort"
	"sync"
	"time"

	"github.com/afroash/zone-monitor/internal/models"
)

// MemoryStore is an in-memory ring buffer for sensor readings plus the
// latest outdoor weather snapshot. It is the raw landing area for the
// ingest stream; the analysis refresher drains a snapshot of it each cycle.
type MemoryStore struct {
	capacity      int
	data          map[string][]*models.Reading
	weather       *models.WeatherSnapshot
	mutex         sync.RWMutex
	totalReadings int64
}

// NewMemoryStore creates a store keeping at most capacity readings per sensor
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{
		capacity: capacity,
		data:     make(map[string][]*models.Reading),
	}
}

// Add adds a reading to the store, evicting the oldest at capacity
func (ms *MemoryStore) Add(reading *models.Reading) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	readings := ms.data[reading.SensorID]
	if len(readings) >= ms.capacity {
		readings = readings[1:]
	}
	readings = append(readings, reading)
	ms.data[reading.SensorID] = readings
	ms.totalReadings++
}

// SetWeather replaces the latest outdoor snapshot
func (ms *MemoryStore) SetWeather(snapshot *models.WeatherSnapshot) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	ms.weather = snapshot
}

// Weather returns a copy of the latest outdoor snapshot, or nil
func (ms *MemoryStore) Weather() *models.WeatherSnapshot {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()
	if ms.weather == nil {
		return nil
	}
	return ms.weather.Copy()
}

// GetLatest returns the n most recent readings for a sensor, newest first
func (ms *MemoryStore) GetLatest(sensorID string, n int) []*models.Reading {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	readings := ms.data[sensorID]
	if len(readings) == 0 {
		return nil
	}
	start := len(readings) - n
	if start < 0 {
		start = 0
	}

	result := make([]*models.Reading, len(readings)-start)
	for i, j := len(readings)-1, 0; i >= start; i, j = i-1, j+1 {
		result[j] = readings[i].Copy()
	}
	return result
}

// GetCurrentReading returns the most recent reading for a sensor, or nil
func (ms *MemoryStore) GetCurrentReading(sensorID string) *models.Reading {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	readings := ms.data[sensorID]
	if len(readings) == 0 {
		return nil
	}
	return readings[len(readings)-1].Copy()
}

// GetSensorIDs returns the sorted IDs of all sensors that have sent data
func (ms *MemoryStore) GetSensorIDs() []string {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	keys := make([]string, 0, len(ms.data))
	for key := range ms.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of all buffered readings keyed by sensor ID,
// oldest first per sensor. The analysis refresher feeds this into the
// zone graph without holding the store lock for the whole cycle.
func (ms *MemoryStore) Snapshot() map[string][]*models.Reading {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	out := make(map[string][]*models.Reading, len(ms.data))
	for id, readings := range ms.data {
		copies := make([]*models.Reading, len(readings))
		for i, r := range readings {
			copies[i] = r.Copy()
		}
		out[id] = copies
	}
	return out
}

// StoreStats contains statistics about the memory store
type StoreStats struct {
	TotalReadings   int64     `json:"total_readings"`
	UniqueSensors   int       `json:"unique_sensors"`
	CurrentReadings int       `json:"current_readings"`
	WeatherAt       time.Time `json:"weather_at,omitempty"`
}

// Stats returns statistics about the store
func (ms *MemoryStore) Stats() StoreStats {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()

	current := 0
	for _, readings := range ms.data {
		current += len(readings)
	}
	stats := StoreStats{
		TotalReadings:   ms.totalReadings,
		UniqueSensors:   len(ms.data),
		CurrentReadings: current,
	}
	if ms.weather != nil {
		stats.WeatherAt = ms.weather.Timestamp
	}
	return stats
}

// Clear removes all buffered readings, keeping the weather snapshot
func (ms *MemoryStore) Clear() {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	ms.data = make(map[string][]*models.Reading)
	ms.totalReadings = 0
}
