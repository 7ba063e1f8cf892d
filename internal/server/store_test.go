package server

import (
	"testing"
	"time"

	"github.com/afroash/zone-monitor/internal/models"
)

var storeBase = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func storeReading(sensorID string, tempF float64, ts time.Time) *models.Reading {
	return &models.Reading{SensorID: sensorID, TempF: tempF, Timestamp: ts}
}

func TestMemoryStore_AddAndGetLatest(t *testing.T) {
	store := NewMemoryStore(100)

	for i := 0; i < 5; i++ {
		store.Add(storeReading("s1", 70+float64(i), storeBase.Add(time.Duration(i)*time.Minute)))
	}

	latest := store.GetLatest("s1", 2)
	if len(latest) != 2 {
		t.Fatalf("latest count = %d, want 2", len(latest))
	}
	if latest[0].TempF != 74 || latest[1].TempF != 73 {
		t.Errorf("latest = [%v, %v], want newest first [74, 73]", latest[0].TempF, latest[1].TempF)
	}

	if got := store.GetLatest("missing", 5); got != nil {
		t.Errorf("GetLatest for unknown sensor = %v, want nil", got)
	}
}

func TestMemoryStore_CapacityEviction(t *testing.T) {
	store := NewMemoryStore(3)

	for i := 0; i < 5; i++ {
		store.Add(storeReading("s1", float64(i), storeBase.Add(time.Duration(i)*time.Minute)))
	}

	all := store.GetLatest("s1", 10)
	if len(all) != 3 {
		t.Fatalf("buffered count = %d, want capacity 3", len(all))
	}
	if all[len(all)-1].TempF != 2 {
		t.Errorf("oldest kept = %v, want 2 (0 and 1 evicted)", all[len(all)-1].TempF)
	}

	stats := store.Stats()
	if stats.TotalReadings != 5 || stats.CurrentReadings != 3 {
		t.Errorf("stats = %+v, want total 5, current 3", stats)
	}
}

func TestMemoryStore_CopiesOut(t *testing.T) {
	store := NewMemoryStore(10)
	store.Add(storeReading("s1", 70, storeBase))

	got := store.GetCurrentReading("s1")
	got.TempF = 999

	if store.GetCurrentReading("s1").TempF != 70 {
		t.Error("mutating a returned reading must not affect the store")
	}
}

func TestMemoryStore_Snapshot(t *testing.T) {
	store := NewMemoryStore(10)
	store.Add(storeReading("a", 70, storeBase))
	store.Add(storeReading("a", 71, storeBase.Add(time.Minute)))
	store.Add(storeReading("b", 68, storeBase))

	snapshot := store.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("snapshot sensors = %d, want 2", len(snapshot))
	}
	if len(snapshot["a"]) != 2 || snapshot["a"][0].TempF != 70 {
		t.Errorf("snapshot[a] = %+v, want oldest first [70, 71]", snapshot["a"])
	}

	snapshot["a"][0].TempF = 999
	if store.Snapshot()["a"][0].TempF != 70 {
		t.Error("snapshot must hold copies")
	}
}

func TestMemoryStore_Weather(t *testing.T) {
	store := NewMemoryStore(10)
	if store.Weather() != nil {
		t.Error("weather should start nil")
	}

	snapshot, err := models.NewWeatherSnapshot(storeBase, 30)
	if err != nil {
		t.Fatalf("NewWeatherSnapshot failed: %v", err)
	}
	store.SetWeather(snapshot)

	got := store.Weather()
	if got == nil || got.OutdoorTempF != 30 {
		t.Fatalf("weather = %+v, want 30", got)
	}
	got.OutdoorTempF = 999
	if store.Weather().OutdoorTempF != 30 {
		t.Error("Weather must return a copy")
	}
}

func TestMemoryStore_ClearKeepsWeather(t *testing.T) {
	store := NewMemoryStore(10)
	store.Add(storeReading("a", 70, storeBase))
	snapshot, _ := models.NewWeatherSnapshot(storeBase, 30)
	store.SetWeather(snapshot)

	store.Clear()
	if len(store.GetSensorIDs()) != 0 {
		t.Error("Clear must drop buffered readings")
	}
	if store.Weather() == nil {
		t.Error("Clear must keep the weather snapshot")
	}
}

func TestMemoryStore_GetSensorIDsSorted(t *testing.T) {
	store := NewMemoryStore(10)
	store.Add(storeReading("b", 70, storeBase))
	store.Add(storeReading("a", 70, storeBase))

	ids := store.GetSensorIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ids = %v, want [a b]", ids)
	}
}
