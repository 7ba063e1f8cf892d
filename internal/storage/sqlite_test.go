package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/zone-monitor/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath, testLogger())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testReading(sensorID string, tempF float64, ts time.Time) *models.Reading {
	return &models.Reading{
		SensorID:  sensorID,
		TempF:     tempF,
		Timestamp: ts,
	}
}

func TestNewSQLiteStore_InvalidPath(t *testing.T) {
	_, err := NewSQLiteStore("/nonexistent/path/that/cannot/exist/test.db", testLogger())
	if err == nil {
		t.Fatal("Expected error for invalid path")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store := setupTestDB(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("Second migration failed: %v", err)
	}
}

func TestInsertAndGetLatest(t *testing.T) {
	store := setupTestDB(t)
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	readings := []*models.Reading{
		testReading("lr-1", 70.1, base.Add(-2*time.Minute)),
		testReading("lr-1", 70.4, base.Add(-1*time.Minute)),
		testReading("k-1", 68.0, base),
	}
	for _, r := range readings {
		if err := store.InsertReading(r); err != nil {
			t.Fatalf("InsertReading failed: %v", err)
		}
	}

	latest, err := store.GetLatestReading("lr-1")
	if err != nil {
		t.Fatalf("GetLatestReading failed: %v", err)
	}
	if latest == nil || latest.TempF != 70.4 {
		t.Errorf("latest = %+v, want temp 70.4", latest)
	}

	missing, err := store.GetLatestReading("no-such-sensor")
	if err != nil {
		t.Fatalf("GetLatestReading failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown sensor, got %+v", missing)
	}
}

func TestNullableColumns(t *testing.T) {
	store := setupTestDB(t)
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	withExtras := testReading("s1", 70, base)
	withExtras.Humidity = models.Float(42.5)
	withExtras.Battery = models.Float(88)
	bare := testReading("s2", 68, base)

	if err := store.InsertBatch([]*models.Reading{withExtras, bare}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	got, err := store.GetLatestReading("s1")
	if err != nil {
		t.Fatalf("GetLatestReading failed: %v", err)
	}
	if got.Humidity == nil || *got.Humidity != 42.5 {
		t.Errorf("humidity = %v, want 42.5", got.Humidity)
	}
	if got.Battery == nil || *got.Battery != 88.0 {
		t.Errorf("battery = %v, want 88", got.Battery)
	}

	got, err = store.GetLatestReading("s2")
	if err != nil {
		t.Fatalf("GetLatestReading failed: %v", err)
	}
	if got.Humidity != nil || got.Battery != nil {
		t.Errorf("expected nil humidity and battery, got %+v", got)
	}
}

func TestGetReadingsInRange(t *testing.T) {
	store := setupTestDB(t)
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		r := testReading("s1", 70, base.Add(-time.Duration(i)*time.Hour))
		if err := store.InsertReading(r); err != nil {
			t.Fatalf("InsertReading failed: %v", err)
		}
	}

	readings, err := store.GetReadingsInRange("s1", base.Add(-3*time.Hour), base, 100)
	if err != nil {
		t.Fatalf("GetReadingsInRange failed: %v", err)
	}
	if len(readings) != 4 {
		t.Errorf("readings in range = %d, want 4", len(readings))
	}
	for i := 1; i < len(readings); i++ {
		if readings[i].Timestamp.After(readings[i-1].Timestamp) {
			t.Error("readings not ordered newest first")
		}
	}

	limited, err := store.GetReadingsInRange("", base.Add(-24*time.Hour), base, 3)
	if err != nil {
		t.Fatalf("GetReadingsInRange failed: %v", err)
	}
	if len(limited) != 3 {
		t.Errorf("limited readings = %d, want 3", len(limited))
	}
}

func TestGetDailyStats(t *testing.T) {
	store := setupTestDB(t)
	day := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	temps := []float64{66, 70, 74}
	for i, temp := range temps {
		r := testReading("s1", temp, day.Add(time.Duration(i+6)*time.Hour))
		if err := store.InsertReading(r); err != nil {
			t.Fatalf("InsertReading failed: %v", err)
		}
	}

	stats, err := store.GetDailyStats("s1", day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("GetDailyStats failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("daily stats = %d rows, want 1", len(stats))
	}
	stat := stats[0]
	if stat.MinTempF != 66 || stat.MaxTempF != 74 || stat.AvgTempF != 70 {
		t.Errorf("stat = %+v, want min 66 max 74 avg 70", stat)
	}
	if stat.ReadingCount != 3 {
		t.Errorf("count = %d, want 3", stat.ReadingCount)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	store := setupTestDB(t)
	now := time.Now().UTC()

	old := testReading("s1", 70, now.AddDate(0, 0, -40))
	recent := testReading("s1", 71, now.Add(-time.Hour))
	if err := store.InsertBatch([]*models.Reading{old, recent}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	deleted, err := store.DeleteOlderThan(30)
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	stats, err := store.GetStorageStats()
	if err != nil {
		t.Fatalf("GetStorageStats failed: %v", err)
	}
	if stats.TotalReadings != 1 {
		t.Errorf("remaining readings = %d, want 1", stats.TotalReadings)
	}
}

func TestGetSensorIDs(t *testing.T) {
	store := setupTestDB(t)
	base := time.Now().UTC()

	for _, id := range []string{"b", "a", "b"} {
		if err := store.InsertReading(testReading(id, 70, base)); err != nil {
			t.Fatalf("InsertReading failed: %v", err)
		}
	}

	ids, err := store.GetSensorIDs()
	if err != nil {
		t.Fatalf("GetSensorIDs failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ids = %v, want [a b]", ids)
	}
}

func TestGetStorageStats_Empty(t *testing.T) {
	store := setupTestDB(t)
	stats, err := store.GetStorageStats()
	if err != nil {
		t.Fatalf("GetStorageStats failed: %v", err)
	}
	if stats.TotalReadings != 0 || stats.UniqueSensors != 0 {
		t.Errorf("stats = %+v, want zeros", stats)
	}
}
