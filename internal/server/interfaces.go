package server

import (
	"time"

	"github.com/afroash/zone-monitor/internal/models"
	"github.com/afroash/zone-monitor/internal/storage"
)

// HistoricalStore defines the read side of durable storage.
// storage.SQLiteStore implements this interface.
type HistoricalStore interface {
	// GetReadingsInRange returns readings within a time range, newest first
	GetReadingsInRange(sensorID string, start, end time.Time, limit int) ([]*models.Reading, error)

	// GetDailyStats returns aggregated daily temperature statistics
	GetDailyStats(sensorID string, start, end time.Time) ([]storage.DailyStat, error)

	// GetStorageStats returns database statistics
	GetStorageStats() (*storage.StorageStats, error)
}
