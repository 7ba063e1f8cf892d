package probe

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/zone-monitor/internal/models"
)

// Reader polls a Source on a fixed interval and publishes readings
type Reader struct {
	source   Source
	sensorID string
	interval time.Duration
	logger   zerolog.Logger
	readings chan *models.Reading
}

// NewReader creates a new probe reader
func NewReader(source Source, sensorID string, interval time.Duration, logger zerolog.Logger) *Reader {
	return &Reader{
		source:   source,
		sensorID: sensorID,
		interval: interval,
		logger:   logger,
		readings: make(chan *models.Reading, 10),
	}
}

// Start polls the source until the context is cancelled
func (r *Reader) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.readAndPublish()
		}
	}
}

// ReadOnce performs a single reading
func (r *Reader) ReadOnce() (*models.Reading, error) {
	tempF, humidity, err := r.source.Read()
	if err != nil {
		return nil, err
	}
	return models.NewReading(r.sensorID, time.Now().UTC(), tempF, models.Float(humidity), nil)
}

// readAndPublish performs a read and publishes to the channel. A slow
// consumer drops the reading rather than stalling the poll loop.
func (r *Reader) readAndPublish() {
	reading, err := r.ReadOnce()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to read from source")
		return
	}
	select {
	case r.readings <- reading:
		r.logger.Debug().Str("reading", reading.String()).Msg("Published reading")
	default:
		r.logger.Warn().Msg("Readings channel full, dropping")
	}
}

// Readings returns the channel where readings are published
func (r *Reader) Readings() <-chan *models.Reading {
	return r.readings
}
