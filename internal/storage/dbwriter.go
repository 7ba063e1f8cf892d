package storage

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/zone-monitor/internal/models"
)

// DBWriter batches accepted readings and writes them to SQLite off the
// ingest path. Enqueue never blocks; the queue drops when full.
type DBWriter struct {
	store       *SQLiteStore
	logger      zerolog.Logger
	queue       chan *models.Reading
	batchSize   int
	flushPeriod time.Duration
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup

	mu           sync.RWMutex
	totalWritten int64
	totalDropped int64
	totalErrors  int64
	lastWrite    time.Time
}

// DBWriterConfig holds configuration for the async writer
type DBWriterConfig struct {
	BatchSize   int
	FlushPeriod time.Duration
	ChannelSize int
}

// DefaultDBWriterConfig returns sensible defaults
func DefaultDBWriterConfig() DBWriterConfig {
	return DBWriterConfig{
		BatchSize:   100,
		FlushPeriod: 5 * time.Second,
		ChannelSize: 1000,
	}
}

// DBWriterStats contains statistics about the writer
type DBWriterStats struct {
	TotalWritten int64     `json:"total_written"`
	TotalDropped int64     `json:"total_dropped"`
	TotalErrors  int64     `json:"total_errors"`
	LastWrite    time.Time `json:"last_write,omitempty"`
	QueueLength  int       `json:"queue_length"`
}

// NewDBWriter creates and starts a new async database writer
func NewDBWriter(store *SQLiteStore, config DBWriterConfig, logger zerolog.Logger) *DBWriter {
	w := &DBWriter{
		store:       store,
		logger:      logger,
		queue:       make(chan *models.Reading, config.ChannelSize),
		batchSize:   config.BatchSize,
		flushPeriod: config.FlushPeriod,
		stopChan:    make(chan struct{}),
	}

	w.wg.Add(1)
	go w.writerLoop()

	logger.Info().
		Int("batch_size", config.BatchSize).
		Dur("flush_period", config.FlushPeriod).
		Int("channel_size", config.ChannelSize).
		Msg("DBWriter started")

	return w
}

// Enqueue queues a reading for async persistence. Drops when the queue
// is full rather than stalling the ingest stream.
func (w *DBWriter) Enqueue(reading *models.Reading) {
	select {
	case w.queue <- reading:
	default:
		w.mu.Lock()
		w.totalDropped++
		w.mu.Unlock()
		w.logger.Warn().Str("sensor_id", reading.SensorID).Msg("DBWriter queue full, dropping reading")
	}
}

// writerLoop batches queued readings and flushes on size or timer
func (w *DBWriter) writerLoop() {
	defer w.wg.Done()

	batch := make([]*models.Reading, 0, w.batchSize)
	ticker := time.NewTicker(w.flushPeriod)
	defer ticker.Stop()

	for {
		select {
		case reading := <-w.queue:
			batch = append(batch, reading)
			if len(batch) >= w.batchSize {
				w.flush(batch)
				batch = make([]*models.Reading, 0, w.batchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = make([]*models.Reading, 0, w.batchSize)
			}

		case <-w.stopChan:
			for {
				select {
				case reading := <-w.queue:
					batch = append(batch, reading)
					continue
				default:
				}
				break
			}
			if len(batch) > 0 {
				w.flush(batch)
			}
			w.logger.Info().Msg("DBWriter stopped")
			return
		}
	}
}

// flush writes a batch to the database
func (w *DBWriter) flush(batch []*models.Reading) {
	err := w.store.InsertBatch(batch)

	w.mu.Lock()
	if err != nil {
		w.totalErrors++
		w.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("Failed to write batch")
	} else {
		w.totalWritten += int64(len(batch))
		w.lastWrite = time.Now()
		w.logger.Debug().Int("count", len(batch)).Msg("Flushed batch")
	}
	w.mu.Unlock()
}

// Stop gracefully stops the writer, flushing any remaining data
func (w *DBWriter) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.wg.Wait()
	})
}

// Stats returns current writer statistics
func (w *DBWriter) Stats() DBWriterStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return DBWriterStats{
		TotalWritten: w.totalWritten,
		TotalDropped: w.totalDropped,
		TotalErrors:  w.totalErrors,
		LastWrite:    w.lastWrite,
		QueueLength:  len(w.queue),
	}
}
