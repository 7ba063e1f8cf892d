package client

import (
	"fmt"
	"sync"
	"time"

	"github.com/afroash/zone-monitor/internal/models"
)

// ReadingBuffer is a thread-safe circular buffer that holds readings while
// the server is unreachable.
type ReadingBuffer struct {
	readings   []*models.Reading
	capacity   int
	dropOldest bool
	mutex      sync.RWMutex
	stats      BufferStats
}

// BufferStats tracks buffer usage statistics
type BufferStats struct {
	TotalPushed   int64
	TotalDropped  int64
	HighWaterMark int
	LastPushTime  time.Time
}

// NewReadingBuffer creates a buffer with the given capacity. When full,
// dropOldest picks which end of the buffer loses a reading.
func NewReadingBuffer(capacity int, dropOldest bool) *ReadingBuffer {
	return &ReadingBuffer{
		readings:   make([]*models.Reading, 0, capacity),
		capacity:   capacity,
		dropOldest: dropOldest,
	}
}

// Push adds a reading to the buffer.
// Returns false if the reading was dropped (full and dropOldest=false).
func (rb *ReadingBuffer) Push(reading *models.Reading) bool {
	rb.mutex.Lock()
	defer rb.mutex.Unlock()

	if len(rb.readings) >= rb.capacity {
		rb.stats.TotalDropped++
		if !rb.dropOldest {
			return false
		}
		rb.readings = rb.readings[1:]
	}
	rb.readings = append(rb.readings, reading)
	rb.stats.TotalPushed++
	rb.stats.LastPushTime = time.Now()

	if len(rb.readings) > rb.stats.HighWaterMark {
		rb.stats.HighWaterMark = len(rb.readings)
	}

	return true
}

// PopBatch removes and returns up to n readings, oldest first
func (rb *ReadingBuffer) PopBatch(n int) []*models.Reading {
	rb.mutex.Lock()
	defer rb.mutex.Unlock()

	count := min(n, len(rb.readings))
	if count == 0 {
		return nil
	}
	result := make([]*models.Reading, count)
	copy(result, rb.readings[:count])
	rb.readings = rb.readings[count:]
	return result
}

// Requeue pushes readings back to the front after a failed send
func (rb *ReadingBuffer) Requeue(readings []*models.Reading) {
	if len(readings) == 0 {
		return
	}
	rb.mutex.Lock()
	defer rb.mutex.Unlock()

	combined := make([]*models.Reading, 0, len(readings)+len(rb.readings))
	combined = append(combined, readings...)
	combined = append(combined, rb.readings...)
	if len(combined) > rb.capacity {
		rb.stats.TotalDropped += int64(len(combined) - rb.capacity)
		if rb.dropOldest {
			combined = combined[len(combined)-rb.capacity:]
		} else {
			combined = combined[:rb.capacity]
		}
	}
	rb.readings = combined
}

// Size returns the current number of buffered readings
func (rb *ReadingBuffer) Size() int {
	rb.mutex.RLock()
	defer rb.mutex.RUnlock()
	return len(rb.readings)
}

// IsEmpty returns true if the buffer has no readings
func (rb *ReadingBuffer) IsEmpty() bool {
	return rb.Size() == 0
}

// Capacity returns the maximum capacity of the buffer
func (rb *ReadingBuffer) Capacity() int {
	return rb.capacity
}

// Clear removes all readings and resets the counters
func (rb *ReadingBuffer) Clear() {
	rb.mutex.Lock()
	defer rb.mutex.Unlock()
	rb.readings = rb.readings[:0]
	rb.stats = BufferStats{}
}

// Stats returns a copy of current buffer statistics
func (rb *ReadingBuffer) Stats() BufferStats {
	rb.mutex.RLock()
	defer rb.mutex.RUnlock()
	return rb.stats
}

// String returns a human-readable representation of buffer state
func (rb *ReadingBuffer) String() string {
	rb.mutex.RLock()
	defer rb.mutex.RUnlock()

	mode := "drop-newest"
	if rb.dropOldest {
		mode = "drop-oldest"
	}
	return fmt.Sprintf("Buffer[%d/%d, dropped: %d, mode: %s]",
		len(rb.readings),
		rb.capacity,
		rb.stats.TotalDropped,
		mode,
	)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
