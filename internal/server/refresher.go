package server

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/zone-monitor/internal/engine"
	"github.com/afroash/zone-monitor/internal/metrics"
)

// Refresher owns the zone graph and re-runs the analysis on a fixed cadence.
// Each cycle drains a snapshot of the memory store into the sensors, runs
// the full analysis, caches the result for the API, and exports gauges.
type Refresher struct {
	store    *MemoryStore
	zones    []*engine.Zone
	opts     engine.AnalyzeOptions
	interval time.Duration
	logger   zerolog.Logger

	mutex  sync.RWMutex // guards zones and latest
	latest *engine.AnalysisResult

	done chan struct{}
	wg   sync.WaitGroup
}

// NewRefresher creates a refresher over the given zone graph
func NewRefresher(store *MemoryStore, zones []*engine.Zone, opts engine.AnalyzeOptions, interval time.Duration, logger zerolog.Logger) *Refresher {
	return &Refresher{
		store:    store,
		zones:    zones,
		opts:     opts,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the periodic refresh loop. The first cycle runs immediately.
func (rf *Refresher) Start() {
	rf.wg.Add(1)
	go func() {
		defer rf.wg.Done()

		rf.RunOnce(time.Now())

		ticker := time.NewTicker(rf.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rf.RunOnce(time.Now())
			case <-rf.done:
				return
			}
		}
	}()
	rf.logger.Info().Dur("interval", rf.interval).Msg("Analysis refresher started")
}

// Stop shuts down the refresh loop and waits for it to finish
func (rf *Refresher) Stop() {
	close(rf.done)
	rf.wg.Wait()
	rf.logger.Info().Msg("Analysis refresher stopped")
}

// RunOnce runs one analysis cycle and caches the result
func (rf *Refresher) RunOnce(now time.Time) *engine.AnalysisResult {
	started := time.Now()
	snapshot := rf.store.Snapshot()
	weather := rf.store.Weather()

	rf.mutex.Lock()
	for _, zone := range rf.zones {
		for _, sensor := range zone.Sensors() {
			sensor.ClearReadings()
			if readings, ok := snapshot[sensor.ID]; ok {
				sensor.IngestReadings(readings)
			}
		}
	}
	result := engine.AnalyzeZones(rf.zones, weather, rf.opts, now)
	rf.latest = result
	rf.mutex.Unlock()

	metrics.AnalysisDuration.Observe(time.Since(started).Seconds())
	exportResult(result)

	rf.logger.Info().
		Int("zones", len(result.Zones)).
		Int("anomalies", len(result.Anomalies)).
		Str("status", string(result.OverallStatus)).
		Dur("took", time.Since(started)).
		Msg("Analysis cycle complete")
	return result
}

// Latest returns the most recent analysis result, or nil before the first cycle
func (rf *Refresher) Latest() *engine.AnalysisResult {
	rf.mutex.RLock()
	defer rf.mutex.RUnlock()
	return rf.latest
}

// ZoneSeries recomputes the bucketed series for one zone over the window
func (rf *Refresher) ZoneSeries(zoneID string, window time.Duration, now time.Time) ([]engine.SeriesPoint, bool) {
	rf.mutex.RLock()
	defer rf.mutex.RUnlock()
	for _, zone := range rf.zones {
		if zone.ID == zoneID {
			return zone.TimeSeries(window, rf.opts.BucketWidth, now), true
		}
	}
	return nil, false
}

// exportResult pushes the cycle's findings into the Prometheus gauges
func exportResult(result *engine.AnalysisResult) {
	for id, za := range result.Zones {
		if za.CurrentTempF != nil {
			metrics.ZoneTempF.WithLabelValues(id).Set(*za.CurrentTempF)
		}
		if za.Rate != nil {
			metrics.ZoneRatePerHour.WithLabelValues(id).Set(za.Rate.RatePerHour)
		}
	}

	counts := map[engine.Level]int{}
	for _, a := range result.Anomalies {
		counts[a.Level]++
	}
	for _, level := range []engine.Level{engine.LevelInfo, engine.LevelWarning, engine.LevelDanger} {
		metrics.ActiveAnomalies.WithLabelValues(string(level)).Set(float64(counts[level]))
	}
	metrics.OverallStatus.Set(float64(result.OverallStatus.Rank()))
}
