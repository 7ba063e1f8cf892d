package engine

import (
	"sort"
	"time"

	"github.com/afroash/zone-monitor/internal/models"
)

const (
	// DefaultSeriesWindow is the lookback for per-zone series in an
	// analysis cycle.
	DefaultSeriesWindow = time.Hour

	// DefaultThermalResistance is assumed for zones with no configured
	// resistance.
	DefaultThermalResistance = 1.0
)

// AnalyzeOptions tunes an analysis cycle. The zero value selects every
// default, so AnalyzeZones(zones, weather, AnalyzeOptions{}, now) is valid.
type AnalyzeOptions struct {
	Thresholds Thresholds

	// ZoneResistance overrides the thermal resistance per zone ID;
	// DefaultResistance covers the rest (zero means 1.0).
	ZoneResistance    map[string]float64
	DefaultResistance float64

	SeriesWindow    time.Duration
	RateWindow      time.Duration
	StabilityCutoff float64
	BucketWidth     time.Duration

	UniformityToleranceF float64
}

func (o AnalyzeOptions) seriesWindow() time.Duration {
	if o.SeriesWindow > 0 {
		return o.SeriesWindow
	}
	return DefaultSeriesWindow
}

func (o AnalyzeOptions) defaultResistance() float64 {
	if o.DefaultResistance > 0 {
		return o.DefaultResistance
	}
	return DefaultThermalResistance
}

func (o AnalyzeOptions) resistanceFor(zoneID string) float64 {
	if r, ok := o.ZoneResistance[zoneID]; ok {
		return r
	}
	return o.defaultResistance()
}

// ZoneAnalysis is the per-zone slice of an analysis cycle
type ZoneAnalysis struct {
	ZoneID          string         `json:"zone_id"`
	Coverage        CoverageStatus `json:"coverage"`
	CurrentTempF    *float64       `json:"current_temp_f,omitempty"`
	CurrentHumidity *float64       `json:"current_humidity,omitempty"`
	TempSpreadF     *float64       `json:"temp_spread_f,omitempty"`
	Rate            *RateOfChange  `json:"rate,omitempty"`
	OutdoorDeltaF   *float64       `json:"outdoor_delta_f,omitempty"`
	HeatLoss        *float64       `json:"heat_loss,omitempty"`
	Series          []SeriesPoint  `json:"series"`
}

// AnalysisResult bundles one refresh cycle's findings. It is recomputed
// from scratch every cycle and never persisted; the engine keeps no history
// of results.
type AnalysisResult struct {
	GeneratedAt    time.Time                `json:"generated_at"`
	Zones          map[string]*ZoneAnalysis `json:"zones"`
	AdjacentDeltas []*ZoneDelta             `json:"adjacent_deltas"`
	HouseSpread    *HouseSpread             `json:"house_spread,omitempty"`
	Uniformity     *float64                 `json:"uniformity,omitempty"`
	Anomalies      []Anomaly                `json:"anomalies"`
	OverallStatus  Level                    `json:"overall_status"`
}

// AnalyzeZones runs one full analysis cycle over a snapshot of the zone
// graph: per-zone series, trend, and heat loss; deduplicated adjacent-pair
// deltas; house-wide spread and uniformity; and anomaly detection fed the
// same per-zone rates. Pure given its inputs: it mutates nothing and holds
// nothing.
func AnalyzeZones(zones []*Zone, weather *models.WeatherSnapshot, opts AnalyzeOptions, now time.Time) *AnalysisResult {
	ordered := make([]*Zone, len(zones))
	copy(ordered, zones)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	byID := make(map[string]*Zone, len(ordered))
	for _, z := range ordered {
		byID[z.ID] = z
	}

	analyses := make(map[string]*ZoneAnalysis, len(ordered))
	rates := make(map[string]*RateOfChange, len(ordered))
	for _, z := range ordered {
		series := z.TimeSeries(opts.seriesWindow(), opts.BucketWidth, now)
		rate := CalcRateOfChange(series, opts.RateWindow, opts.StabilityCutoff)
		rates[z.ID] = rate

		za := &ZoneAnalysis{
			ZoneID:          z.ID,
			Coverage:        z.CoverageStatus(now),
			CurrentTempF:    z.CurrentTempF(now),
			CurrentHumidity: z.CurrentHumidity(now),
			TempSpreadF:     z.TempSpreadF(now),
			Rate:            rate,
			Series:          series,
		}
		if za.CurrentTempF != nil && weather != nil {
			delta := round1(*za.CurrentTempF - weather.OutdoorTempF)
			za.OutdoorDeltaF = &delta
			loss := EstimateHeatLoss(*za.CurrentTempF, weather.OutdoorTempF, opts.resistanceFor(z.ID))
			za.HeatLoss = &loss
		}
		analyses[z.ID] = za
	}

	// Adjacency is declared per zone and may be asymmetric, but the output
	// is an undirected edge list: canonicalize each pair by sorted IDs and
	// visit it once. Declarations against unknown zones are a config
	// problem surfaced at load time, so the engine just skips them.
	var deltas []*ZoneDelta
	seen := make(map[string]struct{})
	for _, z := range ordered {
		for _, adjID := range z.AdjacentZoneIDs {
			adj, ok := byID[adjID]
			if !ok || adjID == z.ID {
				continue
			}
			key := pairKey(z.ID, adjID)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if d := CalcZoneDelta(z, adj, now); d != nil {
				deltas = append(deltas, d)
			}
		}
	}

	anomalies := DetectAnomalies(ordered, weather, rates, opts.Thresholds, now)

	return &AnalysisResult{
		GeneratedAt:    now,
		Zones:          analyses,
		AdjacentDeltas: deltas,
		HouseSpread:    CalcHouseSpread(ordered, now),
		Uniformity:     CalcUniformity(ordered, opts.UniformityToleranceF, now),
		Anomalies:      anomalies,
		OverallStatus:  WorstLevel(anomalies),
	}
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
