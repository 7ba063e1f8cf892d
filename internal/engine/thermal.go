package engine

import (
	"math"
	"time"
)

const (
	// DefaultRateWindow is the lookback for rate-of-change regression,
	// measured from the series' own last point.
	DefaultRateWindow = 30 * time.Minute

	// DefaultStabilityCutoff is the slope magnitude, in °F/hr, below which
	// a trend counts as stable.
	DefaultStabilityCutoff = 0.3

	// DefaultUniformityToleranceF is the zone temperature spread, as a
	// standard deviation, at which the uniformity score reaches zero.
	DefaultUniformityToleranceF = 2.0

	// regressionEpsilon guards the OLS denominator against near-zero
	// division when all in-window timestamps coincide.
	regressionEpsilon = 1e-10
)

// TrendDirection classifies a temperature trend
type TrendDirection string

const (
	TrendRising  TrendDirection = "rising"
	TrendFalling TrendDirection = "falling"
	TrendStable  TrendDirection = "stable"
)

// RateOfChange is the fitted temperature trend over a recent window
type RateOfChange struct {
	RatePerHour float64        `json:"rate_per_hour"`
	R2          float64        `json:"r2"`
	Direction   TrendDirection `json:"direction"`
}

// CalcRateOfChange fits an ordinary least-squares slope of temperature
// against elapsed hours over the trailing window of the series. The window
// is anchored to the series' own last timestamp, not wall clock, so the
// result is deterministic under replay. Returns nil when fewer than two
// points fall inside the window or the fit is degenerate; absence means
// "cannot determine", never "zero change".
//
// A non-positive stabilityCutoff selects DefaultStabilityCutoff.
func CalcRateOfChange(series []SeriesPoint, window time.Duration, stabilityCutoff float64) *RateOfChange {
	if len(series) == 0 {
		return nil
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	if stabilityCutoff <= 0 {
		stabilityCutoff = DefaultStabilityCutoff
	}

	cutoff := series[len(series)-1].Timestamp.Add(-window)
	var points []SeriesPoint
	for _, p := range series {
		if !p.Timestamp.Before(cutoff) {
			points = append(points, p)
		}
	}
	if len(points) < 2 {
		return nil
	}

	origin := points[0].Timestamp
	n := float64(len(points))
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		x := p.Timestamp.Sub(origin).Hours()
		y := p.TempF
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom < regressionEpsilon {
		return nil
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for _, p := range points {
		x := p.Timestamp.Sub(origin).Hours()
		ssTot += (p.TempF - meanY) * (p.TempF - meanY)
		resid := p.TempF - (intercept + slope*x)
		ssRes += resid * resid
	}
	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	direction := TrendStable
	if math.Abs(slope) >= stabilityCutoff {
		if slope > 0 {
			direction = TrendRising
		} else {
			direction = TrendFalling
		}
	}

	return &RateOfChange{
		RatePerHour: round2(slope),
		R2:          round2(r2),
		Direction:   direction,
	}
}

// EstimateHeatLoss applies Newton's law of cooling: Q = ΔT / R. A
// non-positive resistance is uncalibrated input, not an error, and yields
// zero rather than a sign-flipped or infinite flux.
func EstimateHeatLoss(indoorF, outdoorF, resistance float64) float64 {
	if resistance <= 0 {
		return 0
	}
	return round1((indoorF - outdoorF) / resistance)
}

// RCPredict models a zone's exponential approach toward a driving source
// temperature: T(t) = Ts + (T0 − Ts)·e^(−t/τ), with τ = R·C in hours. A
// non-positive time constant degenerates to instant equilibration.
//
// The orchestrator does not call this; it is a primitive kept alongside
// EstimateHeatLoss for forecasting zone behavior.
func RCPredict(currentF, sourceF, resistance, capacitance float64, elapsed time.Duration) float64 {
	tau := resistance * capacitance
	if tau <= 0 {
		return round1(sourceF)
	}
	decay := math.Exp(-elapsed.Hours() / tau)
	return round1(sourceF + (currentF-sourceF)*decay)
}

// WarmerEqual marks a zone delta whose two sides are exactly tied
const WarmerEqual = "equal"

// ZoneDelta is the temperature difference between two zones
type ZoneDelta struct {
	ZoneAID   string  `json:"zone_a_id"`
	ZoneBID   string  `json:"zone_b_id"`
	DeltaF    float64 `json:"delta_f"`
	AbsDeltaF float64 `json:"abs_delta_f"`
	// Warmer is the warmer zone's ID, or WarmerEqual on an exact tie.
	Warmer string `json:"warmer"`
}

// CalcZoneDelta compares two zones' current temperatures. Returns nil when
// either zone has no current temperature.
func CalcZoneDelta(a, b *Zone, now time.Time) *ZoneDelta {
	if a == nil || b == nil {
		return nil
	}
	ta := a.CurrentTempF(now)
	tb := b.CurrentTempF(now)
	if ta == nil || tb == nil {
		return nil
	}

	delta := round1(*ta - *tb)
	warmer := WarmerEqual
	switch {
	case *ta > *tb:
		warmer = a.ID
	case *tb > *ta:
		warmer = b.ID
	}
	return &ZoneDelta{
		ZoneAID:   a.ID,
		ZoneBID:   b.ID,
		DeltaF:    delta,
		AbsDeltaF: math.Abs(delta),
		Warmer:    warmer,
	}
}

// HouseSpread is the temperature range across all reporting zones
type HouseSpread struct {
	SpreadF       float64 `json:"spread_f"`
	ColdestZoneID string  `json:"coldest_zone_id"`
	WarmestZoneID string  `json:"warmest_zone_id"`
}

// CalcHouseSpread finds the coldest and warmest zones among those with a
// current temperature. Returns nil when fewer than two zones have data.
func CalcHouseSpread(zones []*Zone, now time.Time) *HouseSpread {
	var spread *HouseSpread
	var minT, maxT float64
	count := 0
	for _, z := range zones {
		t := z.CurrentTempF(now)
		if t == nil {
			continue
		}
		count++
		if spread == nil {
			spread = &HouseSpread{ColdestZoneID: z.ID, WarmestZoneID: z.ID}
			minT, maxT = *t, *t
			continue
		}
		if *t < minT {
			minT = *t
			spread.ColdestZoneID = z.ID
		}
		if *t > maxT {
			maxT = *t
			spread.WarmestZoneID = z.ID
		}
	}
	if count < 2 {
		return nil
	}
	spread.SpreadF = round1(maxT - minT)
	return spread
}

// CalcUniformity scores how close the reporting zones' temperatures are to
// each other: clamp(1 − stdDev/tolerance, 0, 1). 1.0 means every zone reads
// the same; 0.0 means the spread is at or beyond tolerance. A comfort
// metric, not a physical quantity. Returns nil when fewer than two zones
// have data. A non-positive tolerance selects DefaultUniformityToleranceF.
func CalcUniformity(zones []*Zone, toleranceF float64, now time.Time) *float64 {
	if toleranceF <= 0 {
		toleranceF = DefaultUniformityToleranceF
	}

	var temps []float64
	for _, z := range zones {
		if t := z.CurrentTempF(now); t != nil {
			temps = append(temps, *t)
		}
	}
	if len(temps) < 2 {
		return nil
	}

	var sum float64
	for _, t := range temps {
		sum += t
	}
	mean := sum / float64(len(temps))
	var variance float64
	for _, t := range temps {
		variance += (t - mean) * (t - mean)
	}
	variance /= float64(len(temps))

	score := 1 - math.Sqrt(variance)/toleranceF
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	score = round2(score)
	return &score
}

// Rounding happens here, at each function's boundary, so repeated analysis
// cycles over near-identical data do not jitter on the dashboard.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
