package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/afroash/zone-monitor/internal/models"
)

// Level is an anomaly severity. Levels form a strict total order:
// danger > warning > info; LevelOK marks the absence of findings.
type Level string

const (
	LevelOK      Level = "ok"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

func levelRank(l Level) int {
	switch l {
	case LevelDanger:
		return 3
	case LevelWarning:
		return 2
	case LevelInfo:
		return 1
	default:
		return 0
	}
}

// Rank returns the ordinal severity of the level (0=ok .. 3=danger)
func (l Level) Rank() int {
	return levelRank(l)
}

// ParseLevel maps a severity name to a Level; unknown names rank as OK
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelInfo, LevelWarning, LevelDanger:
		return Level(s)
	default:
		return LevelOK
	}
}

// HouseZoneID is the pseudo-zone identifier reserved for house-wide findings
const HouseZoneID = "whole-house"

// Anomaly codes
const (
	CodeDangerCold        = "danger_cold"
	CodeWarningCold       = "warning_cold"
	CodeDangerHot         = "danger_hot"
	CodeWarningHot        = "warning_hot"
	CodeRapidChange       = "rapid_temp_change"
	CodeAllSensorsOffline = "all_sensors_offline"
	CodeSensorsOffline    = "sensors_offline"
	CodeZoneSpread        = "zone_sensor_spread"
	CodeHouseSpread       = "house_spread"
	CodeBatteryLow        = "battery_low"
	CodeBatteryCritical   = "battery_critical"
)

// Anomaly is a leveled, coded finding about a zone, a sensor, or the house
type Anomaly struct {
	Level    Level  `json:"level"`
	Code     string `json:"code"`
	ZoneID   string `json:"zone_id"`
	SensorID string `json:"sensor_id,omitempty"`
	Message  string `json:"message"`
}

// Thresholds configures anomaly detection. Zero-valued fields fall back to
// the defaults, so callers may override any subset.
type Thresholds struct {
	ComfortLowF          float64       `json:"comfort_low_f"`
	ComfortHighF         float64       `json:"comfort_high_f"`
	DangerLowF           float64       `json:"danger_low_f"`
	DangerHighF          float64       `json:"danger_high_f"`
	MaxRatePerHour       float64       `json:"max_rate_per_hour"`
	MaxZoneDeltaF        float64       `json:"max_zone_delta_f"`
	MaxWholeHouseSpreadF float64       `json:"max_whole_house_spread_f"`
	StaleSensorAfter     time.Duration `json:"stale_sensor_after"`
	BatteryLowPct        float64       `json:"battery_low_pct"`
	BatteryCriticalPct   float64       `json:"battery_critical_pct"`
}

// DefaultThresholds returns the stock detection configuration
func DefaultThresholds() Thresholds {
	return Thresholds{
		ComfortLowF:          65,
		ComfortHighF:         78,
		DangerLowF:           60,
		DangerHighF:          85,
		MaxRatePerHour:       3.0,
		MaxZoneDeltaF:        5.0,
		MaxWholeHouseSpreadF: 8.0,
		StaleSensorAfter:     DefaultStaleAfter,
		BatteryLowPct:        20,
		BatteryCriticalPct:   10,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.ComfortLowF == 0 {
		t.ComfortLowF = d.ComfortLowF
	}
	if t.ComfortHighF == 0 {
		t.ComfortHighF = d.ComfortHighF
	}
	if t.DangerLowF == 0 {
		t.DangerLowF = d.DangerLowF
	}
	if t.DangerHighF == 0 {
		t.DangerHighF = d.DangerHighF
	}
	if t.MaxRatePerHour == 0 {
		t.MaxRatePerHour = d.MaxRatePerHour
	}
	if t.MaxZoneDeltaF == 0 {
		t.MaxZoneDeltaF = d.MaxZoneDeltaF
	}
	if t.MaxWholeHouseSpreadF == 0 {
		t.MaxWholeHouseSpreadF = d.MaxWholeHouseSpreadF
	}
	if t.StaleSensorAfter == 0 {
		t.StaleSensorAfter = d.StaleSensorAfter
	}
	if t.BatteryLowPct == 0 {
		t.BatteryLowPct = d.BatteryLowPct
	}
	if t.BatteryCriticalPct == 0 {
		t.BatteryCriticalPct = d.BatteryCriticalPct
	}
	return t
}

// DetectAnomalies evaluates every zone, its sensors, and the whole house
// against the thresholds. The rates map carries the per-zone rate-of-change
// the orchestrator already computed, so detection and per-zone analysis
// never disagree on trends. The weather snapshot travels with the call for
// detectors that need outdoor context; the current taxonomy is indoor-only.
func DetectAnomalies(zones []*Zone, weather *models.WeatherSnapshot, rates map[string]*RateOfChange, thresholds Thresholds, now time.Time) []Anomaly {
	_ = weather
	th := thresholds.withDefaults()

	var anomalies []Anomaly
	for _, z := range zones {
		anomalies = append(anomalies, detectZone(z, rates[z.ID], th, now)...)
	}

	if spread := CalcHouseSpread(zones, now); spread != nil && spread.SpreadF > th.MaxWholeHouseSpreadF {
		anomalies = append(anomalies, Anomaly{
			Level:  LevelWarning,
			Code:   CodeHouseSpread,
			ZoneID: HouseZoneID,
			Message: fmt.Sprintf("%.1f°F spread between %s and %s exceeds %.1f°F",
				spread.SpreadF, spread.ColdestZoneID, spread.WarmestZoneID, th.MaxWholeHouseSpreadF),
		})
	}
	return anomalies
}

func detectZone(z *Zone, rate *RateOfChange, th Thresholds, now time.Time) []Anomaly {
	var anomalies []Anomaly

	// At most one temperature-band anomaly per zone per cycle, checked
	// most-severe-first.
	if temp := z.CurrentTempF(now); temp != nil {
		switch {
		case *temp < th.DangerLowF:
			anomalies = append(anomalies, bandAnomaly(z, LevelDanger, CodeDangerCold,
				fmt.Sprintf("%s is dangerously cold at %.1f°F (below %.1f°F)", z.Name, *temp, th.DangerLowF)))
		case *temp < th.ComfortLowF:
			anomalies = append(anomalies, bandAnomaly(z, LevelWarning, CodeWarningCold,
				fmt.Sprintf("%s is cold at %.1f°F (below %.1f°F)", z.Name, *temp, th.ComfortLowF)))
		case *temp > th.DangerHighF:
			anomalies = append(anomalies, bandAnomaly(z, LevelDanger, CodeDangerHot,
				fmt.Sprintf("%s is dangerously hot at %.1f°F (above %.1f°F)", z.Name, *temp, th.DangerHighF)))
		case *temp > th.ComfortHighF:
			anomalies = append(anomalies, bandAnomaly(z, LevelWarning, CodeWarningHot,
				fmt.Sprintf("%s is warm at %.1f°F (above %.1f°F)", z.Name, *temp, th.ComfortHighF)))
		}
	}

	if rate != nil && math.Abs(rate.RatePerHour) > th.MaxRatePerHour {
		anomalies = append(anomalies, Anomaly{
			Level:  LevelWarning,
			Code:   CodeRapidChange,
			ZoneID: z.ID,
			Message: fmt.Sprintf("%s temperature %s at %.2f°F/hr (limit %.1f°F/hr)",
				z.Name, rate.Direction, math.Abs(rate.RatePerHour), th.MaxRatePerHour),
		})
	}

	if z.SensorCount() > 0 {
		switch z.CoverageStatus(now) {
		case CoverageUncovered:
			anomalies = append(anomalies, Anomaly{
				Level:   LevelWarning,
				Code:    CodeAllSensorsOffline,
				ZoneID:  z.ID,
				Message: fmt.Sprintf("all %d sensors in %s are offline", z.SensorCount(), z.Name),
			})
		case CoveragePartial:
			offline := 0
			for _, s := range z.Sensors() {
				if s.Status(now) != SensorOnline {
					offline++
				}
			}
			anomalies = append(anomalies, Anomaly{
				Level:   LevelInfo,
				Code:    CodeSensorsOffline,
				ZoneID:  z.ID,
				Message: fmt.Sprintf("%d of %d sensors in %s are offline", offline, z.SensorCount(), z.Name),
			})
		}
	}

	if z.SensorCount() > 1 {
		if spread := z.TempSpreadF(now); spread != nil && *spread > th.MaxZoneDeltaF {
			anomalies = append(anomalies, Anomaly{
				Level:   LevelWarning,
				Code:    CodeZoneSpread,
				ZoneID:  z.ID,
				Message: fmt.Sprintf("%.1f°F spread between sensors in %s exceeds %.1f°F", *spread, z.Name, th.MaxZoneDeltaF),
			})
		}
	}

	for _, s := range z.Sensors() {
		battery := s.CurrentBattery(now)
		if battery == nil {
			continue
		}
		switch {
		case *battery < th.BatteryCriticalPct:
			anomalies = append(anomalies, Anomaly{
				Level:    LevelWarning,
				Code:     CodeBatteryCritical,
				ZoneID:   z.ID,
				SensorID: s.ID,
				Message:  fmt.Sprintf("sensor %s battery critically low at %.0f%%", s.ID, *battery),
			})
		case *battery < th.BatteryLowPct:
			anomalies = append(anomalies, Anomaly{
				Level:    LevelInfo,
				Code:     CodeBatteryLow,
				ZoneID:   z.ID,
				SensorID: s.ID,
				Message:  fmt.Sprintf("sensor %s battery low at %.0f%%", s.ID, *battery),
			})
		}
	}

	return anomalies
}

func bandAnomaly(z *Zone, level Level, code, message string) Anomaly {
	return Anomaly{Level: level, Code: code, ZoneID: z.ID, Message: message}
}

// WorstLevel returns the highest severity present, or LevelOK for an empty
// list. This is the single overall status surfaced to the caller.
func WorstLevel(anomalies []Anomaly) Level {
	worst := LevelOK
	for _, a := range anomalies {
		if levelRank(a.Level) > levelRank(worst) {
			worst = a.Level
		}
	}
	return worst
}

// FilterByLevel returns only the anomalies at or above the given level
func FilterByLevel(anomalies []Anomaly, min Level) []Anomaly {
	var out []Anomaly
	for _, a := range anomalies {
		if levelRank(a.Level) >= levelRank(min) {
			out = append(out, a)
		}
	}
	return out
}
