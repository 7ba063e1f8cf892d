package engine

import (
	"testing"
	"time"

	"github.com/afroash/zone-monitor/internal/models"
)

func countByCode(anomalies []Anomaly, code string) int {
	n := 0
	for _, a := range anomalies {
		if a.Code == code {
			n++
		}
	}
	return n
}

func findByCode(anomalies []Anomaly, code string) *Anomaly {
	for i := range anomalies {
		if anomalies[i].Code == code {
			return &anomalies[i]
		}
	}
	return nil
}

func TestDetectAnomalies_TemperatureBands(t *testing.T) {
	tests := []struct {
		name         string
		temp         float64
		expectedCode string
		expectedLvl  Level
	}{
		{name: "dangerously cold", temp: 58, expectedCode: CodeDangerCold, expectedLvl: LevelDanger},
		{name: "cold", temp: 62, expectedCode: CodeWarningCold, expectedLvl: LevelWarning},
		{name: "comfortable", temp: 70, expectedCode: "", expectedLvl: LevelOK},
		{name: "warm", temp: 80, expectedCode: CodeWarningHot, expectedLvl: LevelWarning},
		{name: "dangerously hot", temp: 88, expectedCode: CodeDangerHot, expectedLvl: LevelDanger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := NewZone("z", "Zone")
			z.AddSensor(sensorAt(t, "s", tt.temp, time.Minute))

			anomalies := DetectAnomalies([]*Zone{z}, nil, nil, Thresholds{}, testBase)

			bandCodes := []string{CodeDangerCold, CodeWarningCold, CodeDangerHot, CodeWarningHot}
			total := 0
			for _, code := range bandCodes {
				total += countByCode(anomalies, code)
			}
			if tt.expectedCode == "" {
				if total != 0 {
					t.Fatalf("expected no band anomaly, got %+v", anomalies)
				}
				return
			}
			// At most one temperature-band anomaly per zone per cycle.
			if total != 1 {
				t.Fatalf("band anomaly count = %d, want 1 (%+v)", total, anomalies)
			}
			a := findByCode(anomalies, tt.expectedCode)
			if a == nil {
				t.Fatalf("missing anomaly %s in %+v", tt.expectedCode, anomalies)
			}
			if a.Level != tt.expectedLvl {
				t.Errorf("level = %v, want %v", a.Level, tt.expectedLvl)
			}
			if a.ZoneID != "z" {
				t.Errorf("zone = %v, want z", a.ZoneID)
			}
		})
	}
}

func TestDetectAnomalies_DangerSuppressesWarning(t *testing.T) {
	// 58°F is below both the danger and the comfort band; only the danger
	// anomaly may be emitted.
	z := NewZone("z", "Zone")
	z.AddSensor(sensorAt(t, "s", 58, time.Minute))

	anomalies := DetectAnomalies([]*Zone{z}, nil, nil, Thresholds{}, testBase)
	if countByCode(anomalies, CodeDangerCold) != 1 {
		t.Errorf("expected one danger_cold anomaly, got %+v", anomalies)
	}
	if countByCode(anomalies, CodeWarningCold) != 0 {
		t.Errorf("warning_cold must not duplicate danger_cold, got %+v", anomalies)
	}
}

func TestDetectAnomalies_RapidChange(t *testing.T) {
	z := NewZone("z", "Zone")
	z.AddSensor(sensorAt(t, "s", 70, time.Minute))

	rates := map[string]*RateOfChange{
		"z": {RatePerHour: -4.5, Direction: TrendFalling},
	}
	anomalies := DetectAnomalies([]*Zone{z}, nil, rates, Thresholds{}, testBase)

	a := findByCode(anomalies, CodeRapidChange)
	if a == nil {
		t.Fatalf("missing rapid change anomaly in %+v", anomalies)
	}
	if a.Level != LevelWarning {
		t.Errorf("level = %v, want warning", a.Level)
	}
}

func TestDetectAnomalies_Coverage(t *testing.T) {
	allOffline := NewZone("dead", "Dead Zone")
	allOffline.AddSensor(sensorAt(t, "d1", 70, time.Hour))
	allOffline.AddSensor(sensorAt(t, "d2", 70, time.Hour))

	partial := NewZone("half", "Half Zone")
	partial.AddSensor(sensorAt(t, "h1", 70, time.Minute))
	partial.AddSensor(sensorAt(t, "h2", 70, time.Hour))

	noSensors := NewZone("bare", "Bare Zone")

	anomalies := DetectAnomalies([]*Zone{allOffline, partial, noSensors}, nil, nil, Thresholds{}, testBase)

	if a := findByCode(anomalies, CodeAllSensorsOffline); a == nil || a.ZoneID != "dead" || a.Level != LevelWarning {
		t.Errorf("all-offline anomaly = %+v, want warning for zone dead", a)
	}
	if a := findByCode(anomalies, CodeSensorsOffline); a == nil || a.ZoneID != "half" || a.Level != LevelInfo {
		t.Errorf("partial anomaly = %+v, want info for zone half", a)
	}
	// A zone with no sensors at all emits no coverage anomaly.
	for _, a := range anomalies {
		if a.ZoneID == "bare" {
			t.Errorf("unexpected anomaly for sensorless zone: %+v", a)
		}
	}
}

func TestDetectAnomalies_ZoneSpread(t *testing.T) {
	z := NewZone("z", "Zone")
	z.AddSensor(sensorAt(t, "a", 68, time.Minute))
	z.AddSensor(sensorAt(t, "b", 75, time.Minute))

	anomalies := DetectAnomalies([]*Zone{z}, nil, nil, Thresholds{}, testBase)
	if a := findByCode(anomalies, CodeZoneSpread); a == nil || a.Level != LevelWarning {
		t.Errorf("zone spread anomaly = %+v, want warning", a)
	}

	// A single-sensor zone never emits a spread anomaly.
	single := NewZone("s", "Single")
	single.AddSensor(sensorAt(t, "only", 70, time.Minute))
	anomalies = DetectAnomalies([]*Zone{single}, nil, nil, Thresholds{}, testBase)
	if findByCode(anomalies, CodeZoneSpread) != nil {
		t.Error("single-sensor zone must not emit a spread anomaly")
	}
}

func TestDetectAnomalies_Battery(t *testing.T) {
	tests := []struct {
		name         string
		battery      float64
		expectedCode string
		expectedLvl  Level
	}{
		{name: "critical", battery: 5, expectedCode: CodeBatteryCritical, expectedLvl: LevelWarning},
		{name: "low", battery: 15, expectedCode: CodeBatteryLow, expectedLvl: LevelInfo},
		{name: "healthy", battery: 80, expectedCode: "", expectedLvl: LevelOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := NewZone("z", "Zone")
			s := NewSensor("s", "s", "")
			r, err := models.NewReading("s", testBase.Add(-time.Minute), 70, nil, models.Float(tt.battery))
			if err != nil {
				t.Fatalf("NewReading failed: %v", err)
			}
			s.IngestReadings([]*models.Reading{r})
			z.AddSensor(s)

			anomalies := DetectAnomalies([]*Zone{z}, nil, nil, Thresholds{}, testBase)
			if tt.expectedCode == "" {
				if findByCode(anomalies, CodeBatteryLow) != nil || findByCode(anomalies, CodeBatteryCritical) != nil {
					t.Errorf("unexpected battery anomaly: %+v", anomalies)
				}
				return
			}
			a := findByCode(anomalies, tt.expectedCode)
			if a == nil {
				t.Fatalf("missing %s in %+v", tt.expectedCode, anomalies)
			}
			if a.Level != tt.expectedLvl || a.SensorID != "s" {
				t.Errorf("anomaly = %+v, want level %v for sensor s", a, tt.expectedLvl)
			}
		})
	}
}

func TestDetectAnomalies_HouseSpread(t *testing.T) {
	a := NewZone("a", "A")
	a.AddSensor(sensorAt(t, "sa", 64, time.Minute))
	b := NewZone("b", "B")
	b.AddSensor(sensorAt(t, "sb", 76, time.Minute))

	anomalies := DetectAnomalies([]*Zone{a, b}, nil, nil, Thresholds{}, testBase)
	got := findByCode(anomalies, CodeHouseSpread)
	if got == nil {
		t.Fatalf("missing house spread anomaly in %+v", anomalies)
	}
	if got.ZoneID != HouseZoneID {
		t.Errorf("house anomaly zone = %v, want %v", got.ZoneID, HouseZoneID)
	}
	if got.Level != LevelWarning {
		t.Errorf("house anomaly level = %v, want warning", got.Level)
	}
}

func TestDetectAnomalies_ThresholdOverrides(t *testing.T) {
	z := NewZone("z", "Zone")
	z.AddSensor(sensorAt(t, "s", 70, time.Minute))

	// 70°F is comfortable with defaults but cold with a raised comfort
	// floor; the untouched fields keep their defaults.
	anomalies := DetectAnomalies([]*Zone{z}, nil, nil, Thresholds{ComfortLowF: 72}, testBase)
	if a := findByCode(anomalies, CodeWarningCold); a == nil {
		t.Errorf("expected warning_cold with overridden comfort floor, got %+v", anomalies)
	}
}

func TestWorstLevel(t *testing.T) {
	tests := []struct {
		name      string
		anomalies []Anomaly
		expected  Level
	}{
		{name: "empty", anomalies: nil, expected: LevelOK},
		{name: "info only", anomalies: []Anomaly{{Level: LevelInfo}}, expected: LevelInfo},
		{name: "warning beats info", anomalies: []Anomaly{{Level: LevelInfo}, {Level: LevelWarning}}, expected: LevelWarning},
		{name: "danger anywhere wins", anomalies: []Anomaly{{Level: LevelInfo}, {Level: LevelDanger}, {Level: LevelWarning}}, expected: LevelDanger},
		{name: "danger first", anomalies: []Anomaly{{Level: LevelDanger}, {Level: LevelInfo}}, expected: LevelDanger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WorstLevel(tt.anomalies); got != tt.expected {
				t.Errorf("WorstLevel() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFilterByLevel(t *testing.T) {
	anomalies := []Anomaly{
		{Level: LevelInfo, Code: "i"},
		{Level: LevelWarning, Code: "w"},
		{Level: LevelDanger, Code: "d"},
	}

	got := FilterByLevel(anomalies, LevelWarning)
	if len(got) != 2 {
		t.Fatalf("filtered count = %d, want 2", len(got))
	}
	for _, a := range got {
		if a.Level == LevelInfo {
			t.Errorf("info anomaly survived a warning filter: %+v", a)
		}
	}
}
