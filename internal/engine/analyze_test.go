package engine

import (
	"testing"
	"time"

	"github.com/afroash/zone-monitor/internal/models"
)

// houseFixture builds a three-zone graph with fresh readings
func houseFixture(t *testing.T) []*Zone {
	t.Helper()

	living := NewZone("living", "Living Room")
	living.AdjacentZoneIDs = []string{"kitchen"}
	livingSensor := NewSensor("lr-1", "Shelf", "")
	for i := 0; i < 12; i++ {
		age := time.Duration(11-i) * 5 * time.Minute
		livingSensor.IngestReadings([]*models.Reading{
			mkReading(t, "lr-1", testBase.Add(-age), 70),
		})
	}
	living.AddSensor(livingSensor)

	kitchen := NewZone("kitchen", "Kitchen")
	kitchen.AdjacentZoneIDs = []string{"living", "attic"} // attic is not in the graph
	kitchen.AddSensor(sensorAt(t, "k-1", 68, time.Minute))

	bedroom := NewZone("bedroom", "Bedroom")
	bedroom.AddSensor(sensorAt(t, "b-1", 71, time.Minute))

	return []*Zone{living, kitchen, bedroom}
}

func TestAnalyzeZones_PerZone(t *testing.T) {
	zones := houseFixture(t)
	weather, err := models.NewWeatherSnapshot(testBase, 30)
	if err != nil {
		t.Fatalf("NewWeatherSnapshot failed: %v", err)
	}

	result := AnalyzeZones(zones, weather, AnalyzeOptions{}, testBase)

	if len(result.Zones) != 3 {
		t.Fatalf("zone analyses = %d, want 3", len(result.Zones))
	}
	living := result.Zones["living"]
	if living == nil {
		t.Fatal("missing analysis for living")
	}
	if living.CurrentTempF == nil || *living.CurrentTempF != 70.0 {
		t.Errorf("living temp = %v, want 70.0", living.CurrentTempF)
	}
	if living.Rate == nil || living.Rate.Direction != TrendStable {
		t.Errorf("living rate = %+v, want stable", living.Rate)
	}
	if living.OutdoorDeltaF == nil || *living.OutdoorDeltaF != 40.0 {
		t.Errorf("living outdoor delta = %v, want 40.0", living.OutdoorDeltaF)
	}
	if living.HeatLoss == nil || *living.HeatLoss != 40.0 {
		t.Errorf("living heat loss = %v, want 40.0 at default resistance", living.HeatLoss)
	}
	if len(living.Series) == 0 {
		t.Error("living series is empty")
	}
}

func TestAnalyzeZones_ResistanceOverride(t *testing.T) {
	zones := houseFixture(t)
	weather, _ := models.NewWeatherSnapshot(testBase, 30)

	result := AnalyzeZones(zones, weather, AnalyzeOptions{
		ZoneResistance: map[string]float64{"living": 2.0},
	}, testBase)

	if got := result.Zones["living"].HeatLoss; got == nil || *got != 20.0 {
		t.Errorf("living heat loss with R=2 = %v, want 20.0", got)
	}
	// Other zones keep the default resistance.
	if got := result.Zones["kitchen"].HeatLoss; got == nil || *got != 38.0 {
		t.Errorf("kitchen heat loss = %v, want 38.0", got)
	}
}

func TestAnalyzeZones_NoWeather(t *testing.T) {
	result := AnalyzeZones(houseFixture(t), nil, AnalyzeOptions{}, testBase)
	for id, za := range result.Zones {
		if za.OutdoorDeltaF != nil || za.HeatLoss != nil {
			t.Errorf("zone %s has outdoor results without weather: %+v", id, za)
		}
	}
}

func TestAnalyzeZones_AdjacentPairDedup(t *testing.T) {
	// living→kitchen and kitchen→living must collapse into one undirected
	// pair regardless of iteration order; kitchen→attic points at an
	// unknown zone and is skipped.
	result := AnalyzeZones(houseFixture(t), nil, AnalyzeOptions{}, testBase)

	if len(result.AdjacentDeltas) != 1 {
		t.Fatalf("adjacent deltas = %d, want 1 (%+v)", len(result.AdjacentDeltas), result.AdjacentDeltas)
	}
	d := result.AdjacentDeltas[0]
	pair := pairKey(d.ZoneAID, d.ZoneBID)
	if pair != "kitchen|living" {
		t.Errorf("delta pair = %v, want kitchen|living", pair)
	}
	if d.AbsDeltaF != 2.0 {
		t.Errorf("delta = %v, want 2.0", d.AbsDeltaF)
	}
}

func TestAnalyzeZones_HouseMetrics(t *testing.T) {
	result := AnalyzeZones(houseFixture(t), nil, AnalyzeOptions{}, testBase)

	if result.HouseSpread == nil {
		t.Fatal("missing house spread")
	}
	if result.HouseSpread.SpreadF != 3.0 {
		t.Errorf("house spread = %v, want 3.0", result.HouseSpread.SpreadF)
	}
	if result.HouseSpread.ColdestZoneID != "kitchen" || result.HouseSpread.WarmestZoneID != "bedroom" {
		t.Errorf("coldest/warmest = %v/%v, want kitchen/bedroom",
			result.HouseSpread.ColdestZoneID, result.HouseSpread.WarmestZoneID)
	}
	if result.Uniformity == nil || *result.Uniformity < 0 || *result.Uniformity > 1 {
		t.Errorf("uniformity = %v, want within [0,1]", result.Uniformity)
	}
}

func TestAnalyzeZones_OverallStatus(t *testing.T) {
	// All zones comfortable and close together: no findings.
	result := AnalyzeZones(houseFixture(t), nil, AnalyzeOptions{}, testBase)
	if result.OverallStatus != LevelOK {
		t.Errorf("overall status = %v, want ok (%+v)", result.OverallStatus, result.Anomalies)
	}

	cold := NewZone("cellar", "Cellar")
	cold.AddSensor(sensorAt(t, "c-1", 55, time.Minute))
	result = AnalyzeZones([]*Zone{cold}, nil, AnalyzeOptions{}, testBase)
	if result.OverallStatus != LevelDanger {
		t.Errorf("overall status with a 55°F zone = %v, want danger", result.OverallStatus)
	}
	if WorstLevel(result.Anomalies) != result.OverallStatus {
		t.Error("overall status must equal the worst anomaly level")
	}
}

func TestAnalyzeZones_DetectionSeesOrchestratorRates(t *testing.T) {
	// A zone falling 6°F over 30 minutes trips the rate detector using the
	// same regression the per-zone analysis reports.
	z := NewZone("z", "Zone")
	s := NewSensor("s", "s", "")
	for i := 0; i <= 6; i++ {
		age := time.Duration(6-i) * 5 * time.Minute
		s.IngestReadings([]*models.Reading{
			mkReading(t, "s", testBase.Add(-age), 76-float64(i)),
		})
	}
	z.AddSensor(s)

	result := AnalyzeZones([]*Zone{z}, nil, AnalyzeOptions{}, testBase)

	rate := result.Zones["z"].Rate
	if rate == nil || rate.Direction != TrendFalling {
		t.Fatalf("rate = %+v, want falling", rate)
	}
	found := false
	for _, a := range result.Anomalies {
		if a.Code == CodeRapidChange && a.ZoneID == "z" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a rapid change anomaly, got %+v", result.Anomalies)
	}
}

func TestAnalyzeZones_EmptyGraph(t *testing.T) {
	result := AnalyzeZones(nil, nil, AnalyzeOptions{}, testBase)
	if len(result.Zones) != 0 || len(result.Anomalies) != 0 {
		t.Errorf("unexpected results for empty graph: %+v", result)
	}
	if result.OverallStatus != LevelOK {
		t.Errorf("overall status = %v, want ok", result.OverallStatus)
	}
	if result.HouseSpread != nil || result.Uniformity != nil {
		t.Error("house metrics must be absent for an empty graph")
	}
}
