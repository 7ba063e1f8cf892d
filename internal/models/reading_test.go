package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

var testTime = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func TestNewReading(t *testing.T) {
	tests := []struct {
		name    string
		tempF   float64
		wantErr bool
	}{
		{name: "valid", tempF: 70.5},
		{name: "negative is fine", tempF: -10},
		{name: "NaN rejected", tempF: math.NaN(), wantErr: true},
		{name: "+Inf rejected", tempF: math.Inf(1), wantErr: true},
		{name: "-Inf rejected", tempF: math.Inf(-1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReading("s1", testTime, tt.tempF, nil, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewReading() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && r.TempF != tt.tempF {
				t.Errorf("TempF = %v, want %v", r.TempF, tt.tempF)
			}
		})
	}
}

func TestReading_Copy(t *testing.T) {
	r, err := NewReading("s1", testTime, 70, Float(40), Float(85))
	if err != nil {
		t.Fatalf("NewReading failed: %v", err)
	}

	cp := r.Copy()
	*cp.Humidity = 99
	cp.TempF = 0

	if r.TempF != 70 || *r.Humidity != 40 {
		t.Error("mutating the copy must not affect the original")
	}

	var nilReading *Reading
	if nilReading.Copy() != nil {
		t.Error("Copy of nil must be nil")
	}
}

func TestHydrateReadings(t *testing.T) {
	raw := []ReadingMessage{
		{SensorID: "a", Timestamp: testTime, TempF: 70},
		{SensorID: "b", Timestamp: testTime, TempF: math.NaN()},
		{SensorID: "c", Timestamp: testTime, TempF: 68, Humidity: Float(50)},
	}

	readings, dropped := HydrateReadings(raw)
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(readings) != 2 {
		t.Fatalf("hydrated = %d, want 2", len(readings))
	}
	if readings[1].Humidity == nil || *readings[1].Humidity != 50 {
		t.Errorf("humidity not carried through: %+v", readings[1])
	}
}

func TestReading_Wire(t *testing.T) {
	r, _ := NewReading("s1", testTime, 70, Float(40), nil)
	wire := r.Wire()

	if wire.SensorID != "s1" || wire.TempF != 70 {
		t.Errorf("wire = %+v", wire)
	}
	*wire.Humidity = 99
	if *r.Humidity != 40 {
		t.Error("Wire must copy optional fields")
	}
}

func TestMessage_RoundTrip(t *testing.T) {
	batch := BatchMessage{
		Readings: []ReadingMessage{{SensorID: "s1", Timestamp: testTime, TempF: 70}},
		Count:    1,
	}
	msg, err := NewMessage(MessageTypeBatch, batch)
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}

	encoded, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded Message
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Type != MessageTypeBatch {
		t.Errorf("type = %v, want batch", decoded.Type)
	}

	var got BatchMessage
	if err := decoded.UnmarshalPayload(&got); err != nil {
		t.Fatalf("UnmarshalPayload failed: %v", err)
	}
	if got.Count != 1 || got.Readings[0].SensorID != "s1" {
		t.Errorf("payload = %+v", got)
	}
}

func TestNewWeatherSnapshot(t *testing.T) {
	ws, err := NewWeatherSnapshot(testTime, 30)
	if err != nil {
		t.Fatalf("NewWeatherSnapshot failed: %v", err)
	}
	if ws.OutdoorTempF != 30 {
		t.Errorf("temp = %v, want 30", ws.OutdoorTempF)
	}

	if _, err := NewWeatherSnapshot(testTime, math.NaN()); err == nil {
		t.Error("expected an error for a NaN outdoor temperature")
	}
}
