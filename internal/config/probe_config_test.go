package config

import (
	"strings"
	"testing"
	"time"
)

const minimalProbeConfig = `
probe:
  id: probe-lr
  gpio_pin: 4
server:
  url: "ws://localhost:8081/sensor-stream"
  auth_token: "secret-token-1234"
`

func TestLoadProbeConfig_Defaults(t *testing.T) {
	cfg, err := LoadProbeConfig(writeConfig(t, minimalProbeConfig))
	if err != nil {
		t.Fatalf("LoadProbeConfig failed: %v", err)
	}

	if cfg.Probe.Source != "dht11" {
		t.Errorf("default source = %q, want dht11", cfg.Probe.Source)
	}
	if cfg.Probe.SensorID != "probe-lr" {
		t.Errorf("sensor id should default to the probe id, got %q", cfg.Probe.SensorID)
	}
	if cfg.Probe.ReadInterval != 30*time.Second {
		t.Errorf("default read interval = %v, want 30s", cfg.Probe.ReadInterval)
	}
	if cfg.Server.MaxReconnectInterval != 60*time.Second {
		t.Errorf("default max reconnect = %v, want 60s", cfg.Server.MaxReconnectInterval)
	}
	if cfg.Buffer.Size != 1000 || !cfg.Buffer.DropOldest {
		t.Errorf("default buffer = %+v, want 1000 drop-oldest", cfg.Buffer)
	}
}

func TestProbeConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ProbeConfig)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *ProbeConfig) {},
		},
		{
			name:    "missing probe id",
			mutate:  func(c *ProbeConfig) { c.Probe.ID = "" },
			wantErr: "probe id",
		},
		{
			name:    "missing auth token",
			mutate:  func(c *ProbeConfig) { c.Server.AuthToken = "" },
			wantErr: "auth token",
		},
		{
			name:    "unknown source",
			mutate:  func(c *ProbeConfig) { c.Probe.Source = "thermocouple" },
			wantErr: "unknown source",
		},
		{
			name: "dht11 without gpio pin",
			mutate: func(c *ProbeConfig) {
				c.Probe.Source = "dht11"
				c.Probe.GPIOPin = 0
			},
			wantErr: "gpio pin",
		},
		{
			name:    "read interval too short",
			mutate:  func(c *ProbeConfig) { c.Probe.ReadInterval = 100 * time.Millisecond },
			wantErr: "read interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadProbeConfig(writeConfig(t, minimalProbeConfig))
			if err != nil {
				t.Fatalf("LoadProbeConfig failed: %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadProbeConfig_EnvOverride(t *testing.T) {
	t.Setenv("PROBE_ID", "probe-env")
	t.Setenv("SERVER_URL", "ws://other:9000/sensor-stream")

	cfg, err := LoadProbeConfig(writeConfig(t, minimalProbeConfig))
	if err != nil {
		t.Fatalf("LoadProbeConfig failed: %v", err)
	}
	if cfg.Probe.ID != "probe-env" {
		t.Errorf("probe id = %q, want probe-env", cfg.Probe.ID)
	}
	if cfg.Server.URL != "ws://other:9000/sensor-stream" {
		t.Errorf("server url = %q, want the env override", cfg.Server.URL)
	}
}

func TestProbeConfig_StringMasksToken(t *testing.T) {
	cfg, err := LoadProbeConfig(writeConfig(t, minimalProbeConfig))
	if err != nil {
		t.Fatalf("LoadProbeConfig failed: %v", err)
	}
	if s := cfg.String(); strings.Contains(s, "secret-token-1234") {
		t.Errorf("String() leaks the auth token: %s", s)
	}
}
