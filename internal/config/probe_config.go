package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProbeConfig holds all configuration for a probe
type ProbeConfig struct {
	Probe   ProbeSettings       `yaml:"probe"`
	Server  ProbeServerSettings `yaml:"server"`
	Buffer  BufferSettings      `yaml:"buffer"`
	Logging LoggingConfig       `yaml:"logging"`
}

// ProbeSettings contains probe-specific settings
type ProbeSettings struct {
	ID       string `yaml:"id"`
	SensorID string `yaml:"sensor_id"`
	Location string `yaml:"location"`
	// Source selects the measurement source: "dht11" or "synthetic"
	Source       string        `yaml:"source"`
	GPIOPin      int           `yaml:"gpio_pin"`
	ReadInterval time.Duration `yaml:"read_interval"`
	// Synthetic source shape, ignored for hardware sources
	BaseTempF    float64 `yaml:"base_temp_f"`
	SwingF       float64 `yaml:"swing_f"`
	BaseHumidity float64 `yaml:"base_humidity"`
	// Synthetic outdoor weather, reported alongside indoor readings
	OutdoorBaseTempF float64       `yaml:"outdoor_base_temp_f"`
	OutdoorSwingF    float64       `yaml:"outdoor_swing_f"`
	WeatherInterval  time.Duration `yaml:"weather_interval"`
}

// ProbeServerSettings contains connection settings for the dashboard server
type ProbeServerSettings struct {
	URL                  string        `yaml:"url"`
	AuthToken            string        `yaml:"auth_token"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	ReconnectInterval    time.Duration `yaml:"reconnect_interval"`
	MaxReconnectInterval time.Duration `yaml:"max_reconnect_interval"`
	PingInterval         time.Duration `yaml:"ping_interval"`
	PongTimeout          time.Duration `yaml:"pong_timeout"`
	BatchSize            int           `yaml:"batch_size"`
	FlushInterval        time.Duration `yaml:"flush_interval"`
}

// BufferSettings contains settings for the offline reading buffer
type BufferSettings struct {
	Size       int  `yaml:"size"`
	DropOldest bool `yaml:"drop_oldest"`
}

// LoadProbeConfig loads probe configuration from a YAML file
func LoadProbeConfig(path string) (*ProbeConfig, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var config ProbeConfig
	if err := yaml.Unmarshal(yamlData, &config); err != nil {
		return nil, fmt.Errorf("unmarshalling config file: %w", err)
	}

	config.ApplyDefaults()
	config.OverrideFromEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &config, nil
}

// ApplyDefaults sets default values for any unset fields
func (c *ProbeConfig) ApplyDefaults() {
	if c.Probe.Source == "" {
		c.Probe.Source = "dht11"
	}
	if c.Probe.SensorID == "" {
		c.Probe.SensorID = c.Probe.ID
	}
	if c.Probe.ReadInterval == 0 {
		c.Probe.ReadInterval = 30 * time.Second
	}
	if c.Probe.BaseTempF == 0 {
		c.Probe.BaseTempF = 70
	}
	if c.Probe.SwingF == 0 {
		c.Probe.SwingF = 4
	}
	if c.Probe.BaseHumidity == 0 {
		c.Probe.BaseHumidity = 45
	}
	if c.Probe.OutdoorBaseTempF == 0 {
		c.Probe.OutdoorBaseTempF = 45
	}
	if c.Probe.OutdoorSwingF == 0 {
		c.Probe.OutdoorSwingF = 20
	}
	if c.Probe.WeatherInterval == 0 {
		c.Probe.WeatherInterval = 5 * time.Minute
	}

	if c.Server.ConnectTimeout == 0 {
		c.Server.ConnectTimeout = 10 * time.Second
	}
	if c.Server.ReconnectInterval == 0 {
		c.Server.ReconnectInterval = 1 * time.Second
	}
	if c.Server.MaxReconnectInterval == 0 {
		c.Server.MaxReconnectInterval = 60 * time.Second
	}
	if c.Server.PingInterval == 0 {
		c.Server.PingInterval = 30 * time.Second
	}
	if c.Server.PongTimeout == 0 {
		c.Server.PongTimeout = 90 * time.Second
	}
	if c.Server.BatchSize == 0 {
		c.Server.BatchSize = 20
	}
	if c.Server.FlushInterval == 0 {
		c.Server.FlushInterval = 15 * time.Second
	}

	if c.Buffer.Size == 0 {
		c.Buffer.Size = 1000
		c.Buffer.DropOldest = true
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// OverrideFromEnv overrides config values from environment variables
func (c *ProbeConfig) OverrideFromEnv() {
	if v := os.Getenv("PROBE_ID"); v != "" {
		c.Probe.ID = v
	}
	if v := os.Getenv("SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("SERVER_AUTH_TOKEN"); v != "" {
		c.Server.AuthToken = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks if the configuration is valid
func (c *ProbeConfig) Validate() error {
	if c.Probe.ID == "" {
		return fmt.Errorf("probe id is required")
	}
	if c.Server.URL == "" {
		return fmt.Errorf("server url is required")
	}
	if c.Server.AuthToken == "" {
		return fmt.Errorf("server auth token is required")
	}
	switch c.Probe.Source {
	case "dht11", "synthetic":
	default:
		return fmt.Errorf("unknown source %q (want dht11 or synthetic)", c.Probe.Source)
	}
	if c.Probe.Source == "dht11" && c.Probe.GPIOPin == 0 {
		return fmt.Errorf("gpio pin is required for the dht11 source")
	}
	if c.Probe.ReadInterval < time.Second {
		return fmt.Errorf("read interval must be at least 1 second")
	}
	return nil
}

// String returns a safe string representation (hides auth token)
func (c *ProbeConfig) String() string {
	return fmt.Sprintf("ProbeConfig{Probe: %+v, Server: [%s, Token=%s], Buffer: %+v}",
		c.Probe,
		c.Server.URL,
		maskToken(c.Server.AuthToken),
		c.Buffer,
	)
}
