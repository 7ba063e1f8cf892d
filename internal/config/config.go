package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/afroash/zone-monitor/internal/engine"
)

// AppConfig holds all configuration for the dashboard server
type AppConfig struct {
	Server   ServerSettings   `yaml:"server"`
	Database DatabaseSettings `yaml:"database"`
	Analysis AnalysisSettings `yaml:"analysis"`
	Zones    []ZoneConfig     `yaml:"zones"`
	Logging  LoggingConfig    `yaml:"logging"`
}

// ServerSettings contains HTTP server configuration
type ServerSettings struct {
	Port           int           `yaml:"port"`
	Host           string        `yaml:"host"`
	AuthToken      string        `yaml:"auth_token"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	// BufferSize caps the per-sensor in-memory reading ring.
	BufferSize int `yaml:"buffer_size"`
}

// DatabaseSettings contains SQLite history configuration
type DatabaseSettings struct {
	Enabled       bool          `yaml:"enabled"`
	Path          string        `yaml:"path"`
	BatchSize     int           `yaml:"batch_size"`
	FlushPeriod   time.Duration `yaml:"flush_period"`
	ChannelSize   int           `yaml:"channel_size"`
	RetentionDays int           `yaml:"retention_days"`
	CleanupPeriod time.Duration `yaml:"cleanup_period"`
}

// AnalysisSettings tunes the analytics engine. Threshold fields are
// pointers so a caller can override any subset and leave the rest at their
// defaults; nil always means "use the default".
type AnalysisSettings struct {
	RefreshInterval      time.Duration     `yaml:"refresh_interval"`
	BucketWidth          time.Duration     `yaml:"bucket_width"`
	SeriesWindow         time.Duration     `yaml:"series_window"`
	RateWindow           time.Duration     `yaml:"rate_window"`
	StabilityCutoff      float64           `yaml:"stability_cutoff"`
	StaleAfter           time.Duration     `yaml:"stale_after"`
	DefaultResistance    float64           `yaml:"default_resistance"`
	UniformityToleranceF float64           `yaml:"uniformity_tolerance_f"`
	Thresholds           ThresholdSettings `yaml:"thresholds"`
}

// ThresholdSettings mirrors engine.Thresholds for YAML, with optional fields
type ThresholdSettings struct {
	ComfortLowF          *float64 `yaml:"comfort_low_f"`
	ComfortHighF         *float64 `yaml:"comfort_high_f"`
	DangerLowF           *float64 `yaml:"danger_low_f"`
	DangerHighF          *float64 `yaml:"danger_high_f"`
	MaxRatePerHour       *float64 `yaml:"max_rate_per_hour"`
	MaxZoneDeltaF        *float64 `yaml:"max_zone_delta_f"`
	MaxWholeHouseSpreadF *float64 `yaml:"max_whole_house_spread_f"`
	BatteryLowPct        *float64 `yaml:"battery_low_pct"`
	BatteryCriticalPct   *float64 `yaml:"battery_critical_pct"`
}

// ZoneConfig declares one zone of the house
type ZoneConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	HVACZone string `yaml:"hvac_zone"`
	// Adjacent lists neighboring zone IDs. Declarations should be
	// symmetric; asymmetric ones are auto-symmetrized at load with a
	// warning.
	Adjacent          []string       `yaml:"adjacent"`
	ThermalResistance *float64       `yaml:"thermal_resistance"`
	Layout            map[string]any `yaml:"layout"` // floor-plan hint for the frontend, opaque here
	Sensors           []SensorConfig `yaml:"sensors"`
}

// SensorConfig declares one sensor inside a zone
type SensorConfig struct {
	ID       string `yaml:"id"`
	Label    string `yaml:"label"`
	DeviceID string `yaml:"device_id"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NewLogger builds a zerolog logger from the settings
func (lc LoggingConfig) NewLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if lc.Format == "console" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}

// LoadAppConfig loads server configuration from a YAML file
func LoadAppConfig(path string) (*AppConfig, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var config AppConfig
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
func (c *AppConfig) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8081
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 60 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.BufferSize == 0 {
		c.Server.BufferSize = 500
	}

	if c.Database.Path == "" {
		c.Database.Path = "./data/zone-monitor.db"
	}
	if c.Database.BatchSize == 0 {
		c.Database.BatchSize = 100
	}
	if c.Database.FlushPeriod == 0 {
		c.Database.FlushPeriod = 5 * time.Second
	}
	if c.Database.ChannelSize == 0 {
		c.Database.ChannelSize = 1000
	}
	if c.Database.RetentionDays == 0 {
		c.Database.RetentionDays = 30
	}
	if c.Database.CleanupPeriod == 0 {
		c.Database.CleanupPeriod = 1 * time.Hour
	}

	if c.Analysis.RefreshInterval == 0 {
		c.Analysis.RefreshInterval = 5 * time.Minute
	}
	if c.Analysis.BucketWidth == 0 {
		c.Analysis.BucketWidth = engine.DefaultBucketWidth
	}
	if c.Analysis.SeriesWindow == 0 {
		c.Analysis.SeriesWindow = engine.DefaultSeriesWindow
	}
	if c.Analysis.RateWindow == 0 {
		c.Analysis.RateWindow = engine.DefaultRateWindow
	}
	if c.Analysis.StabilityCutoff == 0 {
		c.Analysis.StabilityCutoff = engine.DefaultStabilityCutoff
	}
	if c.Analysis.StaleAfter == 0 {
		c.Analysis.StaleAfter = engine.DefaultStaleAfter
	}
	if c.Analysis.DefaultResistance == 0 {
		c.Analysis.DefaultResistance = engine.DefaultThermalResistance
	}
	if c.Analysis.UniformityToleranceF == 0 {
		c.Analysis.UniformityToleranceF = engine.DefaultUniformityToleranceF
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// OverrideFromEnv overrides config values from environment variables
func (c *AppConfig) OverrideFromEnv() {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SERVER_AUTH_TOKEN"); v != "" {
		c.Server.AuthToken = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks if the configuration is valid
func (c *AppConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.Server.AuthToken == "" {
		return fmt.Errorf("server auth token is required")
	}
	if c.Server.BufferSize < 10 {
		return fmt.Errorf("buffer size must be at least 10")
	}
	if c.Analysis.RefreshInterval < time.Second {
		return fmt.Errorf("refresh interval must be at least 1 second")
	}

	zoneIDs := make(map[string]struct{}, len(c.Zones))
	sensorIDs := make(map[string]string)
	for _, zc := range c.Zones {
		if zc.ID == "" {
			return fmt.Errorf("zone with empty id")
		}
		if _, dup := zoneIDs[zc.ID]; dup {
			return fmt.Errorf("duplicate zone id %q", zc.ID)
		}
		zoneIDs[zc.ID] = struct{}{}
		if zc.ThermalResistance != nil && *zc.ThermalResistance <= 0 {
			return fmt.Errorf("zone %q: thermal resistance must be positive", zc.ID)
		}
		for _, sc := range zc.Sensors {
			if sc.ID == "" {
				return fmt.Errorf("zone %q: sensor with empty id", zc.ID)
			}
			if owner, dup := sensorIDs[sc.ID]; dup {
				return fmt.Errorf("sensor id %q declared in both %q and %q", sc.ID, owner, zc.ID)
			}
			sensorIDs[sc.ID] = zc.ID
		}
	}
	for _, zc := range c.Zones {
		for _, adj := range zc.Adjacent {
			if adj == zc.ID {
				return fmt.Errorf("zone %q declares itself adjacent", zc.ID)
			}
			if _, ok := zoneIDs[adj]; !ok {
				return fmt.Errorf("zone %q declares unknown adjacent zone %q", zc.ID, adj)
			}
		}
	}
	return nil
}

// BuildZones constructs the engine zone graph from the declared topology.
// Adjacency is canonicalized into an undirected edge set here, once, rather
// than re-derived every analysis cycle: an asymmetric declaration is
// symmetrized and logged so a config typo cannot silently drop one
// direction's delta.
func (c *AppConfig) BuildZones(logger zerolog.Logger) []*engine.Zone {
	zones := make([]*engine.Zone, 0, len(c.Zones))
	byID := make(map[string]*engine.Zone, len(c.Zones))

	for _, zc := range c.Zones {
		z := engine.NewZone(zc.ID, zc.Name)
		z.HVACZone = zc.HVACZone
		for _, sc := range zc.Sensors {
			s := engine.NewSensor(sc.ID, sc.Label, sc.DeviceID)
			s.StaleAfter = c.Analysis.StaleAfter
			z.AddSensor(s)
		}
		zones = append(zones, z)
		byID[zc.ID] = z
	}

	declared := make(map[string]struct{})
	for _, zc := range c.Zones {
		for _, adj := range zc.Adjacent {
			declared[zc.ID+"->"+adj] = struct{}{}
		}
	}
	for _, zc := range c.Zones {
		for _, adj := range zc.Adjacent {
			if _, ok := declared[adj+"->"+zc.ID]; !ok {
				logger.Warn().
					Str("zone", zc.ID).
					Str("adjacent", adj).
					Msg("Asymmetric adjacency declaration, symmetrizing")
			}
			addAdjacency(byID[zc.ID], adj)
			addAdjacency(byID[adj], zc.ID)
		}
	}
	return zones
}

func addAdjacency(z *engine.Zone, adjID string) {
	for _, existing := range z.AdjacentZoneIDs {
		if existing == adjID {
			return
		}
	}
	z.AdjacentZoneIDs = append(z.AdjacentZoneIDs, adjID)
}

// EngineThresholds converts the optional YAML thresholds to the engine's
// form, leaving defaults for unset fields.
func (c *AppConfig) EngineThresholds() engine.Thresholds {
	th := engine.DefaultThresholds()
	ts := c.Analysis.Thresholds
	if ts.ComfortLowF != nil {
		th.ComfortLowF = *ts.ComfortLowF
	}
	if ts.ComfortHighF != nil {
		th.ComfortHighF = *ts.ComfortHighF
	}
	if ts.DangerLowF != nil {
		th.DangerLowF = *ts.DangerLowF
	}
	if ts.DangerHighF != nil {
		th.DangerHighF = *ts.DangerHighF
	}
	if ts.MaxRatePerHour != nil {
		th.MaxRatePerHour = *ts.MaxRatePerHour
	}
	if ts.MaxZoneDeltaF != nil {
		th.MaxZoneDeltaF = *ts.MaxZoneDeltaF
	}
	if ts.MaxWholeHouseSpreadF != nil {
		th.MaxWholeHouseSpreadF = *ts.MaxWholeHouseSpreadF
	}
	if ts.BatteryLowPct != nil {
		th.BatteryLowPct = *ts.BatteryLowPct
	}
	if ts.BatteryCriticalPct != nil {
		th.BatteryCriticalPct = *ts.BatteryCriticalPct
	}
	th.StaleSensorAfter = c.Analysis.StaleAfter
	return th
}

// AnalyzeOptions assembles the engine options for one analysis cycle
func (c *AppConfig) AnalyzeOptions() engine.AnalyzeOptions {
	resistance := make(map[string]float64)
	for _, zc := range c.Zones {
		if zc.ThermalResistance != nil {
			resistance[zc.ID] = *zc.ThermalResistance
		}
	}
	return engine.AnalyzeOptions{
		Thresholds:           c.EngineThresholds(),
		ZoneResistance:       resistance,
		DefaultResistance:    c.Analysis.DefaultResistance,
		SeriesWindow:         c.Analysis.SeriesWindow,
		RateWindow:           c.Analysis.RateWindow,
		StabilityCutoff:      c.Analysis.StabilityCutoff,
		BucketWidth:          c.Analysis.BucketWidth,
		UniformityToleranceF: c.Analysis.UniformityToleranceF,
	}
}

// String returns a safe string representation (hides auth token)
func (c *AppConfig) String() string {
	return fmt.Sprintf("AppConfig{Server: [%s:%d, Token=%s], Database: %+v, Zones: %d, Logging: %+v}",
		c.Server.Host,
		c.Server.Port,
		maskToken(c.Server.AuthToken),
		c.Database,
		len(c.Zones),
		c.Logging,
	)
}

// maskToken masks all but the first 4 characters of a token
func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}
