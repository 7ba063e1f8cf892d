package probe

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/afroash/dht"
)

// Source defines where a probe gets its measurements from
type Source interface {
	// Read performs a single measurement.
	// Returns temperature (°F), relative humidity (%), and any error.
	Read() (tempF float64, humidity float64, err error)

	// Close cleans up any underlying resources
	Close() error
}

// DHT11Source reads from DHT11 hardware on a GPIO pin
type DHT11Source struct {
	pin        int
	maxRetries int
	sensor     *dht.Sensor
}

// NewDHT11Source creates a source backed by a DHT11 on the given pin
func NewDHT11Source(pin int) (*DHT11Source, error) {
	sensor, err := dht.NewDHT11(pin)
	if err != nil {
		return nil, fmt.Errorf("opening DHT11 on pin %d: %w", pin, err)
	}
	return &DHT11Source{
		pin:        pin,
		maxRetries: 3,
		sensor:     sensor,
	}, nil
}

// Read performs a reading with retry logic, converting to Fahrenheit
func (d *DHT11Source) Read() (float64, float64, error) {
	reading, err := d.sensor.ReadRetry(d.maxRetries)
	if err != nil {
		return 0, 0, fmt.Errorf("after %d retries, failed to read from sensor", d.maxRetries)
	}
	if err := validateReading(reading.Temperature, reading.Humidity); err != nil {
		return 0, 0, fmt.Errorf("invalid reading: %w", err)
	}
	return celsiusToFahrenheit(reading.Temperature), reading.Humidity, nil
}

// Close cleans up GPIO resources
func (d *DHT11Source) Close() error {
	return d.sensor.Close()
}

// validateReading sanity-checks raw sensor output (°C)
func validateReading(tempC, humidity float64) error {
	const (
		minTemp     = -20.0
		maxTemp     = 60.0
		minHumidity = 0.0
		maxHumidity = 100.0
	)
	if tempC < minTemp || tempC > maxTemp {
		return fmt.Errorf("temperature %.1f°C out of range [%.0f, %.0f]", tempC, minTemp, maxTemp)
	}
	if humidity < minHumidity || humidity > maxHumidity {
		return fmt.Errorf("humidity %.1f%% out of range [0, 100]", humidity)
	}
	return nil
}

func celsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// SyntheticSource generates plausible indoor readings without hardware.
// Temperature follows a diurnal curve around a base with small noise; useful
// for development and for exercising the full pipeline on a laptop.
type SyntheticSource struct {
	BaseTempF    float64
	SwingF       float64 // peak-to-trough amplitude of the daily cycle
	BaseHumidity float64
	rng          *rand.Rand
	now          func() time.Time
}

// NewSyntheticSource creates a synthetic source centered on baseTempF
func NewSyntheticSource(baseTempF, swingF, baseHumidity float64) *SyntheticSource {
	return &SyntheticSource{
		BaseTempF:    baseTempF,
		SwingF:       swingF,
		BaseHumidity: baseHumidity,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		now:          time.Now,
	}
}

// Read returns the next synthetic measurement
func (s *SyntheticSource) Read() (float64, float64, error) {
	t := s.now()
	// Coldest around 4am, warmest around 4pm.
	hourOfDay := float64(t.Hour()) + float64(t.Minute())/60
	phase := (hourOfDay - 10) / 24 * 2 * math.Pi
	temp := s.BaseTempF + s.SwingF/2*math.Sin(phase) + s.rng.NormFloat64()*0.3
	humidity := s.BaseHumidity + s.rng.NormFloat64()*2
	if humidity < 0 {
		humidity = 0
	}
	if humidity > 100 {
		humidity = 100
	}
	return temp, humidity, nil
}

// Close is a no-op for the synthetic source
func (s *SyntheticSource) Close() error {
	return nil
}
