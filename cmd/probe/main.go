package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/afroash/zone-monitor/internal/client"
	"github.com/afroash/zone-monitor/internal/config"
	"github.com/afroash/zone-monitor/internal/models"
	"github.com/afroash/zone-monitor/internal/probe"
)

const version = "v0.3.0"

func main() {
	configPath := flag.String("config", "configs/probe.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadProbeConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := cfg.Logging.NewLogger().With().Str("probe_id", cfg.Probe.ID).Logger()
	logger.Info().Str("version", version).Str("source", cfg.Probe.Source).Msg("Starting probe")

	var source probe.Source
	switch cfg.Probe.Source {
	case "synthetic":
		source = probe.NewSyntheticSource(cfg.Probe.BaseTempF, cfg.Probe.SwingF, cfg.Probe.BaseHumidity)
	default:
		source, err = probe.NewDHT11Source(cfg.Probe.GPIOPin)
		if err != nil {
			log.Fatalf("Failed to open sensor: %v", err)
		}
	}
	defer source.Close()

	reader := probe.NewReader(source, cfg.Probe.SensorID, cfg.Probe.ReadInterval, logger)
	buffer := client.NewReadingBuffer(cfg.Buffer.Size, cfg.Buffer.DropOldest)
	conn := client.NewConnection(client.ConnectionConfig{
		URL:                  cfg.Server.URL,
		AuthToken:            cfg.Server.AuthToken,
		ReconnectInterval:    cfg.Server.ReconnectInterval,
		MaxReconnectInterval: cfg.Server.MaxReconnectInterval,
		PingInterval:         cfg.Server.PingInterval,
		PongTimeout:          cfg.Server.PongTimeout,
	}, cfg.Probe.ID, buffer.Size, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go reader.Start(ctx)
	go conn.Run(ctx)

	// The synthetic source doubles as a weather station so a bench setup
	// still exercises outdoor-delta analysis on the server.
	if cfg.Probe.Source == "synthetic" {
		outdoor := probe.NewSyntheticSource(cfg.Probe.OutdoorBaseTempF, cfg.Probe.OutdoorSwingF, 60)
		go func() {
			ticker := time.NewTicker(cfg.Probe.WeatherInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if !conn.IsConnected() {
						continue
					}
					tempF, _, err := outdoor.Read()
					if err != nil {
						continue
					}
					snapshot, err := models.NewWeatherSnapshot(time.Now().UTC(), tempF)
					if err != nil {
						continue
					}
					if err := conn.SendWeather(snapshot); err != nil {
						logger.Warn().Err(err).Msg("Weather send failed")
					}
				}
			}
		}()
	}

	// Buffer every reading, flush batches while connected.
	go func() {
		ticker := time.NewTicker(cfg.Server.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case reading := <-reader.Readings():
				buffer.Push(reading)
			case <-ticker.C:
				if !conn.IsConnected() || buffer.IsEmpty() {
					continue
				}
				batch := buffer.PopBatch(cfg.Server.BatchSize)
				if err := conn.SendBatch(batch); err != nil {
					logger.Warn().Err(err).Int("count", len(batch)).Msg("Send failed, requeueing batch")
					buffer.Requeue(batch)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down probe...")
	cancel()

	// Best-effort final flush of whatever is still buffered.
	if conn.IsConnected() && !buffer.IsEmpty() {
		if err := conn.SendBatch(buffer.PopBatch(buffer.Size())); err != nil {
			logger.Warn().Err(err).Msg("Final flush failed")
		}
	}
	conn.Close()
	logger.Info().Str("buffer", buffer.String()).Msg("Probe stopped")
}
