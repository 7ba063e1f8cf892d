package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/afroash/zone-monitor/internal/config"
	"github.com/afroash/zone-monitor/internal/server"
	"github.com/afroash/zone-monitor/internal/storage"
)

const version = "v0.3.0"

func main() {
	configPath := flag.String("config", "configs/server.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadAppConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := cfg.Logging.NewLogger()
	logger.Info().
		Str("version", version).
		Int("port", cfg.Server.Port).
		Int("zones", len(cfg.Zones)).
		Msg("Starting zone monitor server")

	store := server.NewMemoryStore(cfg.Server.BufferSize)

	var sqliteStore *storage.SQLiteStore
	var dbWriter *storage.DBWriter
	var retentionCleaner *storage.RetentionCleaner

	if cfg.Database.Enabled {
		dataDir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		sqliteStore, err = storage.NewSQLiteStore(cfg.Database.Path, logger)
		if err != nil {
			log.Fatalf("Failed to create SQLite store: %v", err)
		}

		dbWriter = storage.NewDBWriter(sqliteStore, storage.DBWriterConfig{
			BatchSize:   cfg.Database.BatchSize,
			FlushPeriod: cfg.Database.FlushPeriod,
			ChannelSize: cfg.Database.ChannelSize,
		}, logger)

		retentionCleaner = storage.NewRetentionCleaner(sqliteStore, storage.RetentionCleanerConfig{
			RetentionDays: cfg.Database.RetentionDays,
			CleanupPeriod: cfg.Database.CleanupPeriod,
		}, logger)
	}

	zones := cfg.BuildZones(logger)
	refresher := server.NewRefresher(store, zones, cfg.AnalyzeOptions(), cfg.Analysis.RefreshInterval, logger)
	refresher.Start()

	var history server.HistoricalStore
	if sqliteStore != nil {
		history = sqliteStore
	}
	apiHandler := server.NewAPIHandler(store, refresher, history, logger)

	var historyWriter server.HistoryWriter
	if dbWriter != nil {
		historyWriter = dbWriter
	}
	ingest := server.NewHandler(
		cfg.Server.AuthToken,
		store,
		historyWriter,
		logger,
		cfg.Server.AllowedOrigins...,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/sensor-stream", ingest.ServeHTTP)
	mux.HandleFunc("/api/analysis", apiHandler.HandleAnalysis)
	mux.HandleFunc("/api/zones", apiHandler.HandleZones)
	mux.HandleFunc("/api/zones/series", apiHandler.HandleZoneSeries)
	mux.HandleFunc("/api/anomalies", apiHandler.HandleAnomalies)
	mux.HandleFunc("/api/history", apiHandler.HandleHistory)
	mux.HandleFunc("/api/daily/stats", apiHandler.HandleDailyStats)
	mux.HandleFunc("/api/stats", apiHandler.HandleStats)
	mux.HandleFunc("/health", apiHandler.HandleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down server...")

	refresher.Stop()
	if dbWriter != nil {
		dbWriter.Stop()
	}
	if retentionCleaner != nil {
		retentionCleaner.Stop()
	}
	if sqliteStore != nil {
		sqliteStore.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
	}

	logger.Info().Msg("Server stopped")
}
