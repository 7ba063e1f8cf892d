package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/afroash/zone-monitor/internal/metrics"
	"github.com/afroash/zone-monitor/internal/models"
)

// ReadingStore is the landing area the ingest handler writes into
type ReadingStore interface {
	Add(reading *models.Reading)
	SetWeather(snapshot *models.WeatherSnapshot)
	Weather() *models.WeatherSnapshot
	GetLatest(sensorID string, n int) []*models.Reading
	GetCurrentReading(sensorID string) *models.Reading
	GetSensorIDs() []string
	Stats() StoreStats
}

// HistoryWriter receives accepted readings for durable storage. It may be
// nil when history is disabled.
type HistoryWriter interface {
	Enqueue(reading *models.Reading)
}

// Constants for WebSocket timeouts
const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

// Handler manages WebSocket connections from probes
type Handler struct {
	upgrader       websocket.Upgrader
	authToken      string
	store          ReadingStore
	history        HistoryWriter
	logger         zerolog.Logger
	activeProbes   map[string]*ProbeConnection
	connToProbeID  map[string]string // maps conn.RemoteAddr().String() to the probe's own ID
	allowedOrigins []string
	mutex          sync.RWMutex
}

// ProbeConnection represents an active probe connection
type ProbeConnection struct {
	ProbeID     string `json:"probe_id"`
	Conn        *websocket.Conn
	LastSeen    time.Time
	ConnectedAt time.Time
}

// NewHandler creates a new WebSocket ingest handler
func NewHandler(authToken string, store ReadingStore, history HistoryWriter, logger zerolog.Logger, allowedOrigins ...string) *Handler {
	h := &Handler{
		authToken:      authToken,
		store:          store,
		history:        history,
		logger:         logger,
		activeProbes:   make(map[string]*ProbeConnection),
		connToProbeID:  make(map[string]string),
		allowedOrigins: allowedOrigins,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// checkOrigin validates the incoming request's Origin against the configured allowlist
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	// No Origin header means same-origin request
	if origin == "" {
		return true
	}

	if len(h.allowedOrigins) == 0 {
		h.logger.Warn().Str("origin", origin).Msg("Rejected WebSocket connection: no allowed origins configured")
		return false
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}

	h.logger.Warn().Str("origin", origin).Msg("Rejected WebSocket connection: origin not in allowlist")
	return false
}

// ServeHTTP handles WebSocket connection requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected format: "Bearer <token>"
	token := r.Header.Get("Authorization")
	if !h.validateToken(token) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	h.handleConnection(conn)
}

// validateToken checks if the auth token is valid
func (h *Handler) validateToken(authHeader string) bool {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return false
	}
	return strings.TrimPrefix(authHeader, "Bearer ") == h.authToken
}

// handleConnection manages a single WebSocket connection
func (h *Handler) handleConnection(conn *websocket.Conn) {
	connKey := conn.RemoteAddr().String()
	probeConn := &ProbeConnection{
		ProbeID:     connKey, // updated when the first heartbeat carries the real ID
		Conn:        conn,
		LastSeen:    time.Now(),
		ConnectedAt: time.Now(),
	}

	h.mutex.Lock()
	h.activeProbes[connKey] = probeConn
	h.mutex.Unlock()
	metrics.ConnectedProbes.Inc()

	defer conn.Close()
	defer h.removeProbe(connKey)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg models.Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
		h.handleMessage(conn, connKey, &msg)
	}
}

// handleMessage processes a single message from a probe
func (h *Handler) handleMessage(conn *websocket.Conn, connKey string, msg *models.Message) {
	h.logger.Debug().Str("type", string(msg.Type)).Msg("Received message")

	switch msg.Type {
	case models.MessageTypeReading:
		h.handleReading(msg)
	case models.MessageTypeBatch:
		h.handleBatch(msg)
	case models.MessageTypeWeather:
		h.handleWeather(msg)
	case models.MessageTypeHeartbeat:
		h.handleHeartbeat(connKey, msg)
	default:
		h.logger.Warn().Str("type", string(msg.Type)).Msg("Unknown message type")
	}

	h.sendAck(conn)
}

// handleReading processes a single reading
func (h *Handler) handleReading(msg *models.Message) {
	var readingMsg models.ReadingMessage
	if err := msg.UnmarshalPayload(&readingMsg); err != nil {
		h.logger.Error().Err(err).Msg("Failed to unmarshal reading")
		return
	}
	h.accept([]models.ReadingMessage{readingMsg})
}

// handleBatch processes a batch of readings
func (h *Handler) handleBatch(msg *models.Message) {
	var batch models.BatchMessage
	if err := msg.UnmarshalPayload(&batch); err != nil {
		h.logger.Error().Err(err).Msg("Failed to unmarshal batch")
		return
	}
	h.accept(batch.Readings)
	h.logger.Info().Int("count", batch.Count).Msg("Batch stored")
}

// accept hydrates raw wire readings and stores the valid ones
func (h *Handler) accept(raw []models.ReadingMessage) {
	readings, dropped := models.HydrateReadings(raw)
	if dropped > 0 {
		metrics.ReadingsDropped.Add(float64(dropped))
		h.logger.Warn().Int("dropped", dropped).Msg("Readings ignored: invalid")
	}
	for _, reading := range readings {
		h.store.Add(reading)
		if h.history != nil {
			h.history.Enqueue(reading)
		}
		metrics.ReadingsReceived.WithLabelValues(reading.SensorID).Inc()
	}
}

// handleWeather processes an outdoor weather snapshot
func (h *Handler) handleWeather(msg *models.Message) {
	var weatherMsg models.WeatherMessage
	if err := msg.UnmarshalPayload(&weatherMsg); err != nil {
		h.logger.Error().Err(err).Msg("Failed to unmarshal weather")
		return
	}
	snapshot := weatherMsg.Snapshot
	h.store.SetWeather(&snapshot)
	h.logger.Info().
		Float64("outdoor_temp", snapshot.OutdoorTempF).
		Time("at", snapshot.Timestamp).
		Msg("Weather snapshot stored")
}

// handleHeartbeat processes a heartbeat message
func (h *Handler) handleHeartbeat(connKey string, msg *models.Message) {
	var heartbeat models.HeartbeatMessage
	if err := msg.UnmarshalPayload(&heartbeat); err != nil {
		h.logger.Error().Err(err).Msg("Failed to unmarshal heartbeat")
		return
	}

	h.mutex.Lock()
	if heartbeat.ProbeID != "" {
		if existingID, exists := h.connToProbeID[connKey]; !exists || existingID != heartbeat.ProbeID {
			h.connToProbeID[connKey] = heartbeat.ProbeID
			if probe, ok := h.activeProbes[connKey]; ok {
				probe.ProbeID = heartbeat.ProbeID
			}
		}
	}
	if probe, exists := h.activeProbes[connKey]; exists {
		probe.LastSeen = time.Now()
	}
	h.mutex.Unlock()

	h.logger.Debug().Str("probe_id", heartbeat.ProbeID).Int64("uptime", heartbeat.Uptime).Msg("Heartbeat received")
}

// sendAck sends an acknowledgment message
func (h *Handler) sendAck(conn *websocket.Conn) {
	ack := models.AckMessage{Status: "ok"}
	msg, err := models.NewMessage(models.MessageTypeAck, ack)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create ack message")
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send ack")
	}
}

// removeProbe removes a probe from the active map
func (h *Handler) removeProbe(connKey string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	probeID := connKey
	if realID, exists := h.connToProbeID[connKey]; exists {
		probeID = realID
	}
	delete(h.activeProbes, connKey)
	delete(h.connToProbeID, connKey)
	metrics.ConnectedProbes.Dec()
	h.logger.Info().Str("probe_id", probeID).Msg("Probe disconnected")
}

// GetActiveProbes returns the currently connected probes
func (h *Handler) GetActiveProbes() []ProbeConnection {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	probes := make([]ProbeConnection, 0, len(h.activeProbes))
	for _, probe := range h.activeProbes {
		probes = append(probes, *probe)
	}
	return probes
}
