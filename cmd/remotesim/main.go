package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SnapshotRow mirrors the wire shape of the hosted snapshot table: a
// whole dataset blob in data, keyed by a fixed integer id.
type SnapshotRow struct {
	ID        int             `json:"id"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status      string    `json:"status"`
	ServerID    string    `json:"server_id"`
	Timestamp   time.Time `json:"timestamp"`
	FailureRate float64   `json:"failure_rate"`
}

// MockRemote simulates a PostgREST-compatible snapshot host: same row
// contract as Supabase, held in memory, with tunable latency and failure
// injection for exercising the sync engine's retry and abandon paths.
type MockRemote struct {
	mu          sync.Mutex
	rows        map[int]SnapshotRow
	failureRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	serverID    string
	rng         *rand.Rand
}

func NewMockRemote(failureRate float64, minDelay, maxDelay time.Duration) *MockRemote {
	return &MockRemote{
		rows:        make(map[int]SnapshotRow),
		failureRate: failureRate,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		serverID:    "MOCK_REMOTE_" + uuid.New().String()[:8],
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockRemote) simulateLatency() {
	if m.maxDelay <= m.minDelay {
		return
	}
	delta := m.maxDelay - m.minDelay
	time.Sleep(m.minDelay + time.Duration(m.rng.Int63n(int64(delta))))
}

func (m *MockRemote) shouldFail() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64() < m.failureRate
}

// Handler struct holds the mock remote and routes
type Handler struct {
	remote *MockRemote
	apiKey string
}

func NewHandler(remote *MockRemote, apiKey string) *Handler {
	return &Handler{remote: remote, apiKey: apiKey}
}

// rowID parses PostgREST's id=eq.N filter syntax.
func rowID(c *gin.Context) (int, bool) {
	raw := c.Query("id")
	if !strings.HasPrefix(raw, "eq.") {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimPrefix(raw, "eq."))
	if err != nil {
		return 0, false
	}
	return id, true
}

func (h *Handler) authorized(c *gin.Context) bool {
	if h.apiKey == "" {
		return true
	}
	return c.GetHeader("apikey") == h.apiKey
}

func (h *Handler) failInjected(c *gin.Context) bool {
	if h.remote.shouldFail() {
		log.Warn().Str("path", c.Request.URL.Path).Msg("Injected failure")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "injected failure"})
		return true
	}
	return false
}

// GetRows handles the fetch side of the contract: a filtered select that
// answers with a JSON array, empty when the row was never written.
func (h *Handler) GetRows(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid api key"})
		return
	}
	if h.failInjected(c) {
		return
	}
	h.remote.simulateLatency()

	id, ok := rowID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "id=eq.<n> filter is required"})
		return
	}

	h.remote.mu.Lock()
	row, exists := h.remote.rows[id]
	h.remote.mu.Unlock()

	if !exists {
		c.JSON(http.StatusOK, []SnapshotRow{})
		return
	}
	c.JSON(http.StatusOK, []SnapshotRow{row})
}

// PatchRow updates an existing row. A PATCH that matches nothing answers
// with an empty representation, the cue for the client to POST instead.
func (h *Handler) PatchRow(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid api key"})
		return
	}
	if h.failInjected(c) {
		return
	}
	h.remote.simulateLatency()

	id, ok := rowID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "id=eq.<n> filter is required"})
		return
	}

	var incoming SnapshotRow
	if err := c.ShouldBindJSON(&incoming); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid row", "details": err.Error()})
		return
	}

	h.remote.mu.Lock()
	defer h.remote.mu.Unlock()

	existing, exists := h.remote.rows[id]
	if !exists {
		c.JSON(http.StatusOK, []SnapshotRow{})
		return
	}

	existing.Data = incoming.Data
	existing.UpdatedAt = incoming.UpdatedAt
	h.remote.rows[id] = existing

	log.Info().Int("id", id).Time("updated_at", existing.UpdatedAt).Msg("Snapshot row updated")

	if strings.Contains(c.GetHeader("Prefer"), "return=representation") {
		c.JSON(http.StatusOK, []SnapshotRow{existing})
		return
	}
	c.Status(http.StatusNoContent)
}

// PostRow inserts the row on first push.
func (h *Handler) PostRow(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid api key"})
		return
	}
	if h.failInjected(c) {
		return
	}
	h.remote.simulateLatency()

	var incoming SnapshotRow
	if err := c.ShouldBindJSON(&incoming); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid row", "details": err.Error()})
		return
	}

	h.remote.mu.Lock()
	defer h.remote.mu.Unlock()

	if _, exists := h.remote.rows[incoming.ID]; exists {
		c.JSON(http.StatusConflict, gin.H{"message": "duplicate key value violates unique constraint"})
		return
	}
	h.remote.rows[incoming.ID] = incoming

	log.Info().Int("id", incoming.ID).Time("updated_at", incoming.UpdatedAt).Msg("Snapshot row created")
	c.Status(http.StatusCreated)
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		ServerID:    h.remote.serverID,
		Timestamp:   time.Now(),
		FailureRate: h.remote.failureRate,
	})
}

// UpdateConfig allows changing failure injection at runtime
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		FailureRate *float64 `json:"failure_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if config.FailureRate != nil && *config.FailureRate >= 0 && *config.FailureRate <= 1.0 {
		h.remote.mu.Lock()
		h.remote.failureRate = *config.FailureRate
		h.remote.mu.Unlock()
		log.Info().Float64("rate", *config.FailureRate).Msg("Updated failure rate")
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Configuration updated",
		"failure_rate": h.remote.failureRate,
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	// PostgREST-shaped routes, same paths the sync engine speaks
	rest := router.Group("/rest/v1")
	{
		rest.GET("/:table", handler.GetRows)
		rest.PATCH("/:table", handler.PatchRow)
		rest.POST("/:table", handler.PostRow)
	}

	router.PUT("/config", handler.UpdateConfig)
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8082")
	apiKey := getEnv("APIKEY", "")
	failureRate := getEnvFloat("FAILURE_RATE", 0)
	minDelay := getEnvDuration("MIN_DELAY", 10*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 200*time.Millisecond)

	log.Info().
		Str("port", port).
		Float64("failure_rate", failureRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock Snapshot Remote")

	remote := NewMockRemote(failureRate, minDelay, maxDelay)
	handler := NewHandler(remote, apiKey)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
