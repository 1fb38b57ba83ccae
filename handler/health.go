package handler

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/mstgnz/cardsave/infra/config"
	"github.com/mstgnz/cardsave/infra/response"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db        *sql.DB
	settings  *config.SettingsStore
	startTime time.Time
}

// HealthStatus represents overall system health
type HealthStatus struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Uptime    string          `json:"uptime"`
	Database  *DatabaseHealth `json:"database"`
	Gateway   *GatewayHealth  `json:"gateway"`
	Settings  map[string]any  `json:"settings"`
	System    *SystemHealth   `json:"system"`
}

// DatabaseHealth represents database health status
type DatabaseHealth struct {
	Status       string `json:"status"`
	Connected    bool   `json:"connected"`
	ResponseTime string `json:"response_time"`
	OpenConns    int    `json:"open_connections"`
	Error        string `json:"error,omitempty"`
}

// GatewayHealth reports whether gateway credentials are configured
type GatewayHealth struct {
	Configured  bool   `json:"configured"`
	Environment string `json:"environment"`
}

// SystemHealth represents process resource usage
type SystemHealth struct {
	GoRoutines int    `json:"goroutines"`
	Alloc      uint64 `json:"alloc_bytes"`
	GCRuns     uint32 `json:"gc_runs"`
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *sql.DB, settings *config.SettingsStore) *HealthHandler {
	return &HealthHandler{
		db:        db,
		settings:  settings,
		startTime: time.Now(),
	}
}

// Health returns the full health status; 503 when the database is down
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Database:  h.checkDatabase(r.Context()),
		Gateway:   h.checkGateway(),
		Settings:  h.checkSettings(),
		System:    h.checkSystem(),
	}

	code := http.StatusOK
	if !status.Database.Connected {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	_ = response.WriteJSON(w, code, response.Response{
		Code:    code,
		Success: code == http.StatusOK,
		Message: "Health status",
		Data:    status,
	})
}

// Liveness is the minimal probe endpoint
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "alive", nil)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) *DatabaseHealth {
	health := &DatabaseHealth{Status: "healthy", Connected: true}

	if h.db == nil {
		return &DatabaseHealth{Status: "unhealthy", Error: "no database connection"}
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	started := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		return &DatabaseHealth{Status: "unhealthy", Error: err.Error()}
	}

	health.ResponseTime = time.Since(started).String()
	health.OpenConns = h.db.Stats().OpenConnections
	return health
}

func (h *HealthHandler) checkGateway() *GatewayHealth {
	if h.settings == nil {
		return &GatewayHealth{}
	}

	cfg := h.settings.GatewayConfig()
	return &GatewayHealth{
		Configured:  cfg["merchantId"] != "" && cfg["password"] != "",
		Environment: cfg["environment"],
	}
}

func (h *HealthHandler) checkSettings() map[string]any {
	if h.settings == nil {
		return nil
	}

	stats, err := h.settings.GetStats()
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return stats
}

func (h *HealthHandler) checkSystem() *SystemHealth {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return &SystemHealth{
		GoRoutines: runtime.NumGoroutine(),
		Alloc:      mem.Alloc,
		GCRuns:     mem.NumGC,
	}
}
