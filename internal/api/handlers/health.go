package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/parlay-analytics/internal/websocket"
	"github.com/stitts-dev/parlay-analytics/pkg/database"
	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db        *database.DB
	redis     *redis.Client
	wsHub     *websocket.Hub
	logger    *logrus.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(
	db *database.DB,
	redisClient *redis.Client,
	wsHub *websocket.Hub,
	logger *logrus.Logger,
) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redisClient,
		wsHub:     wsHub,
		logger:    logger,
		startTime: time.Now(),
	}
}

// GetHealth returns the basic health status
func (h *HealthHandler) GetHealth(c *gin.Context) {
	response := types.HealthStatus{
		Status:    "ok",
		Service:   "parlay-analytics",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	// Database holds historical samples; analysis degrades to heuristics without it
	if h.db != nil {
		if err := h.db.HealthCheck(); err != nil {
			response.Status = "degraded"
			response.Checks["database"] = "failed: " + err.Error()
		} else {
			response.Checks["database"] = "ok"
		}
	} else {
		response.Checks["database"] = "not_configured"
	}

	// Redis backs the analysis cache
	if h.redis != nil {
		if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
			if response.Status == "ok" {
				response.Status = "degraded"
			}
			response.Checks["redis"] = "failed: " + err.Error()
		} else {
			response.Checks["redis"] = "ok"
		}
	} else {
		response.Checks["redis"] = "not_configured"
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	} else if response.Status == "degraded" {
		statusCode = http.StatusPartialContent
	}

	c.JSON(statusCode, response)
}

// GetReady returns the readiness status
func (h *HealthHandler) GetReady(c *gin.Context) {
	response := types.HealthStatus{
		Status:    "ready",
		Service:   "parlay-analytics",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	// Analysis itself needs neither store; readiness only requires the process
	// to be serving and its configured backends reachable.
	if h.redis != nil {
		if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
			response.Status = "not_ready"
			response.Checks["redis"] = "failed: " + err.Error()
		} else {
			response.Checks["redis"] = "ok"
		}
	}

	if h.db != nil {
		if err := h.db.HealthCheck(); err != nil {
			// Sample store failure still leaves heuristic analysis available
			response.Checks["database"] = "failed: " + err.Error()
		} else {
			response.Checks["database"] = "ok"
		}
	}

	statusCode := http.StatusOK
	if response.Status != "ready" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

// GetMetrics returns service metrics
func (h *HealthHandler) GetMetrics(c *gin.Context) {
	metrics := map[string]interface{}{
		"service":        "parlay-analytics",
		"timestamp":      time.Now(),
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	}

	if h.wsHub != nil {
		metrics["websocket"] = map[string]interface{}{
			"active_connections": h.wsHub.GetConnectionCount(),
			"active_channels":    len(h.wsHub.GetActiveChannels()),
		}
	}

	if h.redis != nil {
		if dbSize, err := h.redis.DBSize(c.Request.Context()).Result(); err == nil {
			metrics["cache"] = map[string]interface{}{
				"total_keys": dbSize,
			}
		}
		if analysisKeys, err := h.redis.Keys(c.Request.Context(), "parlay:analysis:*").Result(); err == nil {
			metrics["analysis_cache"] = map[string]interface{}{
				"cached_results": len(analysisKeys),
			}
		}
	}

	if h.db != nil {
		if sqlDB, err := h.db.DB.DB(); err == nil {
			stats := sqlDB.Stats()
			metrics["database"] = map[string]interface{}{
				"open_connections": stats.OpenConnections,
				"in_use":           stats.InUse,
				"idle":             stats.Idle,
			}
		}
	}

	c.JSON(http.StatusOK, metrics)
}
