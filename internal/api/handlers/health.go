package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/knaveofdiamonds/tablefit/pkg/database"
)

// HealthStatus is the shared shape for /health and /ready responses.
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthHandler serves the standard service health endpoints. The
// database is optional: the optimizer can serve schedule requests with
// only Redis up, mirroring the teacher's "db nil-safe" health check.
type HealthHandler struct {
	db     *database.DB
	redis  *redis.Client
	logger *logrus.Entry
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *database.DB, redis *redis.Client, logger *logrus.Entry) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, logger: logger}
}

// GetHealth handles GET /health.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	resp := HealthStatus{Status: "ok", Service: "tablefit", Timestamp: time.Now(), Checks: map[string]string{}}

	if h.db != nil {
		if err := h.db.HealthCheck(); err != nil {
			resp.Status = "degraded"
			resp.Checks["database"] = "failed: " + err.Error()
		} else {
			resp.Checks["database"] = "ok"
		}
	} else {
		resp.Checks["database"] = "not_configured"
	}

	if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
		resp.Status = "unhealthy"
		resp.Checks["redis"] = "failed: " + err.Error()
	} else {
		resp.Checks["redis"] = "ok"
	}

	status := http.StatusOK
	switch resp.Status {
	case "unhealthy":
		status = http.StatusServiceUnavailable
	case "degraded":
		status = http.StatusPartialContent
	}
	c.JSON(status, resp)
}

// GetReady handles GET /ready. Redis is critical (schedule caching
// depends on it); the database is not.
func (h *HealthHandler) GetReady(c *gin.Context) {
	resp := HealthStatus{Status: "ready", Service: "tablefit", Timestamp: time.Now(), Checks: map[string]string{}}

	if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
		resp.Status = "not_ready"
		resp.Checks["redis"] = "failed: " + err.Error()
	} else {
		resp.Checks["redis"] = "ok"
	}

	if h.db != nil {
		if err := h.db.HealthCheck(); err != nil {
			resp.Checks["database"] = "failed: " + err.Error()
		} else {
			resp.Checks["database"] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// GetMetrics handles GET /metrics.
func (h *HealthHandler) GetMetrics(c *gin.Context) {
	metrics := map[string]interface{}{
		"service":   "tablefit",
		"timestamp": time.Now(),
	}

	if dbSize, err := h.redis.DBSize(c.Request.Context()).Result(); err == nil {
		metrics["cache"] = map[string]interface{}{"total_keys": dbSize}
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
