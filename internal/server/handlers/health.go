package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CacheStatsProvider reports result-cache health for readiness checks.
type CacheStatsProvider interface {
	GetCacheStats(ctx context.Context) map[string]interface{}
}

type HealthHandler struct {
	logger    *zap.Logger
	cache     CacheStatsProvider
	startTime time.Time
}

func NewHealthHandler(logger *zap.Logger, cache CacheStatsProvider) *HealthHandler {
	return &HealthHandler{
		logger:    logger,
		cache:     cache,
		startTime: time.Now(),
	}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "alive",
		Uptime: time.Since(h.startTime).String(),
	})
}

// Readiness fails while the cache backend is unreachable.
func (h *HealthHandler) Readiness(c *gin.Context) {
	stats := h.cache.GetCacheStats(c.Request.Context())

	if ready, _ := stats["cache_ready"].(bool); !ready {
		h.logger.Warn("Readiness check failed", zap.Any("cache", stats))
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status: "degraded",
			Uptime: time.Since(h.startTime).String(),
			Cache:  stats,
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status: "ready",
		Uptime: time.Since(h.startTime).String(),
		Cache:  stats,
	})
}

// Health always answers 200 and reports the cache alongside the uptime.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Cache:     h.cache.GetCacheStats(c.Request.Context()),
	})
}
