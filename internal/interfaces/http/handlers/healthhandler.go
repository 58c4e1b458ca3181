package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"stratum/internal/infrastructure/pool"
	"stratum/internal/shared/logger"
	"stratum/internal/shared/utils"
)

// HealthHandler reports service liveness plus per-target pool pressure.
type HealthHandler struct {
	db     *gorm.DB
	redis  *redis.Client
	pools  *pool.Manager
	logger logger.Interface
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, pools *pool.Manager, logger logger.Interface) *HealthHandler {
	return &HealthHandler{
		db:     db,
		redis:  redisClient,
		pools:  pools,
		logger: logger,
	}
}

type componentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type poolStatus struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	components := gin.H{}
	healthy := true

	catalog := componentStatus{Status: "up"}
	if sqlDB, err := h.db.DB(); err != nil {
		catalog = componentStatus{Status: "down", Error: err.Error()}
		healthy = false
	} else if err := sqlDB.PingContext(ctx); err != nil {
		catalog = componentStatus{Status: "down", Error: err.Error()}
		healthy = false
	}
	components["catalog"] = catalog

	cache := componentStatus{Status: "up"}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		cache = componentStatus{Status: "down", Error: err.Error()}
		healthy = false
	}
	components["cache"] = cache

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":     state,
		"components": components,
	})
}

// PoolStats handles GET /api/v1/pools. One entry per open target pool.
func (h *HealthHandler) PoolStats(c *gin.Context) {
	stats := h.pools.Stats()

	out := make(map[string]poolStatus, len(stats))
	for key, s := range stats {
		out[key] = poolStatus{
			OpenConnections: s.OpenConnections,
			InUse:           s.InUse,
			Idle:            s.Idle,
			WaitCount:       s.WaitCount,
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "", out)
}
