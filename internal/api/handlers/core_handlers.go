package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/royal-empire/club_service/internal/infrastructure/cache"
	"github.com/royal-empire/club_service/internal/infrastructure/database"
	"github.com/royal-empire/club_service/pkg/logger"
)

// CoreHandlers serves health and liveness probes.
type CoreHandlers struct {
	db     *sqlx.DB
	cache  cache.RedisClient
	logger *logger.Logger
}

// NewCoreHandlers creates new core handlers
func NewCoreHandlers(db *sqlx.DB, cacheClient cache.RedisClient, logger *logger.Logger) *CoreHandlers {
	return &CoreHandlers{
		db:     db,
		cache:  cacheClient,
		logger: logger,
	}
}

// Health handles GET /health and reports per-dependency status.
func (h *CoreHandlers) Health(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if err := database.HealthCheck(h.db); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		healthy = false
	} else {
		checks["database"] = "healthy"
	}

	if h.cache != nil {
		if err := h.cache.Ping(c.Request.Context()); err != nil {
			// Redis only backs the profile cache; its loss degrades, not kills.
			checks["redis"] = "unhealthy: " + err.Error()
		} else {
			checks["redis"] = "healthy"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":    state,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// Ready handles GET /ready
func (h *CoreHandlers) Ready(c *gin.Context) {
	if err := database.HealthCheck(h.db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Live handles GET /live
func (h *CoreHandlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
