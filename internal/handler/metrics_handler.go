package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edunexus/edunexus-api/internal/service"
	"github.com/edunexus/edunexus-api/internal/shard"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	router  *shard.Router
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, router *shard.Router) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, router: router}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready pings every regional pool and reports which are reachable. The
// gateway stays ready while at least one region answers.
func (h *MetricsHandler) Ready(c *gin.Context) {
	regions := make(map[string]string, len(shard.All()))
	healthy := 0
	for _, key := range shard.All() {
		db, err := h.router.Handle(key)
		if err != nil {
			regions[key.String()] = "unavailable"
			continue
		}
		if err := db.PingContext(c.Request.Context()); err != nil {
			regions[key.String()] = "unreachable"
			continue
		}
		regions[key.String()] = "ok"
		healthy++
	}
	status := http.StatusOK
	if healthy == 0 {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ready", "regions": regions})
}
