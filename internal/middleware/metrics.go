package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edunexus/edunexus-api/internal/service"
)

// Metrics records method, route, status, and latency for every request.
// A nil metrics service disables collection.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
