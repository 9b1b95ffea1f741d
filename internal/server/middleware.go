package server

import (
	"strconv"
	"time"

	"tutorbook/internal/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request counts and latency by route template,
// so /bookings/1 and /bookings/2 share a series.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}
