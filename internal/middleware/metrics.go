package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/orchard/internal/metrics"
)

// Metrics records request latency per matched route. Unmatched paths are
// grouped under "unmatched" to keep label cardinality bounded.
func Metrics(m *metrics.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
