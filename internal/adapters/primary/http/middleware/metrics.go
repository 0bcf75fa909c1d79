package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"feature-store-service/internal/metrics"
)

// Metrics records request counts and latencies per route. The route
// template is used rather than the raw path so label cardinality stays
// bounded.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
