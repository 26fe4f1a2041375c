package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushq/school-portal-api/internal/service"
)

// Metrics records duration and status per route. The registered route
// template is used as the path label so /students/:id stays one series
// instead of one per student.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" || path == "/metrics" {
			// Unmatched routes would explode label cardinality and the
			// scrape endpoint observing itself is noise.
			return
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
