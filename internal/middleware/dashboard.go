package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/school-portal-api/internal/service"
)

// InvalidateDashboard drops the cached staff dashboard after successful
// mutating requests so the aggregates stay fresh.
func InvalidateDashboard(dashboards *service.DashboardService) gin.HandlerFunc {
	if dashboards == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		c.Next()
		if c.Request.Method == http.MethodGet || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		dashboards.InvalidateAdminStats(c.Request.Context())
	}
}
