package http

import "github.com/gin-gonic/gin"

// Register registers the stats read routes on the /api group
func (h *Handler) Register(rg *gin.RouterGroup) {
	stats := rg.Group("/stats")
	stats.GET("/dashboard", h.Dashboard)
	stats.GET("/department/:departmentId", h.Department)
	stats.GET("/donations/live", h.LiveDonations)
}
