package http

import "github.com/gin-gonic/gin"

// Register registers the write routes on the /api group
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/stats/donations", h.CreateDonation)
	rg.POST("/issues", h.CreateIssue)
}
