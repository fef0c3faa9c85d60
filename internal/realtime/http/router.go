package http

import "github.com/gin-gonic/gin"

// Register registers the realtime routes on an authenticated /api group
func (g *Gateway) Register(rg *gin.RouterGroup) {
	rt := rg.Group("/realtime")
	rt.GET("/stream", g.Stream)
	rt.POST("/connections/:id/rooms", g.JoinRoom)
	rt.DELETE("/connections/:id/rooms/:room", g.LeaveRoom)
	rt.POST("/connections/:id/events", g.Relay)
}
