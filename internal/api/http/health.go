package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Store     string    `json:"store"`
	Realtime  string    `json:"realtime"`
}

// Pinger is satisfied by the record store and the redis client wrapper.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	serviceName string
	version     string
	store       Pinger
	realtime    Pinger
}

// NewHealthHandler builds the handler. realtime may be nil when events are
// fanned out in-process only.
func NewHealthHandler(serviceName, version string, store, realtime Pinger) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		store:       store,
		realtime:    realtime,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	storeStatus := pingStatus(c.Request.Context(), h.store)
	realtimeStatus := "local"
	if h.realtime != nil {
		realtimeStatus = pingStatus(c.Request.Context(), h.realtime)
	}

	status, code := "healthy", http.StatusOK
	if storeStatus == "down" {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Store:     storeStatus,
		Realtime:  realtimeStatus,
	})
}

func pingStatus(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	pingCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if err := p.Ping(pingCtx); err != nil {
		return "down"
	}
	return "up"
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
