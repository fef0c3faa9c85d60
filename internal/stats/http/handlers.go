package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hydroaid/hydroaid-backend/internal/logging"
	"github.com/hydroaid/hydroaid-backend/internal/records/domain"
	"github.com/hydroaid/hydroaid-backend/internal/stats/service"
)

// Handler serves the read-only statistics endpoints.
type Handler struct {
	engine *service.Engine
}

func New(engine *service.Engine) *Handler {
	return &Handler{engine: engine}
}

// Dashboard handles GET /stats/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.engine.GetDashboardStats(c.Request.Context())
	if err != nil {
		writeError(c, "dashboard_stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Department handles GET /stats/department/:departmentId
func (h *Handler) Department(c *gin.Context) {
	stats, err := h.engine.GetDepartmentStats(c.Request.Context(), strings.TrimSpace(c.Param("departmentId")))
	if err != nil {
		writeError(c, "department_stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// LiveDonations handles GET /stats/donations/live?limit=N
func (h *Handler) LiveDonations(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer", "field": "limit"})
			return
		}
		limit = n
	}

	donations, err := h.engine.GetLiveDonations(c.Request.Context(), limit)
	if err != nil {
		writeError(c, "live_donations", err)
		return
	}
	c.JSON(http.StatusOK, donations)
}

func writeError(c *gin.Context, op string, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid field", "field": ve.Field, "details": ve.Reason})
		return
	}

	logging.NewLogger(c.Request.Context()).Error(op, err)
	if errors.Is(err, domain.ErrStoreUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "record store unavailable"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
}
