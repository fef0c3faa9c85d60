package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hydroaid/hydroaid-backend/internal/logging"
	"github.com/hydroaid/hydroaid-backend/internal/records/domain"
	"github.com/hydroaid/hydroaid-backend/internal/records/service"
)

// Handler serves the record write endpoints.
type Handler struct {
	coordinator *service.Coordinator
}

func New(coordinator *service.Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// CreateDonation handles POST /stats/donations
func (h *Handler) CreateDonation(c *gin.Context) {
	var body createDonationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if body.Amount.invalid {
		writeError(c, "create_donation", domain.Invalid("amount", "must be a number"))
		return
	}

	donation, err := h.coordinator.CreateDonation(c.Request.Context(), service.CreateDonationRequest{
		UserID:        body.UserID,
		Amount:        body.Amount.value,
		PaymentMethod: body.PaymentMethod,
		ProjectID:     body.ProjectID,
		DepartmentID:  body.DepartmentID,
		Anonymous:     body.Anonymous,
	})
	if err != nil {
		writeError(c, "create_donation", err)
		return
	}

	c.JSON(http.StatusCreated, donation)
}

// CreateIssue handles POST /issues
func (h *Handler) CreateIssue(c *gin.Context) {
	var body createIssueBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if field := body.invalidField(); field != "" {
		writeError(c, "create_issue", domain.Invalid(field, "must be a number"))
		return
	}

	req := service.CreateIssueRequest{
		Title:        body.Title,
		Description:  body.Description,
		Category:     body.Category,
		Priority:     body.Priority,
		ReportedBy:   body.ReportedBy,
		DepartmentID: body.DepartmentID,
		Photos:       body.photos(),
	}
	if body.Location != nil {
		req.Lat = body.Location.Lat.value
		req.Lng = body.Location.Lng.value
	}

	issue, err := h.coordinator.CreateIssue(c.Request.Context(), req)
	if err != nil {
		writeError(c, "create_issue", err)
		return
	}

	c.JSON(http.StatusCreated, issue)
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
