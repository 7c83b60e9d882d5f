package fraud

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/richxcame/lead-intake/pkg/common"
	"github.com/richxcame/lead-intake/pkg/middleware"
	"github.com/richxcame/lead-intake/pkg/validation"
)

// ServiceAPI is the surface of the fraud service the handler depends on
type ServiceAPI interface {
	CheckLead(ctx context.Context, req *CheckLeadRequest) (*LeadAssessment, error)
	GetAssessment(ctx context.Context, id uuid.UUID) (*LeadAssessment, error)
	ListAssessments(ctx context.Context, limit, offset int) ([]LeadAssessment, int64, error)
	GetAssessmentsByContact(ctx context.Context, email, phone string, limit, offset int) ([]LeadAssessment, int64, error)
	GetPendingAlerts(ctx context.Context, limit, offset int) ([]FraudAlert, int64, error)
	GetAlert(ctx context.Context, id uuid.UUID) (*FraudAlert, error)
	InvestigateAlert(ctx context.Context, id, investigatorID uuid.UUID, req *InvestigateAlertRequest) (*FraudAlert, error)
	ResolveAlert(ctx context.Context, id, investigatorID uuid.UUID, req *ResolveAlertRequest) (*FraudAlert, error)
}

// Handler handles fraud HTTP requests
type Handler struct {
	service ServiceAPI
}

// NewHandler creates a fraud handler
func NewHandler(service ServiceAPI) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers fraud routes on the router group.
// Lead checks are open to authenticated services; alert management is
// restricted to admins.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, jwtSecret string) {
	fraud := rg.Group("/fraud")
	fraud.Use(middleware.AuthMiddleware(jwtSecret))
	{
		fraud.POST("/check", h.CheckLead)
		fraud.GET("/assessments", h.ListAssessments)
		fraud.GET("/assessments/:id", h.GetAssessment)

		admin := fraud.Group("")
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.GET("/alerts", h.GetPendingAlerts)
			admin.GET("/alerts/:id", h.GetAlert)
			admin.PUT("/alerts/:id/investigate", h.InvestigateAlert)
			admin.PUT("/alerts/:id/resolve", h.ResolveAlert)
		}
	}
}

// CheckLead scores a submitted lead
func (h *Handler) CheckLead(c *gin.Context) {
	var req CheckLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	assessment, err := h.service.CheckLead(c.Request.Context(), &req)
	if err != nil {
		if appErr, ok := err.(*common.AppError); ok {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to check lead")
		return
	}

	common.SuccessResponse(c, assessment)
}

// GetAssessment returns a single assessment by ID
func (h *Handler) GetAssessment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid assessment ID")
		return
	}

	assessment, err := h.service.GetAssessment(c.Request.Context(), id)
	if err != nil {
		if appErr, ok := err.(*common.AppError); ok {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get assessment")
		return
	}

	common.SuccessResponse(c, assessment)
}

// ListAssessments returns a page of assessments. Optional email/phone query
// parameters narrow the listing to a single contact.
func (h *Handler) ListAssessments(c *gin.Context) {
	limit, offset := paginationParams(c)

	email := c.Query("email")
	phone := c.Query("phone")

	var (
		assessments []LeadAssessment
		total       int64
		err         error
	)
	if email != "" || phone != "" {
		assessments, total, err = h.service.GetAssessmentsByContact(c.Request.Context(), email, phone, limit, offset)
	} else {
		assessments, total, err = h.service.ListAssessments(c.Request.Context(), limit, offset)
	}
	if err != nil {
		if appErr, ok := err.(*common.AppError); ok {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list assessments")
		return
	}

	common.SuccessResponseWithMeta(c, assessments, &common.Meta{Limit: limit, Offset: offset, Total: total})
}

// GetPendingAlerts returns alerts awaiting review
func (h *Handler) GetPendingAlerts(c *gin.Context) {
	limit, offset := paginationParams(c)

	alerts, total, err := h.service.GetPendingAlerts(c.Request.Context(), limit, offset)
	if err != nil {
		if appErr, ok := err.(*common.AppError); ok {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get pending alerts")
		return
	}

	common.SuccessResponseWithMeta(c, alerts, &common.Meta{Limit: limit, Offset: offset, Total: total})
}

// GetAlert returns a single alert by ID
func (h *Handler) GetAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid alert ID")
		return
	}

	alert, err := h.service.GetAlert(c.Request.Context(), id)
	if err != nil {
		if appErr, ok := err.(*common.AppError); ok {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get alert")
		return
	}

	common.SuccessResponse(c, alert)
}

// InvestigateAlert marks an alert as under investigation
func (h *Handler) InvestigateAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid alert ID")
		return
	}

	var req InvestigateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	investigatorID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "invalid user ID")
		return
	}

	alert, err := h.service.InvestigateAlert(c.Request.Context(), id, investigatorID, &req)
	if err != nil {
		if appErr, ok := err.(*common.AppError); ok {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to investigate alert")
		return
	}

	common.SuccessResponse(c, alert)
}

// ResolveAlert closes an alert as confirmed fraud or a false positive
func (h *Handler) ResolveAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid alert ID")
		return
	}

	var req ResolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	investigatorID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "invalid user ID")
		return
	}

	alert, err := h.service.ResolveAlert(c.Request.Context(), id, investigatorID, &req)
	if err != nil {
		if appErr, ok := err.(*common.AppError); ok {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to resolve alert")
		return
	}

	common.SuccessResponse(c, alert)
}

func paginationParams(c *gin.Context) (limit, offset int) {
	limit = 20
	offset = 0
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
