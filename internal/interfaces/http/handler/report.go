package handler

import (
	"github.com/gin-gonic/gin"
	reportapp "github.com/nyumbani/backend/internal/application/report"
)

// ReportHandler handles collection reporting API endpoints
type ReportHandler struct {
	BaseHandler
	reportService *reportapp.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *reportapp.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

// CollectionRateResponse represents the rent collection rate
// @Description Collected rent as a percentage of expected rent across active leases
type CollectionRateResponse struct {
	CollectionRate string `json:"collection_rate"`
}

// CollectionRate godoc
// @ID           getCollectionRate
// @Summary      Get the rent collection rate
// @Description  Successful payments over expected rent across the caller's active leases, as a percentage
// @Tags         reports
// @Produce      json
// @Success      200 {object} APIResponse[CollectionRateResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/collection-rate [get]
func (h *ReportHandler) CollectionRate(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	rate, err := h.reportService.CollectionRate(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CollectionRateResponse{CollectionRate: rate.StringFixed(2)})
}

// TenantSegments godoc
// @ID           getTenantSegments
// @Summary      Segment tenants by rent standing
// @Description  Partition active leases into up-to-date and behind, with outstanding amounts and days behind
// @Tags         reports
// @Produce      json
// @Success      200 {object} APIResponse[reportapp.TenantSegments]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/tenant-segments [get]
func (h *ReportHandler) TenantSegments(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	segments, err := h.reportService.SegmentTenants(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, segments)
}

// Analytics godoc
// @ID           getPaymentAnalytics
// @Summary      Get payment analytics
// @Description  Payment counts per status and the total amount collected
// @Tags         reports
// @Produce      json
// @Success      200 {object} APIResponse[reportapp.PaymentAnalytics]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/payment-analytics [get]
func (h *ReportHandler) Analytics(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	analytics, err := h.reportService.Analytics(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, analytics)
}
