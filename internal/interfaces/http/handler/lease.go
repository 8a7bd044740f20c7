package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	tenancyapp "github.com/nyumbani/backend/internal/application/tenancy"
	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/nyumbani/backend/internal/domain/tenancy"
	"github.com/nyumbani/backend/internal/interfaces/http/dto"
)

// LeaseHandler handles lease lifecycle API endpoints
type LeaseHandler struct {
	BaseHandler
	leaseService *tenancyapp.LeaseService
}

// NewLeaseHandler creates a new LeaseHandler
func NewLeaseHandler(leaseService *tenancyapp.LeaseService) *LeaseHandler {
	return &LeaseHandler{
		leaseService: leaseService,
	}
}

// CreateLeaseRequest represents a request to create a new lease
// @Description Request body for creating a lease
type CreateLeaseRequest struct {
	TenantID   string  `json:"tenant_id" binding:"required,uuid" example:"9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"`
	LandlordID string  `json:"landlord_id" binding:"omitempty,uuid" example:"16fd2706-8baf-433b-82eb-8c7fada847da"`
	PropertyID string  `json:"property_id" binding:"required,uuid" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	StartDate  string  `json:"start_date" binding:"required" example:"2026-09-01"`
	EndDate    *string `json:"end_date" example:"2027-08-31"`
	RentAmount float64 `json:"rent_amount" binding:"required,gt=0" example:"35000.00"`
}

// RequestVacateRequest represents a tenant's request to vacate
// @Description Request body for a vacate notice
type RequestVacateRequest struct {
	VacateDate string `json:"vacate_date" binding:"required" example:"2026-10-31"`
}

// ResolveVacateRequest represents the landlord's decision on a vacate request
// @Description Request body for resolving a vacate request
type ResolveVacateRequest struct {
	Decision string `json:"decision" binding:"required,oneof=APPROVE REJECT" example:"APPROVE"`
}

// ListLeasesRequest represents query parameters for listing leases
type ListLeasesRequest struct {
	dto.ListRequest
	Status     string `form:"status" binding:"omitempty,oneof=PENDING ACTIVE TERMINATED EXPIRED"`
	PropertyID string `form:"property_id" binding:"omitempty,uuid"`
}

// LeaseResponse represents a lease in API responses
// @Description Lease details
type LeaseResponse struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	LandlordID   string     `json:"landlord_id"`
	PropertyID   string     `json:"property_id"`
	StartDate    string     `json:"start_date"`
	EndDate      *string    `json:"end_date,omitempty"`
	RentAmount   string     `json:"rent_amount"`
	Status       string     `json:"status"`
	VacateStatus string     `json:"vacate_status"`
	VacateDate   *string    `json:"vacate_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

const dateLayout = "2006-01-02"

func toLeaseResponse(lease *tenancy.Lease) LeaseResponse {
	resp := LeaseResponse{
		ID:           lease.ID.String(),
		TenantID:     lease.TenantID.String(),
		LandlordID:   lease.LandlordID.String(),
		PropertyID:   lease.PropertyID.String(),
		StartDate:    lease.StartDate.Format(dateLayout),
		RentAmount:   lease.RentAmount.StringFixed(2),
		Status:       lease.Status.String(),
		VacateStatus: lease.VacateStatus.String(),
		CreatedAt:    lease.CreatedAt,
		UpdatedAt:    lease.UpdatedAt,
	}
	if lease.EndDate != nil {
		endDate := lease.EndDate.Format(dateLayout)
		resp.EndDate = &endDate
	}
	if lease.VacateDate != nil {
		vacateDate := lease.VacateDate.Format(dateLayout)
		resp.VacateDate = &vacateDate
	}
	return resp
}

func toLeaseResponses(leases []*tenancy.Lease) []LeaseResponse {
	responses := make([]LeaseResponse, 0, len(leases))
	for _, lease := range leases {
		responses = append(responses, toLeaseResponse(lease))
	}
	return responses
}

// parseDate parses a YYYY-MM-DD date string
func parseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, value)
}

// Create godoc
// @ID           createLease
// @Summary      Create a new lease
// @Description  Create a lease for a tenant on a property, issuing the first bill
// @Tags         leases
// @Accept       json
// @Produce      json
// @Param        request body CreateLeaseRequest true "Lease creation request"
// @Success      201 {object} APIResponse[LeaseResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases [post]
func (h *LeaseHandler) Create(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		h.BadRequest(c, "Invalid property ID")
		return
	}

	// Landlords create leases on their own properties; admins act on
	// behalf of a named landlord.
	landlordID := actor.ID
	if req.LandlordID != "" {
		landlordID, err = uuid.Parse(req.LandlordID)
		if err != nil {
			h.BadRequest(c, "Invalid landlord ID")
			return
		}
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		h.BadRequest(c, "Invalid start date, expected YYYY-MM-DD")
		return
	}

	var endDate *time.Time
	if req.EndDate != nil && *req.EndDate != "" {
		parsed, err := parseDate(*req.EndDate)
		if err != nil {
			h.BadRequest(c, "Invalid end date, expected YYYY-MM-DD")
			return
		}
		endDate = &parsed
	}

	cmd := tenancyapp.CreateLeaseCommand{
		TenantID:   tenantID,
		LandlordID: landlordID,
		PropertyID: propertyID,
		StartDate:  startDate,
		EndDate:    endDate,
		RentAmount: decimal.NewFromFloat(req.RentAmount),
	}

	lease, err := h.leaseService.CreateLease(c.Request.Context(), actor, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toLeaseResponse(lease))
}

// Get godoc
// @ID           getLease
// @Summary      Get a lease by ID
// @Tags         leases
// @Produce      json
// @Param        id path string true "Lease ID"
// @Success      200 {object} APIResponse[LeaseResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases/{id} [get]
func (h *LeaseHandler) Get(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	leaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid lease ID")
		return
	}

	lease, err := h.leaseService.GetLease(c.Request.Context(), actor, leaseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toLeaseResponse(lease))
}

// List godoc
// @ID           listLeases
// @Summary      List leases visible to the caller
// @Tags         leases
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        status query string false "Filter by lease status"
// @Param        property_id query string false "Filter by property"
// @Success      200 {object} APIResponse[[]LeaseResponse]
// @Security     BearerAuth
// @Router       /leases [get]
func (h *LeaseHandler) List(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	req := ListLeasesRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Filters:  map[string]interface{}{},
	}
	if req.Status != "" {
		filter.Filters["status"] = req.Status
	}
	if req.PropertyID != "" {
		filter.Filters["property_id"] = req.PropertyID
	}

	result, err := h.leaseService.ListLeases(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toLeaseResponses(result.Items), result.Total, result.Page, result.PageSize)
}

// Activate godoc
// @ID           activateLease
// @Summary      Activate a pending lease
// @Description  Landlord approval moves a PENDING lease to ACTIVE
// @Tags         leases
// @Produce      json
// @Param        id path string true "Lease ID"
// @Success      200 {object} APIResponse[LeaseResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases/{id}/activate [post]
func (h *LeaseHandler) Activate(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	leaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid lease ID")
		return
	}

	lease, err := h.leaseService.ActivateLease(c.Request.Context(), actor, leaseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toLeaseResponse(lease))
}

// RequestVacate godoc
// @ID           requestVacate
// @Summary      Request to vacate a lease
// @Description  Tenant files a vacate notice against their active lease
// @Tags         leases
// @Accept       json
// @Produce      json
// @Param        id path string true "Lease ID"
// @Param        request body RequestVacateRequest true "Vacate request"
// @Success      200 {object} APIResponse[LeaseResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases/{id}/vacate [post]
func (h *LeaseHandler) RequestVacate(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	leaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid lease ID")
		return
	}

	var req RequestVacateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	vacateDate, err := parseDate(req.VacateDate)
	if err != nil {
		h.BadRequest(c, "Invalid vacate date, expected YYYY-MM-DD")
		return
	}

	lease, err := h.leaseService.RequestVacate(c.Request.Context(), actor, leaseID, vacateDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toLeaseResponse(lease))
}

// ResolveVacate godoc
// @ID           resolveVacate
// @Summary      Resolve a pending vacate request
// @Description  Landlord approves or rejects the tenant's vacate notice
// @Tags         leases
// @Accept       json
// @Produce      json
// @Param        id path string true "Lease ID"
// @Param        request body ResolveVacateRequest true "Vacate decision"
// @Success      200 {object} APIResponse[LeaseResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases/{id}/vacate/resolve [post]
func (h *LeaseHandler) ResolveVacate(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	leaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid lease ID")
		return
	}

	var req ResolveVacateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	lease, err := h.leaseService.ResolveVacate(c.Request.Context(), actor, leaseID, tenancy.VacateDecision(req.Decision))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toLeaseResponse(lease))
}
