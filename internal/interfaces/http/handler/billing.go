package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/nyumbani/backend/internal/application/billing"
	"github.com/nyumbani/backend/internal/domain/billing"
)

// BillingHandler handles rent bill API endpoints
type BillingHandler struct {
	BaseHandler
	billingService *billingapp.BillingService
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(billingService *billingapp.BillingService) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
	}
}

// BillResponse represents a rent bill in API responses
// @Description Bill details
type BillResponse struct {
	ID        string     `json:"id"`
	LeaseID   string     `json:"lease_id"`
	Amount    string     `json:"amount"`
	DueDate   string     `json:"due_date"`
	Status    string     `json:"status"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// OutstandingResponse represents the outstanding balance for a lease
// @Description Outstanding balance, overdue bills carry the late penalty
type OutstandingResponse struct {
	LeaseID     string `json:"lease_id"`
	Outstanding string `json:"outstanding"`
}

func toBillResponse(bill *billing.Bill) BillResponse {
	return BillResponse{
		ID:        bill.ID.String(),
		LeaseID:   bill.LeaseID.String(),
		Amount:    bill.Amount.StringFixed(2),
		DueDate:   bill.DueDate.Format(dateLayout),
		Status:    bill.Status.String(),
		PaidAt:    bill.PaidAt,
		CreatedAt: bill.CreatedAt,
	}
}

func toBillResponses(bills []*billing.Bill) []BillResponse {
	responses := make([]BillResponse, 0, len(bills))
	for _, bill := range bills {
		responses = append(responses, toBillResponse(bill))
	}
	return responses
}

// Get godoc
// @ID           getBill
// @Summary      Get a bill by ID
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID"
// @Success      200 {object} APIResponse[BillResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills/{id} [get]
func (h *BillingHandler) Get(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bill ID")
		return
	}

	bill, err := h.billingService.GetBill(c.Request.Context(), actor, billID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toBillResponse(bill))
}

// ListForLease godoc
// @ID           listBillsForLease
// @Summary      List bills for a lease
// @Tags         bills
// @Produce      json
// @Param        id path string true "Lease ID"
// @Success      200 {object} APIResponse[[]BillResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases/{id}/bills [get]
func (h *BillingHandler) ListForLease(c *gin.Context) {
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

	bills, err := h.billingService.ListBillsForLease(c.Request.Context(), actor, leaseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toBillResponses(bills))
}

// Outstanding godoc
// @ID           getOutstandingForLease
// @Summary      Get the outstanding balance for a lease
// @Description  Sum of unpaid bills, with the late penalty applied to overdue ones
// @Tags         bills
// @Produce      json
// @Param        id path string true "Lease ID"
// @Success      200 {object} APIResponse[OutstandingResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases/{id}/outstanding [get]
func (h *BillingHandler) Outstanding(c *gin.Context) {
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

	outstanding, err := h.billingService.OutstandingForLease(c.Request.Context(), actor, leaseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, OutstandingResponse{
		LeaseID:     leaseID.String(),
		Outstanding: outstanding.StringFixed(2),
	})
}

// MarkPaid godoc
// @ID           markBillPaid
// @Summary      Mark a bill as paid
// @Description  Administrative override for payments settled outside the gateway
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID"
// @Success      200 {object} APIResponse[BillResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bills/{id}/mark-paid [post]
func (h *BillingHandler) MarkPaid(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bill ID")
		return
	}

	bill, err := h.billingService.MarkBillPaid(c.Request.Context(), actor, billID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toBillResponse(bill))
}
