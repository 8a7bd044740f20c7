package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	paymentapp "github.com/nyumbani/backend/internal/application/payment"
	"github.com/nyumbani/backend/internal/domain/payment"
)

// PaymentHandler handles rent payment API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService  *paymentapp.PaymentService
	callbackService *paymentapp.CallbackService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *paymentapp.PaymentService, callbackService *paymentapp.CallbackService) *PaymentHandler {
	return &PaymentHandler{
		paymentService:  paymentService,
		callbackService: callbackService,
	}
}

// InitiatePaymentRequest represents a request to start a rent payment
// @Description Request body for initiating an STK-push rent payment
type InitiatePaymentRequest struct {
	LeaseID    string  `json:"lease_id" binding:"required,uuid" example:"9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"`
	Amount     float64 `json:"amount" binding:"required,gt=0" example:"35000.00"`
	PayerPhone string  `json:"payer_phone" binding:"required,msisdn" example:"254712345678"`
}

// PaymentResponse represents a payment in API responses
// @Description Payment details
type PaymentResponse struct {
	ID            string     `json:"id"`
	LeaseID       string     `json:"lease_id"`
	Amount        string     `json:"amount"`
	PayerPhone    string     `json:"payer_phone"`
	ProviderRef   string     `json:"provider_ref"`
	ReceiptNumber string     `json:"receipt_number,omitempty"`
	Status        string     `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toPaymentResponse(pmt *payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            pmt.ID.String(),
		LeaseID:       pmt.LeaseID.String(),
		Amount:        pmt.Amount.StringFixed(2),
		PayerPhone:    pmt.PayerPhone,
		ProviderRef:   pmt.ProviderRef,
		ReceiptNumber: pmt.ReceiptNumber,
		Status:        pmt.Status.String(),
		FailureReason: pmt.FailureReason,
		CompletedAt:   pmt.CompletedAt,
		CreatedAt:     pmt.CreatedAt,
	}
}

func toPaymentResponses(payments []*payment.Payment) []PaymentResponse {
	responses := make([]PaymentResponse, 0, len(payments))
	for _, pmt := range payments {
		responses = append(responses, toPaymentResponse(pmt))
	}
	return responses
}

// Initiate godoc
// @ID           initiatePayment
// @Summary      Start a rent payment
// @Description  Push an STK charge to the payer's phone; the payment settles asynchronously via callback
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body InitiatePaymentRequest true "Payment initiation request"
// @Success      201 {object} APIResponse[PaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payments [post]
func (h *PaymentHandler) Initiate(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	leaseID, err := uuid.Parse(req.LeaseID)
	if err != nil {
		h.BadRequest(c, "Invalid lease ID")
		return
	}

	cmd := paymentapp.InitiatePaymentCommand{
		LeaseID:    leaseID,
		Amount:     decimal.NewFromFloat(req.Amount),
		PayerPhone: req.PayerPhone,
	}

	pmt, err := h.paymentService.Initiate(c.Request.Context(), actor, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toPaymentResponse(pmt))
}

// Get godoc
// @ID           getPayment
// @Summary      Get a payment by ID
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID"
// @Success      200 {object} APIResponse[PaymentResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	pmt, err := h.paymentService.GetPayment(c.Request.Context(), actor, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(pmt))
}

// ListForLease godoc
// @ID           listPaymentsForLease
// @Summary      List payments for a lease
// @Tags         payments
// @Produce      json
// @Param        id path string true "Lease ID"
// @Success      200 {object} APIResponse[[]PaymentResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /leases/{id}/payments [get]
func (h *PaymentHandler) ListForLease(c *gin.Context) {
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

	payments, err := h.paymentService.ListPaymentsForLease(c.Request.Context(), actor, leaseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPaymentResponses(payments))
}

// Refund godoc
// @ID           refundPayment
// @Summary      Refund a successful payment
// @Description  Administrative reversal of a settled payment
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID"
// @Success      200 {object} APIResponse[PaymentResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payments/{id}/refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	pmt, err := h.callbackService.Refund(c.Request.Context(), actor, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(pmt))
}
