package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentapp "github.com/nyumbani/backend/internal/application/payment"
	"go.uber.org/zap"
)

// PaymentCallbackHandler handles payment gateway callback endpoints.
// These endpoints are called by the mobile-money gateway and do not
// require authentication. The gateway retries on anything but a 200,
// so the handler always acknowledges once the payload has been read.
type PaymentCallbackHandler struct {
	BaseHandler
	callbackService *paymentapp.CallbackService
	logger          *zap.Logger
}

// NewPaymentCallbackHandler creates a new PaymentCallbackHandler
func NewPaymentCallbackHandler(callbackService *paymentapp.CallbackService, logger *zap.Logger) *PaymentCallbackHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentCallbackHandler{
		callbackService: callbackService,
		logger:          logger,
	}
}

// HandleMpesaCallback godoc
//
//	@ID				handleMpesaCallback
//	@Summary		Handle M-Pesa STK push callback
//	@Description	Receive and reconcile an asynchronous payment result from the Daraja API
//	@Tags			payment-callbacks
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}	"ResultCode=0"
//	@Router			/payments/callback/mpesa [post]
func (h *PaymentCallbackHandler) HandleMpesaCallback(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Warn("Failed to read gateway callback body", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
		return
	}

	result, ack := h.callbackService.Reconcile(c.Request.Context(), payload)

	h.logger.Info("Gateway callback processed",
		zap.String("outcome", string(result.Outcome)),
		zap.String("correlation_id", result.CorrelationID),
		zap.Int("bills_settled", result.BillsSettled))

	c.Data(http.StatusOK, "application/json", ack)
}
