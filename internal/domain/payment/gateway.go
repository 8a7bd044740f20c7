package payment

import (
	"context"
	"errors"
	"regexp"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Payment Gateway Errors
// ---------------------------------------------------------------------------

var (
	// Charge request errors
	ErrChargeInvalidAmount    = errors.New("gateway: invalid charge amount")
	ErrChargeInvalidPhone     = errors.New("gateway: payer phone must be in 2547XXXXXXXX format")
	ErrChargeInvalidReference = errors.New("gateway: invalid account reference")

	// Gateway errors
	ErrGatewayUnavailable     = errors.New("gateway: temporarily unavailable")
	ErrGatewayRequestRejected = errors.New("gateway: charge request rejected")
	ErrGatewayInvalidResponse = errors.New("gateway: invalid gateway response")
	ErrGatewayInvalidCallback = errors.New("gateway: malformed callback payload")
	ErrGatewayAuthFailed      = errors.New("gateway: authentication with gateway failed")
)

// msisdnPattern matches Kenyan mobile numbers in international format
// without the leading plus, the format the STK push API requires.
var msisdnPattern = regexp.MustCompile(`^2547\d{8}$`)

// ValidMSISDN reports whether the phone number is acceptable to the gateway
func ValidMSISDN(phone string) bool {
	return msisdnPattern.MatchString(phone)
}

// ---------------------------------------------------------------------------
// Charge Request/Response DTOs
// ---------------------------------------------------------------------------

// ChargeRequest represents a request to start a mobile-money charge
type ChargeRequest struct {
	// Amount is the charge amount in KES
	Amount decimal.Decimal
	// PayerPhone is the MSISDN prompted for the charge (2547XXXXXXXX)
	PayerPhone string
	// AccountReference ties the charge to a lease on the payer's statement
	AccountReference string
	// Description is shown to the payer in the payment prompt
	Description string
}

// Validate validates the charge request
func (r *ChargeRequest) Validate() error {
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrChargeInvalidAmount
	}
	if !ValidMSISDN(r.PayerPhone) {
		return ErrChargeInvalidPhone
	}
	if r.AccountReference == "" {
		return ErrChargeInvalidReference
	}
	return nil
}

// ChargeResponse represents the gateway's acceptance of a charge request
type ChargeResponse struct {
	// CorrelationID is the gateway-issued id later echoed in the callback.
	// It becomes the payment's provider reference.
	CorrelationID string
	// ResponseDescription is the gateway's human-readable acceptance text
	ResponseDescription string
	// CustomerMessage is the text shown on the payer's handset
	CustomerMessage string
}

// CallbackResult is the normalized form of an asynchronous gateway
// callback. ResultCode zero means the payer completed the charge; any
// other code is a failure with ResultDesc explaining why.
type CallbackResult struct {
	// CorrelationID matches the ChargeResponse of the original request
	CorrelationID string
	// ResultCode is the gateway's outcome code (0 = success)
	ResultCode int
	// ResultDesc is the gateway's outcome description
	ResultDesc string
	// Amount is the confirmed amount, present on success
	Amount decimal.Decimal
	// ReceiptNumber is the gateway's transaction receipt, present on success
	ReceiptNumber string
	// PayerPhone is the confirming MSISDN, present on success
	PayerPhone string
}

// Succeeded reports whether the callback confirms the charge
func (c *CallbackResult) Succeeded() bool {
	return c.ResultCode == 0
}

// ---------------------------------------------------------------------------
// Gateway Port Interface
// ---------------------------------------------------------------------------

// Gateway is the port to the external mobile-money provider. It is defined
// in the domain layer; the STK push adapter in the infrastructure layer
// implements it. The provider confirms charges asynchronously and
// at-least-once, so callers must treat callbacks as retryable duplicates.
type Gateway interface {
	// StartCharge asks the provider to prompt the payer for the amount.
	// Returns the correlation id the later callback will carry. The call
	// must respect ctx deadlines; a timeout or rejection leaves nothing
	// to reconcile.
	StartCharge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error)

	// ParseCallback normalizes a raw webhook payload. Returns
	// ErrGatewayInvalidCallback for payloads that do not parse.
	ParseCallback(payload []byte) (*CallbackResult, error)

	// GenerateCallbackResponse builds the acknowledgement body the
	// provider expects in reply to its webhook POST.
	GenerateCallbackResponse(success bool, message string) []byte
}
