package payment

import (
	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypePaymentInitiated = "payment.initiated"
	EventTypePaymentSucceeded = "payment.succeeded"
	EventTypePaymentFailed    = "payment.failed"
	EventTypePaymentRefunded  = "payment.refunded"
)

const aggregateTypePayment = "Payment"

// PaymentInitiatedEvent is raised when a charge is accepted by the gateway
type PaymentInitiatedEvent struct {
	shared.BaseDomainEvent
	LeaseID     uuid.UUID       `json:"lease_id"`
	Amount      decimal.Decimal `json:"amount"`
	ProviderRef string          `json:"provider_ref"`
}

// NewPaymentInitiatedEvent creates a payment initiated event
func NewPaymentInitiatedEvent(p *Payment) *PaymentInitiatedEvent {
	return &PaymentInitiatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentInitiated, aggregateTypePayment, p.ID),
		LeaseID:         p.LeaseID,
		Amount:          p.Amount,
		ProviderRef:     p.ProviderRef,
	}
}

// PaymentSucceededEvent is raised when the gateway confirms a charge
type PaymentSucceededEvent struct {
	shared.BaseDomainEvent
	LeaseID       uuid.UUID       `json:"lease_id"`
	Amount        decimal.Decimal `json:"amount"`
	ProviderRef   string          `json:"provider_ref"`
	ReceiptNumber string          `json:"receipt_number"`
}

// NewPaymentSucceededEvent creates a payment succeeded event
func NewPaymentSucceededEvent(p *Payment) *PaymentSucceededEvent {
	return &PaymentSucceededEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentSucceeded, aggregateTypePayment, p.ID),
		LeaseID:         p.LeaseID,
		Amount:          p.Amount,
		ProviderRef:     p.ProviderRef,
		ReceiptNumber:   p.ReceiptNumber,
	}
}

// PaymentFailedEvent is raised when the gateway reports a failed charge
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	LeaseID     uuid.UUID `json:"lease_id"`
	ProviderRef string    `json:"provider_ref"`
	Reason      string    `json:"reason"`
}

// NewPaymentFailedEvent creates a payment failed event
func NewPaymentFailedEvent(p *Payment) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentFailed, aggregateTypePayment, p.ID),
		LeaseID:         p.LeaseID,
		ProviderRef:     p.ProviderRef,
		Reason:          p.FailureReason,
	}
}

// PaymentRefundedEvent is raised on administrative refund
type PaymentRefundedEvent struct {
	shared.BaseDomainEvent
	LeaseID     uuid.UUID       `json:"lease_id"`
	Amount      decimal.Decimal `json:"amount"`
	ProviderRef string          `json:"provider_ref"`
}

// NewPaymentRefundedEvent creates a payment refunded event
func NewPaymentRefundedEvent(p *Payment) *PaymentRefundedEvent {
	return &PaymentRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRefunded, aggregateTypePayment, p.ID),
		LeaseID:         p.LeaseID,
		Amount:          p.Amount,
		ProviderRef:     p.ProviderRef,
	}
}
