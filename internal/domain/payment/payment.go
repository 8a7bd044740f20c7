package payment

import (
	"fmt"
	"time"

	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/nyumbani/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle status of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"    // Charge accepted by gateway, awaiting callback
	PaymentStatusSuccessful PaymentStatus = "SUCCESSFUL" // Gateway confirmed the charge
	PaymentStatusFailed     PaymentStatus = "FAILED"     // Gateway reported failure or cancellation
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"   // Administrative refund of a successful payment
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccessful, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal returns true once the payment can no longer change through
// gateway callbacks. REFUNDED is reachable from SUCCESSFUL by
// administrative action only.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccessful || s == PaymentStatusFailed || s == PaymentStatusRefunded
}

// Payment is a single charge attempt against a lease. The provider
// reference is the gateway's correlation id, assigned at initiation and
// immutable afterwards; it is the sole key callbacks reconcile on.
type Payment struct {
	shared.BaseAggregateRoot
	LeaseID       uuid.UUID       `json:"lease_id"`
	Amount        decimal.Decimal `json:"amount"`
	PayerPhone    string          `json:"payer_phone"`
	ProviderRef   string          `json:"provider_ref"`
	ReceiptNumber string          `json:"receipt_number"`
	Status        PaymentStatus   `json:"status"`
	FailureReason string          `json:"failure_reason"`
	CompletedAt   *time.Time      `json:"completed_at"`
}

// NewPayment creates a pending payment correlated to a gateway charge.
// Called only after the gateway accepted the charge request, so an
// initiation failure leaves no payment record behind.
func NewPayment(leaseID uuid.UUID, amount valueobject.Money, payerPhone, providerRef string) (*Payment, error) {
	if leaseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LEASE", "Lease ID cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if payerPhone == "" {
		return nil, shared.NewDomainError("INVALID_PHONE", "Payer phone is required")
	}
	if providerRef == "" {
		return nil, shared.NewDomainError("INVALID_PROVIDER_REF", "Provider reference is required")
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		LeaseID:           leaseID,
		Amount:            amount.Amount(),
		PayerPhone:        payerPhone,
		ProviderRef:       providerRef,
		Status:            PaymentStatusPending,
	}
	p.AddDomainEvent(NewPaymentInitiatedEvent(p))
	return p, nil
}

// MarkSuccessful transitions a pending payment to SUCCESSFUL. The receipt
// number is the gateway's transaction receipt when provided.
func (p *Payment) MarkSuccessful(receiptNumber string) error {
	if err := p.ensurePending(); err != nil {
		return err
	}
	now := time.Now()
	p.Status = PaymentStatusSuccessful
	p.ReceiptNumber = receiptNumber
	p.CompletedAt = &now
	p.touch()
	p.AddDomainEvent(NewPaymentSucceededEvent(p))
	return nil
}

// MarkFailed transitions a pending payment to FAILED with the gateway's
// result description.
func (p *Payment) MarkFailed(reason string) error {
	if err := p.ensurePending(); err != nil {
		return err
	}
	now := time.Now()
	p.Status = PaymentStatusFailed
	p.FailureReason = reason
	p.CompletedAt = &now
	p.touch()
	p.AddDomainEvent(NewPaymentFailedEvent(p))
	return nil
}

// Refund moves a successful payment to REFUNDED. This is an
// administrative transition, never driven by gateway callbacks.
func (p *Payment) Refund() error {
	if p.Status != PaymentStatusSuccessful {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot refund payment in %s status", p.Status))
	}
	p.Status = PaymentStatusRefunded
	p.touch()
	p.AddDomainEvent(NewPaymentRefundedEvent(p))
	return nil
}

// IsTerminal reports whether the payment has reached a terminal state
func (p *Payment) IsTerminal() bool {
	return p.Status.IsTerminal()
}

// AmountMoney returns the payment amount as Money
func (p *Payment) AmountMoney() valueobject.Money {
	return valueobject.NewMoneyKES(p.Amount)
}

func (p *Payment) ensurePending() error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Payment already resolved to %s", p.Status))
	}
	return nil
}

func (p *Payment) touch() {
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}
