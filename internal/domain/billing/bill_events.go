package billing

import (
	"time"

	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeBillCreated = "billing.bill.created"
	EventTypeBillPaid    = "billing.bill.paid"
)

const aggregateTypeBill = "Bill"

// BillCreatedEvent is raised when the billing cycle issues a new bill
type BillCreatedEvent struct {
	shared.BaseDomainEvent
	LeaseID uuid.UUID       `json:"lease_id"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"due_date"`
}

// NewBillCreatedEvent creates a bill created event
func NewBillCreatedEvent(b *Bill) *BillCreatedEvent {
	return &BillCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillCreated, aggregateTypeBill, b.ID),
		LeaseID:         b.LeaseID,
		Amount:          b.Amount,
		DueDate:         b.DueDate,
	}
}

// BillPaidEvent is raised when a bill is settled
type BillPaidEvent struct {
	shared.BaseDomainEvent
	LeaseID uuid.UUID       `json:"lease_id"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"due_date"`
}

// NewBillPaidEvent creates a bill paid event
func NewBillPaidEvent(b *Bill) *BillPaidEvent {
	return &BillPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillPaid, aggregateTypeBill, b.ID),
		LeaseID:         b.LeaseID,
		Amount:          b.Amount,
		DueDate:         b.DueDate,
	}
}
