package billing

import (
	"fmt"
	"time"

	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/nyumbani/backend/internal/domain/shared/service"
	"github.com/nyumbani/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillStatus represents the payment status of a bill
type BillStatus string

const (
	BillStatusUnpaid BillStatus = "UNPAID"
	BillStatusPaid   BillStatus = "PAID"
)

// IsValid checks if the status is a valid BillStatus
func (s BillStatus) IsValid() bool {
	return s == BillStatusUnpaid || s == BillStatusPaid
}

// String returns the string representation of BillStatus
func (s BillStatus) String() string {
	return string(s)
}

// DefaultPenaltyRate is the surcharge applied to a bill once its due date
// has passed without payment.
var DefaultPenaltyRate = decimal.NewFromFloat(0.05)

// Bill is a single rent obligation on a lease. Bills are created by the
// billing cycle, never edited, and flip to PAID exactly once.
type Bill struct {
	shared.BaseAggregateRoot
	LeaseID uuid.UUID       `json:"lease_id"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"due_date"`
	Status  BillStatus      `json:"status"`
	PaidAt  *time.Time      `json:"paid_at"`
}

// NewBill creates an unpaid bill. The due date may not be in the past
// relative to the supplied reference date.
func NewBill(leaseID uuid.UUID, amount valueobject.Money, dueDate time.Time, today time.Time) (*Bill, error) {
	if leaseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LEASE", "Lease ID cannot be empty")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Bill amount must be positive")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}
	due := service.DateOnly(dueDate)
	if due.Before(service.DateOnly(today)) {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be in the past")
	}

	b := &Bill{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		LeaseID:           leaseID,
		Amount:            amount.Amount(),
		DueDate:           due,
		Status:            BillStatusUnpaid,
	}
	b.AddDomainEvent(NewBillCreatedEvent(b))
	return b, nil
}

// MarkPaid flips the bill to PAID. Paying a paid bill is an error so that
// double-crediting surfaces instead of being silently absorbed.
func (b *Bill) MarkPaid() error {
	if b.Status == BillStatusPaid {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Bill %s is already paid", b.ID))
	}
	now := time.Now()
	b.Status = BillStatusPaid
	b.PaidAt = &now
	b.UpdatedAt = now
	b.IncrementVersion()
	b.AddDomainEvent(NewBillPaidEvent(b))
	return nil
}

// IsOverdue reports whether the bill is unpaid past its due date
func (b *Bill) IsOverdue(today time.Time) bool {
	return b.Status == BillStatusUnpaid && b.DueDate.Before(service.DateOnly(today))
}

// TotalWithPenalty returns the amount owed on the bill as of the given
// date. An overdue bill carries the penalty surcharge rounded to 2
// decimals; a current or paid bill owes its face amount. Pure, no
// mutation.
func (b *Bill) TotalWithPenalty(penaltyRate decimal.Decimal, today time.Time) decimal.Decimal {
	if b.IsOverdue(today) {
		return b.Amount.Mul(decimal.NewFromInt(1).Add(penaltyRate)).Round(2)
	}
	return b.Amount
}

// AmountMoney returns the face amount as Money
func (b *Bill) AmountMoney() valueobject.Money {
	return valueobject.NewMoneyKES(b.Amount)
}
