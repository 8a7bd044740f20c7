package models

import (
	"time"

	"github.com/nyumbani/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillModel is the persistence model for the Bill aggregate root.
// The (lease_id, due_date) unique index backs billing-cycle idempotency.
type BillModel struct {
	AggregateModel
	LeaseID uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_bill_lease_due,priority:1"`
	Amount  decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	DueDate time.Time          `gorm:"not null;uniqueIndex:idx_bill_lease_due,priority:2;index"`
	Status  billing.BillStatus `gorm:"type:varchar(20);not null;default:'UNPAID';index"`
	PaidAt  *time.Time
}

// TableName returns the table name for GORM
func (BillModel) TableName() string {
	return "bills"
}

// ToDomain converts the persistence model to a domain Bill entity.
func (m *BillModel) ToDomain() *billing.Bill {
	return &billing.Bill{
		BaseAggregateRoot: m.DomainAggregateRoot(),
		LeaseID:           m.LeaseID,
		Amount:            m.Amount,
		DueDate:           m.DueDate,
		Status:            m.Status,
		PaidAt:            m.PaidAt,
	}
}

// FromDomain populates the persistence model from a domain Bill entity.
func (m *BillModel) FromDomain(b *billing.Bill) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.LeaseID = b.LeaseID
	m.Amount = b.Amount
	m.DueDate = b.DueDate
	m.Status = b.Status
	m.PaidAt = b.PaidAt
}

// BillModelFromDomain creates a new persistence model from a domain Bill.
func BillModelFromDomain(b *billing.Bill) *BillModel {
	m := &BillModel{}
	m.FromDomain(b)
	return m
}
