package models

import (
	"time"

	"github.com/nyumbani/backend/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentModel is the persistence model for the Payment aggregate root.
// The provider reference is the sole correlation key for gateway
// callbacks, so it carries a unique index.
type PaymentModel struct {
	AggregateModel
	LeaseID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	PayerPhone    string                `gorm:"type:varchar(15);not null"`
	ProviderRef   string                `gorm:"type:varchar(100);not null;uniqueIndex:idx_payment_provider_ref"`
	ReceiptNumber string                `gorm:"type:varchar(50)"`
	Status        payment.PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	FailureReason string                `gorm:"type:varchar(500)"`
	CompletedAt   *time.Time
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *payment.Payment {
	return &payment.Payment{
		BaseAggregateRoot: m.DomainAggregateRoot(),
		LeaseID:           m.LeaseID,
		Amount:            m.Amount,
		PayerPhone:        m.PayerPhone,
		ProviderRef:       m.ProviderRef,
		ReceiptNumber:     m.ReceiptNumber,
		Status:            m.Status,
		FailureReason:     m.FailureReason,
		CompletedAt:       m.CompletedAt,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *payment.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.LeaseID = p.LeaseID
	m.Amount = p.Amount
	m.PayerPhone = p.PayerPhone
	m.ProviderRef = p.ProviderRef
	m.ReceiptNumber = p.ReceiptNumber
	m.Status = p.Status
	m.FailureReason = p.FailureReason
	m.CompletedAt = p.CompletedAt
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *payment.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}
