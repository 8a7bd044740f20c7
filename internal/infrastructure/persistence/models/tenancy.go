package models

import (
	"time"

	"github.com/nyumbani/backend/internal/domain/tenancy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeaseModel is the persistence model for the Lease aggregate root.
type LeaseModel struct {
	AggregateModel
	TenantID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	LandlordID   uuid.UUID            `gorm:"type:uuid;not null;index"`
	PropertyID   uuid.UUID            `gorm:"type:uuid;not null;index"`
	StartDate    time.Time            `gorm:"not null"`
	EndDate      *time.Time           `gorm:"index"`
	RentAmount   decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Status       tenancy.LeaseStatus  `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	VacateStatus tenancy.VacateStatus `gorm:"type:varchar(20);not null;default:'NONE'"`
	VacateDate   *time.Time
	ActivatedAt  *time.Time
	EndedAt      *time.Time
}

// TableName returns the table name for GORM
func (LeaseModel) TableName() string {
	return "leases"
}

// ToDomain converts the persistence model to a domain Lease entity.
func (m *LeaseModel) ToDomain() *tenancy.Lease {
	return &tenancy.Lease{
		BaseAggregateRoot: m.DomainAggregateRoot(),
		TenantID:          m.TenantID,
		LandlordID:        m.LandlordID,
		PropertyID:        m.PropertyID,
		StartDate:         m.StartDate,
		EndDate:           m.EndDate,
		RentAmount:        m.RentAmount,
		Status:            m.Status,
		VacateStatus:      m.VacateStatus,
		VacateDate:        m.VacateDate,
		ActivatedAt:       m.ActivatedAt,
		EndedAt:           m.EndedAt,
	}
}

// FromDomain populates the persistence model from a domain Lease entity.
func (m *LeaseModel) FromDomain(l *tenancy.Lease) {
	m.FromDomainAggregateRoot(l.BaseAggregateRoot)
	m.TenantID = l.TenantID
	m.LandlordID = l.LandlordID
	m.PropertyID = l.PropertyID
	m.StartDate = l.StartDate
	m.EndDate = l.EndDate
	m.RentAmount = l.RentAmount
	m.Status = l.Status
	m.VacateStatus = l.VacateStatus
	m.VacateDate = l.VacateDate
	m.ActivatedAt = l.ActivatedAt
	m.EndedAt = l.EndedAt
}

// LeaseModelFromDomain creates a new persistence model from a domain Lease.
func LeaseModelFromDomain(l *tenancy.Lease) *LeaseModel {
	m := &LeaseModel{}
	m.FromDomain(l)
	return m
}
