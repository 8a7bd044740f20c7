package tenancy

import (
	"time"

	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeLeaseCreated    = "tenancy.lease.created"
	EventTypeLeaseActivated  = "tenancy.lease.activated"
	EventTypeVacateRequested = "tenancy.lease.vacate_requested"
	EventTypeVacateApproved  = "tenancy.lease.vacate_approved"
	EventTypeVacateRejected  = "tenancy.lease.vacate_rejected"
	EventTypeLeaseExpired    = "tenancy.lease.expired"
)

const aggregateTypeLease = "Lease"

// LeaseCreatedEvent is raised when a new lease is registered
type LeaseCreatedEvent struct {
	shared.BaseDomainEvent
	TenantID   uuid.UUID       `json:"tenant_id"`
	LandlordID uuid.UUID       `json:"landlord_id"`
	PropertyID uuid.UUID       `json:"property_id"`
	StartDate  time.Time       `json:"start_date"`
	RentAmount decimal.Decimal `json:"rent_amount"`
	Status     LeaseStatus     `json:"status"`
}

// NewLeaseCreatedEvent creates a lease created event
func NewLeaseCreatedEvent(l *Lease) *LeaseCreatedEvent {
	return &LeaseCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeaseCreated, aggregateTypeLease, l.ID),
		TenantID:        l.TenantID,
		LandlordID:      l.LandlordID,
		PropertyID:      l.PropertyID,
		StartDate:       l.StartDate,
		RentAmount:      l.RentAmount,
		Status:          l.Status,
	}
}

// LeaseActivatedEvent is raised when a pending lease is approved
type LeaseActivatedEvent struct {
	shared.BaseDomainEvent
	TenantID   uuid.UUID `json:"tenant_id"`
	PropertyID uuid.UUID `json:"property_id"`
}

// NewLeaseActivatedEvent creates a lease activated event
func NewLeaseActivatedEvent(l *Lease) *LeaseActivatedEvent {
	return &LeaseActivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeaseActivated, aggregateTypeLease, l.ID),
		TenantID:        l.TenantID,
		PropertyID:      l.PropertyID,
	}
}

// VacateRequestedEvent is raised when a tenant asks to leave
type VacateRequestedEvent struct {
	shared.BaseDomainEvent
	TenantID   uuid.UUID `json:"tenant_id"`
	VacateDate time.Time `json:"vacate_date"`
}

// NewVacateRequestedEvent creates a vacate requested event
func NewVacateRequestedEvent(l *Lease) *VacateRequestedEvent {
	e := &VacateRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVacateRequested, aggregateTypeLease, l.ID),
		TenantID:        l.TenantID,
	}
	if l.VacateDate != nil {
		e.VacateDate = *l.VacateDate
	}
	return e
}

// VacateApprovedEvent is raised when the landlord approves a vacate request
type VacateApprovedEvent struct {
	shared.BaseDomainEvent
	TenantID   uuid.UUID  `json:"tenant_id"`
	PropertyID uuid.UUID  `json:"property_id"`
	EndDate    *time.Time `json:"end_date"`
}

// NewVacateApprovedEvent creates a vacate approved event
func NewVacateApprovedEvent(l *Lease) *VacateApprovedEvent {
	return &VacateApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVacateApproved, aggregateTypeLease, l.ID),
		TenantID:        l.TenantID,
		PropertyID:      l.PropertyID,
		EndDate:         l.EndDate,
	}
}

// VacateRejectedEvent is raised when the landlord rejects a vacate request
type VacateRejectedEvent struct {
	shared.BaseDomainEvent
	TenantID uuid.UUID `json:"tenant_id"`
}

// NewVacateRejectedEvent creates a vacate rejected event
func NewVacateRejectedEvent(l *Lease) *VacateRejectedEvent {
	return &VacateRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVacateRejected, aggregateTypeLease, l.ID),
		TenantID:        l.TenantID,
	}
}

// LeaseExpiredEvent is raised when an active lease runs past its end date
type LeaseExpiredEvent struct {
	shared.BaseDomainEvent
	TenantID   uuid.UUID  `json:"tenant_id"`
	PropertyID uuid.UUID  `json:"property_id"`
	EndDate    *time.Time `json:"end_date"`
}

// NewLeaseExpiredEvent creates a lease expired event
func NewLeaseExpiredEvent(l *Lease) *LeaseExpiredEvent {
	return &LeaseExpiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeaseExpired, aggregateTypeLease, l.ID),
		TenantID:        l.TenantID,
		PropertyID:      l.PropertyID,
		EndDate:         l.EndDate,
	}
}
