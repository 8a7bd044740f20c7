package tenancy

import (
	"fmt"
	"time"

	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/nyumbani/backend/internal/domain/shared/service"
	"github.com/nyumbani/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeaseStatus represents the lifecycle status of a lease
type LeaseStatus string

const (
	LeaseStatusPending    LeaseStatus = "PENDING"    // Awaiting landlord approval
	LeaseStatusActive     LeaseStatus = "ACTIVE"     // Tenancy in effect, bills accrue
	LeaseStatusTerminated LeaseStatus = "TERMINATED" // Ended early (approved vacate or admin action)
	LeaseStatusExpired    LeaseStatus = "EXPIRED"    // Ran past its end date
)

// IsValid checks if the status is a valid LeaseStatus
func (s LeaseStatus) IsValid() bool {
	switch s {
	case LeaseStatusPending, LeaseStatusActive, LeaseStatusTerminated, LeaseStatusExpired:
		return true
	}
	return false
}

// String returns the string representation of LeaseStatus
func (s LeaseStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the lease is in a terminal state
func (s LeaseStatus) IsTerminal() bool {
	return s == LeaseStatusTerminated || s == LeaseStatusExpired
}

// VacateStatus represents the vacate sub-state carried by an active lease
type VacateStatus string

const (
	VacateStatusNone     VacateStatus = "NONE"     // No vacate request on record
	VacateStatusPending  VacateStatus = "PENDING"  // Tenant has asked to vacate
	VacateStatusApproved VacateStatus = "APPROVED" // Landlord approved, lease terminated
	VacateStatusRejected VacateStatus = "REJECTED" // Landlord rejected, tenancy continues
)

// IsValid checks if the status is a valid VacateStatus
func (s VacateStatus) IsValid() bool {
	switch s {
	case VacateStatusNone, VacateStatusPending, VacateStatusApproved, VacateStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of VacateStatus
func (s VacateStatus) String() string {
	return string(s)
}

// VacateDecision is the landlord's verdict on a pending vacate request
type VacateDecision string

const (
	VacateDecisionApprove VacateDecision = "APPROVE"
	VacateDecisionReject  VacateDecision = "REJECT"
)

// IsValid checks if the decision is valid
func (d VacateDecision) IsValid() bool {
	return d == VacateDecisionApprove || d == VacateDecisionReject
}

// Lease is the aggregate root governing a single tenancy. All status and
// vacate mutations go through its methods; an illegal (state, event)
// combination returns an INVALID_STATE error and leaves the lease untouched.
type Lease struct {
	shared.BaseAggregateRoot
	TenantID     uuid.UUID       `json:"tenant_id"`
	LandlordID   uuid.UUID       `json:"landlord_id"`
	PropertyID   uuid.UUID       `json:"property_id"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      *time.Time      `json:"end_date"` // nil = open-ended
	RentAmount   decimal.Decimal `json:"rent_amount"`
	Status       LeaseStatus     `json:"status"`
	VacateStatus VacateStatus    `json:"vacate_status"`
	VacateDate   *time.Time      `json:"vacate_date"`
	ActivatedAt  *time.Time      `json:"activated_at"`
	EndedAt      *time.Time      `json:"ended_at"`
}

// NewLease creates a new lease. When requireApproval is set the lease starts
// PENDING and must be activated by the landlord; otherwise it starts ACTIVE.
func NewLease(
	tenantID uuid.UUID,
	landlordID uuid.UUID,
	propertyID uuid.UUID,
	startDate time.Time,
	endDate *time.Time,
	rentAmount valueobject.Money,
	requireApproval bool,
) (*Lease, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if landlordID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LANDLORD", "Landlord ID cannot be empty")
	}
	if propertyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROPERTY", "Property ID cannot be empty")
	}
	if startDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_START_DATE", "Start date is required")
	}
	if endDate != nil && !endDate.After(startDate) {
		return nil, shared.NewDomainError("INVALID_END_DATE", "End date must be strictly after start date")
	}
	if rentAmount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_RENT", "Rent amount must be positive")
	}

	status := LeaseStatusActive
	var activatedAt *time.Time
	if requireApproval {
		status = LeaseStatusPending
	} else {
		now := time.Now()
		activatedAt = &now
	}

	l := &Lease{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          tenantID,
		LandlordID:        landlordID,
		PropertyID:        propertyID,
		StartDate:         service.DateOnly(startDate),
		RentAmount:        rentAmount.Amount(),
		Status:            status,
		VacateStatus:      VacateStatusNone,
		ActivatedAt:       activatedAt,
	}
	if endDate != nil {
		d := service.DateOnly(*endDate)
		l.EndDate = &d
	}

	l.AddDomainEvent(NewLeaseCreatedEvent(l))
	return l, nil
}

// Activate moves a PENDING lease to ACTIVE (landlord approval path)
func (l *Lease) Activate() error {
	if l.Status != LeaseStatusPending {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot activate lease in %s status", l.Status))
	}
	now := time.Now()
	l.Status = LeaseStatusActive
	l.ActivatedAt = &now
	l.touch()
	l.AddDomainEvent(NewLeaseActivatedEvent(l))
	return nil
}

// RequestVacate records a tenant's request to leave on the given date.
// Allowed only on an active lease with no vacate request in flight; a
// previously rejected request may be re-raised.
func (l *Lease) RequestVacate(vacateDate time.Time) error {
	if l.Status != LeaseStatusActive {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot request vacate on lease in %s status", l.Status))
	}
	if l.VacateStatus != VacateStatusNone && l.VacateStatus != VacateStatusRejected {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Vacate request already %s", l.VacateStatus))
	}
	if vacateDate.IsZero() {
		return shared.NewDomainError("INVALID_VACATE_DATE", "Vacate date is required")
	}
	if !vacateDate.After(l.StartDate) {
		return shared.NewDomainError("INVALID_VACATE_DATE", "Vacate date must be after lease start date")
	}

	d := service.DateOnly(vacateDate)
	l.VacateStatus = VacateStatusPending
	l.VacateDate = &d
	l.touch()
	l.AddDomainEvent(NewVacateRequestedEvent(l))
	return nil
}

// ResolveVacate applies the landlord's decision to a pending vacate request.
// Approval terminates the lease with end date = vacate date; rejection
// clears the vacate date and leaves the tenancy active.
func (l *Lease) ResolveVacate(decision VacateDecision) error {
	if !decision.IsValid() {
		return shared.NewDomainError("INVALID_DECISION", "Vacate decision must be APPROVE or REJECT")
	}
	if l.VacateStatus != VacateStatusPending {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("No pending vacate request to resolve, current vacate status is %s", l.VacateStatus))
	}

	now := time.Now()
	if decision == VacateDecisionApprove {
		l.VacateStatus = VacateStatusApproved
		l.Status = LeaseStatusTerminated
		l.EndDate = l.VacateDate
		l.EndedAt = &now
		l.touch()
		l.AddDomainEvent(NewVacateApprovedEvent(l))
		return nil
	}

	l.VacateStatus = VacateStatusRejected
	l.VacateDate = nil
	l.touch()
	l.AddDomainEvent(NewVacateRejectedEvent(l))
	return nil
}

// ExpireIfDue transitions an active lease past its end date to EXPIRED.
// Idempotent: a lease that is not active, or not yet due, is left alone
// and (false, nil) is returned.
func (l *Lease) ExpireIfDue(today time.Time) (bool, error) {
	if l.Status != LeaseStatusActive {
		return false, nil
	}
	if l.EndDate == nil || l.EndDate.After(service.DateOnly(today)) {
		return false, nil
	}

	now := time.Now()
	l.Status = LeaseStatusExpired
	l.EndedAt = &now
	l.touch()
	l.AddDomainEvent(NewLeaseExpiredEvent(l))
	return true, nil
}

// IsBillable returns true if the lease should keep accruing bills
func (l *Lease) IsBillable() bool {
	return l.Status == LeaseStatusActive
}

// RentMoney returns the monthly rent as Money
func (l *Lease) RentMoney() valueobject.Money {
	return valueobject.NewMoneyKES(l.RentAmount)
}

// HasPendingVacate returns true if a vacate request awaits a decision
func (l *Lease) HasPendingVacate() bool {
	return l.VacateStatus == VacateStatusPending
}

func (l *Lease) touch() {
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
}
