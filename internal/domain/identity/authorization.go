package identity

import "github.com/google/uuid"

// Operation names an action an actor may attempt on a resource
type Operation string

const (
	OpCreateLease     Operation = "lease:create"
	OpActivateLease   Operation = "lease:activate"
	OpViewLease       Operation = "lease:view"
	OpRequestVacate   Operation = "lease:request_vacate"
	OpResolveVacate   Operation = "lease:resolve_vacate"
	OpViewBills       Operation = "bill:view"
	OpOverrideBill    Operation = "bill:mark_paid"
	OpInitiatePayment Operation = "payment:initiate"
	OpRefundPayment   Operation = "payment:refund"
	OpViewReports     Operation = "report:view"
)

// LeaseResource carries the ownership facts authorization decides on
type LeaseResource struct {
	TenantID   uuid.UUID
	LandlordID uuid.UUID
}

// CanPerform is the single authorization predicate evaluated before any
// state-machine operation. It is a pure function of the actor's role and
// the resource's ownership; the state machines themselves never consult
// roles.
func CanPerform(actor Actor, op Operation, resource LeaseResource) bool {
	if actor.IsAdmin() {
		return true
	}

	switch op {
	case OpCreateLease, OpActivateLease, OpResolveVacate, OpOverrideBill:
		return actor.Role == RoleLandlord && actor.ID == resource.LandlordID
	case OpRequestVacate:
		return actor.Role == RoleTenant && actor.ID == resource.TenantID
	case OpViewLease, OpViewBills:
		return (actor.Role == RoleTenant && actor.ID == resource.TenantID) ||
			(actor.Role == RoleLandlord && actor.ID == resource.LandlordID)
	case OpInitiatePayment:
		// Tenants pay their own rent; landlords may pay on a tenant's behalf.
		return (actor.Role == RoleTenant && actor.ID == resource.TenantID) ||
			(actor.Role == RoleLandlord && actor.ID == resource.LandlordID)
	case OpViewReports:
		return actor.Role == RoleLandlord
	case OpRefundPayment:
		// Admin only, handled above.
		return false
	}
	return false
}
