package tenancy

import (
	"context"
	"time"

	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// LeaseRepository defines the persistence contract for leases
type LeaseRepository interface {
	Save(ctx context.Context, lease *Lease) error
	// SaveWithLock persists the lease with an optimistic version check and
	// returns shared.ErrConcurrencyConflict when the stored version moved.
	SaveWithLock(ctx context.Context, lease *Lease, expectedVersion int) error
	FindByID(ctx context.Context, id uuid.UUID) (*Lease, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Lease, error)
	FindByProperty(ctx context.Context, propertyID uuid.UUID) ([]*Lease, error)
	// FindActive returns all leases in ACTIVE status.
	FindActive(ctx context.Context) ([]*Lease, error)
	// FindActiveExpiring returns active leases whose end date is on or
	// before the given date.
	FindActiveExpiring(ctx context.Context, onOrBefore time.Time) ([]*Lease, error)
	// FindActiveByPropertyOverlapping reports active or pending leases on
	// the property whose period overlaps [start, end]; end may be nil for
	// open-ended leases.
	FindActiveByPropertyOverlapping(ctx context.Context, propertyID uuid.UUID, start time.Time, end *time.Time) ([]*Lease, error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*Lease], error)
	Count(ctx context.Context, status *LeaseStatus) (int64, error)
}
