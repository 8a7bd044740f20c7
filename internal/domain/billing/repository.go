package billing

import (
	"context"
	"time"

	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BillRepository defines the persistence contract for bills
type BillRepository interface {
	// Save persists the bill. Inserting a second bill with the same
	// (lease_id, due_date) pair returns shared.ErrAlreadyExists; the
	// storage layer backs this with a unique constraint.
	Save(ctx context.Context, bill *Bill) error
	FindByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	// FindByLease returns all bills for the lease ordered by due date ascending.
	FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*Bill, error)
	// FindUnpaidByLease returns unpaid bills ordered oldest due date first.
	FindUnpaidByLease(ctx context.Context, leaseID uuid.UUID) ([]*Bill, error)
	// FindLatestByLease returns the bill with the most recent due date for
	// the lease, or shared.ErrNotFound when the lease has no bills.
	FindLatestByLease(ctx context.Context, leaseID uuid.UUID) (*Bill, error)
	ExistsForLeaseAndDueDate(ctx context.Context, leaseID uuid.UUID, dueDate time.Time) (bool, error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*Bill], error)
	CountUnpaid(ctx context.Context) (int64, error)
}
