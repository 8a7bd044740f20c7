package payment

import (
	"context"

	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRepository defines the persistence contract for payments
type PaymentRepository interface {
	// Save persists the payment. Inserting a second payment with the same
	// provider reference returns shared.ErrAlreadyExists; the storage
	// layer backs this with a unique constraint.
	Save(ctx context.Context, payment *Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// FindByProviderRef looks up the payment a gateway callback refers
	// to. Returns shared.ErrNotFound for unknown references.
	FindByProviderRef(ctx context.Context, providerRef string) (*Payment, error)
	FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*Payment, error)
	// UpdateStatusFromPending commits the payment's terminal transition
	// only if the stored status is still PENDING, so concurrent callbacks
	// for one correlation id serialize to a single winner. The loser gets
	// shared.ErrConcurrencyConflict.
	UpdateStatusFromPending(ctx context.Context, payment *Payment) error
	// SumSuccessfulByLease totals confirmed payment amounts for a lease.
	SumSuccessfulByLease(ctx context.Context, leaseID uuid.UUID) (decimal.Decimal, error)
	// SumSuccessfulByLeases totals confirmed payment amounts across the
	// given leases, keyed by lease id. Refunded payments are excluded.
	SumSuccessfulByLeases(ctx context.Context, leaseIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*Payment], error)
	CountByStatus(ctx context.Context) (map[PaymentStatus]int64, error)
}
