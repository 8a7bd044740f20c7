// Package testutil provides in-memory repository implementations used by
// application-layer tests. They honor the same contracts the persistence
// layer does: uniqueness on (lease_id, due_date) and provider_ref, the
// optimistic version check on leases, and the pending-only compare-and-set
// on payment status.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/nyumbani/backend/internal/domain/billing"
	"github.com/nyumbani/backend/internal/domain/payment"
	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/nyumbani/backend/internal/domain/tenancy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Lease repository
// ---------------------------------------------------------------------------

// MemoryLeaseRepo is an in-memory tenancy.LeaseRepository
type MemoryLeaseRepo struct {
	mu     sync.RWMutex
	leases map[uuid.UUID]tenancy.Lease
}

// NewMemoryLeaseRepo creates an empty in-memory lease repository
func NewMemoryLeaseRepo() *MemoryLeaseRepo {
	return &MemoryLeaseRepo{leases: make(map[uuid.UUID]tenancy.Lease)}
}

func (r *MemoryLeaseRepo) Save(_ context.Context, lease *tenancy.Lease) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leases[lease.ID] = *lease
	return nil
}

func (r *MemoryLeaseRepo) SaveWithLock(_ context.Context, lease *tenancy.Lease, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.leases[lease.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return shared.ErrConcurrencyConflict
	}
	r.leases[lease.ID] = *lease
	return nil
}

func (r *MemoryLeaseRepo) FindByID(_ context.Context, id uuid.UUID) (*tenancy.Lease, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.leases[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	lease := stored
	return &lease, nil
}

func (r *MemoryLeaseRepo) FindByTenant(_ context.Context, tenantID uuid.UUID) ([]*tenancy.Lease, error) {
	return r.filter(func(l tenancy.Lease) bool { return l.TenantID == tenantID }), nil
}

func (r *MemoryLeaseRepo) FindByProperty(_ context.Context, propertyID uuid.UUID) ([]*tenancy.Lease, error) {
	return r.filter(func(l tenancy.Lease) bool { return l.PropertyID == propertyID }), nil
}

func (r *MemoryLeaseRepo) FindActive(_ context.Context) ([]*tenancy.Lease, error) {
	return r.filter(func(l tenancy.Lease) bool { return l.Status == tenancy.LeaseStatusActive }), nil
}

func (r *MemoryLeaseRepo) FindActiveExpiring(_ context.Context, onOrBefore time.Time) ([]*tenancy.Lease, error) {
	return r.filter(func(l tenancy.Lease) bool {
		return l.Status == tenancy.LeaseStatusActive && l.EndDate != nil && !l.EndDate.After(onOrBefore)
	}), nil
}

func (r *MemoryLeaseRepo) FindActiveByPropertyOverlapping(_ context.Context, propertyID uuid.UUID, start time.Time, end *time.Time) ([]*tenancy.Lease, error) {
	return r.filter(func(l tenancy.Lease) bool {
		if l.PropertyID != propertyID {
			return false
		}
		if l.Status != tenancy.LeaseStatusActive && l.Status != tenancy.LeaseStatusPending {
			return false
		}
		if l.EndDate != nil && l.EndDate.Before(start) {
			return false
		}
		if end != nil && l.StartDate.After(*end) {
			return false
		}
		return true
	}), nil
}

func (r *MemoryLeaseRepo) List(_ context.Context, filter shared.Filter) (*shared.Paginated[*tenancy.Lease], error) {
	all := r.filter(func(l tenancy.Lease) bool {
		if tenantID, ok := filter.Filters["tenant_id"].(uuid.UUID); ok && l.TenantID != tenantID {
			return false
		}
		if landlordID, ok := filter.Filters["landlord_id"].(uuid.UUID); ok && l.LandlordID != landlordID {
			return false
		}
		return true
	})
	page := shared.NewPaginated(all, int64(len(all)), 1, max(len(all), 1))
	return &page, nil
}

func (r *MemoryLeaseRepo) Count(_ context.Context, status *tenancy.LeaseStatus) (int64, error) {
	matches := r.filter(func(l tenancy.Lease) bool {
		return status == nil || l.Status == *status
	})
	return int64(len(matches)), nil
}

func (r *MemoryLeaseRepo) filter(keep func(tenancy.Lease) bool) []*tenancy.Lease {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*tenancy.Lease, 0)
	for _, stored := range r.leases {
		if keep(stored) {
			lease := stored
			out = append(out, &lease)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Bill repository
// ---------------------------------------------------------------------------

// MemoryBillRepo is an in-memory billing.BillRepository
type MemoryBillRepo struct {
	mu    sync.RWMutex
	bills map[uuid.UUID]billing.Bill
}

// NewMemoryBillRepo creates an empty in-memory bill repository
func NewMemoryBillRepo() *MemoryBillRepo {
	return &MemoryBillRepo{bills: make(map[uuid.UUID]billing.Bill)}
}

func (r *MemoryBillRepo) Save(_ context.Context, bill *billing.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.bills {
		if stored.ID != bill.ID && stored.LeaseID == bill.LeaseID && stored.DueDate.Equal(bill.DueDate) {
			return shared.ErrAlreadyExists
		}
	}
	r.bills[bill.ID] = *bill
	return nil
}

func (r *MemoryBillRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.bills[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	bill := stored
	return &bill, nil
}

func (r *MemoryBillRepo) FindByLease(_ context.Context, leaseID uuid.UUID) ([]*billing.Bill, error) {
	bills := r.filter(func(b billing.Bill) bool { return b.LeaseID == leaseID })
	billing.SortByDueDate(bills)
	return bills, nil
}

func (r *MemoryBillRepo) FindUnpaidByLease(_ context.Context, leaseID uuid.UUID) ([]*billing.Bill, error) {
	unpaid := r.filter(func(b billing.Bill) bool {
		return b.LeaseID == leaseID && b.Status == billing.BillStatusUnpaid
	})
	billing.SortByDueDate(unpaid)
	return unpaid, nil
}

func (r *MemoryBillRepo) FindLatestByLease(_ context.Context, leaseID uuid.UUID) (*billing.Bill, error) {
	all := r.filter(func(b billing.Bill) bool { return b.LeaseID == leaseID })
	if len(all) == 0 {
		return nil, shared.ErrNotFound
	}
	latest := all[0]
	for _, b := range all[1:] {
		if b.DueDate.After(latest.DueDate) {
			latest = b
		}
	}
	return latest, nil
}

func (r *MemoryBillRepo) ExistsForLeaseAndDueDate(_ context.Context, leaseID uuid.UUID, dueDate time.Time) (bool, error) {
	matches := r.filter(func(b billing.Bill) bool {
		return b.LeaseID == leaseID && b.DueDate.Equal(dueDate)
	})
	return len(matches) > 0, nil
}

func (r *MemoryBillRepo) List(_ context.Context, _ shared.Filter) (*shared.Paginated[*billing.Bill], error) {
	all := r.filter(func(billing.Bill) bool { return true })
	page := shared.NewPaginated(all, int64(len(all)), 1, max(len(all), 1))
	return &page, nil
}

func (r *MemoryBillRepo) CountUnpaid(_ context.Context) (int64, error) {
	unpaid := r.filter(func(b billing.Bill) bool { return b.Status == billing.BillStatusUnpaid })
	return int64(len(unpaid)), nil
}

func (r *MemoryBillRepo) filter(keep func(billing.Bill) bool) []*billing.Bill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*billing.Bill, 0)
	for _, stored := range r.bills {
		if keep(stored) {
			bill := stored
			out = append(out, &bill)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Payment repository
// ---------------------------------------------------------------------------

// MemoryPaymentRepo is an in-memory payment.PaymentRepository
type MemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]payment.Payment
}

// NewMemoryPaymentRepo creates an empty in-memory payment repository
func NewMemoryPaymentRepo() *MemoryPaymentRepo {
	return &MemoryPaymentRepo{payments: make(map[uuid.UUID]payment.Payment)}
}

func (r *MemoryPaymentRepo) Save(_ context.Context, pmt *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.payments {
		if stored.ID != pmt.ID && stored.ProviderRef == pmt.ProviderRef {
			return shared.ErrAlreadyExists
		}
	}
	r.payments[pmt.ID] = *pmt
	return nil
}

func (r *MemoryPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.payments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	pmt := stored
	return &pmt, nil
}

func (r *MemoryPaymentRepo) FindByProviderRef(_ context.Context, providerRef string) (*payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, stored := range r.payments {
		if stored.ProviderRef == providerRef {
			pmt := stored
			return &pmt, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *MemoryPaymentRepo) FindByLease(_ context.Context, leaseID uuid.UUID) ([]*payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*payment.Payment, 0)
	for _, stored := range r.payments {
		if stored.LeaseID == leaseID {
			pmt := stored
			out = append(out, &pmt)
		}
	}
	return out, nil
}

func (r *MemoryPaymentRepo) UpdateStatusFromPending(_ context.Context, pmt *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.payments[pmt.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Status != payment.PaymentStatusPending {
		return shared.ErrConcurrencyConflict
	}
	r.payments[pmt.ID] = *pmt
	return nil
}

func (r *MemoryPaymentRepo) SumSuccessfulByLease(ctx context.Context, leaseID uuid.UUID) (decimal.Decimal, error) {
	sums, err := r.SumSuccessfulByLeases(ctx, []uuid.UUID{leaseID})
	if err != nil {
		return decimal.Zero, err
	}
	return sums[leaseID], nil
}

func (r *MemoryPaymentRepo) SumSuccessfulByLeases(_ context.Context, leaseIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	wanted := make(map[uuid.UUID]bool, len(leaseIDs))
	for _, id := range leaseIDs {
		wanted[id] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	sums := make(map[uuid.UUID]decimal.Decimal)
	for _, stored := range r.payments {
		if stored.Status == payment.PaymentStatusSuccessful && wanted[stored.LeaseID] {
			sums[stored.LeaseID] = sums[stored.LeaseID].Add(stored.Amount)
		}
	}
	return sums, nil
}

func (r *MemoryPaymentRepo) List(_ context.Context, _ shared.Filter) (*shared.Paginated[*payment.Payment], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*payment.Payment, 0, len(r.payments))
	for _, stored := range r.payments {
		pmt := stored
		out = append(out, &pmt)
	}
	page := shared.NewPaginated(out, int64(len(out)), 1, max(len(out), 1))
	return &page, nil
}

func (r *MemoryPaymentRepo) CountByStatus(_ context.Context) (map[payment.PaymentStatus]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[payment.PaymentStatus]int64)
	for _, stored := range r.payments {
		counts[stored.Status]++
	}
	return counts, nil
}
