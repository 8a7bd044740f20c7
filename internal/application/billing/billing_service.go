package billing

import (
	"context"
	"errors"
	"time"

	"github.com/nyumbani/backend/internal/domain/billing"
	"github.com/nyumbani/backend/internal/domain/identity"
	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/nyumbani/backend/internal/domain/shared/service"
	"github.com/nyumbani/backend/internal/domain/tenancy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BillingService drives the monthly billing cycle and the bill ledger
// queries built on it.
type BillingService struct {
	scope     TransactionScope
	leaseRepo tenancy.LeaseRepository
	billRepo  billing.BillRepository
	cycle     *billing.BillingCycle
	clock     service.Clock
	logger    *zap.Logger
}

// BillingServiceConfig holds configuration for the billing service
type BillingServiceConfig struct {
	Scope     TransactionScope
	LeaseRepo tenancy.LeaseRepository
	BillRepo  billing.BillRepository
	Cycle     *billing.BillingCycle
	Clock     service.Clock
	Logger    *zap.Logger
}

// NewBillingService creates a new BillingService
func NewBillingService(config BillingServiceConfig) *BillingService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cycle := config.Cycle
	if cycle == nil {
		cycle = billing.NewDefaultBillingCycle()
	}
	clock := config.Clock
	if clock == nil {
		clock = service.SystemClock{}
	}
	return &BillingService{
		scope:     config.Scope,
		leaseRepo: config.LeaseRepo,
		billRepo:  config.BillRepo,
		cycle:     cycle,
		clock:     clock,
		logger:    logger,
	}
}

// RollForward advances the billing cycle for every active lease as of the
// given date. Each lease whose most recent bill is due on or before asOf
// gets its next bill, due exactly one calendar month later; a tick that
// missed months issues all of them. Safe to call repeatedly and from
// overlapping ticks: the (lease_id, due_date) uniqueness check absorbs
// the race. Returns processed and failed lease counts.
func (s *BillingService) RollForward(ctx context.Context, asOf time.Time) (processed, failed int) {
	leases, err := s.leaseRepo.FindActive(ctx)
	if err != nil {
		s.logger.Error("Failed to load active leases for billing rollover", zap.Error(err))
		return 0, 0
	}

	for _, lease := range leases {
		created, err := s.rollForwardLease(ctx, lease, asOf)
		if err != nil {
			failed++
			s.logger.Error("Billing rollover failed for lease",
				zap.String("lease_id", lease.ID.String()),
				zap.Error(err))
			continue
		}
		if created > 0 {
			processed++
			s.logger.Info("Billing rollover issued bills",
				zap.String("lease_id", lease.ID.String()),
				zap.Int("bills_created", created))
		}
	}
	return processed, failed
}

func (s *BillingService) rollForwardLease(ctx context.Context, lease *tenancy.Lease, asOf time.Time) (int, error) {
	created := 0
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		latest, err := repos.BillRepo().FindLatestByLease(ctx, lease.ID)
		lastDue := time.Time{}
		switch {
		case err == nil:
			lastDue = latest.DueDate
		case errors.Is(err, shared.ErrNotFound):
			// A lease activated without its initial bill catches up here.
			lastDue = service.DateOnly(lease.StartDate)
		default:
			return err
		}

		for s.cycle.ShouldRollForward(lastDue, asOf) {
			due := s.cycle.NextDueDate(lastDue)
			exists, err := repos.BillRepo().ExistsForLeaseAndDueDate(ctx, lease.ID, due)
			if err != nil {
				return err
			}
			if !exists {
				ref := service.DateOnly(asOf)
				if due.Before(ref) {
					ref = due
				}
				bill, err := billing.NewBill(lease.ID, lease.RentMoney(), due, ref)
				if err != nil {
					return err
				}
				if err := repos.BillRepo().Save(ctx, bill); err != nil {
					// A concurrent tick created the same bill first.
					if errors.Is(err, shared.ErrAlreadyExists) {
						lastDue = due
						continue
					}
					return err
				}
				created++
			}
			lastDue = due
		}
		return nil
	})
	return created, err
}

// GetBill returns a bill visible to the actor
func (s *BillingService) GetBill(ctx context.Context, actor identity.Actor, billID uuid.UUID) (*billing.Bill, error) {
	bill, err := s.billRepo.FindByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeBill(ctx, actor, identity.OpViewBills, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// ListBillsForLease returns all bills of a lease, newest due date first
func (s *BillingService) ListBillsForLease(ctx context.Context, actor identity.Actor, leaseID uuid.UUID) ([]*billing.Bill, error) {
	lease, err := s.leaseRepo.FindByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if !identity.CanPerform(actor, identity.OpViewBills, leaseResource(lease)) {
		return nil, shared.ErrForbidden
	}
	return s.billRepo.FindByLease(ctx, leaseID)
}

// OutstandingForLease sums the penalty-inclusive totals of the lease's
// unpaid bills as of today.
func (s *BillingService) OutstandingForLease(ctx context.Context, actor identity.Actor, leaseID uuid.UUID) (decimal.Decimal, error) {
	lease, err := s.leaseRepo.FindByID(ctx, leaseID)
	if err != nil {
		return decimal.Zero, err
	}
	if !identity.CanPerform(actor, identity.OpViewBills, leaseResource(lease)) {
		return decimal.Zero, shared.ErrForbidden
	}
	unpaid, err := s.billRepo.FindUnpaidByLease(ctx, leaseID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.cycle.Outstanding(unpaid, s.clock.Today()), nil
}

// MarkBillPaid is the landlord override that settles a bill outside the
// gateway, for cash or bank-transfer rent.
func (s *BillingService) MarkBillPaid(ctx context.Context, actor identity.Actor, billID uuid.UUID) (*billing.Bill, error) {
	var bill *billing.Bill
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		bill, err = repos.BillRepo().FindByID(ctx, billID)
		if err != nil {
			return err
		}
		lease, err := repos.LeaseRepo().FindByID(ctx, bill.LeaseID)
		if err != nil {
			return err
		}
		if !identity.CanPerform(actor, identity.OpOverrideBill, leaseResource(lease)) {
			return shared.ErrForbidden
		}
		if err := bill.MarkPaid(); err != nil {
			return err
		}
		return repos.BillRepo().Save(ctx, bill)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bill marked paid by override",
		zap.String("bill_id", bill.ID.String()),
		zap.String("lease_id", bill.LeaseID.String()))
	return bill, nil
}

func (s *BillingService) authorizeBill(ctx context.Context, actor identity.Actor, op identity.Operation, bill *billing.Bill) error {
	lease, err := s.leaseRepo.FindByID(ctx, bill.LeaseID)
	if err != nil {
		return err
	}
	if !identity.CanPerform(actor, op, leaseResource(lease)) {
		return shared.ErrForbidden
	}
	return nil
}

func leaseResource(l *tenancy.Lease) identity.LeaseResource {
	return identity.LeaseResource{TenantID: l.TenantID, LandlordID: l.LandlordID}
}
