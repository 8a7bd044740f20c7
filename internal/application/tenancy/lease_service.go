package tenancy

import (
	"context"
	"time"

	"github.com/nyumbani/backend/internal/domain/billing"
	"github.com/nyumbani/backend/internal/domain/identity"
	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/nyumbani/backend/internal/domain/shared/service"
	"github.com/nyumbani/backend/internal/domain/shared/valueobject"
	"github.com/nyumbani/backend/internal/domain/tenancy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateLeaseCommand carries the input for lease creation
type CreateLeaseCommand struct {
	TenantID   uuid.UUID
	LandlordID uuid.UUID
	PropertyID uuid.UUID
	StartDate  time.Time
	EndDate    *time.Time
	RentAmount decimal.Decimal
}

// LeaseService drives the lease lifecycle. Lease creation and activation
// also issue the first bill, in the same transaction as the lease write.
type LeaseService struct {
	scope           TransactionScope
	leaseRepo       tenancy.LeaseRepository
	cycle           *billing.BillingCycle
	clock           service.Clock
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
	requireApproval bool
}

// LeaseServiceConfig holds configuration for the lease service
type LeaseServiceConfig struct {
	Scope          TransactionScope
	LeaseRepo      tenancy.LeaseRepository
	Cycle          *billing.BillingCycle
	Clock          service.Clock
	EventPublisher shared.EventPublisher
	Logger         *zap.Logger
	// RequireApproval makes new leases start PENDING until the landlord
	// activates them.
	RequireApproval bool
}

// NewLeaseService creates a new LeaseService
func NewLeaseService(config LeaseServiceConfig) *LeaseService {
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
	return &LeaseService{
		scope:           config.Scope,
		leaseRepo:       config.LeaseRepo,
		cycle:           cycle,
		clock:           clock,
		eventPublisher:  config.EventPublisher,
		logger:          logger,
		requireApproval: config.RequireApproval,
	}
}

// CreateLease registers a lease and, unless approval is required, issues
// its initial bill in the same transaction.
func (s *LeaseService) CreateLease(ctx context.Context, actor identity.Actor, cmd CreateLeaseCommand) (*tenancy.Lease, error) {
	resource := identity.LeaseResource{TenantID: cmd.TenantID, LandlordID: cmd.LandlordID}
	if !identity.CanPerform(actor, identity.OpCreateLease, resource) {
		return nil, shared.ErrForbidden
	}

	rent, err := valueobject.NewMoney(cmd.RentAmount, valueobject.KES)
	if err != nil {
		return nil, err
	}

	lease, err := tenancy.NewLease(cmd.TenantID, cmd.LandlordID, cmd.PropertyID,
		cmd.StartDate, cmd.EndDate, rent, s.requireApproval)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		overlapping, err := repos.LeaseRepo().FindActiveByPropertyOverlapping(
			ctx, cmd.PropertyID, lease.StartDate, lease.EndDate)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return shared.NewDomainError("PROPERTY_OCCUPIED",
				"Property already has a lease overlapping this period")
		}
		if err := repos.LeaseRepo().Save(ctx, lease); err != nil {
			return err
		}
		if lease.IsBillable() {
			return s.issueInitialBill(ctx, repos.BillRepo(), lease)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, lease)
	s.logger.Info("Lease created",
		zap.String("lease_id", lease.ID.String()),
		zap.String("tenant_id", lease.TenantID.String()),
		zap.String("status", lease.Status.String()))
	return lease, nil
}

// ActivateLease approves a pending lease and issues its initial bill
func (s *LeaseService) ActivateLease(ctx context.Context, actor identity.Actor, leaseID uuid.UUID) (*tenancy.Lease, error) {
	var lease *tenancy.Lease
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		lease, err = repos.LeaseRepo().FindByID(ctx, leaseID)
		if err != nil {
			return err
		}
		if !identity.CanPerform(actor, identity.OpActivateLease, leaseResource(lease)) {
			return shared.ErrForbidden
		}
		if err := lease.Activate(); err != nil {
			return err
		}
		if err := repos.LeaseRepo().SaveWithLock(ctx, lease, lease.Version-1); err != nil {
			return err
		}
		return s.issueInitialBill(ctx, repos.BillRepo(), lease)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, lease)
	s.logger.Info("Lease activated", zap.String("lease_id", lease.ID.String()))
	return lease, nil
}

// GetLease returns a lease visible to the actor
func (s *LeaseService) GetLease(ctx context.Context, actor identity.Actor, leaseID uuid.UUID) (*tenancy.Lease, error) {
	lease, err := s.leaseRepo.FindByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if !identity.CanPerform(actor, identity.OpViewLease, leaseResource(lease)) {
		return nil, shared.ErrForbidden
	}
	return lease, nil
}

// ListLeases returns a page of leases. Non-admin actors see only their own.
func (s *LeaseService) ListLeases(ctx context.Context, actor identity.Actor, filter shared.Filter) (*shared.Paginated[*tenancy.Lease], error) {
	if !actor.IsAdmin() {
		if filter.Filters == nil {
			filter.Filters = make(map[string]interface{})
		}
		switch actor.Role {
		case identity.RoleTenant:
			filter.Filters["tenant_id"] = actor.ID
		case identity.RoleLandlord:
			filter.Filters["landlord_id"] = actor.ID
		default:
			return nil, shared.ErrForbidden
		}
	}
	return s.leaseRepo.List(ctx, filter)
}

// RequestVacate records the tenant's intent to leave on the given date
func (s *LeaseService) RequestVacate(ctx context.Context, actor identity.Actor, leaseID uuid.UUID, vacateDate time.Time) (*tenancy.Lease, error) {
	var lease *tenancy.Lease
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		lease, err = repos.LeaseRepo().FindByID(ctx, leaseID)
		if err != nil {
			return err
		}
		if !identity.CanPerform(actor, identity.OpRequestVacate, leaseResource(lease)) {
			return shared.ErrForbidden
		}
		if err := lease.RequestVacate(vacateDate); err != nil {
			return err
		}
		return repos.LeaseRepo().SaveWithLock(ctx, lease, lease.Version-1)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, lease)
	s.logger.Info("Vacate requested",
		zap.String("lease_id", lease.ID.String()),
		zap.Time("vacate_date", vacateDate))
	return lease, nil
}

// ResolveVacate applies the landlord's decision on a pending vacate request
func (s *LeaseService) ResolveVacate(ctx context.Context, actor identity.Actor, leaseID uuid.UUID, decision tenancy.VacateDecision) (*tenancy.Lease, error) {
	var lease *tenancy.Lease
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		lease, err = repos.LeaseRepo().FindByID(ctx, leaseID)
		if err != nil {
			return err
		}
		if !identity.CanPerform(actor, identity.OpResolveVacate, leaseResource(lease)) {
			return shared.ErrForbidden
		}
		if err := lease.ResolveVacate(decision); err != nil {
			return err
		}
		return repos.LeaseRepo().SaveWithLock(ctx, lease, lease.Version-1)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, lease)
	s.logger.Info("Vacate resolved",
		zap.String("lease_id", lease.ID.String()),
		zap.String("decision", string(decision)),
		zap.String("status", lease.Status.String()))
	return lease, nil
}

// ExpireDueLeases transitions active leases past their end date to
// EXPIRED. Called by the scheduler tick; returns processed and failed
// counts. Safe to run repeatedly, already expired leases are skipped.
func (s *LeaseService) ExpireDueLeases(ctx context.Context, asOf time.Time) (processed, failed int) {
	leases, err := s.leaseRepo.FindActiveExpiring(ctx, service.DateOnly(asOf))
	if err != nil {
		s.logger.Error("Failed to load expiring leases", zap.Error(err))
		return 0, 0
	}

	for _, lease := range leases {
		expired, err := lease.ExpireIfDue(asOf)
		if err != nil || !expired {
			continue
		}
		err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			return repos.LeaseRepo().SaveWithLock(ctx, lease, lease.Version-1)
		})
		if err != nil {
			failed++
			s.logger.Error("Failed to expire lease",
				zap.String("lease_id", lease.ID.String()),
				zap.Error(err))
			continue
		}
		s.publishEvents(ctx, lease)
		processed++
	}
	return processed, failed
}

// issueInitialBill creates the first bill of a newly active lease, due one
// calendar month after the start date. A backdated lease gets a bill that
// is already due rather than no bill at all.
func (s *LeaseService) issueInitialBill(ctx context.Context, billRepo billing.BillRepository, lease *tenancy.Lease) error {
	due := s.cycle.InitialDueDate(lease.StartDate)
	ref := s.clock.Today()
	if due.Before(ref) {
		ref = due
	}
	bill, err := billing.NewBill(lease.ID, lease.RentMoney(), due, ref)
	if err != nil {
		return err
	}
	return billRepo.Save(ctx, bill)
}

func (s *LeaseService) publishEvents(ctx context.Context, lease *tenancy.Lease) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range lease.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	lease.ClearDomainEvents()
}

func leaseResource(l *tenancy.Lease) identity.LeaseResource {
	return identity.LeaseResource{TenantID: l.TenantID, LandlordID: l.LandlordID}
}
