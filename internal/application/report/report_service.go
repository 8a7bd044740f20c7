package report

import (
	"context"
	"time"

	"github.com/nyumbani/backend/internal/domain/billing"
	"github.com/nyumbani/backend/internal/domain/identity"
	"github.com/nyumbani/backend/internal/domain/payment"
	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/nyumbani/backend/internal/domain/shared/service"
	"github.com/nyumbani/backend/internal/domain/tenancy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LeaseStanding summarizes one active lease's rent position
type LeaseStanding struct {
	LeaseID     uuid.UUID       `json:"lease_id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	PropertyID  uuid.UUID       `json:"property_id"`
	RentAmount  decimal.Decimal `json:"rent_amount"`
	Outstanding decimal.Decimal `json:"outstanding"`
	DaysBehind  int             `json:"days_behind"`
}

// TenantSegments partitions active leases by rent standing
type TenantSegments struct {
	UpToDate []LeaseStanding `json:"up_to_date"`
	Behind   []LeaseStanding `json:"behind"`
}

// PaymentAnalytics aggregates the payment ledger by status
type PaymentAnalytics struct {
	CountsByStatus map[payment.PaymentStatus]int64 `json:"counts_by_status"`
	TotalCollected decimal.Decimal                 `json:"total_collected"`
}

// ReportService derives read-only collection metrics from the lease,
// bill, and payment ledgers. Nothing here mutates state or takes locks
// beyond normal read consistency.
type ReportService struct {
	leaseRepo   tenancy.LeaseRepository
	billRepo    billing.BillRepository
	paymentRepo payment.PaymentRepository
	cycle       *billing.BillingCycle
	clock       service.Clock
	logger      *zap.Logger
}

// ReportServiceConfig holds configuration for the report service
type ReportServiceConfig struct {
	LeaseRepo   tenancy.LeaseRepository
	BillRepo    billing.BillRepository
	PaymentRepo payment.PaymentRepository
	Cycle       *billing.BillingCycle
	Clock       service.Clock
	Logger      *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(config ReportServiceConfig) *ReportService {
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
	return &ReportService{
		leaseRepo:   config.LeaseRepo,
		billRepo:    config.BillRepo,
		paymentRepo: config.PaymentRepo,
		cycle:       cycle,
		clock:       clock,
		logger:      logger,
	}
}

// CollectionRate returns confirmed payments over billed rent across the
// actor's active leases, as a percentage rounded to 2 decimals. Zero when
// nothing has been billed yet.
func (s *ReportService) CollectionRate(ctx context.Context, actor identity.Actor) (decimal.Decimal, error) {
	leases, err := s.visibleActiveLeases(ctx, actor)
	if err != nil {
		return decimal.Zero, err
	}
	if len(leases) == 0 {
		return decimal.Zero, nil
	}

	ids := make([]uuid.UUID, 0, len(leases))
	billed := decimal.Zero
	for _, lease := range leases {
		ids = append(ids, lease.ID)
		bills, err := s.billRepo.FindByLease(ctx, lease.ID)
		if err != nil {
			return decimal.Zero, err
		}
		for _, b := range bills {
			billed = billed.Add(b.Amount)
		}
	}
	if billed.IsZero() {
		return decimal.Zero, nil
	}

	collectedByLease, err := s.paymentRepo.SumSuccessfulByLeases(ctx, ids)
	if err != nil {
		return decimal.Zero, err
	}
	collected := decimal.Zero
	for _, amount := range collectedByLease {
		collected = collected.Add(amount)
	}

	return collected.Div(billed).Mul(decimal.NewFromInt(100)).Round(2), nil
}

// SegmentTenants partitions the actor's active leases into up-to-date and
// behind. A lease is behind when its penalty-inclusive outstanding is
// positive as of today; days behind counts from the oldest unpaid due date.
func (s *ReportService) SegmentTenants(ctx context.Context, actor identity.Actor) (*TenantSegments, error) {
	leases, err := s.visibleActiveLeases(ctx, actor)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	segments := &TenantSegments{
		UpToDate: make([]LeaseStanding, 0),
		Behind:   make([]LeaseStanding, 0),
	}
	for _, lease := range leases {
		unpaid, err := s.billRepo.FindUnpaidByLease(ctx, lease.ID)
		if err != nil {
			return nil, err
		}
		standing := LeaseStanding{
			LeaseID:     lease.ID,
			TenantID:    lease.TenantID,
			PropertyID:  lease.PropertyID,
			RentAmount:  lease.RentAmount,
			Outstanding: s.cycle.Outstanding(unpaid, today),
			DaysBehind:  daysBehind(unpaid, today),
		}
		if standing.Outstanding.IsPositive() {
			segments.Behind = append(segments.Behind, standing)
		} else {
			segments.UpToDate = append(segments.UpToDate, standing)
		}
	}
	return segments, nil
}

// Analytics returns payment counts by status and the confirmed total
func (s *ReportService) Analytics(ctx context.Context, actor identity.Actor) (*PaymentAnalytics, error) {
	if !actor.IsAdmin() && !identity.CanPerform(actor, identity.OpViewReports, identity.LeaseResource{}) {
		return nil, shared.ErrForbidden
	}

	counts, err := s.paymentRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	leases, err := s.visibleActiveLeases(ctx, actor)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(leases))
	for _, lease := range leases {
		ids = append(ids, lease.ID)
	}
	collectedByLease, err := s.paymentRepo.SumSuccessfulByLeases(ctx, ids)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, amount := range collectedByLease {
		total = total.Add(amount)
	}

	return &PaymentAnalytics{CountsByStatus: counts, TotalCollected: total}, nil
}

// visibleActiveLeases scopes the report to what the actor may see:
// admins see every active lease, landlords their own properties' leases.
func (s *ReportService) visibleActiveLeases(ctx context.Context, actor identity.Actor) ([]*tenancy.Lease, error) {
	if !identity.CanPerform(actor, identity.OpViewReports, identity.LeaseResource{}) && !actor.IsAdmin() {
		return nil, shared.ErrForbidden
	}

	leases, err := s.leaseRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return leases, nil
	}

	own := make([]*tenancy.Lease, 0, len(leases))
	for _, lease := range leases {
		if lease.LandlordID == actor.ID {
			own = append(own, lease)
		}
	}
	return own, nil
}

// daysBehind counts whole days since the oldest overdue unpaid bill
func daysBehind(unpaid []*billing.Bill, today time.Time) int {
	oldest := time.Time{}
	for _, b := range unpaid {
		if b.IsOverdue(today) && (oldest.IsZero() || b.DueDate.Before(oldest)) {
			oldest = b.DueDate
		}
	}
	if oldest.IsZero() {
		return 0
	}
	return int(service.DateOnly(today).Sub(oldest).Hours() / 24)
}
