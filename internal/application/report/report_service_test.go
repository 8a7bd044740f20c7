package report

import (
	"context"
	"testing"
	"time"

	"github.com/nyumbani/backend/internal/domain/billing"
	"github.com/nyumbani/backend/internal/domain/identity"
	"github.com/nyumbani/backend/internal/domain/payment"
	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/nyumbani/backend/internal/domain/shared/service"
	"github.com/nyumbani/backend/internal/domain/shared/valueobject"
	"github.com/nyumbani/backend/internal/domain/tenancy"
	"github.com/nyumbani/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportFixture struct {
	leaseRepo   *testutil.MemoryLeaseRepo
	billRepo    *testutil.MemoryBillRepo
	paymentRepo *testutil.MemoryPaymentRepo
	clock       *service.FixedClock
	service     *ReportService
	landlord    identity.Actor
	admin       identity.Actor
}

func newReportFixture(today time.Time) *reportFixture {
	f := &reportFixture{
		leaseRepo:   testutil.NewMemoryLeaseRepo(),
		billRepo:    testutil.NewMemoryBillRepo(),
		paymentRepo: testutil.NewMemoryPaymentRepo(),
		clock:       &service.FixedClock{Instant: today},
		landlord:    identity.Actor{ID: uuid.New(), Role: identity.RoleLandlord},
		admin:       identity.Actor{ID: uuid.New(), Role: identity.RoleAdmin},
	}
	f.service = NewReportService(ReportServiceConfig{
		LeaseRepo:   f.leaseRepo,
		BillRepo:    f.billRepo,
		PaymentRepo: f.paymentRepo,
		Clock:       f.clock,
	})
	return f
}

func (f *reportFixture) addLease(t *testing.T, landlordID uuid.UUID, rent string) *tenancy.Lease {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	amount, err := valueobject.NewMoneyKESFromString(rent)
	require.NoError(t, err)
	lease, err := tenancy.NewLease(uuid.New(), landlordID, uuid.New(), start, &end, amount, false)
	require.NoError(t, err)
	require.NoError(t, f.leaseRepo.Save(context.Background(), lease))
	return lease
}

func (f *reportFixture) addBill(t *testing.T, leaseID uuid.UUID, amount string, dueDate time.Time) *billing.Bill {
	t.Helper()
	money, err := valueobject.NewMoneyKESFromString(amount)
	require.NoError(t, err)
	bill, err := billing.NewBill(leaseID, money, dueDate, dueDate.AddDate(0, -1, 0))
	require.NoError(t, err)
	require.NoError(t, f.billRepo.Save(context.Background(), bill))
	return bill
}

func (f *reportFixture) addSuccessfulPayment(t *testing.T, leaseID uuid.UUID, amount, ref string) *payment.Payment {
	t.Helper()
	money, err := valueobject.NewMoneyKESFromString(amount)
	require.NoError(t, err)
	p, err := payment.NewPayment(leaseID, money, "254712345678", ref)
	require.NoError(t, err)
	require.NoError(t, p.MarkSuccessful("SLK7RT61SV"))
	require.NoError(t, f.paymentRepo.Save(context.Background(), p))
	return p
}

func TestReportService_CollectionRate(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	t.Run("confirmed payments over billed rent", func(t *testing.T) {
		f := newReportFixture(today)
		lease := f.addLease(t, f.landlord.ID, "35000")
		f.addBill(t, lease.ID, "35000", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
		f.addBill(t, lease.ID, "35000", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
		f.addSuccessfulPayment(t, lease.ID, "35000", "ws_CO_001")

		rate, err := f.service.CollectionRate(ctx, f.landlord)

		require.NoError(t, err)
		assert.True(t, rate.Equal(decimal.RequireFromString("50")), "got %s", rate)
	})

	t.Run("rounds to two decimals", func(t *testing.T) {
		f := newReportFixture(today)
		lease := f.addLease(t, f.landlord.ID, "30000")
		f.addBill(t, lease.ID, "30000", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
		f.addSuccessfulPayment(t, lease.ID, "10000", "ws_CO_002")

		rate, err := f.service.CollectionRate(ctx, f.landlord)

		require.NoError(t, err)
		assert.True(t, rate.Equal(decimal.RequireFromString("33.33")), "got %s", rate)
	})

	t.Run("nothing billed yields zero, not a division error", func(t *testing.T) {
		f := newReportFixture(today)
		f.addLease(t, f.landlord.ID, "35000")

		rate, err := f.service.CollectionRate(ctx, f.landlord)

		require.NoError(t, err)
		assert.True(t, rate.IsZero())
	})

	t.Run("refunded payments do not count as collected", func(t *testing.T) {
		f := newReportFixture(today)
		lease := f.addLease(t, f.landlord.ID, "35000")
		f.addBill(t, lease.ID, "35000", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
		p := f.addSuccessfulPayment(t, lease.ID, "35000", "ws_CO_003")
		require.NoError(t, p.Refund())
		require.NoError(t, f.paymentRepo.Save(ctx, p))

		rate, err := f.service.CollectionRate(ctx, f.landlord)

		require.NoError(t, err)
		assert.True(t, rate.IsZero(), "got %s", rate)
	})

	t.Run("landlord sees only their own leases", func(t *testing.T) {
		f := newReportFixture(today)
		mine := f.addLease(t, f.landlord.ID, "35000")
		other := f.addLease(t, uuid.New(), "50000")
		f.addBill(t, mine.ID, "35000", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
		f.addBill(t, other.ID, "50000", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
		f.addSuccessfulPayment(t, mine.ID, "35000", "ws_CO_004")

		rate, err := f.service.CollectionRate(ctx, f.landlord)

		require.NoError(t, err)
		assert.True(t, rate.Equal(decimal.RequireFromString("100")), "got %s", rate)

		adminRate, err := f.service.CollectionRate(ctx, f.admin)
		require.NoError(t, err)
		// 35000 collected of 85000 billed across both landlords.
		assert.True(t, adminRate.Equal(decimal.RequireFromString("41.18")), "got %s", adminRate)
	})

	t.Run("tenant may not read reports", func(t *testing.T) {
		f := newReportFixture(today)
		tenant := identity.Actor{ID: uuid.New(), Role: identity.RoleTenant}

		_, err := f.service.CollectionRate(ctx, tenant)

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestReportService_SegmentTenants(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	t.Run("splits leases by outstanding balance", func(t *testing.T) {
		f := newReportFixture(today)
		current := f.addLease(t, f.landlord.ID, "35000")
		behind := f.addLease(t, f.landlord.ID, "40000")
		paidBill := f.addBill(t, current.ID, "35000", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, paidBill.MarkPaid())
		require.NoError(t, f.billRepo.Save(ctx, paidBill))
		f.addBill(t, behind.ID, "40000", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

		segments, err := f.service.SegmentTenants(ctx, f.landlord)

		require.NoError(t, err)
		require.Len(t, segments.UpToDate, 1)
		require.Len(t, segments.Behind, 1)
		assert.Equal(t, current.ID, segments.UpToDate[0].LeaseID)

		late := segments.Behind[0]
		assert.Equal(t, behind.ID, late.LeaseID)
		// 40000 with the 5% late penalty applied.
		assert.True(t, late.Outstanding.Equal(decimal.RequireFromString("42000")), "got %s", late.Outstanding)
		assert.Equal(t, 38, late.DaysBehind)
	})

	t.Run("unpaid but not yet due counts as behind with zero days", func(t *testing.T) {
		f := newReportFixture(today)
		lease := f.addLease(t, f.landlord.ID, "35000")
		f.addBill(t, lease.ID, "35000", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))

		segments, err := f.service.SegmentTenants(ctx, f.landlord)

		require.NoError(t, err)
		require.Len(t, segments.Behind, 1)
		assert.Zero(t, segments.Behind[0].DaysBehind)
		assert.True(t, segments.Behind[0].Outstanding.Equal(decimal.RequireFromString("35000")))
	})

	t.Run("no bills at all is up to date", func(t *testing.T) {
		f := newReportFixture(today)
		f.addLease(t, f.landlord.ID, "35000")

		segments, err := f.service.SegmentTenants(ctx, f.landlord)

		require.NoError(t, err)
		assert.Len(t, segments.UpToDate, 1)
		assert.Empty(t, segments.Behind)
	})
}

func TestReportService_Analytics(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	t.Run("counts payments by status and totals confirmed amounts", func(t *testing.T) {
		f := newReportFixture(today)
		lease := f.addLease(t, f.landlord.ID, "35000")
		f.addSuccessfulPayment(t, lease.ID, "35000", "ws_CO_010")
		f.addSuccessfulPayment(t, lease.ID, "20000", "ws_CO_011")

		money, err := valueobject.NewMoneyKESFromString("15000")
		require.NoError(t, err)
		failed, err := payment.NewPayment(lease.ID, money, "254712345678", "ws_CO_012")
		require.NoError(t, err)
		require.NoError(t, failed.MarkFailed("Request cancelled by user"))
		require.NoError(t, f.paymentRepo.Save(ctx, failed))

		analytics, err := f.service.Analytics(ctx, f.admin)

		require.NoError(t, err)
		assert.Equal(t, int64(2), analytics.CountsByStatus[payment.PaymentStatusSuccessful])
		assert.Equal(t, int64(1), analytics.CountsByStatus[payment.PaymentStatusFailed])
		assert.True(t, analytics.TotalCollected.Equal(decimal.RequireFromString("55000")),
			"got %s", analytics.TotalCollected)
	})

	t.Run("tenant may not read analytics", func(t *testing.T) {
		f := newReportFixture(today)
		tenant := identity.Actor{ID: uuid.New(), Role: identity.RoleTenant}

		_, err := f.service.Analytics(ctx, tenant)

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}
