package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nyumbani/backend/internal/domain/identity"
	domainpayment "github.com/nyumbani/backend/internal/domain/payment"
	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/nyumbani/backend/internal/domain/shared/valueobject"
	"github.com/nyumbani/backend/internal/domain/tenancy"
	"github.com/nyumbani/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type initiateFixture struct {
	gateway     *MockGateway
	leaseRepo   *testutil.MemoryLeaseRepo
	paymentRepo *testutil.MemoryPaymentRepo
	service     *PaymentService
	lease       *tenancy.Lease
	tenant      identity.Actor
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, code, domainErr.Code)
}

func newInitiateFixture(t *testing.T) *initiateFixture {
	t.Helper()
	gateway := new(MockGateway)
	leaseRepo := testutil.NewMemoryLeaseRepo()
	paymentRepo := testutil.NewMemoryPaymentRepo()

	svc := NewPaymentService(PaymentServiceConfig{
		Gateway:     gateway,
		LeaseRepo:   leaseRepo,
		PaymentRepo: paymentRepo,
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	rent, err := valueobject.NewMoneyKESFromString("35000")
	require.NoError(t, err)
	lease, err := tenancy.NewLease(uuid.New(), uuid.New(), uuid.New(), start, &end, rent, false)
	require.NoError(t, err)
	require.NoError(t, leaseRepo.Save(context.Background(), lease))

	return &initiateFixture{
		gateway:     gateway,
		leaseRepo:   leaseRepo,
		paymentRepo: paymentRepo,
		service:     svc,
		lease:       lease,
		tenant:      identity.Actor{ID: lease.TenantID, Role: identity.RoleTenant},
	}
}

func TestPaymentService_Initiate(t *testing.T) {
	ctx := context.Background()

	command := func(f *initiateFixture) InitiatePaymentCommand {
		return InitiatePaymentCommand{
			LeaseID:    f.lease.ID,
			Amount:     decimal.NewFromInt(35000),
			PayerPhone: "254712345678",
		}
	}

	t.Run("creates pending payment on gateway acceptance", func(t *testing.T) {
		f := newInitiateFixture(t)
		f.gateway.On("StartCharge", mock.Anything, mock.MatchedBy(func(req *domainpayment.ChargeRequest) bool {
			return req.PayerPhone == "254712345678" && req.Amount.Equal(decimal.NewFromInt(35000))
		})).Return(&domainpayment.ChargeResponse{CorrelationID: "ws_CO_42"}, nil)

		pmt, err := f.service.Initiate(ctx, f.tenant, command(f))

		require.NoError(t, err)
		assert.Equal(t, domainpayment.PaymentStatusPending, pmt.Status)
		assert.Equal(t, "ws_CO_42", pmt.ProviderRef)

		stored, err := f.paymentRepo.FindByProviderRef(ctx, "ws_CO_42")
		require.NoError(t, err)
		assert.Equal(t, pmt.ID, stored.ID)
	})

	t.Run("gateway rejection leaves no payment record", func(t *testing.T) {
		f := newInitiateFixture(t)
		f.gateway.On("StartCharge", mock.Anything, mock.Anything).
			Return(nil, domainpayment.ErrGatewayUnavailable)

		_, err := f.service.Initiate(ctx, f.tenant, command(f))

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrGateway)

		payments, err := f.paymentRepo.FindByLease(ctx, f.lease.ID)
		require.NoError(t, err)
		assert.Empty(t, payments, "failed initiation must not persist a payment")
	})

	t.Run("malformed phone fails before reaching gateway", func(t *testing.T) {
		f := newInitiateFixture(t)
		cmd := command(f)
		cmd.PayerPhone = "0712345678"

		_, err := f.service.Initiate(ctx, f.tenant, cmd)

		require.Error(t, err)
		assertDomainCode(t, err, "VALIDATION_ERROR")
		f.gateway.AssertNotCalled(t, "StartCharge", mock.Anything, mock.Anything)
	})

	t.Run("unrelated tenant is forbidden", func(t *testing.T) {
		f := newInitiateFixture(t)
		stranger := identity.Actor{ID: uuid.New(), Role: identity.RoleTenant}

		_, err := f.service.Initiate(ctx, stranger, command(f))

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("terminated lease rejects payment", func(t *testing.T) {
		f := newInitiateFixture(t)
		require.NoError(t, f.lease.RequestVacate(f.lease.StartDate.AddDate(0, 3, 0)))
		require.NoError(t, f.lease.ResolveVacate(tenancy.VacateDecisionApprove))
		require.NoError(t, f.leaseRepo.Save(ctx, f.lease))

		_, err := f.service.Initiate(ctx, f.tenant, command(f))

		require.Error(t, err)
		assertDomainCode(t, err, "INVALID_STATE")
	})

	t.Run("unknown lease returns not found", func(t *testing.T) {
		f := newInitiateFixture(t)
		cmd := command(f)
		cmd.LeaseID = uuid.New()

		_, err := f.service.Initiate(ctx, f.tenant, cmd)

		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("duplicate correlation id surfaces as conflict", func(t *testing.T) {
		f := newInitiateFixture(t)
		f.gateway.On("StartCharge", mock.Anything, mock.Anything).
			Return(&domainpayment.ChargeResponse{CorrelationID: "ws_CO_dup"}, nil)

		_, err := f.service.Initiate(ctx, f.tenant, command(f))
		require.NoError(t, err)

		_, err = f.service.Initiate(ctx, f.tenant, command(f))

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestPaymentService_ListPaymentsForLease(t *testing.T) {
	ctx := context.Background()

	t.Run("tenant lists own payments", func(t *testing.T) {
		f := newInitiateFixture(t)
		money, _ := valueobject.NewMoneyKESFromString("35000")
		pmt, err := domainpayment.NewPayment(f.lease.ID, money, "254712345678", "ws_CO_9")
		require.NoError(t, err)
		require.NoError(t, f.paymentRepo.Save(ctx, pmt))

		payments, err := f.service.ListPaymentsForLease(ctx, f.tenant, f.lease.ID)

		require.NoError(t, err)
		assert.Len(t, payments, 1)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		f := newInitiateFixture(t)
		stranger := identity.Actor{ID: uuid.New(), Role: identity.RoleTenant}

		_, err := f.service.ListPaymentsForLease(ctx, stranger, f.lease.ID)

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}
