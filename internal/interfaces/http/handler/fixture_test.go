package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	billingapp "github.com/nyumbani/backend/internal/application/billing"
	paymentapp "github.com/nyumbani/backend/internal/application/payment"
	reportapp "github.com/nyumbani/backend/internal/application/report"
	tenancyapp "github.com/nyumbani/backend/internal/application/tenancy"
	"github.com/nyumbani/backend/internal/domain/billing"
	"github.com/nyumbani/backend/internal/domain/identity"
	domainpayment "github.com/nyumbani/backend/internal/domain/payment"
	"github.com/nyumbani/backend/internal/domain/shared/service"
	"github.com/nyumbani/backend/internal/domain/shared/valueobject"
	"github.com/nyumbani/backend/internal/domain/tenancy"
	"github.com/nyumbani/backend/internal/interfaces/http/dto"
	"github.com/nyumbani/backend/internal/interfaces/http/middleware"
	"github.com/nyumbani/backend/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// stubGateway returns canned gateway responses so handler tests can
// exercise the full request path without a provider.
type stubGateway struct {
	correlationID string
	chargeErr     error
	callback      *domainpayment.CallbackResult
	parseErr      error
}

func (g *stubGateway) StartCharge(_ context.Context, _ *domainpayment.ChargeRequest) (*domainpayment.ChargeResponse, error) {
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	return &domainpayment.ChargeResponse{
		CorrelationID:       g.correlationID,
		ResponseDescription: "Success. Request accepted for processing",
	}, nil
}

func (g *stubGateway) ParseCallback(_ []byte) (*domainpayment.CallbackResult, error) {
	if g.parseErr != nil {
		return nil, g.parseErr
	}
	return g.callback, nil
}

func (g *stubGateway) GenerateCallbackResponse(_ bool, message string) []byte {
	return []byte(`{"ResultCode":0,"ResultDesc":"` + message + `"}`)
}

// apiFixture wires real services over in-memory repositories behind a
// gin engine, with the JWT layer replaced by direct actor injection.
type apiFixture struct {
	leaseRepo   *testutil.MemoryLeaseRepo
	billRepo    *testutil.MemoryBillRepo
	paymentRepo *testutil.MemoryPaymentRepo
	gateway     *stubGateway
	clock       *service.FixedClock
	engine      *gin.Engine

	// actor is injected into every request; nil means unauthenticated
	actor *identity.Actor

	tenant   identity.Actor
	landlord identity.Actor
	admin    identity.Actor
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	f := &apiFixture{
		leaseRepo:   testutil.NewMemoryLeaseRepo(),
		billRepo:    testutil.NewMemoryBillRepo(),
		paymentRepo: testutil.NewMemoryPaymentRepo(),
		gateway:     &stubGateway{correlationID: "ws_CO_191220231020479001"},
		clock:       service.NewFixedClock(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)),
		tenant:      identity.Actor{ID: uuid.New(), Role: identity.RoleTenant, Phone: "254712345678"},
		landlord:    identity.Actor{ID: uuid.New(), Role: identity.RoleLandlord, Phone: "254722000001"},
		admin:       identity.Actor{ID: uuid.New(), Role: identity.RoleAdmin},
	}

	leaseService := tenancyapp.NewLeaseService(tenancyapp.LeaseServiceConfig{
		Scope:     tenancyapp.NewNoOpTransactionScope(f.leaseRepo, f.billRepo),
		LeaseRepo: f.leaseRepo,
		Clock:     f.clock,
	})
	billingService := billingapp.NewBillingService(billingapp.BillingServiceConfig{
		Scope:     billingapp.NewNoOpTransactionScope(f.leaseRepo, f.billRepo),
		LeaseRepo: f.leaseRepo,
		BillRepo:  f.billRepo,
		Clock:     f.clock,
	})
	paymentService := paymentapp.NewPaymentService(paymentapp.PaymentServiceConfig{
		Gateway:     f.gateway,
		LeaseRepo:   f.leaseRepo,
		PaymentRepo: f.paymentRepo,
	})
	callbackService := paymentapp.NewCallbackService(paymentapp.CallbackServiceConfig{
		Gateway: f.gateway,
		Scope:   paymentapp.NewNoOpTransactionScope(f.leaseRepo, f.billRepo, f.paymentRepo),
		Clock:   f.clock,
	})
	reportService := reportapp.NewReportService(reportapp.ReportServiceConfig{
		LeaseRepo:   f.leaseRepo,
		BillRepo:    f.billRepo,
		PaymentRepo: f.paymentRepo,
		Clock:       f.clock,
	})

	leases := NewLeaseHandler(leaseService)
	bills := NewBillingHandler(billingService)
	payments := NewPaymentHandler(paymentService, callbackService)
	callbacks := NewPaymentCallbackHandler(callbackService, nil)
	reports := NewReportHandler(reportService)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if f.actor != nil {
			setActorContext(c, *f.actor)
		}
		c.Next()
	})

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/leases", leases.Create)
		v1.GET("/leases", leases.List)
		v1.GET("/leases/:id", leases.Get)
		v1.POST("/leases/:id/activate", leases.Activate)
		v1.POST("/leases/:id/vacate", leases.RequestVacate)
		v1.POST("/leases/:id/vacate/resolve", leases.ResolveVacate)
		v1.GET("/leases/:id/bills", bills.ListForLease)
		v1.GET("/leases/:id/outstanding", bills.Outstanding)
		v1.GET("/leases/:id/payments", payments.ListForLease)
		v1.GET("/bills/:id", bills.Get)
		v1.POST("/bills/:id/mark-paid", bills.MarkPaid)
		v1.POST("/payments", payments.Initiate)
		v1.GET("/payments/:id", payments.Get)
		v1.POST("/payments/:id/refund", payments.Refund)
		v1.POST("/payments/callback/mpesa", callbacks.HandleMpesaCallback)
		v1.GET("/reports/collection-rate", reports.CollectionRate)
		v1.GET("/reports/tenant-segments", reports.TenantSegments)
		v1.GET("/reports/payment-analytics", reports.Analytics)
	}

	f.engine = engine
	return f
}

// do sends a JSON request as the given actor
func (f *apiFixture) do(t *testing.T, actor *identity.Actor, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	return f.doRaw(actor, method, path, reader)
}

func (f *apiFixture) doRaw(actor *identity.Actor, method, path string, body io.Reader) *httptest.ResponseRecorder {
	f.actor = actor
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func dataObject(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	resp := decodeResponse(t, w)
	obj, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "response data is not an object: %s", w.Body.String())
	return obj
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error, "response has no error: %s", w.Body.String())
	return resp.Error.Code
}

// seedLease stores an active lease between the fixture's tenant and
// landlord, running from 2024-01-01 with 35000 KES rent.
func (f *apiFixture) seedLease(t *testing.T) *tenancy.Lease {
	t.Helper()
	return f.seedLeaseWithApproval(t, false)
}

func (f *apiFixture) seedLeaseWithApproval(t *testing.T, requireApproval bool) *tenancy.Lease {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	rent, err := valueobject.NewMoneyKESFromString("35000")
	require.NoError(t, err)
	lease, err := tenancy.NewLease(f.tenant.ID, f.landlord.ID, uuid.New(), start, &end, rent, requireApproval)
	require.NoError(t, err)
	require.NoError(t, f.leaseRepo.Save(context.Background(), lease))
	return lease
}

func (f *apiFixture) seedBill(t *testing.T, leaseID uuid.UUID, amount string, dueDate time.Time) *billing.Bill {
	t.Helper()
	money, err := valueobject.NewMoneyKESFromString(amount)
	require.NoError(t, err)
	bill, err := billing.NewBill(leaseID, money, dueDate, dueDate.AddDate(0, -1, 0))
	require.NoError(t, err)
	require.NoError(t, f.billRepo.Save(context.Background(), bill))
	return bill
}

func (f *apiFixture) seedPendingPayment(t *testing.T, leaseID uuid.UUID, amount, providerRef string) *domainpayment.Payment {
	t.Helper()
	money, err := valueobject.NewMoneyKESFromString(amount)
	require.NoError(t, err)
	pmt, err := domainpayment.NewPayment(leaseID, money, "254712345678", providerRef)
	require.NoError(t, err)
	require.NoError(t, f.paymentRepo.Save(context.Background(), pmt))
	return pmt
}

func (f *apiFixture) seedSuccessfulPayment(t *testing.T, leaseID uuid.UUID, amount, providerRef, receipt string) *domainpayment.Payment {
	t.Helper()
	pmt := f.seedPendingPayment(t, leaseID, amount, providerRef)
	require.NoError(t, pmt.MarkSuccessful(receipt))
	require.NoError(t, f.paymentRepo.UpdateStatusFromPending(context.Background(), pmt))
	return pmt
}
