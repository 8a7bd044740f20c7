package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/nyumbani/backend/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillingHandler_Get(t *testing.T) {
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("tenant sees own bill", func(t *testing.T) {
		f := newAPIFixture(t)
		lease := f.seedLease(t)
		bill := f.seedBill(t, lease.ID, "35000", feb)

		w := f.do(t, &f.tenant, http.MethodGet, "/api/v1/bills/"+bill.ID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := dataObject(t, w)
		assert.Equal(t, bill.ID.String(), data["id"])
		assert.Equal(t, "35000.00", data["amount"])
		assert.Equal(t, "2024-02-01", data["due_date"])
		assert.Equal(t, "UNPAID", data["status"])
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		f := newAPIFixture(t)
		lease := f.seedLease(t)
		bill := f.seedBill(t, lease.ID, "35000", feb)
		other := f.tenant
		other.ID = uuid.New()

		w := f.do(t, &other, http.MethodGet, "/api/v1/bills/"+bill.ID.String(), nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown bill", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, &f.admin, http.MethodGet, "/api/v1/bills/"+uuid.New().String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestBillingHandler_ListForLease(t *testing.T) {
	t.Run("bills come back oldest due first", func(t *testing.T) {
		f := newAPIFixture(t)
		lease := f.seedLease(t)
		f.seedBill(t, lease.ID, "35000", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
		f.seedBill(t, lease.ID, "35000", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

		w := f.do(t, &f.landlord, http.MethodGet, "/api/v1/leases/"+lease.ID.String()+"/bills", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decodeResponse(t, w)
		items, ok := resp.Data.([]interface{})
		require.True(t, ok)
		require.Len(t, items, 2)
		first := items[0].(map[string]interface{})
		assert.Equal(t, "2024-02-01", first["due_date"])
	})

	t.Run("unknown lease", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, &f.admin, http.MethodGet, "/api/v1/leases/"+uuid.New().String()+"/bills", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestBillingHandler_Outstanding(t *testing.T) {
	t.Run("bill due today carries no penalty", func(t *testing.T) {
		f := newAPIFixture(t)
		lease := f.seedLease(t)
		f.seedBill(t, lease.ID, "35000", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

		w := f.do(t, &f.tenant, http.MethodGet, "/api/v1/leases/"+lease.ID.String()+"/outstanding", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := dataObject(t, w)
		assert.Equal(t, lease.ID.String(), data["lease_id"])
		assert.Equal(t, "35000.00", data["outstanding"])
	})

	t.Run("overdue bill includes the late penalty", func(t *testing.T) {
		f := newAPIFixture(t)
		lease := f.seedLease(t)
		f.seedBill(t, lease.ID, "35000", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		f.clock.Instant = time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

		w := f.do(t, &f.tenant, http.MethodGet, "/api/v1/leases/"+lease.ID.String()+"/outstanding", nil)

		require.Equal(t, http.StatusOK, w.Code)
		data := dataObject(t, w)
		assert.Equal(t, "36750.00", data["outstanding"], "5 percent penalty on 35000")
	})
}

func TestBillingHandler_MarkPaid(t *testing.T) {
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("landlord settles a bill out of band", func(t *testing.T) {
		f := newAPIFixture(t)
		lease := f.seedLease(t)
		bill := f.seedBill(t, lease.ID, "35000", feb)

		w := f.do(t, &f.landlord, http.MethodPost, "/api/v1/bills/"+bill.ID.String()+"/mark-paid", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := dataObject(t, w)
		assert.Equal(t, "PAID", data["status"])
		assert.NotNil(t, data["paid_at"])
	})

	t.Run("tenant may not override", func(t *testing.T) {
		f := newAPIFixture(t)
		lease := f.seedLease(t)
		bill := f.seedBill(t, lease.ID, "35000", feb)

		w := f.do(t, &f.tenant, http.MethodPost, "/api/v1/bills/"+bill.ID.String()+"/mark-paid", nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("settling a paid bill is rejected", func(t *testing.T) {
		f := newAPIFixture(t)
		lease := f.seedLease(t)
		bill := f.seedBill(t, lease.ID, "35000", feb)
		f.do(t, &f.landlord, http.MethodPost, "/api/v1/bills/"+bill.ID.String()+"/mark-paid", nil)

		w := f.do(t, &f.landlord, http.MethodPost, "/api/v1/bills/"+bill.ID.String()+"/mark-paid", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, errorCode(t, w))
	})
}
