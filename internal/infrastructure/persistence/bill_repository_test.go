package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/nyumbani/backend/internal/domain/billing"
	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockBillRepository creates a GormBillRepository with a mocked SQL connection
func newMockBillRepository(t *testing.T) (*GormBillRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormBillRepository(gormDB), mock, mockDB
}

func testBill(leaseID uuid.UUID, dueDate time.Time) *billing.Bill {
	now := time.Now()
	return &billing.Bill{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			Version:    1,
		},
		LeaseID: leaseID,
		Amount:  decimal.NewFromInt(35000),
		DueDate: dueDate,
		Status:  billing.BillStatusUnpaid,
	}
}

func TestGormBillRepository_Save(t *testing.T) {
	t.Run("duplicate accrual maps to already exists", func(t *testing.T) {
		repo, mock, mockDB := newMockBillRepository(t)
		defer mockDB.Close()

		bill := testBill(uuid.New(), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

		// Save updates first; a new row falls through to insert, which
		// trips the (lease_id, due_date) unique index
		mock.ExpectExec(`UPDATE "bills" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO "bills"`).
			WillReturnError(gorm.ErrDuplicatedKey)

		err := repo.Save(context.Background(), bill)

		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBillRepository_FindUnpaidByLease(t *testing.T) {
	repo, mock, mockDB := newMockBillRepository(t)
	defer mockDB.Close()

	leaseID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "lease_id", "amount", "due_date", "status", "version"}).
		AddRow(uuid.New(), leaseID, "35000", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "UNPAID", 1).
		AddRow(uuid.New(), leaseID, "35000", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "UNPAID", 1)

	mock.ExpectQuery(`SELECT \* FROM "bills" WHERE lease_id = \$1 AND status = \$2 ORDER BY due_date ASC`).
		WithArgs(leaseID, billing.BillStatusUnpaid).
		WillReturnRows(rows)

	bills, err := repo.FindUnpaidByLease(context.Background(), leaseID)

	require.NoError(t, err)
	require.Len(t, bills, 2)
	assert.True(t, bills[0].DueDate.Before(bills[1].DueDate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormBillRepository_FindLatestByLease(t *testing.T) {
	t.Run("returns most recent due date", func(t *testing.T) {
		repo, mock, mockDB := newMockBillRepository(t)
		defer mockDB.Close()

		leaseID := uuid.New()
		latest := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

		rows := sqlmock.NewRows([]string{"id", "lease_id", "amount", "due_date", "status", "version"}).
			AddRow(uuid.New(), leaseID, "35000", latest, "UNPAID", 1)

		mock.ExpectQuery(`SELECT \* FROM "bills" WHERE lease_id = \$1 ORDER BY due_date DESC,.* LIMIT .*`).
			WithArgs(leaseID, 1).
			WillReturnRows(rows)

		bill, err := repo.FindLatestByLease(context.Background(), leaseID)

		require.NoError(t, err)
		assert.True(t, bill.DueDate.Equal(latest))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found when lease has no bills", func(t *testing.T) {
		repo, mock, mockDB := newMockBillRepository(t)
		defer mockDB.Close()

		leaseID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "bills"`).
			WithArgs(leaseID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindLatestByLease(context.Background(), leaseID)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBillRepository_ExistsForLeaseAndDueDate(t *testing.T) {
	repo, mock, mockDB := newMockBillRepository(t)
	defer mockDB.Close()

	leaseID := uuid.New()
	dueDate := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "bills" WHERE lease_id = \$1 AND due_date = \$2`).
		WithArgs(leaseID, dueDate).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsForLeaseAndDueDate(context.Background(), leaseID, dueDate)

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
