package persistence

import (
	"context"

	appbilling "github.com/nyumbani/backend/internal/application/billing"
	apppayment "github.com/nyumbani/backend/internal/application/payment"
	apptenancy "github.com/nyumbani/backend/internal/application/tenancy"
	"github.com/nyumbani/backend/internal/domain/billing"
	"github.com/nyumbani/backend/internal/domain/payment"
	"github.com/nyumbani/backend/internal/domain/tenancy"
	"gorm.io/gorm"
)

// gormRentalRepositories provides transaction-scoped repositories. One
// struct satisfies the transactional repository interfaces of the
// tenancy, billing and payment application layers.
type gormRentalRepositories struct {
	tx *gorm.DB
}

// LeaseRepo returns the lease repository scoped to the current transaction.
func (r *gormRentalRepositories) LeaseRepo() tenancy.LeaseRepository {
	return NewGormLeaseRepository(r.tx)
}

// BillRepo returns the bill repository scoped to the current transaction.
func (r *gormRentalRepositories) BillRepo() billing.BillRepository {
	return NewGormBillRepository(r.tx)
}

// PaymentRepo returns the payment repository scoped to the current transaction.
func (r *gormRentalRepositories) PaymentRepo() payment.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// GormTenancyTransactionScope implements the tenancy TransactionScope
// using GORM transactions. Lease transitions and the bills they emit
// commit or roll back as one unit.
type GormTenancyTransactionScope struct {
	db *gorm.DB
}

// NewGormTenancyTransactionScope creates a new GormTenancyTransactionScope.
func NewGormTenancyTransactionScope(db *gorm.DB) *GormTenancyTransactionScope {
	return &GormTenancyTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
func (s *GormTenancyTransactionScope) Execute(ctx context.Context, fn func(repos apptenancy.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRentalRepositories{tx: tx})
	})
}

// GormBillingTransactionScope implements the billing TransactionScope
// using GORM transactions.
type GormBillingTransactionScope struct {
	db *gorm.DB
}

// NewGormBillingTransactionScope creates a new GormBillingTransactionScope.
func NewGormBillingTransactionScope(db *gorm.DB) *GormBillingTransactionScope {
	return &GormBillingTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
func (s *GormBillingTransactionScope) Execute(ctx context.Context, fn func(repos appbilling.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRentalRepositories{tx: tx})
	})
}

// GormPaymentTransactionScope implements the payment TransactionScope
// using GORM transactions. A callback's terminal payment transition and
// the bill settlement it triggers share one transaction.
type GormPaymentTransactionScope struct {
	db *gorm.DB
}

// NewGormPaymentTransactionScope creates a new GormPaymentTransactionScope.
func NewGormPaymentTransactionScope(db *gorm.DB) *GormPaymentTransactionScope {
	return &GormPaymentTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
func (s *GormPaymentTransactionScope) Execute(ctx context.Context, fn func(repos apppayment.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRentalRepositories{tx: tx})
	})
}

// Interface conformance checks
var (
	_ apptenancy.TransactionScope = (*GormTenancyTransactionScope)(nil)
	_ appbilling.TransactionScope = (*GormBillingTransactionScope)(nil)
	_ apppayment.TransactionScope = (*GormPaymentTransactionScope)(nil)

	_ apptenancy.TransactionalRepositories = (*gormRentalRepositories)(nil)
	_ appbilling.TransactionalRepositories = (*gormRentalRepositories)(nil)
	_ apppayment.TransactionalRepositories = (*gormRentalRepositories)(nil)
)
