package billing

import (
	"context"

	"github.com/nyumbani/backend/internal/domain/billing"
	"github.com/nyumbani/backend/internal/domain/tenancy"
)

// TransactionScope provides transactional access to the billing-cycle
// repositories. Each lease's rollover runs in its own transaction so one
// failing lease does not roll back the whole tick.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories sharing the current
// transaction.
type TransactionalRepositories interface {
	// LeaseRepo returns the lease repository scoped to the current transaction
	LeaseRepo() tenancy.LeaseRepository
	// BillRepo returns the bill repository scoped to the current transaction
	BillRepo() billing.BillRepository
}

// NoOpTransactionScope runs the function without a real transaction.
type NoOpTransactionScope struct {
	leaseRepo tenancy.LeaseRepository
	billRepo  billing.BillRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(leaseRepo tenancy.LeaseRepository, billRepo billing.BillRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{leaseRepo: leaseRepo, billRepo: billRepo}
}

// Execute runs the function directly.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// LeaseRepo returns the lease repository.
func (s *NoOpTransactionScope) LeaseRepo() tenancy.LeaseRepository {
	return s.leaseRepo
}

// BillRepo returns the bill repository.
func (s *NoOpTransactionScope) BillRepo() billing.BillRepository {
	return s.billRepo
}
