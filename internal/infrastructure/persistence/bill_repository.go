package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/nyumbani/backend/internal/domain/billing"
	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/nyumbani/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// billSortFields contains allowed sort fields for bills
var billSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"due_date":   true,
	"amount":     true,
	"status":     true,
}

// GormBillRepository implements BillRepository using GORM
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

// Save creates or updates a bill. The (lease_id, due_date) unique index
// turns a duplicate accrual into shared.ErrAlreadyExists.
func (r *GormBillRepository) Save(ctx context.Context, bill *billing.Bill) error {
	model := models.BillModelFromDomain(bill)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds a bill by its ID
func (r *GormBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	var model models.BillModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLease finds all bills for a lease ordered by due date ascending
func (r *GormBillRepository) FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*billing.Bill, error) {
	var billModels []models.BillModel
	if err := r.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("due_date ASC").
		Find(&billModels).Error; err != nil {
		return nil, err
	}
	return toBills(billModels), nil
}

// FindUnpaidByLease finds unpaid bills for a lease, oldest due date first
func (r *GormBillRepository) FindUnpaidByLease(ctx context.Context, leaseID uuid.UUID) ([]*billing.Bill, error) {
	var billModels []models.BillModel
	if err := r.db.WithContext(ctx).
		Where("lease_id = ? AND status = ?", leaseID, billing.BillStatusUnpaid).
		Order("due_date ASC").
		Find(&billModels).Error; err != nil {
		return nil, err
	}
	return toBills(billModels), nil
}

// FindLatestByLease finds the bill with the most recent due date for a lease
func (r *GormBillRepository) FindLatestByLease(ctx context.Context, leaseID uuid.UUID) (*billing.Bill, error) {
	var model models.BillModel
	if err := r.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("due_date DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsForLeaseAndDueDate checks whether a bill already accrued for the
// lease and due date
func (r *GormBillRepository) ExistsForLeaseAndDueDate(ctx context.Context, leaseID uuid.UUID, dueDate time.Time) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Where("lease_id = ? AND due_date = ?", leaseID, dueDate).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List returns bills matching the filter with pagination
func (r *GormBillRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*billing.Bill], error) {
	query := r.db.WithContext(ctx).Model(&models.BillModel{})
	if v, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", v)
	}
	if v, ok := filter.Filters["lease_id"]; ok {
		query = query.Where("lease_id = ?", v)
	}
	if v, ok := filter.Filters["due_before"]; ok {
		query = query.Where("due_date < ?", v)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, billSortFields, "due_date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var billModels []models.BillModel
	if err := query.Find(&billModels).Error; err != nil {
		return nil, err
	}

	paginated := shared.NewPaginated(toBills(billModels), total, filter.Page, filter.PageSize)
	return &paginated, nil
}

// CountUnpaid counts all unpaid bills
func (r *GormBillRepository) CountUnpaid(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Where("status = ?", billing.BillStatusUnpaid).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func toBills(billModels []models.BillModel) []*billing.Bill {
	bills := make([]*billing.Bill, len(billModels))
	for i := range billModels {
		bills[i] = billModels[i].ToDomain()
	}
	return bills
}

// Ensure GormBillRepository implements BillRepository
var _ billing.BillRepository = (*GormBillRepository)(nil)
