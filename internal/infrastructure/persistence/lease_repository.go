package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/nyumbani/backend/internal/domain/tenancy"
	"github.com/nyumbani/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// leaseSortFields contains allowed sort fields for leases
var leaseSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"start_date":  true,
	"end_date":    true,
	"rent_amount": true,
	"status":      true,
}

// GormLeaseRepository implements LeaseRepository using GORM
type GormLeaseRepository struct {
	db *gorm.DB
}

// NewGormLeaseRepository creates a new GormLeaseRepository
func NewGormLeaseRepository(db *gorm.DB) *GormLeaseRepository {
	return &GormLeaseRepository{db: db}
}

// Save creates or updates a lease
func (r *GormLeaseRepository) Save(ctx context.Context, lease *tenancy.Lease) error {
	model := models.LeaseModelFromDomain(lease)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking against the expected version
func (r *GormLeaseRepository) SaveWithLock(ctx context.Context, lease *tenancy.Lease, expectedVersion int) error {
	model := models.LeaseModelFromDomain(lease)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", lease.ID, expectedVersion).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a lease by its ID
func (r *GormLeaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*tenancy.Lease, error) {
	var model models.LeaseModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTenant finds all leases held by a tenant
func (r *GormLeaseRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*tenancy.Lease, error) {
	var leaseModels []models.LeaseModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("start_date DESC").
		Find(&leaseModels).Error; err != nil {
		return nil, err
	}
	return toLeases(leaseModels), nil
}

// FindByProperty finds all leases on a property
func (r *GormLeaseRepository) FindByProperty(ctx context.Context, propertyID uuid.UUID) ([]*tenancy.Lease, error) {
	var leaseModels []models.LeaseModel
	if err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("start_date DESC").
		Find(&leaseModels).Error; err != nil {
		return nil, err
	}
	return toLeases(leaseModels), nil
}

// FindActive finds all leases in ACTIVE status
func (r *GormLeaseRepository) FindActive(ctx context.Context) ([]*tenancy.Lease, error) {
	var leaseModels []models.LeaseModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", tenancy.LeaseStatusActive).
		Order("created_at ASC").
		Find(&leaseModels).Error; err != nil {
		return nil, err
	}
	return toLeases(leaseModels), nil
}

// FindActiveExpiring finds active leases whose end date is on or before the given date
func (r *GormLeaseRepository) FindActiveExpiring(ctx context.Context, onOrBefore time.Time) ([]*tenancy.Lease, error) {
	var leaseModels []models.LeaseModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND end_date IS NOT NULL AND end_date <= ?", tenancy.LeaseStatusActive, onOrBefore).
		Order("end_date ASC").
		Find(&leaseModels).Error; err != nil {
		return nil, err
	}
	return toLeases(leaseModels), nil
}

// FindActiveByPropertyOverlapping finds active or pending leases on the
// property whose period overlaps [start, end]
func (r *GormLeaseRepository) FindActiveByPropertyOverlapping(ctx context.Context, propertyID uuid.UUID, start time.Time, end *time.Time) ([]*tenancy.Lease, error) {
	query := r.db.WithContext(ctx).
		Where("property_id = ? AND status IN ?", propertyID,
			[]tenancy.LeaseStatus{tenancy.LeaseStatusPending, tenancy.LeaseStatusActive}).
		Where("end_date IS NULL OR end_date >= ?", start)
	if end != nil {
		query = query.Where("start_date <= ?", *end)
	}

	var leaseModels []models.LeaseModel
	if err := query.Order("start_date ASC").Find(&leaseModels).Error; err != nil {
		return nil, err
	}
	return toLeases(leaseModels), nil
}

// List returns leases matching the filter with pagination
func (r *GormLeaseRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*tenancy.Lease], error) {
	query := r.db.WithContext(ctx).Model(&models.LeaseModel{})
	query = applyLeaseFilters(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, leaseSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var leaseModels []models.LeaseModel
	if err := query.Find(&leaseModels).Error; err != nil {
		return nil, err
	}

	paginated := shared.NewPaginated(toLeases(leaseModels), total, filter.Page, filter.PageSize)
	return &paginated, nil
}

// Count counts leases, optionally restricted to a status
func (r *GormLeaseRepository) Count(ctx context.Context, status *tenancy.LeaseStatus) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.LeaseModel{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func applyLeaseFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if v, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", v)
	}
	if v, ok := filter.Filters["tenant_id"]; ok {
		query = query.Where("tenant_id = ?", v)
	}
	if v, ok := filter.Filters["landlord_id"]; ok {
		query = query.Where("landlord_id = ?", v)
	}
	if v, ok := filter.Filters["property_id"]; ok {
		query = query.Where("property_id = ?", v)
	}
	return query
}

func toLeases(leaseModels []models.LeaseModel) []*tenancy.Lease {
	leases := make([]*tenancy.Lease, len(leaseModels))
	for i := range leaseModels {
		leases[i] = leaseModels[i].ToDomain()
	}
	return leases
}

// Ensure GormLeaseRepository implements LeaseRepository
var _ tenancy.LeaseRepository = (*GormLeaseRepository)(nil)
