package persistence

import (
	"context"
	"errors"

	"github.com/nyumbani/backend/internal/domain/payment"
	"github.com/nyumbani/backend/internal/domain/shared"
	"github.com/nyumbani/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// paymentSortFields contains allowed sort fields for payments
var paymentSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"amount":       true,
	"status":       true,
	"completed_at": true,
}

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Save creates or updates a payment. The provider reference's unique
// index turns a duplicate initiation into shared.ErrAlreadyExists.
func (r *GormPaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	model := models.PaymentModelFromDomain(p)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProviderRef finds the payment a gateway callback refers to
func (r *GormPaymentRepository) FindByProviderRef(ctx context.Context, providerRef string) (*payment.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("provider_ref = ?", providerRef).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLease finds all payments for a lease, newest first
func (r *GormPaymentRepository) FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*payment.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("created_at DESC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return toPayments(paymentModels), nil
}

// UpdateStatusFromPending commits the terminal transition only if the
// stored status is still PENDING. A concurrent callback that lost the
// race gets shared.ErrConcurrencyConflict.
func (r *GormPaymentRepository) UpdateStatusFromPending(ctx context.Context, p *payment.Payment) error {
	model := models.PaymentModelFromDomain(p)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND status = ?", p.ID, payment.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":         model.Status,
			"receipt_number": model.ReceiptNumber,
			"failure_reason": model.FailureReason,
			"completed_at":   model.CompletedAt,
			"version":        model.Version,
			"updated_at":     model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// SumSuccessfulByLease totals confirmed payment amounts for a lease
func (r *GormPaymentRepository) SumSuccessfulByLease(ctx context.Context, leaseID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("lease_id = ? AND status = ?", leaseID, payment.PaymentStatusSuccessful).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// SumSuccessfulByLeases totals confirmed payment amounts per lease
func (r *GormPaymentRepository) SumSuccessfulByLeases(ctx context.Context, leaseIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	sums := make(map[uuid.UUID]decimal.Decimal, len(leaseIDs))
	if len(leaseIDs) == 0 {
		return sums, nil
	}

	var rows []struct {
		LeaseID uuid.UUID
		Total   decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("lease_id, COALESCE(SUM(amount), 0) as total").
		Where("lease_id IN ? AND status = ?", leaseIDs, payment.PaymentStatusSuccessful).
		Group("lease_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		sums[row.LeaseID] = row.Total
	}
	return sums, nil
}

// List returns payments matching the filter with pagination
func (r *GormPaymentRepository) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[*payment.Payment], error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{})
	if v, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", v)
	}
	if v, ok := filter.Filters["lease_id"]; ok {
		query = query.Where("lease_id = ?", v)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, paymentSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var paymentModels []models.PaymentModel
	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, err
	}

	paginated := shared.NewPaginated(toPayments(paymentModels), total, filter.Page, filter.PageSize)
	return &paginated, nil
}

// CountByStatus counts payments grouped by status
func (r *GormPaymentRepository) CountByStatus(ctx context.Context) (map[payment.PaymentStatus]int64, error) {
	var rows []struct {
		Status payment.PaymentStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[payment.PaymentStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func toPayments(paymentModels []models.PaymentModel) []*payment.Payment {
	payments := make([]*payment.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = paymentModels[i].ToDomain()
	}
	return payments
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ payment.PaymentRepository = (*GormPaymentRepository)(nil)
