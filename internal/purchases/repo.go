package purchases

import (
	"context"

	"github.com/openmarket/marketplace-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists completed purchases.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.PurchaseRecord) (*models.PurchaseRecord, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.PurchaseRecord, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.PurchaseRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a purchases repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.PurchaseRecord) (*models.PurchaseRecord, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.PurchaseRecord, error) {
	var records []models.PurchaseRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.PurchaseRecord, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseItem{}).
		Where("store_id = ?", storeID).
		Distinct().
		Pluck("purchase_id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.PurchaseRecord{}, nil
	}

	var records []models.PurchaseRecord
	err = r.db.WithContext(ctx).
		Preload("Items").
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
