package idempotency

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
)

// Repository persists the database side of idempotency: one row per applied
// (transaction, stock) deduction. The unique index makes double-insert a
// conflict, which is the backstop when the cache misbehaves.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, transactionID string, stockID uuid.UUID) (*models.IdempotencyRecord, error)
	Create(ctx context.Context, record *models.IdempotencyRecord) error
	Delete(ctx context.Context, transactionID string, stockID uuid.UUID) error
	ListByTransaction(ctx context.Context, transactionID string) ([]models.IdempotencyRecord, error)
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Find returns (nil, nil) when no record exists.
func (r *repository) Find(ctx context.Context, transactionID string, stockID uuid.UUID) (*models.IdempotencyRecord, error) {
	var record models.IdempotencyRecord
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND inventory_stock_id = ?", transactionID, stockID).
		First(&record).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) Create(ctx context.Context, record *models.IdempotencyRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Delete removes the applied marker after a compensation reversed the
// deduction it recorded.
func (r *repository) Delete(ctx context.Context, transactionID string, stockID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("transaction_id = ? AND inventory_stock_id = ?", transactionID, stockID).
		Delete(&models.IdempotencyRecord{}).Error
}

func (r *repository) ListByTransaction(ctx context.Context, transactionID string) ([]models.IdempotencyRecord, error) {
	var records []models.IdempotencyRecord
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Count exists for liveness probing of the table. It is intentionally cheap.
func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.IdempotencyRecord{}).
		Count(&count).Error
	return count, err
}
