package deduction

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
)

// StockRepository is the write surface over stock rows. All mutations go
// through CompareAndSwap so concurrent writers serialize on the version
// column instead of row locks.
type StockRepository interface {
	WithTx(tx *gorm.DB) StockRepository
	Get(ctx context.Context, id uuid.UUID) (*models.InventoryStockItem, error)
	ListActiveByStore(ctx context.Context, storeID uuid.UUID) ([]models.InventoryStockItem, error)
	CompareAndSwap(ctx context.Context, id uuid.UUID, expectedVersion int64, newWhole int, newFractional float64) (bool, error)
	HasVersionColumn(ctx context.Context) (bool, error)
}

type stockRepository struct {
	db *gorm.DB
}

// NewStockRepository returns a stock repository bound to the database.
func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) WithTx(tx *gorm.DB) StockRepository {
	if tx == nil {
		return r
	}
	return &stockRepository{db: tx}
}

func (r *stockRepository) Get(ctx context.Context, id uuid.UUID) (*models.InventoryStockItem, error) {
	var stock models.InventoryStockItem
	if err := r.db.WithContext(ctx).First(&stock, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *stockRepository) ListActiveByStore(ctx context.Context, storeID uuid.UUID) ([]models.InventoryStockItem, error) {
	var stocks []models.InventoryStockItem
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND is_active = ?", storeID, true).
		Order("item ASC").
		Find(&stocks).Error
	if err != nil {
		return nil, err
	}
	return stocks, nil
}

// CompareAndSwap writes the new quantities only if the row still carries
// expectedVersion, bumping the version on success. Returns false when another
// writer got there first.
func (r *stockRepository) CompareAndSwap(ctx context.Context, id uuid.UUID, expectedVersion int64, newWhole int, newFractional float64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryStockItem{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"stock_quantity":   newWhole,
			"fractional_stock": newFractional,
			"version":          gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// HasVersionColumn verifies the optimistic-lock column exists. The health
// monitor calls this; a missing column means every write is unguarded.
func (r *stockRepository) HasVersionColumn(ctx context.Context) (bool, error) {
	migrator := r.db.WithContext(ctx).Migrator()
	return migrator.HasColumn(&models.InventoryStockItem{}, "version"), nil
}

// CompensationRepository persists the audit trail of reversals.
type CompensationRepository interface {
	WithTx(tx *gorm.DB) CompensationRepository
	Create(ctx context.Context, entry *models.CompensationLogEntry) error
	ListByTransaction(ctx context.Context, transactionID string) ([]models.CompensationLogEntry, error)
	Count(ctx context.Context) (int64, error)
}

type compensationRepository struct {
	db *gorm.DB
}

func NewCompensationRepository(db *gorm.DB) CompensationRepository {
	return &compensationRepository{db: db}
}

func (r *compensationRepository) WithTx(tx *gorm.DB) CompensationRepository {
	if tx == nil {
		return r
	}
	return &compensationRepository{db: tx}
}

func (r *compensationRepository) Create(ctx context.Context, entry *models.CompensationLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *compensationRepository) ListByTransaction(ctx context.Context, transactionID string) ([]models.CompensationLogEntry, error) {
	var entries []models.CompensationLogEntry
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("compensated_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *compensationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CompensationLogEntry{}).
		Count(&count).Error
	return count, err
}
