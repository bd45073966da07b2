package movements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
)

// Repository manages persistence for the append-only movement ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, movement *models.InventoryMovement) error
	ListByReference(ctx context.Context, refType enums.ReferenceType, refID string) ([]models.InventoryMovement, error)
	ListByReferenceAndType(ctx context.Context, refType enums.ReferenceType, refID string, movementType enums.MovementType) ([]models.InventoryMovement, error)
	CountByStoreSince(ctx context.Context, storeID uuid.UUID, movementType enums.MovementType, since time.Time) (int64, error)
	CountLeakedByStore(ctx context.Context, storeID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a movement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, movement *models.InventoryMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListByReference(ctx context.Context, refType enums.ReferenceType, refID string) ([]models.InventoryMovement, error) {
	var rows []models.InventoryMovement
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByReferenceAndType(ctx context.Context, refType enums.ReferenceType, refID string, movementType enums.MovementType) ([]models.InventoryMovement, error) {
	var rows []models.InventoryMovement
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ? AND movement_type = ?", refType, refID, movementType).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountByStoreSince(ctx context.Context, storeID uuid.UUID, movementType enums.MovementType, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryMovement{}).
		Joins("JOIN inventory_stock_items ON inventory_stock_items.id = inventory_movements.inventory_stock_id").
		Where("inventory_stock_items.store_id = ?", storeID).
		Where("inventory_movements.movement_type = ?", movementType).
		Where("inventory_movements.created_at >= ?", since).
		Count(&count).Error
	return count, err
}

// CountLeakedByStore counts movements whose transaction also touched stock of
// a different store. Any non-zero result means cross-store isolation broke.
func (r *repository) CountLeakedByStore(ctx context.Context, storeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryMovement{}).
		Joins("JOIN inventory_stock_items ON inventory_stock_items.id = inventory_movements.inventory_stock_id").
		Where("inventory_stock_items.store_id <> ?", storeID).
		Where(`inventory_movements.reference_id IN (
			SELECT m2.reference_id FROM inventory_movements m2
			JOIN inventory_stock_items s2 ON s2.id = m2.inventory_stock_id
			WHERE s2.store_id = ? AND m2.reference_type = ?
		)`, storeID, enums.ReferenceTypeTransaction).
		Count(&count).Error
	return count, err
}
