package conversions

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
)

// Repository manages persistence for conversion mappings. All lookups are
// store-scoped through the owning stock item.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActive(ctx context.Context, storeID uuid.UUID, ingredientName, ingredientUnit string) (*models.ConversionMapping, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ConversionMapping, error)
	CountActiveExcluding(ctx context.Context, storeID uuid.UUID, ingredientName, ingredientUnit string, excludeID uuid.UUID) (int64, error)
	CountDuplicateActive(ctx context.Context, storeID uuid.UUID) (int64, error)
	Create(ctx context.Context, mapping *models.ConversionMapping) error
	Update(ctx context.Context, mapping *models.ConversionMapping) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	ListActiveByStore(ctx context.Context, storeID uuid.UUID) ([]models.ConversionMapping, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a conversion mapping repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) scoped(ctx context.Context, storeID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.ConversionMapping{}).
		Joins("JOIN inventory_stock_items ON inventory_stock_items.id = conversion_mappings.inventory_stock_id").
		Where("inventory_stock_items.store_id = ?", storeID).
		Where("inventory_stock_items.is_active = ?", true)
}

func (r *repository) FindActive(ctx context.Context, storeID uuid.UUID, ingredientName, ingredientUnit string) (*models.ConversionMapping, error) {
	var mapping models.ConversionMapping
	err := r.scoped(ctx, storeID).
		Where("conversion_mappings.is_active = ?", true).
		Where("LOWER(conversion_mappings.recipe_ingredient_name) = LOWER(?)", ingredientName).
		Where("LOWER(conversion_mappings.recipe_ingredient_unit) = LOWER(?)", ingredientUnit).
		Preload("StockItem").
		First(&mapping).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mapping, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ConversionMapping, error) {
	var mapping models.ConversionMapping
	err := r.db.WithContext(ctx).Preload("StockItem").First(&mapping, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *repository) CountActiveExcluding(ctx context.Context, storeID uuid.UUID, ingredientName, ingredientUnit string, excludeID uuid.UUID) (int64, error) {
	var count int64
	q := r.scoped(ctx, storeID).
		Where("conversion_mappings.is_active = ?", true).
		Where("LOWER(conversion_mappings.recipe_ingredient_name) = LOWER(?)", ingredientName).
		Where("LOWER(conversion_mappings.recipe_ingredient_unit) = LOWER(?)", ingredientUnit)
	if excludeID != uuid.Nil {
		q = q.Where("conversion_mappings.id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count, err
}

// CountDuplicateActive counts (name, unit) pairs with more than one active
// mapping in the store. Used by the health monitor.
func (r *repository) CountDuplicateActive(ctx context.Context, storeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM (
			SELECT LOWER(cm.recipe_ingredient_name), LOWER(cm.recipe_ingredient_unit)
			FROM conversion_mappings cm
			JOIN inventory_stock_items s ON s.id = cm.inventory_stock_id
			WHERE s.store_id = ? AND cm.is_active = TRUE
			GROUP BY LOWER(cm.recipe_ingredient_name), LOWER(cm.recipe_ingredient_unit)
			HAVING COUNT(*) > 1
		) dupes`, storeID).Scan(&count).Error
	return count, err
}

func (r *repository) Create(ctx context.Context, mapping *models.ConversionMapping) error {
	return r.db.WithContext(ctx).Create(mapping).Error
}

func (r *repository) Update(ctx context.Context, mapping *models.ConversionMapping) error {
	return r.db.WithContext(ctx).Save(mapping).Error
}

// Deactivate soft-deletes so historical movements keep a resolvable mapping.
func (r *repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ConversionMapping{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (r *repository) ListActiveByStore(ctx context.Context, storeID uuid.UUID) ([]models.ConversionMapping, error) {
	var mappings []models.ConversionMapping
	err := r.scoped(ctx, storeID).
		Where("conversion_mappings.is_active = ?", true).
		Preload("StockItem").
		Order("conversion_mappings.created_at ASC").
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	return mappings, nil
}
