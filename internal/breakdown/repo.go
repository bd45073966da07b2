package breakdown

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
)

// StockUpdate is the full set of columns a delivery writes to a stock row.
type StockUpdate struct {
	StockQuantity   int
	FractionalStock float64
	BulkQuantity    float64
	BulkUnit        string
	ServingQuantity float64
	ServingUnit     string
	BreakdownRatio  float64
	Cost            decimal.Decimal
	CostPerServing  decimal.Decimal
}

// Repository is the stock write surface for delivery intake. Updates are
// version-guarded like every other stock mutation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, id uuid.UUID) (*models.InventoryStockItem, error)
	ApplyDelivery(ctx context.Context, id uuid.UUID, expectedVersion int64, update StockUpdate) (bool, error)
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

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.InventoryStockItem, error) {
	var stock models.InventoryStockItem
	if err := r.db.WithContext(ctx).First(&stock, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *repository) ApplyDelivery(ctx context.Context, id uuid.UUID, expectedVersion int64, update StockUpdate) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryStockItem{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"stock_quantity":   update.StockQuantity,
			"fractional_stock": update.FractionalStock,
			"bulk_quantity":    update.BulkQuantity,
			"bulk_unit":        update.BulkUnit,
			"serving_quantity": update.ServingQuantity,
			"serving_unit":     update.ServingUnit,
			"breakdown_ratio":  update.BreakdownRatio,
			"cost":             update.Cost,
			"cost_per_serving": update.CostPerServing,
			"version":          gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
