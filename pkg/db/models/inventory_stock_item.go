package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryStockItem is a store-scoped stock row. Whole units live in
// StockQuantity; the sub-unit remainder lives in FractionalStock. The Version
// column is the optimistic lock: every successful mutation increments it, and
// writers condition their update on the value they read.
//
// Invariant: StockQuantity + FractionalStock >= 0.
type InventoryStockItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID         uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index"`
	Item            string          `gorm:"column:item;not null"`
	Unit            string          `gorm:"column:unit;not null"`
	StockQuantity   int             `gorm:"column:stock_quantity;not null;default:0"`
	FractionalStock float64         `gorm:"column:fractional_stock;not null;default:0"`
	BulkQuantity    float64         `gorm:"column:bulk_quantity;not null;default:0"`
	BulkUnit        string          `gorm:"column:bulk_unit"`
	ServingQuantity float64         `gorm:"column:serving_quantity;not null;default:0"`
	ServingUnit     string          `gorm:"column:serving_unit"`
	BreakdownRatio  float64         `gorm:"column:breakdown_ratio;not null;default:1"`
	Cost            decimal.Decimal `gorm:"column:cost;type:numeric(12,4);not null;default:0"`
	CostPerServing  decimal.Decimal `gorm:"column:cost_per_serving;type:numeric(12,4);not null;default:0"`
	MinimumThreshold int            `gorm:"column:minimum_threshold;not null;default:0"`
	Version         int64           `gorm:"column:version;not null;default:1"`
	IsActive        bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalStock returns whole plus fractional stock in inventory units.
func (i InventoryStockItem) TotalStock() float64 {
	return float64(i.StockQuantity) + i.FractionalStock
}
