package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversionMapping links a recipe ingredient (name + unit) to exactly one
// stock row and carries the factor translating one inventory unit into recipe
// units. At most one active mapping may exist per (store, name, unit); the
// store lives on the stock item, so the resolver enforces this rather than a
// database constraint.
type ConversionMapping struct {
	ID                    uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InventoryStockID      uuid.UUID `gorm:"column:inventory_stock_id;type:uuid;not null;index"`
	RecipeIngredientName  string    `gorm:"column:recipe_ingredient_name;not null"`
	RecipeIngredientUnit  string    `gorm:"column:recipe_ingredient_unit;not null"`
	ConversionFactor      float64   `gorm:"column:conversion_factor;not null;default:1"`
	IsActive              bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time `gorm:"column:updated_at;autoUpdateTime"`

	StockItem *InventoryStockItem `gorm:"foreignKey:InventoryStockID"`
}
