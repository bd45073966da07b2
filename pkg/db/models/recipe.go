package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
)

// Recipe is a template materialized for one store.
type Recipe struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TemplateID uuid.UUID       `gorm:"column:template_id;type:uuid;not null;index"`
	StoreID    uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index"`
	Name       string          `gorm:"column:name;not null"`
	TotalCost  decimal.Decimal `gorm:"column:total_cost;type:numeric(12,4);not null;default:0"`
	IsActive   bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// RecipeIngredientMapping binds one recipe ingredient to the store stock row
// chosen at deployment time, tagged with its availability posture.
type RecipeIngredientMapping struct {
	ID               uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipeID         uuid.UUID                `gorm:"column:recipe_id;type:uuid;not null;index"`
	InventoryStockID uuid.UUID                `gorm:"column:inventory_stock_id;type:uuid;not null"`
	IngredientName   string                   `gorm:"column:ingredient_name;not null"`
	Unit             string                   `gorm:"column:unit;not null"`
	Quantity         float64                  `gorm:"column:quantity;not null"`
	CostPerUnit      decimal.Decimal          `gorm:"column:cost_per_unit;type:numeric(12,4);not null;default:0"`
	Availability     enums.AvailabilityStatus `gorm:"column:availability;not null"`
	CreatedAt        time.Time                `gorm:"column:created_at;autoCreateTime"`
}
