package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecipeTemplate is the store-agnostic definition of a recipe product. It is
// materialized per store at deployment time.
type RecipeTemplate struct {
	ID           uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string                     `gorm:"column:name;not null"`
	Description  *string                    `gorm:"column:description"`
	Category     *string                    `gorm:"column:category"`
	YieldQty     float64                    `gorm:"column:yield_qty;not null;default:1"`
	IsActive     bool                       `gorm:"column:is_active;not null;default:true"`
	Ingredients  []RecipeTemplateIngredient `gorm:"foreignKey:RecipeTemplateID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

// RecipeTemplateIngredient is one declared ingredient line of a template.
// Declaration order matters: the deployment matcher resolves ingredients
// first-match-wins in this order.
type RecipeTemplateIngredient struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipeTemplateID uuid.UUID       `gorm:"column:recipe_template_id;type:uuid;not null;index"`
	IngredientName   string          `gorm:"column:ingredient_name;not null"`
	Unit             string          `gorm:"column:unit;not null"`
	Quantity         float64         `gorm:"column:quantity;not null"`
	CostPerUnit      decimal.Decimal `gorm:"column:cost_per_unit;type:numeric(12,4);not null;default:0"`
	Position         int             `gorm:"column:position;not null;default:0"`
}
