package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductCatalogEntry is the sellable product a deployment creates for a
// store, priced from the recipe's ingredient cost.
type ProductCatalogEntry struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID        uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index"`
	RecipeID       uuid.UUID       `gorm:"column:recipe_id;type:uuid;not null"`
	ProductName    string          `gorm:"column:product_name;not null"`
	Description    *string         `gorm:"column:description"`
	SuggestedPrice decimal.Decimal `gorm:"column:suggested_price;type:numeric(12,2);not null;default:0"`
	IsAvailable    bool            `gorm:"column:is_available;not null;default:true"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
