package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
)

// InventoryMovement is an append-only ledger row for one stock mutation.
//
// Invariant: PreviousQuantity + QuantityChange == NewQuantity.
type InventoryMovement struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InventoryStockID uuid.UUID           `gorm:"column:inventory_stock_id;type:uuid;not null;index"`
	MovementType     enums.MovementType  `gorm:"column:movement_type;not null"`
	QuantityChange   float64             `gorm:"column:quantity_change;not null"`
	PreviousQuantity float64             `gorm:"column:previous_quantity;not null"`
	NewQuantity      float64             `gorm:"column:new_quantity;not null"`
	ReferenceType    enums.ReferenceType `gorm:"column:reference_type;not null"`
	ReferenceID      string              `gorm:"column:reference_id;not null;index"`
	Notes            *string             `gorm:"column:notes"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
}
