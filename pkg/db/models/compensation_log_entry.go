package models

import (
	"time"

	"github.com/google/uuid"
)

// CompensationLogEntry records a reversal applied after a sibling ingredient
// in the same order failed, or after a transaction was voided.
type CompensationLogEntry struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID    string    `gorm:"column:transaction_id;not null;index"`
	InventoryStockID uuid.UUID `gorm:"column:inventory_stock_id;type:uuid;not null"`
	RestoredQuantity float64   `gorm:"column:restored_quantity;not null"`
	Reason           string    `gorm:"column:reason;not null"`
	CompensatedAt    time.Time `gorm:"column:compensated_at;autoCreateTime"`
}
