package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord marks one (transaction, stock item) deduction as applied.
// Rows are written exactly once and never updated; replays read the cached
// result instead of touching stock.
type IdempotencyRecord struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID    string          `gorm:"column:transaction_id;not null;uniqueIndex:ux_idempotency_txn_stock"`
	InventoryStockID uuid.UUID       `gorm:"column:inventory_stock_id;type:uuid;not null;uniqueIndex:ux_idempotency_txn_stock"`
	Result           json.RawMessage `gorm:"column:result;type:jsonb"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}
