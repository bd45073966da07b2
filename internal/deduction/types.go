package deduction

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/marianocruz/pos-inventory-backend/pkg/errors"
)

// StockPolicy decides what happens when an order needs more than a stock row
// holds.
type StockPolicy string

const (
	// StockPolicyReject fails the whole order before any stock is touched.
	StockPolicyReject StockPolicy = "reject"
	// StockPolicyClampWarn deducts what is available, floors the row at zero,
	// and flags the line so the caller can surface the shortage.
	StockPolicyClampWarn StockPolicy = "clamp_warn"
)

// ParseStockPolicy maps a config string to a policy, defaulting to reject.
func ParseStockPolicy(value string) (StockPolicy, error) {
	switch StockPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case StockPolicyReject, "":
		return StockPolicyReject, nil
	case StockPolicyClampWarn, "clamp":
		return StockPolicyClampWarn, nil
	default:
		return "", fmt.Errorf("unknown stock policy %q", value)
	}
}

// OrderItem is one ingredient requirement of a sale, in recipe units.
// Quantity is per single product; OrderMultiplier carries how many products
// the order holds (0 means 1).
type OrderItem struct {
	Name            string  `json:"name" validate:"required"`
	Unit            string  `json:"unit" validate:"required"`
	Quantity        float64 `json:"quantity" validate:"required,gt=0"`
	OrderMultiplier float64 `json:"order_multiplier,omitempty" validate:"omitempty,gt=0"`
}

// RecipeQuantity is the total recipe-unit requirement for the line.
func (i OrderItem) RecipeQuantity() float64 {
	if i.OrderMultiplier <= 0 {
		return i.Quantity
	}
	return i.Quantity * i.OrderMultiplier
}

// OrderInput is a full deduction request. TransactionID is the idempotency
// scope: replaying the same transaction returns the recorded outcome.
type OrderInput struct {
	TransactionID string      `json:"transaction_id" validate:"required"`
	StoreID       uuid.UUID   `json:"store_id" validate:"required"`
	Items         []OrderItem `json:"items" validate:"required,min=1,dive"`
}

// LineResult is the outcome for a single ingredient.
type LineResult struct {
	IngredientName string         `json:"ingredient_name"`
	IngredientUnit string         `json:"ingredient_unit"`
	StockID        uuid.UUID      `json:"stock_id,omitempty"`
	RequiredUnits  float64        `json:"required_units"`
	DeductedUnits  float64        `json:"deducted_units"`
	PreviousTotal  float64        `json:"previous_total"`
	NewTotal       float64        `json:"new_total"`
	Replayed       bool           `json:"replayed,omitempty"`
	Clamped        bool           `json:"clamped,omitempty"`
	Failed         bool           `json:"failed,omitempty"`
	FailureCode    apperrors.Code `json:"failure_code,omitempty"`
	Reason         string         `json:"reason,omitempty"`
}

// OrderResult is the order-level outcome. Applied is true only when every
// line either deducted successfully or replayed a prior success.
type OrderResult struct {
	TransactionID string       `json:"transaction_id"`
	StoreID       uuid.UUID    `json:"store_id"`
	Applied       bool         `json:"applied"`
	Compensated   bool         `json:"compensated,omitempty"`
	Lines         []LineResult `json:"lines"`
}

// FailedLines returns the subset of lines that did not apply.
func (r OrderResult) FailedLines() []LineResult {
	var failed []LineResult
	for _, line := range r.Lines {
		if line.Failed {
			failed = append(failed, line)
		}
	}
	return failed
}
