package movements

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
)

// Recorder defines operations that append ledger rows.
type Recorder interface {
	Record(ctx context.Context, input RecordMovementInput) (*models.InventoryMovement, error)
}

// RecordMovementInput captures the immutable data a movement row requires.
type RecordMovementInput struct {
	InventoryStockID uuid.UUID
	MovementType     enums.MovementType
	QuantityChange   float64
	PreviousQuantity float64
	NewQuantity      float64
	ReferenceType    enums.ReferenceType
	ReferenceID      string
	Notes            *string
}

type recorder struct {
	repo Repository
}

// NewRecorder wires a movement recorder with the provided repository.
func NewRecorder(repo Repository) (Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("movement repository required")
	}
	return &recorder{repo: repo}, nil
}

const conservationEpsilon = 1e-9

func (r *recorder) Record(ctx context.Context, input RecordMovementInput) (*models.InventoryMovement, error) {
	if input.InventoryStockID == uuid.Nil {
		return nil, fmt.Errorf("inventory stock id is required")
	}
	if !input.MovementType.IsValid() {
		return nil, fmt.Errorf("invalid movement type %q", input.MovementType)
	}
	if !input.ReferenceType.IsValid() {
		return nil, fmt.Errorf("invalid reference type %q", input.ReferenceType)
	}
	if input.ReferenceID == "" {
		return nil, fmt.Errorf("reference id is required")
	}
	if math.Abs(input.PreviousQuantity+input.QuantityChange-input.NewQuantity) > conservationEpsilon {
		return nil, fmt.Errorf("movement does not conserve stock: %f + %f != %f",
			input.PreviousQuantity, input.QuantityChange, input.NewQuantity)
	}

	movement := &models.InventoryMovement{
		InventoryStockID: input.InventoryStockID,
		MovementType:     input.MovementType,
		QuantityChange:   input.QuantityChange,
		PreviousQuantity: input.PreviousQuantity,
		NewQuantity:      input.NewQuantity,
		ReferenceType:    input.ReferenceType,
		ReferenceID:      input.ReferenceID,
		Notes:            input.Notes,
	}

	if err := r.repo.Create(ctx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}
