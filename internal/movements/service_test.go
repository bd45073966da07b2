package movements

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
)

type fakeRepository struct {
	createFn func(ctx context.Context, movement *models.InventoryMovement) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, movement *models.InventoryMovement) error {
	if f.createFn != nil {
		return f.createFn(ctx, movement)
	}
	return nil
}

func (f *fakeRepository) ListByReference(ctx context.Context, refType enums.ReferenceType, refID string) ([]models.InventoryMovement, error) {
	return nil, nil
}

func (f *fakeRepository) ListByReferenceAndType(ctx context.Context, refType enums.ReferenceType, refID string, movementType enums.MovementType) ([]models.InventoryMovement, error) {
	return nil, nil
}

func (f *fakeRepository) CountByStoreSince(ctx context.Context, storeID uuid.UUID, movementType enums.MovementType, since time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeRepository) CountLeakedByStore(ctx context.Context, storeID uuid.UUID) (int64, error) {
	return 0, nil
}

func TestRecorderRecord(t *testing.T) {
	repo := &fakeRepository{}
	rec, err := NewRecorder(repo)
	if err != nil {
		t.Fatalf("unexpected recorder error: %v", err)
	}

	var created *models.InventoryMovement
	repo.createFn = func(ctx context.Context, movement *models.InventoryMovement) error {
		created = movement
		return nil
	}

	input := RecordMovementInput{
		InventoryStockID: uuid.New(),
		MovementType:     enums.MovementTypeSale,
		QuantityChange:   -3,
		PreviousQuantity: 10,
		NewQuantity:      7,
		ReferenceType:    enums.ReferenceTypeTransaction,
		ReferenceID:      "txn-1",
	}

	got, err := rec.Record(context.Background(), input)
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if created == nil || got != created {
		t.Fatal("expected movement to be created and returned")
	}
	if created.QuantityChange != -3 || created.PreviousQuantity != 10 || created.NewQuantity != 7 {
		t.Fatalf("unexpected movement data: %+v", created)
	}
}

func TestRecorderRejectsNonConservingMovement(t *testing.T) {
	rec, err := NewRecorder(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected recorder error: %v", err)
	}

	_, err = rec.Record(context.Background(), RecordMovementInput{
		InventoryStockID: uuid.New(),
		MovementType:     enums.MovementTypeSale,
		QuantityChange:   -3,
		PreviousQuantity: 10,
		NewQuantity:      8,
		ReferenceType:    enums.ReferenceTypeTransaction,
		ReferenceID:      "txn-1",
	})
	if err == nil {
		t.Fatal("expected conservation violation to be rejected")
	}
}

func TestRecorderValidation(t *testing.T) {
	rec, err := NewRecorder(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected recorder error: %v", err)
	}

	tests := []struct {
		name  string
		input RecordMovementInput
	}{
		{
			name: "missing stock id",
			input: RecordMovementInput{
				MovementType:  enums.MovementTypeSale,
				ReferenceType: enums.ReferenceTypeTransaction,
				ReferenceID:   "txn-1",
			},
		},
		{
			name: "invalid movement type",
			input: RecordMovementInput{
				InventoryStockID: uuid.New(),
				MovementType:     enums.MovementType("bogus"),
				ReferenceType:    enums.ReferenceTypeTransaction,
				ReferenceID:      "txn-1",
			},
		},
		{
			name: "missing reference id",
			input: RecordMovementInput{
				InventoryStockID: uuid.New(),
				MovementType:     enums.MovementTypeSale,
				ReferenceType:    enums.ReferenceTypeTransaction,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := rec.Record(context.Background(), tc.input); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestRecorderRepoError(t *testing.T) {
	repo := &fakeRepository{createFn: func(ctx context.Context, movement *models.InventoryMovement) error {
		return errors.New("boom")
	}}
	rec, err := NewRecorder(repo)
	if err != nil {
		t.Fatalf("unexpected recorder error: %v", err)
	}

	_, err = rec.Record(context.Background(), RecordMovementInput{
		InventoryStockID: uuid.New(),
		MovementType:     enums.MovementTypeRestock,
		QuantityChange:   5,
		PreviousQuantity: 0,
		NewQuantity:      5,
		ReferenceType:    enums.ReferenceTypeDelivery,
		ReferenceID:      "grn-1",
	})
	if err == nil {
		t.Fatal("expected repo error to propagate")
	}
}
