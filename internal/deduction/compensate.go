package deduction

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/marianocruz/pos-inventory-backend/internal/movements"
	"github.com/marianocruz/pos-inventory-backend/pkg/db"
	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
	apperrors "github.com/marianocruz/pos-inventory-backend/pkg/errors"
)

// movementLister is the read surface the void flow needs from the ledger.
type movementLister interface {
	ListByReferenceAndType(ctx context.Context, refType enums.ReferenceType, refID string, movementType enums.MovementType) ([]models.InventoryMovement, error)
}

// CompensationResult summarizes a transaction void.
type CompensationResult struct {
	TransactionID string      `json:"transaction_id"`
	RestoredLines []uuid.UUID `json:"restored_stock_ids"`
	SkippedLines  []uuid.UUID `json:"already_compensated_stock_ids,omitempty"`
}

// CompensateTransaction reverses every sale deduction recorded for a
// transaction, typically when the POS voids the sale. Stocks already
// compensated are skipped so the void itself is idempotent.
func (e *Executor) CompensateTransaction(ctx context.Context, lister movementLister, transactionID, reason string) (CompensationResult, error) {
	result := CompensationResult{TransactionID: transactionID}
	if strings.TrimSpace(transactionID) == "" {
		return result, apperrors.New(apperrors.CodeValidation, "transaction id is required")
	}
	if reason == "" {
		reason = "transaction voided"
	}
	if e.logg != nil {
		ctx = e.logg.WithTransactionID(ctx, transactionID)
	}

	sales, err := lister.ListByReferenceAndType(ctx, enums.ReferenceTypeTransaction, transactionID, enums.MovementTypeSale)
	if err != nil {
		return result, db.TranslateError(err, "list sale movements")
	}
	if len(sales) == 0 {
		return result, apperrors.New(apperrors.CodeNotFound,
			fmt.Sprintf("no sale movements recorded for transaction %s", transactionID))
	}

	compensated, err := lister.ListByReferenceAndType(ctx, enums.ReferenceTypeTransaction, transactionID, enums.MovementTypeCompensation)
	if err != nil {
		return result, db.TranslateError(err, "list compensation movements")
	}
	done := make(map[uuid.UUID]bool, len(compensated))
	for _, m := range compensated {
		done[m.InventoryStockID] = true
	}

	// A stock row can appear in several sale movements for the same
	// transaction; restore their sum in one pass.
	deductedByStock := make(map[uuid.UUID]float64)
	order := make([]uuid.UUID, 0, len(sales))
	for _, m := range sales {
		if _, seen := deductedByStock[m.InventoryStockID]; !seen {
			order = append(order, m.InventoryStockID)
		}
		deductedByStock[m.InventoryStockID] += -m.QuantityChange
	}

	for _, stockID := range order {
		if done[stockID] {
			result.SkippedLines = append(result.SkippedLines, stockID)
			continue
		}
		if err := e.restoreLine(ctx, transactionID, stockID, deductedByStock[stockID], reason); err != nil {
			return result, err
		}
		result.RestoredLines = append(result.RestoredLines, stockID)
	}
	if e.logg != nil {
		e.logg.Info(ctx, "transaction compensated")
	}
	return result, nil
}

var _ movementLister = movements.Repository(nil)
