package breakdown

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/marianocruz/pos-inventory-backend/internal/movements"
	"github.com/marianocruz/pos-inventory-backend/pkg/db"
	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
	apperrors "github.com/marianocruz/pos-inventory-backend/pkg/errors"
	"github.com/marianocruz/pos-inventory-backend/pkg/logger"
	"github.com/marianocruz/pos-inventory-backend/pkg/retry"
)

// DeliveryItem is one received line: a number of bulk packages with their
// supplier description and total cost.
type DeliveryItem struct {
	StockID      uuid.UUID       `json:"stock_id" validate:"required"`
	Description  string          `json:"description" validate:"required"`
	PackageCount float64         `json:"package_count" validate:"required,gt=0"`
	TotalCost    decimal.Decimal `json:"total_cost"`
}

// DeliveryInput is a full goods-received note.
type DeliveryInput struct {
	DeliveryID string         `json:"delivery_id" validate:"required"`
	StoreID    uuid.UUID      `json:"store_id" validate:"required"`
	Items      []DeliveryItem `json:"items" validate:"required,min=1,dive"`
}

// DeliveryLineResult reports the intake outcome for one stock row.
type DeliveryLineResult struct {
	StockID          uuid.UUID       `json:"stock_id"`
	ServingsReceived float64         `json:"servings_received"`
	NewTotal         float64         `json:"new_total"`
	CostPerServing   decimal.Decimal `json:"cost_per_serving"`
	BreakdownRatio   float64         `json:"breakdown_ratio"`
	Failed           bool            `json:"failed,omitempty"`
	Reason           string          `json:"reason,omitempty"`
}

// DeliveryResult summarizes a processed delivery. Lines fail independently:
// one bad stock row never blocks the rest of the truck.
type DeliveryResult struct {
	DeliveryID string               `json:"delivery_id"`
	Lines      []DeliveryLineResult `json:"lines"`
}

// Processor turns bulk deliveries into serving-level stock.
type Processor struct {
	stocks      Repository
	recorder    movements.Recorder
	retryPolicy *retry.Policy
	logg        *logger.Logger
	// servingOverrides maps a lowercased item name to its serving size in
	// pieces. An item served at 0.5 pieces yields two servings per piece.
	servingOverrides map[string]float64
}

// NewProcessor wires the delivery processor.
func NewProcessor(stocks Repository, recorder movements.Recorder, retryPolicy *retry.Policy, logg *logger.Logger, servingOverrides map[string]float64) (*Processor, error) {
	if stocks == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("movement recorder required")
	}
	if retryPolicy == nil {
		return nil, fmt.Errorf("retry policy required")
	}
	normalized := make(map[string]float64, len(servingOverrides))
	for name, size := range servingOverrides {
		if size > 0 {
			normalized[strings.ToLower(strings.TrimSpace(name))] = size
		}
	}
	return &Processor{
		stocks:           stocks,
		recorder:         recorder,
		retryPolicy:      retryPolicy,
		logg:             logg,
		servingOverrides: normalized,
	}, nil
}

// ProcessDelivery applies every line of a goods-received note. Line failures
// are collected into the returned error but never abort sibling lines.
func (p *Processor) ProcessDelivery(ctx context.Context, input DeliveryInput) (DeliveryResult, error) {
	result := DeliveryResult{DeliveryID: input.DeliveryID}
	if strings.TrimSpace(input.DeliveryID) == "" {
		return result, apperrors.New(apperrors.CodeValidation, "delivery id is required")
	}
	if input.StoreID == uuid.Nil {
		return result, apperrors.New(apperrors.CodeValidation, "store id is required")
	}
	if len(input.Items) == 0 {
		return result, apperrors.New(apperrors.CodeValidation, "at least one delivery item is required")
	}
	if p.logg != nil {
		ctx = p.logg.WithStoreID(p.logg.WithField(ctx, "delivery_id", input.DeliveryID), input.StoreID.String())
	}

	var errs error
	for _, item := range input.Items {
		line, err := p.processLine(ctx, input.DeliveryID, item)
		if err != nil {
			line.Failed = true
			line.Reason = err.Error()
			errs = multierr.Append(errs, fmt.Errorf("stock %s: %w", item.StockID, err))
		}
		result.Lines = append(result.Lines, line)
	}
	return result, errs
}

func (p *Processor) processLine(ctx context.Context, deliveryID string, item DeliveryItem) (DeliveryLineResult, error) {
	line := DeliveryLineResult{StockID: item.StockID}
	if item.StockID == uuid.Nil {
		return line, apperrors.New(apperrors.CodeValidation, "stock id is required")
	}
	if item.PackageCount <= 0 {
		return line, apperrors.New(apperrors.CodeValidation, "package count must be positive")
	}

	parsed, err := ParseBulkDescription(item.Description)
	if err != nil {
		return line, err
	}

	var previous, newTotal float64
	err = p.retryPolicy.Do(ctx, func(ctx context.Context) error {
		stock, err := p.stocks.Get(ctx, item.StockID)
		if err != nil {
			return db.TranslateError(err, "load stock for delivery")
		}

		bulk := parsed
		if bulk == nil {
			// No bulk pattern in the description: each package is one
			// serving of the item itself.
			bulk = &ParsedBulk{BulkQuantity: 1, BulkUnit: stock.Unit, ServingQuantity: 1, ServingUnit: stock.Unit}
		}

		ratio := bulk.Ratio()
		if size, ok := p.servingOverrides[strings.ToLower(stock.Item)]; ok {
			ratio /= size
		}
		bd, err := ComputeBreakdown(item.PackageCount, ratio, item.TotalCost)
		if err != nil {
			return err
		}

		previous = stock.TotalStock()
		// The delivery defines the on-hand serving count; stock is set, not
		// accumulated.
		newTotal = bd.ServingQuantity
		newWhole := int(math.Floor(newTotal))
		newFractional := newTotal - float64(newWhole)
		if newFractional < 1e-9 {
			newFractional = 0
		}

		ok, err := p.stocks.ApplyDelivery(ctx, stock.ID, stock.Version, StockUpdate{
			StockQuantity:   newWhole,
			FractionalStock: newFractional,
			BulkQuantity:    bulk.BulkQuantity,
			BulkUnit:        bulk.BulkUnit,
			ServingQuantity: bulk.ServingQuantity,
			ServingUnit:     bulk.ServingUnit,
			BreakdownRatio:  ratio,
			Cost:            item.TotalCost,
			CostPerServing:  bd.CostPerServing,
		})
		if err != nil {
			return db.TranslateError(err, "apply delivery update")
		}
		if !ok {
			return apperrors.New(apperrors.CodeVersionConflict,
				fmt.Sprintf("stock %s changed concurrently during delivery", stock.ID))
		}

		line.ServingsReceived = bd.ServingQuantity
		line.NewTotal = newTotal
		line.CostPerServing = bd.CostPerServing
		line.BreakdownRatio = ratio
		return nil
	})
	if err != nil {
		return line, err
	}

	if _, err := p.recorder.Record(ctx, movements.RecordMovementInput{
		InventoryStockID: item.StockID,
		MovementType:     enums.MovementTypeRestock,
		QuantityChange:   newTotal - previous,
		PreviousQuantity: previous,
		NewQuantity:      newTotal,
		ReferenceType:    enums.ReferenceTypeDelivery,
		ReferenceID:      deliveryID,
	}); err != nil {
		return line, err
	}
	return line, nil
}
