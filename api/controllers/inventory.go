package controllers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marianocruz/pos-inventory-backend/api/responses"
	"github.com/marianocruz/pos-inventory-backend/api/validators"
	"github.com/marianocruz/pos-inventory-backend/internal/availability"
	"github.com/marianocruz/pos-inventory-backend/internal/breakdown"
	"github.com/marianocruz/pos-inventory-backend/internal/deduction"
	"github.com/marianocruz/pos-inventory-backend/internal/movements"
	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
	apperrors "github.com/marianocruz/pos-inventory-backend/pkg/errors"
	"github.com/marianocruz/pos-inventory-backend/pkg/logger"
)

// InventoryController exposes the deduction, availability, and delivery
// endpoints.
type InventoryController struct {
	executor  *deduction.Executor
	movements movements.Repository
	checker   availability.Service
	processor *breakdown.Processor
	logg      *logger.Logger
}

func NewInventoryController(executor *deduction.Executor, moveRepo movements.Repository, checker availability.Service, processor *breakdown.Processor, logg *logger.Logger) (*InventoryController, error) {
	if executor == nil {
		return nil, fmt.Errorf("deduction executor required")
	}
	if moveRepo == nil {
		return nil, fmt.Errorf("movement repository required")
	}
	if checker == nil {
		return nil, fmt.Errorf("availability checker required")
	}
	if processor == nil {
		return nil, fmt.Errorf("delivery processor required")
	}
	return &InventoryController{
		executor:  executor,
		movements: moveRepo,
		checker:   checker,
		processor: processor,
		logg:      logg,
	}, nil
}

// PostDeduction handles POST /inventory/deductions. Business failures come
// back 200 with applied=false and per-line reasons; only infrastructure
// problems produce an error status.
func (c *InventoryController) PostDeduction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input deduction.OrderInput
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	result, err := c.executor.ExecuteOrder(ctx, input)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}

type compensateRequest struct {
	Reason string `json:"reason"`
}

// PostCompensation handles POST /inventory/deductions/{transactionID}/compensate.
func (c *InventoryController) PostCompensation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	transactionID := chi.URLParam(r, "transactionID")

	var body compensateRequest
	if r.ContentLength > 0 {
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, c.logg, w, err)
			return
		}
	}

	result, err := c.executor.CompensateTransaction(ctx, c.movements, transactionID, body.Reason)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}

type availabilityCheckRequest struct {
	StoreID string                               `json:"store_id" validate:"required,uuid"`
	Items   []availability.IngredientRequirement `json:"items" validate:"required,min=1,dive"`
}

// PostAvailabilityCheck handles POST /inventory/availability/check.
func (c *InventoryController) PostAvailabilityCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body availabilityCheckRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	storeID, err := validators.ParseUUID(body.StoreID, "store_id")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	results, err := c.checker.BulkCheck(ctx, storeID, body.Items)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]any{
		"store_id":       storeID,
		"all_sufficient": availability.AllSufficient(results),
		"results":        results,
	})
}

// PostDelivery handles POST /inventory/deliveries. Per-line failures are
// reported inside the result; the status stays 200 so good lines are not
// retried by the client.
func (c *InventoryController) PostDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input breakdown.DeliveryInput
	if err := validators.DecodeJSONBody(r, &input); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	result, err := c.processor.ProcessDelivery(ctx, input)
	if err != nil && len(result.Lines) == 0 {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, result)
}

// GetMovements handles GET /inventory/movements/{transactionID} for audits.
func (c *InventoryController) GetMovements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	transactionID := chi.URLParam(r, "transactionID")
	if transactionID == "" {
		responses.WriteError(ctx, c.logg, w, apperrors.New(apperrors.CodeValidation, "transaction id is required"))
		return
	}

	rows, err := c.movements.ListByReference(ctx, enums.ReferenceTypeTransaction, transactionID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, rows)
}
