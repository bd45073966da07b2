package deduction

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/marianocruz/pos-inventory-backend/internal/conversions"
	"github.com/marianocruz/pos-inventory-backend/internal/idempotency"
	"github.com/marianocruz/pos-inventory-backend/internal/movements"
	"github.com/marianocruz/pos-inventory-backend/pkg/db"
	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
	apperrors "github.com/marianocruz/pos-inventory-backend/pkg/errors"
	"github.com/marianocruz/pos-inventory-backend/pkg/logger"
	"github.com/marianocruz/pos-inventory-backend/pkg/metrics"
	"github.com/marianocruz/pos-inventory-backend/pkg/retry"
)

// mappingResolver is the slice of the conversions service the executor needs.
type mappingResolver interface {
	FindMapping(ctx context.Context, storeID uuid.UUID, ingredientName, ingredientUnit string) (*conversions.ResolvedMapping, error)
}

// fastPathGuard is the advisory Redis claim in front of the database check.
type fastPathGuard interface {
	CheckAndMark(ctx context.Context, transactionID, stockID string) bool
	Release(ctx context.Context, transactionID, stockID string)
}

// Executor applies order-level deductions: validate every line first, then
// deduct concurrently, then roll back every applied line if any sibling
// failed. Stock writes go through version compare-and-swap; replays of a
// transaction return the recorded outcome without touching stock.
type Executor struct {
	resolver      mappingResolver
	stocks        StockRepository
	recorder      movements.Recorder
	idemRepo      idempotency.Repository
	guard         fastPathGuard
	compensations CompensationRepository
	retryPolicy   *retry.Policy
	metrics       *metrics.DeductionMetrics
	logg          *logger.Logger
	policy        StockPolicy
	concurrency   int
}

// ExecutorDeps carries the executor's collaborators.
type ExecutorDeps struct {
	Resolver      mappingResolver
	Stocks        StockRepository
	Recorder      movements.Recorder
	IdemRepo      idempotency.Repository
	Guard         fastPathGuard
	Compensations CompensationRepository
	RetryPolicy   *retry.Policy
	Metrics       *metrics.DeductionMetrics
	Logger        *logger.Logger
	Policy        StockPolicy
	Concurrency   int
}

// NewExecutor validates and wires the deduction executor.
func NewExecutor(deps ExecutorDeps) (*Executor, error) {
	if deps.Resolver == nil {
		return nil, fmt.Errorf("mapping resolver required")
	}
	if deps.Stocks == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if deps.Recorder == nil {
		return nil, fmt.Errorf("movement recorder required")
	}
	if deps.IdemRepo == nil {
		return nil, fmt.Errorf("idempotency repository required")
	}
	if deps.Compensations == nil {
		return nil, fmt.Errorf("compensation repository required")
	}
	if deps.RetryPolicy == nil {
		return nil, fmt.Errorf("retry policy required")
	}
	policy := deps.Policy
	if policy == "" {
		policy = StockPolicyReject
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Executor{
		resolver:      deps.Resolver,
		stocks:        deps.Stocks,
		recorder:      deps.Recorder,
		idemRepo:      deps.IdemRepo,
		guard:         deps.Guard,
		compensations: deps.Compensations,
		retryPolicy:   deps.RetryPolicy,
		metrics:       deps.Metrics,
		logg:          deps.Logger,
		policy:        policy,
		concurrency:   concurrency,
	}, nil
}

type lineState struct {
	item     OrderItem
	resolved *conversions.ResolvedMapping
	record   *models.IdempotencyRecord
	result   LineResult
	applied  bool
}

// ExecuteOrder runs the full deduction for one sale. Business-rule failures
// (insufficient stock, missing mapping) are reported inside OrderResult with
// a nil error; only infrastructure failures return a non-nil error.
func (e *Executor) ExecuteOrder(ctx context.Context, input OrderInput) (OrderResult, error) {
	started := time.Now()
	result := OrderResult{TransactionID: input.TransactionID, StoreID: input.StoreID}

	if err := e.validateInput(input); err != nil {
		return result, err
	}
	if e.logg != nil {
		ctx = e.logg.WithTransactionID(e.logg.WithStoreID(ctx, input.StoreID.String()), input.TransactionID)
	}

	states, err := e.prepareLines(ctx, input)
	if err != nil {
		return result, err
	}

	// Validation pass: no stock is touched until every pending line can be
	// satisfied under the active policy.
	if failed := e.validateLines(states); failed {
		result.Lines = collectResults(states)
		e.metrics.IncFailure(input.StoreID.String(), "precheck")
		return result, nil
	}

	applyErr := e.applyLines(ctx, input, states)
	result.Lines = collectResults(states)

	if applyErr != nil || anyFailed(states) {
		compErr := e.compensateStates(ctx, input, states, "sibling line failed")
		result.Compensated = compErr == nil && anyApplied(states)
		e.metrics.IncFailure(input.StoreID.String(), failureReason(states))
		if infra := infrastructureError(applyErr); infra != nil {
			return result, multierr.Append(infra, compErr)
		}
		if compErr != nil {
			return result, compErr
		}
		return result, nil
	}

	result.Applied = true
	e.metrics.IncSuccess(input.StoreID.String())
	e.metrics.ObserveDuration(input.StoreID.String(), time.Since(started))
	if e.logg != nil {
		e.logg.Info(ctx, "order deduction applied")
	}
	return result, nil
}

func (e *Executor) validateInput(input OrderInput) error {
	if strings.TrimSpace(input.TransactionID) == "" {
		return apperrors.New(apperrors.CodeValidation, "transaction id is required")
	}
	if input.StoreID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "store id is required")
	}
	if len(input.Items) == 0 {
		return apperrors.New(apperrors.CodeValidation, "at least one order item is required")
	}
	for _, item := range input.Items {
		if strings.TrimSpace(item.Name) == "" || strings.TrimSpace(item.Unit) == "" {
			return apperrors.New(apperrors.CodeValidation, "every item needs a name and unit")
		}
		if item.Quantity <= 0 {
			return apperrors.New(apperrors.CodeValidation,
				fmt.Sprintf("quantity for %s must be positive", item.Name))
		}
		if item.OrderMultiplier < 0 {
			return apperrors.New(apperrors.CodeValidation,
				fmt.Sprintf("order multiplier for %s must not be negative", item.Name))
		}
	}
	return nil
}

// prepareLines resolves mappings and loads any prior idempotency records.
func (e *Executor) prepareLines(ctx context.Context, input OrderInput) ([]*lineState, error) {
	states := make([]*lineState, len(input.Items))
	for i, item := range input.Items {
		state := &lineState{
			item: item,
			result: LineResult{
				IngredientName: item.Name,
				IngredientUnit: item.Unit,
			},
		}
		resolved, err := e.resolver.FindMapping(ctx, input.StoreID, item.Name, item.Unit)
		if err != nil {
			return nil, err
		}
		state.resolved = resolved
		if resolved != nil && resolved.Stock != nil {
			state.result.StockID = resolved.Stock.ID
			record, err := e.idemRepo.Find(ctx, input.TransactionID, resolved.Stock.ID)
			if err != nil {
				return nil, db.TranslateError(err, "load idempotency record")
			}
			state.record = record
		}
		states[i] = state
	}
	return states, nil
}

// validateLines marks business failures before anything is written. Returns
// true when at least one pending line cannot proceed.
func (e *Executor) validateLines(states []*lineState) bool {
	failed := false
	for _, state := range states {
		if state.record != nil {
			continue
		}
		if state.resolved == nil || state.resolved.Stock == nil {
			state.result.Failed = true
			state.result.FailureCode = apperrors.CodeMappingNotFound
			state.result.Reason = fmt.Sprintf("no mapping for %s (%s)", state.item.Name, state.item.Unit)
			failed = true
			continue
		}
		required := state.item.RecipeQuantity() / state.resolved.Mapping.ConversionFactor
		state.result.RequiredUnits = required
		if e.policy == StockPolicyReject && state.resolved.Stock.TotalStock() < required {
			state.result.Failed = true
			state.result.FailureCode = apperrors.CodeInsufficientStock
			state.result.Reason = fmt.Sprintf("need %.2f, have %.2f",
				required, state.resolved.Stock.TotalStock())
			failed = true
		}
	}
	return failed
}

func (e *Executor) applyLines(ctx context.Context, input OrderInput, states []*lineState) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, state := range states {
		g.Go(func() error {
			if state.record != nil {
				return e.replayLine(state)
			}
			return e.applyLine(gctx, input, state)
		})
	}
	return g.Wait()
}

// replayLine fills the result from a prior successful run.
func (e *Executor) replayLine(state *lineState) error {
	var prior LineResult
	if len(state.record.Result) > 0 {
		if err := json.Unmarshal(state.record.Result, &prior); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "corrupt idempotency record")
		}
	}
	prior.Replayed = true
	state.result = prior
	e.metrics.IncReplay()
	return nil
}

// applyLine deducts one ingredient under the retry policy. Version conflicts
// re-read the row and try again; business failures stop immediately.
func (e *Executor) applyLine(ctx context.Context, input OrderInput, state *lineState) error {
	stockID := state.resolved.Stock.ID
	if e.guard != nil && !e.guard.CheckAndMark(ctx, input.TransactionID, stockID.String()) {
		// Lost the fast-path claim: either a prior run applied it or a
		// concurrent duplicate is in flight. The table decides.
		record, err := e.idemRepo.Find(ctx, input.TransactionID, stockID)
		if err != nil {
			return db.TranslateError(err, "re-check idempotency record")
		}
		if record != nil {
			state.record = record
			return e.replayLine(state)
		}
		state.result.Failed = true
		state.result.FailureCode = apperrors.CodeConflict
		state.result.Reason = "duplicate deduction in flight"
		return nil
	}

	err := e.retryPolicy.Do(ctx, func(ctx context.Context) error {
		return e.deductOnce(ctx, input, state)
	})
	if err == nil {
		state.applied = true
		return nil
	}

	if e.guard != nil {
		e.guard.Release(ctx, input.TransactionID, stockID.String())
	}
	code := apperrors.CodeOf(err)
	switch code {
	case apperrors.CodeInsufficientStock, apperrors.CodeMappingNotFound, apperrors.CodeVersionConflict, apperrors.CodeConflict:
		state.result.Failed = true
		state.result.FailureCode = code
		state.result.Reason = apperrors.As(err).Message()
		return nil
	default:
		state.result.Failed = true
		state.result.FailureCode = code
		state.result.Reason = "datastore failure"
		return err
	}
}

func (e *Executor) deductOnce(ctx context.Context, input OrderInput, state *lineState) error {
	stock, err := e.stocks.Get(ctx, state.resolved.Stock.ID)
	if err != nil {
		return db.TranslateError(err, "load stock row")
	}

	required := state.item.RecipeQuantity() / state.resolved.Mapping.ConversionFactor
	total := stock.TotalStock()
	deduct := required
	clamped := false
	if total < required {
		if e.policy == StockPolicyReject {
			return apperrors.New(apperrors.CodeInsufficientStock,
				fmt.Sprintf("need %.2f, have %.2f", required, total))
		}
		deduct = total
		clamped = true
	}

	newTotal := total - deduct
	if newTotal < 0 {
		newTotal = 0
	}
	newWhole := int(math.Floor(newTotal))
	newFractional := newTotal - float64(newWhole)
	if newFractional < 1e-9 {
		newFractional = 0
	}

	ok, err := e.stocks.CompareAndSwap(ctx, stock.ID, stock.Version, newWhole, newFractional)
	if err != nil {
		return db.TranslateError(err, "compare-and-swap stock")
	}
	if !ok {
		e.metrics.IncConflict()
		return apperrors.New(apperrors.CodeVersionConflict,
			fmt.Sprintf("stock %s changed concurrently", stock.ID))
	}

	if _, err := e.recorder.Record(ctx, movements.RecordMovementInput{
		InventoryStockID: stock.ID,
		MovementType:     enums.MovementTypeSale,
		QuantityChange:   -deduct,
		PreviousQuantity: total,
		NewQuantity:      newTotal,
		ReferenceType:    enums.ReferenceTypeTransaction,
		ReferenceID:      input.TransactionID,
	}); err != nil {
		return err
	}

	state.result.RequiredUnits = required
	state.result.DeductedUnits = deduct
	state.result.PreviousTotal = total
	state.result.NewTotal = newTotal
	state.result.Clamped = clamped
	if clamped && e.logg != nil {
		e.logg.Warn(e.logg.WithField(ctx, "stock_id", stock.ID.String()),
			"stock clamped to zero on insufficient quantity")
	}

	payload, err := json.Marshal(state.result)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "encode line result")
	}
	if err := e.idemRepo.Create(ctx, &models.IdempotencyRecord{
		TransactionID:    input.TransactionID,
		InventoryStockID: stock.ID,
		Result:           payload,
	}); err != nil {
		translated := db.TranslateError(err, "persist idempotency record")
		if apperrors.CodeOf(translated) == apperrors.CodeConflict {
			// Unique index raced with another worker; the stock write above
			// was still ours, so keep the computed result.
			return nil
		}
		return translated
	}
	return nil
}

// compensateStates reverses every line this call applied. Replayed lines are
// left alone; their deduction belongs to the earlier transaction run.
func (e *Executor) compensateStates(ctx context.Context, input OrderInput, states []*lineState, reason string) error {
	var errs error
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, state := range states {
		if !state.applied {
			continue
		}
		g.Go(func() error {
			if err := e.restoreLine(gctx, input.TransactionID, state.result.StockID, state.result.DeductedUnits, reason); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// restoreLine adds quantity back to a stock row under CAS, records the
// compensation movement and log entry, and clears the idempotency marker.
func (e *Executor) restoreLine(ctx context.Context, transactionID string, stockID uuid.UUID, quantity float64, reason string) error {
	if quantity <= 0 {
		return nil
	}
	var previous, restoredTo float64
	err := e.retryPolicy.Do(ctx, func(ctx context.Context) error {
		stock, err := e.stocks.Get(ctx, stockID)
		if err != nil {
			return db.TranslateError(err, "load stock for compensation")
		}
		previous = stock.TotalStock()
		restoredTo = previous + quantity
		newWhole := int(math.Floor(restoredTo))
		newFractional := restoredTo - float64(newWhole)
		if newFractional < 1e-9 {
			newFractional = 0
		}
		ok, err := e.stocks.CompareAndSwap(ctx, stock.ID, stock.Version, newWhole, newFractional)
		if err != nil {
			return db.TranslateError(err, "compare-and-swap compensation")
		}
		if !ok {
			e.metrics.IncConflict()
			return apperrors.New(apperrors.CodeVersionConflict,
				fmt.Sprintf("stock %s changed concurrently during compensation", stock.ID))
		}
		return nil
	})
	if err != nil {
		if e.logg != nil {
			e.logg.Error(ctx, "compensation failed, stock requires manual reconciliation", err)
		}
		return err
	}

	if _, err := e.recorder.Record(ctx, movements.RecordMovementInput{
		InventoryStockID: stockID,
		MovementType:     enums.MovementTypeCompensation,
		QuantityChange:   quantity,
		PreviousQuantity: previous,
		NewQuantity:      restoredTo,
		ReferenceType:    enums.ReferenceTypeTransaction,
		ReferenceID:      transactionID,
		Notes:            &reason,
	}); err != nil {
		return err
	}
	if err := e.compensations.Create(ctx, &models.CompensationLogEntry{
		TransactionID:    transactionID,
		InventoryStockID: stockID,
		RestoredQuantity: quantity,
		Reason:           reason,
	}); err != nil {
		return db.TranslateError(err, "persist compensation log")
	}
	if err := e.idemRepo.Delete(ctx, transactionID, stockID); err != nil {
		return db.TranslateError(err, "clear idempotency record")
	}
	if e.guard != nil {
		e.guard.Release(ctx, transactionID, stockID.String())
	}
	return nil
}

func collectResults(states []*lineState) []LineResult {
	results := make([]LineResult, len(states))
	for i, state := range states {
		results[i] = state.result
	}
	return results
}

func anyFailed(states []*lineState) bool {
	for _, state := range states {
		if state.result.Failed {
			return true
		}
	}
	return false
}

func anyApplied(states []*lineState) bool {
	for _, state := range states {
		if state.applied {
			return true
		}
	}
	return false
}

func failureReason(states []*lineState) string {
	for _, state := range states {
		if state.result.Failed {
			return strings.ToLower(string(state.result.FailureCode))
		}
	}
	return "unknown"
}

// infrastructureError strips business codes so only transport/datastore
// problems surface as errors to the caller.
func infrastructureError(err error) error {
	if err == nil {
		return nil
	}
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInsufficientStock, apperrors.CodeMappingNotFound,
		apperrors.CodeVersionConflict, apperrors.CodeConflict, apperrors.CodeValidation:
		return nil
	}
	return err
}
