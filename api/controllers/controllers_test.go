package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marianocruz/pos-inventory-backend/internal/availability"
	"github.com/marianocruz/pos-inventory-backend/internal/breakdown"
	"github.com/marianocruz/pos-inventory-backend/internal/conversions"
	"github.com/marianocruz/pos-inventory-backend/internal/deduction"
	"github.com/marianocruz/pos-inventory-backend/internal/deployment"
	"github.com/marianocruz/pos-inventory-backend/internal/health"
	"github.com/marianocruz/pos-inventory-backend/internal/idempotency"
	"github.com/marianocruz/pos-inventory-backend/internal/movements"
	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
	"github.com/marianocruz/pos-inventory-backend/pkg/retry"
)

// In-memory collaborators shared by the endpoint tests.

type memStocks struct {
	rows map[uuid.UUID]*models.InventoryStockItem
}

func (m *memStocks) WithTx(tx *gorm.DB) deduction.StockRepository { return m }

func (m *memStocks) Get(ctx context.Context, id uuid.UUID) (*models.InventoryStockItem, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (m *memStocks) ListActiveByStore(ctx context.Context, storeID uuid.UUID) ([]models.InventoryStockItem, error) {
	return nil, nil
}

func (m *memStocks) CompareAndSwap(ctx context.Context, id uuid.UUID, expectedVersion int64, newWhole int, newFractional float64) (bool, error) {
	row, ok := m.rows[id]
	if !ok || row.Version != expectedVersion {
		return false, nil
	}
	row.StockQuantity = newWhole
	row.FractionalStock = newFractional
	row.Version++
	return true, nil
}

func (m *memStocks) HasVersionColumn(ctx context.Context) (bool, error) { return true, nil }

type memIdem struct {
	records map[string]*models.IdempotencyRecord
}

func (m *memIdem) WithTx(tx *gorm.DB) idempotency.Repository { return m }

func (m *memIdem) Find(ctx context.Context, txn string, stockID uuid.UUID) (*models.IdempotencyRecord, error) {
	rec, ok := m.records[txn+"/"+stockID.String()]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (m *memIdem) Create(ctx context.Context, record *models.IdempotencyRecord) error {
	m.records[record.TransactionID+"/"+record.InventoryStockID.String()] = record
	return nil
}

func (m *memIdem) Delete(ctx context.Context, txn string, stockID uuid.UUID) error {
	delete(m.records, txn+"/"+stockID.String())
	return nil
}

func (m *memIdem) ListByTransaction(ctx context.Context, txn string) ([]models.IdempotencyRecord, error) {
	return nil, nil
}

func (m *memIdem) Count(ctx context.Context) (int64, error) { return 0, nil }

type memMovements struct {
	rows []models.InventoryMovement
}

func (m *memMovements) WithTx(tx *gorm.DB) movements.Repository { return m }

func (m *memMovements) Create(ctx context.Context, movement *models.InventoryMovement) error {
	m.rows = append(m.rows, *movement)
	return nil
}

func (m *memMovements) ListByReference(ctx context.Context, refType enums.ReferenceType, refID string) ([]models.InventoryMovement, error) {
	var out []models.InventoryMovement
	for _, row := range m.rows {
		if row.ReferenceType == refType && row.ReferenceID == refID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memMovements) ListByReferenceAndType(ctx context.Context, refType enums.ReferenceType, refID string, movementType enums.MovementType) ([]models.InventoryMovement, error) {
	var out []models.InventoryMovement
	for _, row := range m.rows {
		if row.ReferenceType == refType && row.ReferenceID == refID && row.MovementType == movementType {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memMovements) CountByStoreSince(ctx context.Context, storeID uuid.UUID, movementType enums.MovementType, since time.Time) (int64, error) {
	return 0, nil
}

func (m *memMovements) CountLeakedByStore(ctx context.Context, storeID uuid.UUID) (int64, error) {
	return 0, nil
}

type memComps struct{}

func (memComps) WithTx(tx *gorm.DB) deduction.CompensationRepository { return memComps{} }
func (memComps) Create(ctx context.Context, entry *models.CompensationLogEntry) error {
	return nil
}
func (memComps) ListByTransaction(ctx context.Context, txn string) ([]models.CompensationLogEntry, error) {
	return nil, nil
}
func (memComps) Count(ctx context.Context) (int64, error) { return 0, nil }

type staticResolver struct {
	mappings map[string]*conversions.ResolvedMapping
}

func (s *staticResolver) FindMapping(ctx context.Context, storeID uuid.UUID, name, unit string) (*conversions.ResolvedMapping, error) {
	return s.mappings[name], nil
}

type inventoryFixture struct {
	controller *InventoryController
	stocks     *memStocks
	stock      *models.InventoryStockItem
	storeID    uuid.UUID
}

func newInventoryFixture(t *testing.T) *inventoryFixture {
	t.Helper()
	storeID := uuid.New()
	stock := &models.InventoryStockItem{
		ID: uuid.New(), StoreID: storeID, Item: "Croffle Dough", Unit: "pieces",
		StockQuantity: 10, Version: 1, IsActive: true, MinimumThreshold: 2,
	}
	stocks := &memStocks{rows: map[uuid.UUID]*models.InventoryStockItem{stock.ID: stock}}
	resolver := &staticResolver{mappings: map[string]*conversions.ResolvedMapping{
		"Croffle Dough": {
			Mapping: &models.ConversionMapping{InventoryStockID: stock.ID, ConversionFactor: 1, IsActive: true},
			Stock:   stock,
		},
	}}
	moveRepo := &memMovements{}
	recorder, err := movements.NewRecorder(moveRepo)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	policy, err := retry.NewPolicy(3, time.Millisecond)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	executor, err := deduction.NewExecutor(deduction.ExecutorDeps{
		Resolver:      resolver,
		Stocks:        stocks,
		Recorder:      recorder,
		IdemRepo:      &memIdem{records: map[string]*models.IdempotencyRecord{}},
		Compensations: memComps{},
		RetryPolicy:   policy,
		Concurrency:   2,
	})
	if err != nil {
		t.Fatalf("executor: %v", err)
	}
	checker, err := availability.NewService(resolver, 2)
	if err != nil {
		t.Fatalf("checker: %v", err)
	}
	processor := newTestProcessor(t)
	controller, err := NewInventoryController(executor, moveRepo, checker, processor, nil)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	return &inventoryFixture{controller: controller, stocks: stocks, stock: stock, storeID: storeID}
}

type memBreakdownRepo struct{}

func (memBreakdownRepo) WithTx(tx *gorm.DB) breakdown.Repository { return memBreakdownRepo{} }
func (memBreakdownRepo) Get(ctx context.Context, id uuid.UUID) (*models.InventoryStockItem, error) {
	return nil, gorm.ErrRecordNotFound
}
func (memBreakdownRepo) ApplyDelivery(ctx context.Context, id uuid.UUID, expectedVersion int64, update breakdown.StockUpdate) (bool, error) {
	return false, nil
}

func newTestProcessor(t *testing.T) *breakdown.Processor {
	t.Helper()
	policy, err := retry.NewPolicy(1, time.Millisecond)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	rec, err := movements.NewRecorder(&memMovements{})
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	proc, err := breakdown.NewProcessor(memBreakdownRepo{}, rec, policy, nil, nil)
	if err != nil {
		t.Fatalf("processor: %v", err)
	}
	return proc
}

func postJSON(t *testing.T, handler http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestPostDeductionAppliesOrder(t *testing.T) {
	fix := newInventoryFixture(t)
	body := `{"transaction_id":"txn-1","store_id":"` + fix.storeID.String() + `","items":[{"name":"Croffle Dough","unit":"pieces","quantity":3}]}`

	rec := postJSON(t, fix.controller.PostDeduction, "/api/v1/inventory/deductions", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data deduction.OrderResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Applied {
		t.Fatalf("expected applied order: %s", rec.Body.String())
	}
	if fix.stocks.rows[fix.stock.ID].StockQuantity != 7 {
		t.Fatalf("stock not deducted: %d", fix.stocks.rows[fix.stock.ID].StockQuantity)
	}
}

func TestPostDeductionInsufficientStockReturns200WithFailure(t *testing.T) {
	fix := newInventoryFixture(t)
	body := `{"transaction_id":"txn-2","store_id":"` + fix.storeID.String() + `","items":[{"name":"Croffle Dough","unit":"pieces","quantity":50}]}`

	rec := postJSON(t, fix.controller.PostDeduction, "/api/v1/inventory/deductions", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("business failure should stay 200, got %d", rec.Code)
	}
	var envelope struct {
		Data deduction.OrderResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Applied {
		t.Fatal("order must not apply")
	}
	if len(envelope.Data.FailedLines()) != 1 {
		t.Fatalf("expected one failed line: %s", rec.Body.String())
	}
}

func TestPostDeductionRejectsBadBody(t *testing.T) {
	fix := newInventoryFixture(t)
	rec := postJSON(t, fix.controller.PostDeduction, "/api/v1/inventory/deductions", `{"transaction_id":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPostAvailabilityCheck(t *testing.T) {
	fix := newInventoryFixture(t)
	body := `{"store_id":"` + fix.storeID.String() + `","items":[{"name":"Croffle Dough","unit":"pieces","quantity":4}]}`

	rec := postJSON(t, fix.controller.PostAvailabilityCheck, "/api/v1/inventory/availability/check", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data struct {
			AllSufficient bool                       `json:"all_sufficient"`
			Results       []availability.CheckResult `json:"results"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.AllSufficient || len(envelope.Data.Results) != 1 {
		t.Fatalf("unexpected availability response: %s", rec.Body.String())
	}
}

func TestPostCompensationAfterDeduction(t *testing.T) {
	fix := newInventoryFixture(t)
	deductBody := `{"transaction_id":"txn-3","store_id":"` + fix.storeID.String() + `","items":[{"name":"Croffle Dough","unit":"pieces","quantity":4}]}`
	if rec := postJSON(t, fix.controller.PostDeduction, "/api/v1/inventory/deductions", deductBody); rec.Code != http.StatusOK {
		t.Fatalf("setup deduction failed: %s", rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/deductions/txn-3/compensate", strings.NewReader(`{"reason":"void"}`))
	req.Header.Set("Content-Type", "application/json")
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("transactionID", "txn-3")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	fix.controller.PostCompensation(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fix.stocks.rows[fix.stock.ID].TotalStock() != 10 {
		t.Fatalf("stock not restored: %f", fix.stocks.rows[fix.stock.ID].TotalStock())
	}
}

type fakeDeployService struct {
	validateFn func(ctx context.Context, templateID, storeID uuid.UUID) (deployment.ValidationReport, error)
	deployFn   func(ctx context.Context, input deployment.DeployInput) (deployment.DeployResult, error)
}

func (f *fakeDeployService) Validate(ctx context.Context, templateID, storeID uuid.UUID) (deployment.ValidationReport, error) {
	return f.validateFn(ctx, templateID, storeID)
}

func (f *fakeDeployService) Deploy(ctx context.Context, input deployment.DeployInput) (deployment.DeployResult, error) {
	return f.deployFn(ctx, input)
}

func TestPostDeployReturns201(t *testing.T) {
	recipeID := uuid.New()
	svc := &fakeDeployService{
		deployFn: func(ctx context.Context, input deployment.DeployInput) (deployment.DeployResult, error) {
			return deployment.DeployResult{RecipeID: recipeID}, nil
		},
	}
	controller, err := NewDeploymentController(svc, nil)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	body := `{"template_id":"` + uuid.NewString() + `","store_id":"` + uuid.NewString() + `"}`
	rec := postJSON(t, controller.PostDeploy, "/api/v1/recipes/deployments", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPostDeployRejectsBadUUID(t *testing.T) {
	controller, err := NewDeploymentController(&fakeDeployService{}, nil)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	rec := postJSON(t, controller.PostDeploy, "/api/v1/recipes/deployments", `{"template_id":"nope","store_id":"also-nope"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

type fakeHealthService struct {
	report health.Report
}

func (f *fakeHealthService) CheckStore(ctx context.Context, storeID uuid.UUID) (health.Report, error) {
	f.report.StoreID = storeID
	return f.report, nil
}

func TestGetStoreHealth(t *testing.T) {
	svc := &fakeHealthService{report: health.Report{OverallStatus: enums.HealthStatusHealthy}}
	controller, err := NewHealthController(svc, nil, nil, nil)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	storeID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/health/"+storeID.String(), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("storeID", storeID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	controller.GetStoreHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data health.Report `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.OverallStatus != enums.HealthStatusHealthy {
		t.Fatalf("unexpected status: %s", envelope.Data.OverallStatus)
	}
}

func TestGetReadyReportsDependencyFailure(t *testing.T) {
	controller, err := NewHealthController(&fakeHealthService{}, pingFunc(func(ctx context.Context) error {
		return context.DeadlineExceeded
	}), nil, nil)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	controller.GetReady(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
