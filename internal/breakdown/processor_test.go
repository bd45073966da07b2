package breakdown

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marianocruz/pos-inventory-backend/internal/movements"
	"github.com/marianocruz/pos-inventory-backend/pkg/db/models"
	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
	"github.com/marianocruz/pos-inventory-backend/pkg/retry"
)

func TestParseBulkDescription(t *testing.T) {
	tests := []struct {
		desc string
		want ParsedBulk
	}{
		{
			desc: "1 box/70pcs Croffle Dough",
			want: ParsedBulk{BulkQuantity: 1, BulkUnit: "box", ServingQuantity: 70, ServingUnit: "pieces"},
		},
		{
			desc: "2 packs / 24 pieces Sausage",
			want: ParsedBulk{BulkQuantity: 2, BulkUnit: "packs", ServingQuantity: 24, ServingUnit: "pieces"},
		},
		{
			desc: "1 bottle/750ml Syrup",
			want: ParsedBulk{BulkQuantity: 1, BulkUnit: "bottle", ServingQuantity: 750, ServingUnit: "ml"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := ParseBulkDescription(tc.desc)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			if got == nil || *got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestParseBulkDescriptionUnmatchedReturnsNil(t *testing.T) {
	for _, desc := range []string{"", "croffle dough", "box of stuff", "plain napkins no bulk info"} {
		got, err := ParseBulkDescription(desc)
		if err != nil {
			t.Fatalf("unmatched text must not error, got %v for %q", err, desc)
		}
		if got != nil {
			t.Fatalf("expected nil for %q, got %+v", desc, got)
		}
	}
}

func TestParseBulkDescriptionRejectsZeroQuantities(t *testing.T) {
	if _, err := ParseBulkDescription("0 box/0pcs x"); err == nil {
		t.Fatal("zero quantities must be rejected")
	}
}

func TestComputeBreakdown(t *testing.T) {
	bd, err := ComputeBreakdown(1, 70, decimal.NewFromInt(700))
	if err != nil {
		t.Fatalf("ComputeBreakdown error: %v", err)
	}
	if bd.ServingQuantity != 70 {
		t.Fatalf("expected 70 servings, got %f", bd.ServingQuantity)
	}
	if !bd.CostPerServing.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected cost per serving 10, got %s", bd.CostPerServing)
	}
}

func TestComputeBreakdownRejectsBadInputs(t *testing.T) {
	if _, err := ComputeBreakdown(0, 70, decimal.NewFromInt(700)); err == nil {
		t.Fatal("zero bulk quantity must be rejected")
	}
	if _, err := ComputeBreakdown(1, 0, decimal.NewFromInt(700)); err == nil {
		t.Fatal("zero ratio must be rejected")
	}
}

type memStockRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.InventoryStockItem
}

func newMemStockRepo(rows ...*models.InventoryStockItem) *memStockRepo {
	m := &memStockRepo{rows: map[uuid.UUID]*models.InventoryStockItem{}}
	for _, row := range rows {
		m.rows[row.ID] = row
	}
	return m
}

func (m *memStockRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memStockRepo) Get(ctx context.Context, id uuid.UUID) (*models.InventoryStockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (m *memStockRepo) ApplyDelivery(ctx context.Context, id uuid.UUID, expectedVersion int64, update StockUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.Version != expectedVersion {
		return false, nil
	}
	row.StockQuantity = update.StockQuantity
	row.FractionalStock = update.FractionalStock
	row.BulkQuantity = update.BulkQuantity
	row.BulkUnit = update.BulkUnit
	row.ServingQuantity = update.ServingQuantity
	row.ServingUnit = update.ServingUnit
	row.BreakdownRatio = update.BreakdownRatio
	row.Cost = update.Cost
	row.CostPerServing = update.CostPerServing
	row.Version++
	return true, nil
}

type captureRecorder struct {
	mu        sync.Mutex
	movements []movements.RecordMovementInput
}

func (c *captureRecorder) Record(ctx context.Context, input movements.RecordMovementInput) (*models.InventoryMovement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.movements = append(c.movements, input)
	return &models.InventoryMovement{}, nil
}

func newTestProcessor(t *testing.T, repo Repository, rec movements.Recorder, overrides map[string]float64) *Processor {
	t.Helper()
	policy, err := retry.NewPolicy(3, time.Millisecond)
	if err != nil {
		t.Fatalf("retry policy: %v", err)
	}
	proc, err := NewProcessor(repo, rec, policy, nil, overrides)
	if err != nil {
		t.Fatalf("NewProcessor error: %v", err)
	}
	return proc
}

func TestProcessDeliverySetsServingStock(t *testing.T) {
	stock := &models.InventoryStockItem{
		ID: uuid.New(), StoreID: uuid.New(), Item: "Croffle Dough", Unit: "pieces",
		StockQuantity: 30, Version: 1, IsActive: true,
	}
	repo := newMemStockRepo(stock)
	rec := &captureRecorder{}
	proc := newTestProcessor(t, repo, rec, nil)

	result, err := proc.ProcessDelivery(context.Background(), DeliveryInput{
		DeliveryID: "grn-1",
		StoreID:    stock.StoreID,
		Items: []DeliveryItem{{
			StockID:      stock.ID,
			Description:  "1 box/70pcs Croffle Dough",
			PackageCount: 1,
			TotalCost:    decimal.NewFromInt(700),
		}},
	})
	if err != nil {
		t.Fatalf("ProcessDelivery error: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0].Failed {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Lines[0].ServingsReceived != 70 {
		t.Fatalf("expected 70 servings received, got %f", result.Lines[0].ServingsReceived)
	}

	// The delivery defines the on-hand count: 30 held before, 70 now.
	row, _ := repo.Get(context.Background(), stock.ID)
	if row.StockQuantity != 70 {
		t.Fatalf("expected stock set to 70 whole units, got %d", row.StockQuantity)
	}
	if !row.CostPerServing.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected per-serving cost 10, got %s", row.CostPerServing)
	}
	if row.BulkUnit != "box" || row.ServingUnit != "pieces" {
		t.Fatalf("bulk metadata not written: %+v", row)
	}

	if len(rec.movements) != 1 {
		t.Fatalf("expected one restock movement, got %d", len(rec.movements))
	}
	m := rec.movements[0]
	if m.MovementType != enums.MovementTypeRestock || m.ReferenceType != enums.ReferenceTypeDelivery {
		t.Fatalf("unexpected movement: %+v", m)
	}
	if m.PreviousQuantity != 30 || m.NewQuantity != 70 {
		t.Fatalf("expected movement 30 -> 70, got %+v", m)
	}
	if m.PreviousQuantity+m.QuantityChange != m.NewQuantity {
		t.Fatalf("movement does not conserve: %+v", m)
	}
}

func TestProcessDeliveryWithoutBulkPatternDefaultsRatio(t *testing.T) {
	stock := &models.InventoryStockItem{
		ID: uuid.New(), StoreID: uuid.New(), Item: "Napkins", Unit: "pieces",
		Version: 1, IsActive: true,
	}
	repo := newMemStockRepo(stock)
	proc := newTestProcessor(t, repo, &captureRecorder{}, nil)

	result, err := proc.ProcessDelivery(context.Background(), DeliveryInput{
		DeliveryID: "grn-4",
		StoreID:    stock.StoreID,
		Items: []DeliveryItem{{
			StockID:      stock.ID,
			Description:  "plain napkins no bulk info",
			PackageCount: 10,
			TotalCost:    decimal.NewFromInt(50),
		}},
	})
	if err != nil {
		t.Fatalf("ProcessDelivery error: %v", err)
	}
	line := result.Lines[0]
	if line.Failed {
		t.Fatalf("unparsed description must fall back to ratio 1: %+v", line)
	}
	if line.ServingsReceived != 10 || line.BreakdownRatio != 1 {
		t.Fatalf("expected 10 servings at ratio 1, got %+v", line)
	}
	if !line.CostPerServing.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected per-serving cost 5, got %s", line.CostPerServing)
	}

	row, _ := repo.Get(context.Background(), stock.ID)
	if row.StockQuantity != 10 {
		t.Fatalf("expected stock set to 10, got %d", row.StockQuantity)
	}
	if row.ServingUnit != "pieces" || row.BulkUnit != "pieces" {
		t.Fatalf("fallback units should mirror the item unit: %+v", row)
	}
}

func TestProcessDeliveryServingOverrideDoublesYield(t *testing.T) {
	stock := &models.InventoryStockItem{
		ID: uuid.New(), StoreID: uuid.New(), Item: "Mini Croffle", Unit: "pieces",
		Version: 1, IsActive: true,
	}
	repo := newMemStockRepo(stock)
	proc := newTestProcessor(t, repo, &captureRecorder{}, map[string]float64{"Mini Croffle": 0.5})

	result, err := proc.ProcessDelivery(context.Background(), DeliveryInput{
		DeliveryID: "grn-2",
		StoreID:    stock.StoreID,
		Items: []DeliveryItem{{
			StockID:      stock.ID,
			Description:  "1 box/70pcs Croffle Dough",
			PackageCount: 1,
			TotalCost:    decimal.NewFromInt(700),
		}},
	})
	if err != nil {
		t.Fatalf("ProcessDelivery error: %v", err)
	}
	// Half-piece servings: 70 pieces yield 140 servings.
	if result.Lines[0].ServingsReceived != 140 {
		t.Fatalf("expected 140 servings with 0.5 serving size, got %f", result.Lines[0].ServingsReceived)
	}
	if !result.Lines[0].CostPerServing.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected per-serving cost 5, got %s", result.Lines[0].CostPerServing)
	}
}

func TestProcessDeliveryLinesFailIndependently(t *testing.T) {
	good := &models.InventoryStockItem{
		ID: uuid.New(), StoreID: uuid.New(), Item: "Sausage", Unit: "pieces",
		Version: 1, IsActive: true,
	}
	repo := newMemStockRepo(good)
	proc := newTestProcessor(t, repo, &captureRecorder{}, nil)

	result, err := proc.ProcessDelivery(context.Background(), DeliveryInput{
		DeliveryID: "grn-3",
		StoreID:    good.StoreID,
		Items: []DeliveryItem{
			{StockID: uuid.New(), Description: "1 box/10pcs Unknown", PackageCount: 1},
			{StockID: good.ID, Description: "1 pack/24pcs Sausage", PackageCount: 2, TotalCost: decimal.NewFromInt(480)},
		},
	})
	if err == nil {
		t.Fatal("expected aggregated error for the bad line")
	}
	if len(result.Lines) != 2 {
		t.Fatalf("expected both lines reported, got %d", len(result.Lines))
	}
	if !result.Lines[0].Failed {
		t.Fatal("first line targets an unknown stock row and should fail")
	}
	if result.Lines[1].Failed {
		t.Fatalf("second line should succeed: %+v", result.Lines[1])
	}
	if result.Lines[1].ServingsReceived != 48 {
		t.Fatalf("expected 48 servings, got %f", result.Lines[1].ServingsReceived)
	}
}
