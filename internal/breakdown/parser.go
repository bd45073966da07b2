package breakdown

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/marianocruz/pos-inventory-backend/pkg/errors"
)

// bulkPattern matches descriptions like "1 box/70pcs Croffle Dough" or
// "2 packs / 24 pieces Sausage".
var bulkPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(\w+)\s*/\s*(\d+(?:\.\d+)?)\s*(\w+)`)

// ParsedBulk is the structured form of a supplier bulk description.
type ParsedBulk struct {
	BulkQuantity    float64 `json:"bulk_quantity"`
	BulkUnit        string  `json:"bulk_unit"`
	ServingQuantity float64 `json:"serving_quantity"`
	ServingUnit     string  `json:"serving_unit"`
}

// Ratio returns servings per single bulk package.
func (p ParsedBulk) Ratio() float64 {
	if p.BulkQuantity == 0 {
		return 0
	}
	return p.ServingQuantity / p.BulkQuantity
}

// unit aliases as suppliers write them.
var unitAliases = map[string]string{
	"pcs":   "pieces",
	"pc":    "pieces",
	"piece": "pieces",
}

func normalizeUnit(unit string) string {
	lowered := strings.ToLower(strings.TrimSpace(unit))
	if canonical, ok := unitAliases[lowered]; ok {
		return canonical
	}
	return lowered
}

// ParseBulkDescription extracts bulk and serving quantities from a free-form
// supplier description. The first "N unit/M unit" pair wins; trailing item
// names are ignored. Returns (nil, nil) when no pair is present so the caller
// can fall back to a ratio of 1.
func ParseBulkDescription(description string) (*ParsedBulk, error) {
	match := bulkPattern.FindStringSubmatch(description)
	if match == nil {
		return nil, nil
	}
	bulkQty, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "bad bulk quantity")
	}
	servingQty, err := strconv.ParseFloat(match[3], 64)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "bad serving quantity")
	}
	if bulkQty <= 0 || servingQty <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "bulk and serving quantities must be positive")
	}
	return &ParsedBulk{
		BulkQuantity:    bulkQty,
		BulkUnit:        normalizeUnit(match[2]),
		ServingQuantity: servingQty,
		ServingUnit:     normalizeUnit(match[4]),
	}, nil
}

// Breakdown is the serving count and unit cost derived from one bulk package.
type Breakdown struct {
	ServingQuantity float64         `json:"serving_quantity"`
	CostPerServing  decimal.Decimal `json:"cost_per_serving"`
}

// ComputeBreakdown converts bulk packages into servings and splits the cost.
// ratio is servings per bulk package.
func ComputeBreakdown(bulkQuantity, ratio float64, cost decimal.Decimal) (Breakdown, error) {
	if bulkQuantity <= 0 {
		return Breakdown{}, apperrors.New(apperrors.CodeValidation, "bulk quantity must be positive")
	}
	if ratio <= 0 {
		return Breakdown{}, apperrors.New(apperrors.CodeValidation, "breakdown ratio must be positive")
	}
	servings := bulkQuantity * ratio
	perServing := cost.Div(decimal.NewFromFloat(servings)).Round(4)
	return Breakdown{ServingQuantity: servings, CostPerServing: perServing}, nil
}
