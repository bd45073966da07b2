package availability

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/marianocruz/pos-inventory-backend/internal/conversions"
	"github.com/marianocruz/pos-inventory-backend/pkg/enums"
	apperrors "github.com/marianocruz/pos-inventory-backend/pkg/errors"
)

// mappingResolver is the slice of the conversions service this checker needs.
type mappingResolver interface {
	FindMapping(ctx context.Context, storeID uuid.UUID, ingredientName, ingredientUnit string) (*conversions.ResolvedMapping, error)
}

// IngredientRequirement is one recipe line to check, in recipe units.
type IngredientRequirement struct {
	Name     string  `json:"name" validate:"required"`
	Unit     string  `json:"unit" validate:"required"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
}

// CheckResult reports availability for a single ingredient. Available is
// expressed in recipe units so it compares directly against Required.
type CheckResult struct {
	IngredientName string                   `json:"ingredient_name"`
	IngredientUnit string                   `json:"ingredient_unit"`
	Required       float64                  `json:"required"`
	Available      float64                  `json:"available"`
	Sufficient     bool                     `json:"sufficient"`
	Status         enums.AvailabilityStatus `json:"status"`
	Reason         string                   `json:"reason,omitempty"`
}

// Service answers "can this store make these ingredients right now" without
// mutating any stock.
type Service interface {
	Check(ctx context.Context, storeID uuid.UUID, req IngredientRequirement) (CheckResult, error)
	BulkCheck(ctx context.Context, storeID uuid.UUID, reqs []IngredientRequirement) ([]CheckResult, error)
}

type service struct {
	resolver    mappingResolver
	concurrency int
}

// NewService wires the availability checker. concurrency bounds how many
// ingredient lookups run in parallel during BulkCheck.
func NewService(resolver mappingResolver, concurrency int) (Service, error) {
	if resolver == nil {
		return nil, fmt.Errorf("mapping resolver required")
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &service{resolver: resolver, concurrency: concurrency}, nil
}

func (s *service) Check(ctx context.Context, storeID uuid.UUID, req IngredientRequirement) (CheckResult, error) {
	result := CheckResult{
		IngredientName: strings.TrimSpace(req.Name),
		IngredientUnit: strings.TrimSpace(req.Unit),
		Required:       req.Quantity,
	}
	if storeID == uuid.Nil {
		return result, apperrors.New(apperrors.CodeValidation, "store id is required")
	}
	if result.IngredientName == "" || result.IngredientUnit == "" {
		return result, apperrors.New(apperrors.CodeValidation, "ingredient name and unit are required")
	}
	if req.Quantity <= 0 {
		return result, apperrors.New(apperrors.CodeValidation, "required quantity must be positive")
	}

	resolved, err := s.resolver.FindMapping(ctx, storeID, result.IngredientName, result.IngredientUnit)
	if err != nil {
		return result, err
	}
	if resolved == nil || resolved.Stock == nil {
		result.Status = enums.AvailabilityStatusOutOfStock
		result.Reason = "no inventory mapping for this store"
		return result, nil
	}

	stock := resolved.Stock
	result.Available = stock.TotalStock() * resolved.Mapping.ConversionFactor
	result.Sufficient = result.Available >= result.Required
	result.Status = enums.ForStock(stock.TotalStock(), stock.MinimumThreshold)
	if !result.Sufficient {
		result.Reason = fmt.Sprintf("need %.2f %s, have %.2f", result.Required, result.IngredientUnit, result.Available)
	}
	return result, nil
}

// BulkCheck runs Check for every requirement concurrently and preserves input
// order in the returned slice. A single invalid line fails the whole call so
// callers never act on a partial picture.
func (s *service) BulkCheck(ctx context.Context, storeID uuid.UUID, reqs []IngredientRequirement) ([]CheckResult, error) {
	if storeID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "store id is required")
	}
	if len(reqs) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "at least one ingredient is required")
	}

	results := make([]CheckResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.Check(gctx, storeID, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// AllSufficient reports whether every result in the set can be satisfied.
func AllSufficient(results []CheckResult) bool {
	for _, r := range results {
		if !r.Sufficient {
			return false
		}
	}
	return len(results) > 0
}
